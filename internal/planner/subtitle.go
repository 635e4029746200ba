package planner

import (
	"strings"

	"github.com/backmassage/streamnorm/internal/probe"
)

// selectSubtitle is the subtitle fallback of SelectDefaults.
func selectSubtitle(streams []ResolvedStream, target string, sel *Selection) {
	for _, rs := range streams {
		if rs.Stream.CodecType != probe.TypeSubtitle {
			continue
		}
		pos := rs.Entry.Position
		if !sel.SubtitleSelected && rs.Language == target {
			if isCommentary(rs.Stream.Title) {
				sel.Skipped = append(sel.Skipped, pos)
				continue
			}
			sel.Flags[pos] = DispositionDefault
			sel.SubtitleSelected = true
			continue
		}
		sel.Flags[pos] = DispositionOff
	}
}

// isCommentary reports whether a title marks a commentary track.
func isCommentary(title string) bool {
	return strings.Contains(strings.ToLower(title), "commentary")
}
