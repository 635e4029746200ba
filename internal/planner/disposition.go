package planner

import (
	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/language"
	"github.com/backmassage/streamnorm/internal/probe"
)

// ResolvedStream is a stream map entry joined with its probed metadata.
type ResolvedStream struct {
	Entry    MapEntry
	Stream   *probe.Stream
	Language string // Normalized English name, or language.Unknown.
}

// Selection is the outcome of default-track selection.
type Selection struct {
	Flags            map[int]Disposition // Output position -> flag.
	AudioSelected    bool
	SubtitleSelected bool
	Skipped          []int // Subtitle positions passed over as commentary.
}

// SelectDefaults picks at most one default audio stream and, only when no
// audio matched, at most one default subtitle stream. It is a sequential
// pass over streams in map order, so the first match in map order wins.
//
// Every audio stream visited receives an explicit flag. Subtitles are only
// considered in the fallback: a language match titled as commentary is
// skipped without a flag, and every other subtitle visited is flagged 0.
func SelectDefaults(streams []ResolvedStream, cfg *config.Config) Selection {
	sel := Selection{Flags: make(map[int]Disposition)}
	target := cfg.TargetLanguage
	if target == "" || target == language.Unknown {
		return sel
	}

	if cfg.SetDefaultAudio {
		selectAudio(streams, target, &sel)
	}
	if !sel.AudioSelected && cfg.SetDefaultSubtitle {
		selectSubtitle(streams, target, &sel)
	}
	return sel
}

func selectAudio(streams []ResolvedStream, target string, sel *Selection) {
	for _, rs := range streams {
		if rs.Stream.CodecType != probe.TypeAudio {
			continue
		}
		pos := rs.Entry.Position
		if !sel.AudioSelected && rs.Language == target {
			sel.Flags[pos] = DispositionDefault
			sel.AudioSelected = true
			continue
		}
		sel.Flags[pos] = DispositionOff
	}
}
