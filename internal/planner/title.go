package planner

import (
	"strconv"
	"strings"

	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/language"
	"github.com/backmassage/streamnorm/internal/probe"
)

// ChannelLabel names a channel count the way surround layouts are usually
// written: 1 is Mono, 2 is Stereo, odd counts carry an LFE ("4.1" for 5),
// even counts are the bare number. Non-positive counts have no label.
func ChannelLabel(count int) string {
	switch {
	case count <= 0:
		return ""
	case count == 1:
		return "Mono"
	case count == 2:
		return "Stereo"
	case count%2 == 1:
		return strconv.Itoa(count-1) + ".1"
	default:
		return strconv.Itoa(count)
	}
}

// StreamTitle synthesizes the normalized title for s:
// "English (AAC 5.1)" for audio, "Japanese (SUBRIP)" for everything else.
func StreamTitle(s *probe.Stream) string {
	lang := language.Normalize(s.Language)
	codec := strings.ToUpper(s.CodecName)
	if s.CodecType == probe.TypeAudio {
		if label := ChannelLabel(s.Channels); label != "" {
			return lang + " (" + codec + " " + label + ")"
		}
	}
	return lang + " (" + codec + ")"
}

// NeedsTitle reports whether s should be (re)titled: audio and subtitle
// streams whose normalization is enabled, and that have no title yet
// unless Force is set.
func NeedsTitle(s *probe.Stream, cfg *config.Config) bool {
	switch s.CodecType {
	case probe.TypeAudio:
		if !cfg.NormalizeAudioTitles {
			return false
		}
	case probe.TypeSubtitle:
		if !cfg.NormalizeSubtitleTitles {
			return false
		}
	default:
		return false
	}
	return s.Title == "" || cfg.Force
}
