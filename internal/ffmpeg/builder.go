package ffmpeg

import (
	"strconv"

	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/planner"
	"github.com/backmassage/streamnorm/internal/probe"
)

// Build constructs the complete ffmpeg argument slice, binary first, that
// applies cs to input and writes output. Every mapped stream is copied
// unless its change carries a CodecOverride.
//
// The retry parameter supplies the current mux queue size and timestamp
// fix, which may differ from the defaults after retry adjustments.
func Build(cfg *config.Config, input, output string, cs *planner.ChangeSet, rs *RetryState) []string {
	args := make([]string, 0, 32+8*len(cs.Changes))

	// --- Preamble ---
	args = append(args, cfg.FFmpegPath, "-hide_banner", "-nostdin", "-y")
	if cfg.Verbose {
		args = append(args, "-loglevel", "info", "-stats")
	} else {
		args = append(args, "-loglevel", "error")
	}

	// --- Pre-input flags (timestamp fix) ---
	if rs.TimestampFix {
		args = append(args, "-fflags", "+genpts+discardcorrupt")
	}

	// --- Input ---
	args = append(args, "-i", input)

	// --- Filter graph ---
	if graph := cs.Graph(); graph != "" {
		args = append(args, "-filter_complex", graph)
	}

	// --- Stream maps, in output order ---
	for i := range cs.Changes {
		args = append(args, "-map", cs.Changes[i].MapTarget())
	}

	// --- Global stream flags ---
	args = append(args,
		"-dn",
		"-max_muxing_queue_size", strconv.Itoa(rs.MuxQueueSize),
		"-c", "copy",
	)

	// --- Per-stream codecs and metadata ---
	for i := range cs.Changes {
		args = appendCodec(args, &cs.Changes[i])
	}
	for i := range cs.Changes {
		args = appendMetadata(args, &cs.Changes[i])
	}

	// --- Metadata and chapters ---
	args = append(args, "-map_metadata", "0", "-map_chapters", "0")

	// --- Post-input timestamp flag ---
	if rs.TimestampFix {
		args = append(args, "-avoid_negative_ts", "make_zero")
	}

	return append(args, output)
}

// appendCodec overrides stream copy for a filtered stream.
func appendCodec(args []string, c *planner.StreamChange) []string {
	o := c.Codec
	if o == nil {
		return args
	}
	pos := strconv.Itoa(c.Position)
	args = append(args, "-c:"+pos, o.Encoder)
	switch o.Kind {
	case probe.TypeVideo:
		args = append(args, "-crf:"+pos, strconv.Itoa(o.CRF))
		if o.Preset != "" {
			args = append(args, "-preset:"+pos, o.Preset)
		}
	case probe.TypeAudio:
		if o.Bitrate != "" {
			args = append(args, "-b:"+pos, o.Bitrate)
		}
		if o.SampleRate > 0 {
			args = append(args, "-ar:"+pos, strconv.Itoa(o.SampleRate))
		}
	}
	return args
}

// appendMetadata renders the title and default-flag directives.
func appendMetadata(args []string, c *planner.StreamChange) []string {
	pos := strconv.Itoa(c.Position)
	if c.Title != "" {
		args = append(args, "-metadata:s:"+pos, "title="+c.Title)
	}
	switch c.Disposition {
	case planner.DispositionDefault:
		args = append(args, "-disposition:"+pos, "default")
	case planner.DispositionOff:
		args = append(args, "-disposition:"+pos, "0")
	}
	return args
}
