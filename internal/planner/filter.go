package planner

import (
	"strconv"
	"strings"

	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/probe"
)

// Filter stage names. They double as the suffix of each stage's output
// label, so they must stay unique per stream.
const (
	stageCrop     = "crop"
	stageScale    = "scale"
	stageLoudnorm = "loudnorm"
)

// chain threads one stream's filter stages together. Each stage reads the
// current frontier label and writes a new one, starting from the source
// pad, so every fragment's input is the previous fragment's output.
type chain struct {
	ref       StreamRef
	frontier  string
	fragments []string
}

func newChain(ref StreamRef) *chain {
	return &chain{ref: ref, frontier: ref.Pad()}
}

// add appends "[in]expr[out]" and advances the frontier to [out].
func (c *chain) add(stage, expr string) {
	out := c.ref.Label(stage)
	c.fragments = append(c.fragments, c.frontier+expr+out)
	c.frontier = out
}

// filtered reports whether any stage was added.
func (c *chain) filtered() bool { return len(c.fragments) > 0 }

// String joins the fragments with ";". Empty when unfiltered.
func (c *chain) String() string { return strings.Join(c.fragments, ";") }

// output returns the label to map, or "" when unfiltered.
func (c *chain) output() string {
	if !c.filtered() {
		return ""
	}
	return c.frontier
}

// videoStages appends the crop and scale stages for a video stream and
// returns the resulting picture size. crop is the aggregated region and
// applied reports whether it should be used.
func videoStages(c *chain, cfg *config.Config, s *probe.Stream, crop probe.CropRegion, applied bool) (width, height int) {
	width, height = s.Width, s.Height

	if cfg.AutocropEnabled() && applied {
		c.add(stageCrop, crop.Filter())
		width, height = crop.Width, crop.Height
	}

	// Scaling is decided on the source height, not the cropped one.
	if cfg.ScaleHeight > 0 && s.Height > cfg.ScaleHeight {
		c.add(stageScale, "scale=-2:"+strconv.Itoa(cfg.ScaleHeight))
		if height > 0 {
			width = evenFloor(width * cfg.ScaleHeight / height)
		}
		height = cfg.ScaleHeight
	}
	return width, height
}

// videoOverride is the encoder for a filtered video stream.
func videoOverride(cfg *config.Config, width, height int, bitrate int64) *CodecOverride {
	crf, note := SmartCRF(cfg, width, height, bitrate)
	return &CodecOverride{
		Kind:    probe.TypeVideo,
		Encoder: cfg.VideoEncoder,
		CRF:     crf,
		Preset:  cfg.VideoPreset,
		Note:    note,
	}
}

func evenFloor(n int) int { return n &^ 1 }
