package planner

import (
	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/probe"
)

// loudnormStage appends the second-pass loudnorm filter built from a
// first-pass measurement.
func loudnormStage(c *chain, m probe.LoudnessMeasurement) {
	c.add(stageLoudnorm, m.SecondPass())
}

// audioOverride is the encoder for loudness-normalized audio. loudnorm
// resamples to 192 kHz internally, so the output rate is pinned.
func audioOverride(cfg *config.Config) *CodecOverride {
	return &CodecOverride{
		Kind:       probe.TypeAudio,
		Encoder:    cfg.AudioEncoder,
		Bitrate:    cfg.AudioBitrate,
		SampleRate: cfg.AudioSampleRate,
	}
}
