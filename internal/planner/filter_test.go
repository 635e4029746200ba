package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/probe"
)

func TestStreamRef(t *testing.T) {
	ref := StreamRef{Input: 0, Stream: 3}
	assert.Equal(t, "0:3", ref.String())
	assert.Equal(t, "[0:3]", ref.Pad())
	assert.Equal(t, "[0-3-loudnorm]", ref.Label("loudnorm"))
}

func TestChain_ThreadsLabels(t *testing.T) {
	c := newChain(StreamRef{Input: 0, Stream: 0})
	assert.False(t, c.filtered())
	assert.Empty(t, c.String())
	assert.Empty(t, c.output())

	c.add(stageCrop, "crop=1920:800:0:140")
	c.add(stageScale, "scale=-2:720")

	assert.Equal(t, "[0:0]crop=1920:800:0:140[0-0-crop];[0-0-crop]scale=-2:720[0-0-scale]", c.String())
	assert.Equal(t, "[0-0-scale]", c.output())
}

func TestVideoStages(t *testing.T) {
	src := &probe.Stream{CodecType: probe.TypeVideo, Width: 1920, Height: 1080}
	letterbox := probe.CropRegion{Width: 1920, Height: 800, X: 0, Y: 140}

	tests := []struct {
		name       string
		scale      int
		intervals  int
		applied    bool
		wantFilter string
		wantW      int
		wantH      int
	}{
		{"nothing", 0, 12, false, "", 1920, 1080},
		{"crop only", 0, 12, true, "[0:0]crop=1920:800:0:140[0-0-crop]", 1920, 800},
		{"scale only", 720, 12, false, "[0:0]scale=-2:720[0-0-scale]", 1280, 720},
		{"crop then scale", 720, 12, true,
			"[0:0]crop=1920:800:0:140[0-0-crop];[0-0-crop]scale=-2:720[0-0-scale]", 1728, 720},
		{"scale target above source", 2160, 12, false, "", 1920, 1080},
		{"scale target equals source", 1080, 12, false, "", 1920, 1080},
		{"crop disabled ignores region", 0, 0, true, "", 1920, 1080},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.ScaleHeight = tt.scale
			cfg.AutocropIntervals = tt.intervals
			c := newChain(StreamRef{})
			w, h := videoStages(c, &cfg, src, letterbox, tt.applied)
			assert.Equal(t, tt.wantFilter, c.String())
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestLoudnormStage(t *testing.T) {
	c := newChain(StreamRef{Input: 0, Stream: 1})
	loudnormStage(c, probe.LoudnessMeasurement{Integrated: -23.456, Range: 7.1, TruePeak: -1.004, Threshold: -33.9})
	assert.Equal(t,
		"[0:1]loudnorm=measured_I=-23.46:measured_LRA=7.10:measured_TP=-1.00:measured_thresh=-33.90[0-1-loudnorm]",
		c.String())
}

func TestOverrides(t *testing.T) {
	cfg := config.DefaultConfig()

	v := videoOverride(&cfg, 1920, 800, 8_000_000)
	assert.Equal(t, &CodecOverride{Kind: probe.TypeVideo, Encoder: "libx265", CRF: 19, Preset: "slow", Note: "fixed"}, v)

	a := audioOverride(&cfg)
	assert.Equal(t, &CodecOverride{Kind: probe.TypeAudio, Encoder: "aac", Bitrate: "256k", SampleRate: 48000}, a)
}

func TestSmartCRF(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SmartCRF = true

	tests := []struct {
		name    string
		w, h    int
		bitrate int64
		want    int
	}{
		{"1080p typical bitrate", 1920, 1080, 8_000_000, 20},
		{"720p starved", 1280, 720, 1_000_000, 23},
		{"4k master", 3840, 2160, 60_000_000, 16},
		{"unknown everything", 0, 0, 0, 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := SmartCRF(&cfg, tt.w, tt.h, tt.bitrate)
			assert.Equal(t, tt.want, got)
		})
	}

	cfg.SmartCRF = false
	got, note := SmartCRF(&cfg, 640, 360, 500_000)
	assert.Equal(t, 19, got)
	assert.Equal(t, "fixed", note)
}
