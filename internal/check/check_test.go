package check

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/streamnorm/internal/config"
)

const filtersListing = `Filters:
  T.. = Timeline support
  .S. = Slice threading
 ... loudnorm          A->A       EBU R128 loudness normalization
 T.C crop              V->V       Crop the input video.
 T.. cropdetect        V->V       Auto-detect crop size.
 ..C scale             V->V       Scale the input video size and/or convert the image format.
`

const encodersListing = `Encoders:
 V..... = Video
 ------
 V....D libx265              libx265 H.265 / HEVC (codec hevc)
 A....D aac                  AAC (Advanced Audio Coding)
`

// stubTools replaces the tool lookups for one test.
func stubTools(t *testing.T, missing string, filters, encoders string) {
	t.Helper()
	origLook, origList := lookPath, listFFmpeg
	t.Cleanup(func() { lookPath, listFFmpeg = origLook, origList })

	lookPath = func(name string) (string, error) {
		if name == missing {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/bin/" + name, nil
	}
	listFFmpeg = func(_, kind string) (string, error) {
		switch kind {
		case "filters":
			return filters, nil
		case "encoders":
			return encoders, nil
		}
		return "", fmt.Errorf("unexpected listing %q", kind)
	}
}

func TestCheckDeps(t *testing.T) {
	full := func(c *config.Config) {
		c.AudioLevel = true
		c.ScaleHeight = 720
	}
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		missing  string
		filters  string
		encoders string
		wantErr  error
	}{
		{"all present", full, "", filtersListing, encodersListing, nil},
		{"no ffmpeg", full, "ffmpeg", filtersListing, encodersListing, ErrFfmpegNotFound},
		{"no ffprobe", full, "ffprobe", filtersListing, encodersListing, ErrFfprobeNotFound},
		{"no loudnorm", full, "", "Filters:\n T.C crop V->V Crop.\n T.. cropdetect V->V x\n ..C scale V->V x\n", encodersListing, ErrFilterMissing},
		{"no video encoder", full, "", filtersListing, " A....D aac AAC\n", ErrEncoderMissing},
		{"metadata only needs no listing", func(c *config.Config) { c.AutocropIntervals = 0 }, "", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubTools(t, tt.missing, tt.filters, tt.encoders)
			cfg := config.DefaultConfig()
			tt.mutate(&cfg)
			err := CheckDeps(&cfg)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCheckDeps_NamesMissingFilter(t *testing.T) {
	stubTools(t, "", "Filters:\n", encodersListing)
	cfg := config.DefaultConfig()
	err := CheckDeps(&cfg)
	require.ErrorIs(t, err, ErrFilterMissing)
	assert.Contains(t, err.Error(), "cropdetect")
	assert.Contains(t, err.Error(), "--autocrop-intervals")
}

func TestHasEntry(t *testing.T) {
	assert.True(t, hasEntry(filtersListing, "loudnorm"))
	assert.True(t, hasEntry(filtersListing, "crop"))
	assert.False(t, hasEntry(filtersListing, "crop_detect"))
	assert.True(t, hasEntry(encodersListing, "libx265"))
	assert.False(t, hasEntry(encodersListing, "libx264"))
}
