package planner

import (
	"fmt"

	"github.com/backmassage/streamnorm/internal/config"
)

// SmartCRF returns the CRF for a re-encoded video stream and a note on how
// it was chosen. With SmartCRF disabled it is cfg.VideoCRF. Otherwise the
// configured CRF is shifted by resolution and bitrate curves: small or
// starved sources tolerate more compression, large masters get less.
// bitrate is the source bitrate in bits/sec (0 when unknown).
func SmartCRF(cfg *config.Config, width, height int, bitrate int64) (int, string) {
	if !cfg.SmartCRF {
		return cfg.VideoCRF, "fixed"
	}

	pixels := 0
	if width > 0 && height > 0 {
		pixels = width * height
	}
	kbps := int(bitrate / 1000)

	adj := resolutionCurve(pixels) + bitrateCurve(kbps)
	crf := clamp(cfg.VideoCRF+adj, crfMin, crfMax)
	return crf, fmt.Sprintf("smart (%dx%d, %dkb/s, adj=%d)", width, height, kbps, adj)
}

// resolutionCurve: lower-res content gets a higher CRF (more compression),
// higher-res masters get a lower CRF (more quality).
func resolutionCurve(pixels int) int {
	if pixels <= 0 {
		return 0
	}
	switch {
	case pixels <= 640*360:
		return 4
	case pixels <= 854*480:
		return 3
	case pixels <= 1280*720:
		return 2
	case pixels <= 1920*1080:
		return 1
	case pixels >= 3840*2160:
		return -2
	case pixels >= 2560*1440:
		return -1
	default:
		return 0
	}
}

// bitrateCurve adapts to how much detail the source actually carries.
func bitrateCurve(kbps int) int {
	if kbps <= 0 {
		return 0
	}
	switch {
	case kbps < 1200:
		return 2
	case kbps < 2500:
		return 1
	case kbps > 35000:
		return -2
	case kbps > 18000:
		return -1
	default:
		return 0
	}
}

// CRF clamp range for smart adjustment.
const (
	crfMin = 16
	crfMax = 30
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
