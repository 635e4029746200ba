// Package check provides system diagnostics (the check subcommand) and
// pre-pipeline dependency validation (CheckDeps) for ffmpeg, ffprobe, and
// the filters and encoders the enabled options need.
package check

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/backmassage/streamnorm/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool, filter or
// encoder is missing. Filter and encoder errors are wrapped with the name.
var (
	ErrFfmpegNotFound  = errors.New("ffmpeg not found")
	ErrFfprobeNotFound = errors.New("ffprobe not found")
	ErrFilterMissing   = errors.New("ffmpeg filter not available")
	ErrEncoderMissing  = errors.New("ffmpeg encoder not available")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
}

// requirement is one filter or encoder an enabled option depends on.
type requirement struct {
	kind   string // "filters" or "encoders", as in ffmpeg -filters.
	name   string
	reason string
}

// requirements lists what cfg needs from the ffmpeg build.
func requirements(cfg *config.Config) []requirement {
	var reqs []requirement
	if cfg.AudioLevel {
		reqs = append(reqs,
			requirement{"filters", "loudnorm", "--audio-level"},
			requirement{"encoders", cfg.AudioEncoder, "--audio-level"},
		)
	}
	if cfg.AutocropEnabled() {
		reqs = append(reqs,
			requirement{"filters", "cropdetect", "--autocrop-intervals"},
			requirement{"filters", "crop", "--autocrop-intervals"},
		)
	}
	if cfg.ScaleHeight > 0 {
		reqs = append(reqs, requirement{"filters", "scale", "--scale"})
	}
	if cfg.AutocropEnabled() || cfg.ScaleHeight > 0 {
		reqs = append(reqs, requirement{"encoders", cfg.VideoEncoder, "video re-encode"})
	}
	return reqs
}

// listFFmpeg returns the output of "ffmpeg -hide_banner -<kind>". Replaced
// in tests.
var listFFmpeg = func(ffmpeg, kind string) (string, error) {
	out, err := exec.Command(ffmpeg, "-hide_banner", "-"+kind).Output()
	return string(out), err
}

// lookPath is exec.LookPath, replaced in tests.
var lookPath = exec.LookPath

// CheckDeps is the pre-pipeline validation: it verifies that ffmpeg and
// ffprobe resolve and that every filter and encoder the configuration
// needs is compiled in. Returns a sentinel error (possibly wrapped) on
// failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := lookPath(cfg.FFmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFfmpegNotFound, cfg.FFmpegPath)
	}
	if _, err := lookPath(cfg.FFprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFfprobeNotFound, cfg.FFprobePath)
	}

	listings := make(map[string]string)
	for _, req := range requirements(cfg) {
		listing, ok := listings[req.kind]
		if !ok {
			out, err := listFFmpeg(cfg.FFmpegPath, req.kind)
			if err != nil {
				return fmt.Errorf("list ffmpeg %s: %w", req.kind, err)
			}
			listing = out
			listings[req.kind] = out
		}
		if !hasEntry(listing, req.name) {
			if req.kind == "filters" {
				return fmt.Errorf("%w: %s (needed by %s)", ErrFilterMissing, req.name, req.reason)
			}
			return fmt.Errorf("%w: %s (needed by %s)", ErrEncoderMissing, req.name, req.reason)
		}
	}
	return nil
}

// RunCheck runs the interactive check flow: prints availability of ffmpeg,
// ffprobe, and each filter and encoder the configuration uses. This is
// informational only; it does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	if !checkTool(log, cfg.FFmpegPath) {
		return
	}
	checkTool(log, cfg.FFprobePath)

	reqs := requirements(cfg)
	if len(reqs) == 0 {
		log.Info("No filters or encoders needed (metadata only)")
		return
	}
	for _, req := range reqs {
		listing, err := listFFmpeg(cfg.FFmpegPath, req.kind)
		if err != nil {
			log.Warn("Could not list %s: %v", req.kind, err)
			continue
		}
		if hasEntry(listing, req.name) {
			log.Success("%s %s (%s)", strings.TrimSuffix(req.kind, "s"), req.name, req.reason)
		} else {
			log.Error("%s %s missing (%s)", strings.TrimSuffix(req.kind, "s"), req.name, req.reason)
		}
	}
}

// checkTool verifies a binary resolves and logs its version string.
func checkTool(log Logger, name string) bool {
	if _, err := lookPath(name); err != nil {
		log.Error("%s not found", name)
		return false
	}
	out, err := exec.Command(name, "-version").Output()
	if err != nil {
		log.Warn("%s found but -version failed: %v", name, err)
		return true
	}
	firstLine := strings.TrimSpace(string(out))
	if idx := strings.Index(firstLine, "\n"); idx > 0 {
		firstLine = firstLine[:idx]
	}
	log.Success("%s", firstLine)
	return true
}

// hasEntry reports whether an ffmpeg -filters or -encoders listing contains
// name. Entry lines are "<flags> <name> ...".
func hasEntry(listing, name string) bool {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}
