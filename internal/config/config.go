// Package config holds runtime configuration: defaults, the optional TOML
// config file, CLI flag binding, and validation.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/backmassage/streamnorm/internal/language"
)

// --- Enum types for validated string fields ---

// CropStrategy selects how crop-detection samples are joined.
type CropStrategy string

const (
	CropFailFast   CropStrategy = "fail-fast"   // Any failed sample fails the stream (default).
	CropBestEffort CropStrategy = "best-effort" // Aggregate whatever samples succeeded.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// optionally overlaid by [LoadFile], then by CLI flags, and finally checked
// by [Config.Validate]. After validation it is read-only and shared by
// pointer.
type Config struct {
	// Normalization options.
	NormalizeAudioTitles    bool         `toml:"audio_titles"`        // Default: true.
	NormalizeSubtitleTitles bool         `toml:"subtitle_titles"`     // Default: true.
	Force                   bool         `toml:"force"`               // Overwrite existing titles.
	SetDefaultAudio         bool         `toml:"default_audio"`       // Default: true.
	SetDefaultSubtitle      bool         `toml:"default_subtitle"`    // Default: true.
	AudioLevel              bool         `toml:"audio_level"`         // Two-pass loudnorm.
	Language                string       `toml:"language"`            // Default: "eng".
	ScaleHeight             int          `toml:"scale"`               // 0 disables scaling.
	AutocropIntervals       int          `toml:"autocrop_intervals"`  // Default: 12. 0 disables crop.
	CropStrategy            CropStrategy `toml:"crop_strategy"`       // Default: fail-fast.
	ProgressInterval        Duration     `toml:"progress_interval"`   // Default: 2s.

	// TargetLanguage is derived from Language by Validate (English name).
	TargetLanguage string `toml:"-"`

	// Re-encode settings for streams that receive a filter chain.
	VideoEncoder    string `toml:"video_encoder"` // Default: "libx265".
	VideoCRF        int    `toml:"video_crf"`     // Default: 19.
	SmartCRF        bool   `toml:"smart_crf"`     // Adjust VideoCRF by output resolution and source bitrate.
	VideoPreset     string `toml:"video_preset"`  // Default: "slow".
	AudioEncoder    string `toml:"audio_encoder"` // Default: "aac".
	AudioBitrate    string `toml:"audio_bitrate"` // Default: "256k".
	AudioSampleRate int    `toml:"-"`             // Fixed: 48000 Hz (loudnorm upsamples to 192k).

	// External tools.
	FFmpegPath  string `toml:"ffmpeg"`
	FFprobePath string `toml:"ffprobe"`

	// Paths and behavior.
	Inputs    []string `toml:"-"`
	OutputDir string   `toml:"output_dir"`
	DryRun    bool     `toml:"dry_run"`

	// Display and logging.
	Verbose   bool      `toml:"verbose"`
	ColorMode ColorMode `toml:"color"`
	LogFile   string    `toml:"log"`
}

// DefaultConfig returns a Config with every default applied. Used as the
// base before the config file and CLI flags are layered on top.
func DefaultConfig() Config {
	return Config{
		NormalizeAudioTitles:    true,
		NormalizeSubtitleTitles: true,
		Force:                   false,
		SetDefaultAudio:         true,
		SetDefaultSubtitle:      true,
		AudioLevel:              false,
		Language:                "eng",
		ScaleHeight:             0,
		AutocropIntervals:       12,
		CropStrategy:            CropFailFast,
		ProgressInterval:        Duration(2 * time.Second),
		VideoEncoder:            "libx265",
		VideoCRF:                19,
		SmartCRF:                false,
		VideoPreset:             "slow",
		AudioEncoder:            "aac",
		AudioBitrate:            "256k",
		AudioSampleRate:         48000,
		FFmpegPath:              "ffmpeg",
		FFprobePath:             "ffprobe",
		ColorMode:               ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum and numeric fields, canonicalizes the audio bitrate,
// and resolves the target language. An unrecognized language is rejected
// here so no stream processing begins with a bad target.
func (c *Config) Validate() error {
	c.TargetLanguage = language.Normalize(strings.TrimSpace(c.Language))
	if c.TargetLanguage == language.Unknown {
		return fmt.Errorf("invalid language %q (use an ISO 639-1 code, ISO 639-2 code, or full english name)", c.Language)
	}

	if c.ScaleHeight < 0 {
		return errors.New("scale height must not be negative")
	}
	if c.AutocropIntervals < 0 {
		return errors.New("autocrop intervals must not be negative")
	}
	if c.ProgressInterval <= 0 {
		return errors.New("progress interval must be positive")
	}

	switch c.CropStrategy {
	case CropFailFast, CropBestEffort:
		// valid
	default:
		return errors.New("invalid crop strategy (use 'fail-fast' or 'best-effort')")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if c.VideoCRF < 0 || c.VideoCRF > 51 {
		return fmt.Errorf("video CRF must be between 0 and 51 (got %d)", c.VideoCRF)
	}
	normalizedBitrate, err := normalizeAudioBitrate(c.AudioBitrate)
	if err != nil {
		return err
	}
	c.AudioBitrate = normalizedBitrate

	if strings.TrimSpace(c.FFmpegPath) == "" || strings.TrimSpace(c.FFprobePath) == "" {
		return errors.New("ffmpeg and ffprobe paths must not be empty")
	}
	return nil
}

// AutocropEnabled reports whether crop detection runs at all.
func (c *Config) AutocropEnabled() bool {
	return c.AutocropIntervals > 0
}

// normalizeAudioBitrate validates and canonicalizes user bitrate input.
// Accepted forms: "256", "256k", "256K", "256kbps". Output is "<n>k".
func normalizeAudioBitrate(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", errors.New("audio bitrate must not be empty")
	}
	if strings.HasSuffix(s, "kbps") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "kbps"))
	} else if strings.HasSuffix(s, "k") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid audio bitrate %q (use positive Kbps value, e.g. 128k)", raw)
	}
	return fmt.Sprintf("%dk", n), nil
}

// ValidatePaths ensures the resolved output directory is not inside (or equal
// to) a resolved input directory, so a batch never rediscovers its own
// output. Both arguments must be absolute, symlink-resolved paths.
func (c *Config) ValidatePaths(inputAbs, outputAbs string) error {
	sep := string(filepath.Separator)
	if outputAbs == inputAbs || strings.HasPrefix(outputAbs+sep, inputAbs+sep) {
		return errors.New("output directory must not be inside input directory")
	}
	return nil
}
