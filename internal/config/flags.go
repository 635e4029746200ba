package config

// This file binds CLI flags to a shadow Config. Values reach the real Config
// through Flags.Apply, which copies only flags the user actually set, so that
// config-file values hold unless a flag overrides them. Negated flags
// (e.g. --no-audio-titles) are applied the same way.

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// Flags holds everything registered by [BindFlags].
type Flags struct {
	fs     *pflag.FlagSet
	shadow Config

	configFile string
	negated    negatedFlags
}

// negatedFlags holds boolean flags that invert a default.
type negatedFlags struct {
	noAudioTitles     bool
	noSubtitleTitles  bool
	noDefaultAudio    bool
	noDefaultSubtitle bool
	noColor           bool
}

// binding copies one changed flag from the shadow config into the target.
type binding struct {
	name  string
	apply func(dst *Config, f *Flags)
}

var bindings = []binding{
	{"audio-level", func(d *Config, f *Flags) { d.AudioLevel = f.shadow.AudioLevel }},
	{"audio-titles", func(d *Config, f *Flags) { d.NormalizeAudioTitles = f.shadow.NormalizeAudioTitles }},
	{"no-audio-titles", func(d *Config, f *Flags) { d.NormalizeAudioTitles = !f.negated.noAudioTitles }},
	{"subtitle-titles", func(d *Config, f *Flags) { d.NormalizeSubtitleTitles = f.shadow.NormalizeSubtitleTitles }},
	{"no-subtitle-titles", func(d *Config, f *Flags) { d.NormalizeSubtitleTitles = !f.negated.noSubtitleTitles }},
	{"force", func(d *Config, f *Flags) { d.Force = f.shadow.Force }},
	{"no-default-audio", func(d *Config, f *Flags) { d.SetDefaultAudio = !f.negated.noDefaultAudio }},
	{"no-default-subtitle", func(d *Config, f *Flags) { d.SetDefaultSubtitle = !f.negated.noDefaultSubtitle }},
	{"language", func(d *Config, f *Flags) { d.Language = f.shadow.Language }},
	{"scale", func(d *Config, f *Flags) { d.ScaleHeight = f.shadow.ScaleHeight }},
	{"autocrop-intervals", func(d *Config, f *Flags) { d.AutocropIntervals = f.shadow.AutocropIntervals }},
	{"crop-strategy", func(d *Config, f *Flags) { d.CropStrategy = f.shadow.CropStrategy }},
	{"audio-encoder", func(d *Config, f *Flags) { d.AudioEncoder = f.shadow.AudioEncoder }},
	{"audio-bitrate", func(d *Config, f *Flags) { d.AudioBitrate = f.shadow.AudioBitrate }},
	{"video-encoder", func(d *Config, f *Flags) { d.VideoEncoder = f.shadow.VideoEncoder }},
	{"crf", func(d *Config, f *Flags) { d.VideoCRF = f.shadow.VideoCRF }},
	{"smart-crf", func(d *Config, f *Flags) { d.SmartCRF = f.shadow.SmartCRF }},
	{"preset", func(d *Config, f *Flags) { d.VideoPreset = f.shadow.VideoPreset }},
	{"ffmpeg", func(d *Config, f *Flags) { d.FFmpegPath = f.shadow.FFmpegPath }},
	{"ffprobe", func(d *Config, f *Flags) { d.FFprobePath = f.shadow.FFprobePath }},
	{"output-dir", func(d *Config, f *Flags) { d.OutputDir = NormalizeDirArg(f.shadow.OutputDir) }},
	{"dry-run", func(d *Config, f *Flags) { d.DryRun = f.shadow.DryRun }},
	{"verbose", func(d *Config, f *Flags) { d.Verbose = f.shadow.Verbose }},
	{"color", func(d *Config, f *Flags) { d.ColorMode = f.shadow.ColorMode }},
	{"no-color", func(d *Config, f *Flags) {
		if f.negated.noColor {
			d.ColorMode = ColorNever
		}
	}},
	{"log", func(d *Config, f *Flags) { d.LogFile = f.shadow.LogFile }},
}

// BindFlags registers every configuration flag on fs. Defaults shown in help
// come from [DefaultConfig].
func BindFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs, shadow: DefaultConfig()}
	s := &f.shadow

	fs.StringVarP(&f.configFile, "config", "c", "", "TOML configuration file")

	// Titles and dispositions.
	fs.BoolVar(&s.NormalizeAudioTitles, "audio-titles", s.NormalizeAudioTitles, "Normalize audio stream titles")
	fs.BoolVar(&f.negated.noAudioTitles, "no-audio-titles", false, "Leave audio stream titles untouched")
	fs.BoolVar(&s.NormalizeSubtitleTitles, "subtitle-titles", s.NormalizeSubtitleTitles, "Normalize subtitle stream titles")
	fs.BoolVar(&f.negated.noSubtitleTitles, "no-subtitle-titles", false, "Leave subtitle stream titles untouched")
	fs.BoolVarP(&s.Force, "force", "f", s.Force, "Overwrite titles that already exist")
	fs.BoolVar(&f.negated.noDefaultAudio, "no-default-audio", false, "Do not set a default audio stream")
	fs.BoolVar(&f.negated.noDefaultSubtitle, "no-default-subtitle", false, "Do not set a default subtitle stream")
	fs.StringVarP(&s.Language, "language", "L", s.Language, "Target language (ISO 639-1, ISO 639-2, or english name)")

	// Filters.
	fs.BoolVar(&s.AudioLevel, "audio-level", s.AudioLevel, "Two-pass EBU R128 loudness normalization")
	fs.IntVar(&s.ScaleHeight, "scale", s.ScaleHeight, "Downscale video taller than this height (0 disables)")
	fs.IntVar(&s.AutocropIntervals, "autocrop-intervals", s.AutocropIntervals, "Crop detection sample points (0 disables)")
	fs.Var(&cropStrategyValue{&s.CropStrategy}, "crop-strategy", "Crop sample join: fail-fast | best-effort")

	// Re-encode settings.
	fs.StringVar(&s.AudioEncoder, "audio-encoder", s.AudioEncoder, "Encoder for loudness-normalized audio")
	fs.StringVar(&s.AudioBitrate, "audio-bitrate", s.AudioBitrate, "Bitrate for loudness-normalized audio")
	fs.StringVar(&s.VideoEncoder, "video-encoder", s.VideoEncoder, "Encoder for cropped/scaled video")
	fs.IntVar(&s.VideoCRF, "crf", s.VideoCRF, "CRF for cropped/scaled video")
	fs.BoolVar(&s.SmartCRF, "smart-crf", s.SmartCRF, "Adjust CRF by output resolution and source bitrate")
	fs.StringVar(&s.VideoPreset, "preset", s.VideoPreset, "Encoder preset for cropped/scaled video")

	// Tools and output.
	fs.StringVar(&s.FFmpegPath, "ffmpeg", s.FFmpegPath, "ffmpeg binary")
	fs.StringVar(&s.FFprobePath, "ffprobe", s.FFprobePath, "ffprobe binary")
	fs.StringVarP(&s.OutputDir, "output-dir", "o", "", "Write normalized files here (omit to print commands)")
	fs.BoolVarP(&s.DryRun, "dry-run", "d", false, "Print the ffmpeg commands instead of running them")

	// Display.
	fs.BoolVarP(&s.Verbose, "verbose", "v", false, "Verbose output")
	fs.Var(&colorModeValue{&s.ColorMode}, "color", "Colored logs: auto | always | never")
	fs.BoolVar(&f.negated.noColor, "no-color", false, "Same as --color=never")
	fs.StringVarP(&s.LogFile, "log", "l", "", "Append logs to file")

	return f
}

// ConfigFile returns the --config value.
func (f *Flags) ConfigFile() string { return f.configFile }

// Apply copies every flag the user set into cfg.
func (f *Flags) Apply(cfg *Config) {
	for _, b := range bindings {
		if f.fs.Changed(b.name) {
			b.apply(cfg, f)
		}
	}
}

// Resolve builds the effective Config: defaults, then the config file (if
// any), then changed flags, then positional inputs. It does not validate.
func (f *Flags) Resolve(args []string) (Config, error) {
	cfg := DefaultConfig()
	if f.configFile != "" {
		if err := LoadFile(f.configFile, &cfg); err != nil {
			return cfg, err
		}
	}
	f.Apply(&cfg)
	cfg.OutputDir = NormalizeDirArg(cfg.OutputDir)
	cfg.Inputs = append([]string(nil), args...)
	return cfg, nil
}

// pflag.Value adapters so enum types can be used with fs.Var.

type cropStrategyValue struct{ p *CropStrategy }

func (c *cropStrategyValue) String() string { return string(*c.p) }
func (c *cropStrategyValue) Type() string   { return "strategy" }
func (c *cropStrategyValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "fail-fast":
		*c.p = CropFailFast
	case "best-effort":
		*c.p = CropBestEffort
	default:
		return fmt.Errorf("invalid crop strategy %q (use 'fail-fast' or 'best-effort')", s)
	}
	return nil
}

type colorModeValue struct{ p *ColorMode }

func (c *colorModeValue) String() string { return string(*c.p) }
func (c *colorModeValue) Type() string   { return "mode" }
func (c *colorModeValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "auto":
		*c.p = ColorAuto
	case "always":
		*c.p = ColorAlways
	case "never":
		*c.p = ColorNever
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
	return nil
}
