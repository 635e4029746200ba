package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/display"
	"github.com/backmassage/streamnorm/internal/ffmpeg"
	"github.com/backmassage/streamnorm/internal/logging"
	"github.com/backmassage/streamnorm/internal/planner"
	"github.com/backmassage/streamnorm/internal/probe"
)

const minFileSize = 1000

// runner carries the per-batch state. probe and exec are swapped out in
// tests.
type runner struct {
	cfg     *config.Config
	log     *logging.Logger
	planner *planner.Planner
	outputs *outputResolver
	stats   RunStats

	probe func(ctx context.Context, path string) (*probe.ProbeResult, error)
	exec  func(ctx context.Context, cfg *config.Config, args []string) ffmpeg.ExecResult
}

// Run is the top-level batch entry point. It discovers files, processes each
// one sequentially, and returns aggregate stats. The error covers setup
// only; per-file failures are logged and counted in RunStats.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, inputs []string) (RunStats, error) {
	r, err := newRunner(cfg, log, probe.NewAnalyzer(cfg.FFmpegPath))
	if err != nil {
		return RunStats{}, err
	}
	return r.run(ctx, inputs)
}

func newRunner(cfg *config.Config, log *logging.Logger, analyzer planner.Analyzer) (*runner, error) {
	pl, err := planner.New(cfg, analyzer, log)
	if err != nil {
		return nil, err
	}
	return &runner{
		cfg:     cfg,
		log:     log,
		planner: pl,
		outputs: newOutputResolver(cfg.OutputDir),
		probe: func(ctx context.Context, path string) (*probe.ProbeResult, error) {
			return probe.Probe(ctx, cfg.FFprobePath, path)
		},
		exec: ffmpeg.Execute,
	}, nil
}

func (r *runner) run(ctx context.Context, inputs []string) (RunStats, error) {
	files, err := Discover(inputs)
	if err != nil {
		return r.stats, fmt.Errorf("file discovery: %w", err)
	}
	r.stats.Total = len(files)
	if len(files) == 0 {
		r.log.Warn("No media files found")
		return r.stats, nil
	}

	r.logBatchHeader()

	for i, path := range files {
		if ctx.Err() != nil {
			r.log.Warn("Interrupted")
			break
		}
		r.stats.Current = i + 1
		r.processFile(ctx, path)
	}

	r.logSummary()
	return r.stats, nil
}

// processFile handles one media file: validate, probe, plan, then render or
// execute.
func (r *runner) processFile(ctx context.Context, path string) {
	cfg, log := r.cfg, r.log
	basename := filepath.Base(path)
	log.Info("[%d/%d] %s", r.stats.Current, r.stats.Total, basename)

	// --- Validate ---
	fi, err := os.Stat(path)
	if err != nil {
		log.Error("File not found: %s", path)
		r.stats.Failed++
		return
	}
	if fi.Size() < minFileSize {
		log.Error("File too small (possibly corrupt): %s", path)
		r.stats.Failed++
		return
	}

	// --- Probe ---
	pr, err := r.probe(ctx, path)
	if err != nil {
		log.Error("Cannot probe file: %v", err)
		r.stats.Failed++
		return
	}
	if v := pr.PrimaryVideo(); v != nil {
		log.Debug(cfg.Verbose, "  Video: %s | %s | %s | %s", pr.Resolution(), v.CodecName,
			pr.HDRType(), display.FormatDuration(pr.Format.Duration))
	}

	smap := planner.DefaultStreamMap(pr)
	if len(smap) == 0 {
		log.Warn("No video, audio or subtitle streams, skipping")
		r.stats.Skipped++
		return
	}

	// --- Plan ---
	start := time.Now()
	cs, err := r.planner.Plan(ctx, planner.Source{Path: path, Probe: pr}, smap)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("Interrupted while analyzing %s", basename)
			return
		}
		log.Error("Planning failed: %v", err)
		r.stats.Failed++
		return
	}
	log.Debug(cfg.Verbose, "  Analysis took %s", display.FormatDuration(time.Since(start).Seconds()))

	for i := range cs.Changes {
		c := &cs.Changes[i]
		if c.Empty() && c.Err == nil {
			log.Debug(cfg.Verbose, "  %s", planner.Describe(c))
			continue
		}
		log.Info("  %s", planner.Describe(c))
	}
	if failed := cs.Failed(); len(failed) > 0 {
		log.Warn("  %d stream(s) kept without their failed stage", len(failed))
		r.stats.PartialFiles++
	}

	if cs.Empty() {
		log.Success("Nothing to change")
		r.stats.Skipped++
		return
	}

	// --- Render or execute ---
	output := r.outputs.Resolve(path)
	if cfg.DryRun || cfg.OutputDir == "" {
		args := ffmpeg.Build(cfg, path, output, cs, ffmpeg.NewRetryState())
		log.Render("%s", ffmpeg.CommandLine(args))
		r.stats.Planned++
		return
	}

	if samePath(path, output) {
		log.Error("Output would overwrite input: %s", output)
		r.stats.Failed++
		return
	}
	log.Info("  -> %s", output)

	start = time.Now()
	if err := r.execute(ctx, path, output, cs); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Interrupted, removed partial output")
			return
		}
		log.Error("Normalization failed: %v", err)
		r.stats.Failed++
		return
	}

	inSize := fi.Size()
	var outSize int64
	if outInfo, err := os.Stat(output); err == nil {
		outSize = outInfo.Size()
	}
	r.stats.TotalInputBytes += inSize
	r.stats.TotalOutputBytes += outSize
	r.stats.Planned++
	log.Success("Done in %s (%s -> %s)", display.FormatDuration(time.Since(start).Seconds()),
		display.FormatBytes(inSize), display.FormatBytes(outSize))
}

// execute runs ffmpeg, classifying stderr on failure and retrying with the
// first applicable fix. Partial output is removed on every failure.
func (r *runner) execute(ctx context.Context, input, output string, cs *planner.ChangeSet) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	rs := ffmpeg.NewRetryState()
	for {
		args := ffmpeg.Build(r.cfg, input, output, cs, rs)
		r.log.Debug(r.cfg.Verbose, "  %s", ffmpeg.CommandLine(args))

		result := r.exec(ctx, r.cfg, args)
		if result.Err == nil {
			return nil
		}
		os.Remove(output)

		// Stop retrying if the context has been cancelled (e.g. SIGINT).
		if ctx.Err() != nil {
			return ctx.Err()
		}

		action := rs.Advance(result.Stderr)
		if action == ffmpeg.RetryNone {
			r.logStderr(result.Stderr)
			return fmt.Errorf("ffmpeg: %w", result.Err)
		}
		r.log.Warn("Retry %d: %s", rs.Attempt, action)
	}
}

func (r *runner) logStderr(stderr string) {
	if stderr == "" {
		return
	}
	r.log.Error("Last ffmpeg output:")
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	start := 0
	if len(lines) > 20 {
		start = len(lines) - 20
	}
	for _, l := range lines[start:] {
		r.log.Error("  %s", l)
	}
}

// --- Logging helpers ---

func (r *runner) logBatchHeader() {
	cfg, log := r.cfg, r.log
	log.Info("Found %d files", r.stats.Total)
	log.Info("Language: %s", cfg.TargetLanguage)

	var defaults []string
	if cfg.SetDefaultAudio {
		defaults = append(defaults, "audio")
	}
	if cfg.SetDefaultSubtitle {
		defaults = append(defaults, "subtitle fallback")
	}
	if len(defaults) == 0 {
		defaults = append(defaults, "off")
	}
	log.Info("Default tracks: %s", strings.Join(defaults, ", "))

	if cfg.AudioLevel {
		log.Info("Audio: two-pass loudnorm, re-encode via %s at %s", cfg.AudioEncoder, cfg.AudioBitrate)
	}
	if cfg.AutocropEnabled() {
		log.Info("Crop: %d samples, %s", cfg.AutocropIntervals, cfg.CropStrategy)
	}
	if cfg.ScaleHeight > 0 {
		log.Info("Scale: down to %dp", cfg.ScaleHeight)
	}
	if cfg.AutocropEnabled() || cfg.ScaleHeight > 0 {
		mode := "fixed"
		if cfg.SmartCRF {
			mode = "smart"
		}
		log.Info("Video: %s CRF %d (%s), preset %s", cfg.VideoEncoder, cfg.VideoCRF, mode, cfg.VideoPreset)
	}
	if cfg.DryRun || cfg.OutputDir == "" {
		log.Info("Mode: print commands only")
	}
}

func (r *runner) logSummary() {
	s, log := &r.stats, r.log
	log.Info("==============================")
	log.Info("Done: %d planned, %d skipped, %d failed", s.Planned, s.Skipped, s.Failed)
	log.Info("  Total files processed: %d", s.Current)
	if s.PartialFiles > 0 {
		log.Warn("  Files with failed analysis stages: %d", s.PartialFiles)
	}

	if r.cfg.DryRun || r.cfg.OutputDir == "" || s.TotalInputBytes == 0 {
		return
	}
	saved := s.SpaceSaved()
	if saved >= 0 {
		log.Success("  Total space saved: %s (input %s -> output %s)",
			display.FormatBytes(saved),
			display.FormatBytes(s.TotalInputBytes),
			display.FormatBytes(s.TotalOutputBytes))
	} else {
		log.Warn("  Total space saved: -%s (overall output is larger)",
			display.FormatBytes(-saved))
	}
}
