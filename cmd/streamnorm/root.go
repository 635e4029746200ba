package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/streamnorm/internal/check"
	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/display"
	"github.com/backmassage/streamnorm/internal/logging"
	"github.com/backmassage/streamnorm/internal/pipeline"
)

// errFilesFailed is returned after a batch in which at least one file
// failed. The summary has already been logged, so main prints nothing.
var errFilesFailed = errors.New("one or more files failed")

func newRootCommand() *cobra.Command {
	var flags *config.Flags

	rootCmd := &cobra.Command{
		Use:           "streamnorm [flags] <file|dir>...",
		Short:         "Normalize stream titles, default tracks, crop, scale and loudness",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runNormalize(cmd.Context(), flags, args)
		},
	}

	flags = config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newCheckCommand(flags))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

// loadConfig resolves and validates the configuration for args.
func loadConfig(flags *config.Flags, args []string) (*config.Config, error) {
	cfg, err := flags.Resolve(args)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func runNormalize(parent context.Context, flags *config.Flags, args []string) error {
	// Bootstrap: the logger doesn't exist yet, so errors are returned to
	// main and printed to stderr.
	cfg, err := loadConfig(flags, args)
	if err != nil {
		return err
	}
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	// Logger available: all output goes through log from here on.
	display.PrintBanner(os.Stdout)

	if err := validateOutputDir(cfg); err != nil {
		log.Error("%v", err)
		return errFilesFailed
	}

	log.Info("=== streamnorm v%s (%s) ===", version, commit)
	if cfg.OutputDir != "" {
		log.Info("Out: %s", cfg.OutputDir)
	}
	if cfg.DryRun {
		log.Warn("DRY RUN: no files will be written")
	}

	// Fail fast if ffmpeg/ffprobe or a needed filter or encoder is missing.
	if err := check.CheckDeps(cfg); err != nil {
		log.Error("%v", err)
		return errFilesFailed
	}

	// Cancel on SIGINT/SIGTERM: analysis subprocesses are killed and the
	// batch stops between files.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, stopping…")
			cancel()
		case <-ctx.Done():
		}
	}()

	stats, err := pipeline.Run(ctx, cfg, log, cfg.Inputs)
	if err != nil {
		log.Error("%v", err)
		return errFilesFailed
	}
	if stats.ExitCode() != 0 {
		return errFilesFailed
	}
	return nil
}

// validateOutputDir creates the output directory and refuses one that lies
// inside a directory input, so a batch never rediscovers its own output.
func validateOutputDir(cfg *config.Config) error {
	if cfg.OutputDir == "" || cfg.DryRun {
		return nil
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", cfg.OutputDir, err)
	}
	outputAbs, err := absPath(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("cannot resolve output path %s: %w", cfg.OutputDir, err)
	}
	for _, input := range cfg.Inputs {
		fi, err := os.Stat(input)
		if err != nil || !fi.IsDir() {
			continue
		}
		inputAbs, err := absPath(input)
		if err != nil {
			continue
		}
		if err := cfg.ValidatePaths(inputAbs, outputAbs); err != nil {
			return fmt.Errorf("%w (input %s)", err, input)
		}
	}
	return nil
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of input vs output directory hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func newCheckCommand(flags *config.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report ffmpeg, ffprobe and the filters and encoders the options need",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, nil)
			if err != nil {
				return err
			}
			log, err := logging.NewLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			check.RunCheck(cfg, log)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "streamnorm %s (%s)\n", version, commit)
			return err
		},
	}
}
