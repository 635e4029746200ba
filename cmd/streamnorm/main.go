// Command streamnorm normalizes per-stream metadata and filters of media
// files: stream titles, default-track flags, automatic crop, downscaling and
// two-pass loudness normalization.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "0.1.0"
	commit  = "unknown"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, errFilesFailed) {
			fmt.Fprintf(os.Stderr, "streamnorm: %v\n", err)
		}
		os.Exit(1)
	}
}
