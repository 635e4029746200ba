package planner

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/probe"
)

// CropDetector runs one crop-detection sample.
type CropDetector interface {
	DetectCrop(ctx context.Context, input, ref string, offset float64, hdr bool) (probe.CropRegion, error)
}

// SampleOffsets spreads n sample points evenly across duration seconds,
// excluding both the start and the end: duration*i/(n+1) for i in 1..n.
func SampleOffsets(duration float64, n int) []float64 {
	if n <= 0 || duration <= 0 {
		return nil
	}
	offsets := make([]float64, n)
	for i := 1; i <= n; i++ {
		offsets[i-1] = duration * float64(i) / float64(n+1)
	}
	return offsets
}

// AggregateCrop reduces samples to one crop. Width and height are chosen
// independently: the widest sample supplies Width and X, the tallest sample
// supplies Height and Y, with ties going to the earliest sample. The crop
// applies only when it removes something, i.e. X or Y is positive.
func AggregateCrop(samples []probe.CropRegion) (probe.CropRegion, bool) {
	if len(samples) == 0 {
		return probe.CropRegion{}, false
	}
	var out probe.CropRegion
	for _, s := range samples {
		if s.Width > out.Width {
			out.Width, out.X = s.Width, s.X
		}
		if s.Height > out.Height {
			out.Height, out.Y = s.Height, s.Y
		}
	}
	return out, out.X > 0 || out.Y > 0
}

// SampleCrop runs one detection per offset concurrently and aggregates the
// results in offset order. With CropFailFast the first failure fails the
// whole decision: in-flight samples are cancelled through the shared context
// rather than run to completion, and whatever they return is discarded.
// With CropBestEffort failed samples are dropped and the decision fails only
// if all of them did.
// No offsets (unknown duration or crop disabled) yields no crop and no error.
func SampleCrop(ctx context.Context, d CropDetector, input string, ref StreamRef, offsets []float64, hdr bool, strategy config.CropStrategy) (probe.CropRegion, bool, error) {
	if len(offsets) == 0 {
		return probe.CropRegion{}, false, nil
	}

	samples := make([]probe.CropRegion, len(offsets))
	errs := make([]error, len(offsets))

	if strategy == config.CropBestEffort {
		var g errgroup.Group
		for i, off := range offsets {
			i, off := i, off
			g.Go(func() error {
				samples[i], errs[i] = d.DetectCrop(ctx, input, ref.String(), off, hdr)
				return nil
			})
		}
		_ = g.Wait()

		var ok []probe.CropRegion
		for i := range samples {
			if errs[i] == nil {
				ok = append(ok, samples[i])
			}
		}
		if len(ok) == 0 {
			return probe.CropRegion{}, false, fmt.Errorf("crop detection for %s: every sample failed: %w", ref, errors.Join(errs...))
		}
		region, applied := AggregateCrop(ok)
		return region, applied, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, off := range offsets {
		i, off := i, off
		g.Go(func() error {
			region, err := d.DetectCrop(gctx, input, ref.String(), off, hdr)
			if err != nil {
				return err
			}
			samples[i] = region
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return probe.CropRegion{}, false, fmt.Errorf("crop detection for %s: %w", ref, err)
	}
	region, applied := AggregateCrop(samples)
	return region, applied, nil
}
