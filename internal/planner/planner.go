package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/language"
	"github.com/backmassage/streamnorm/internal/probe"
	"github.com/backmassage/streamnorm/internal/progress"
)

// Analyzer runs the external analysis passes. *probe.Analyzer implements it.
type Analyzer interface {
	CropDetector
	MeasureLoudness(ctx context.Context, input, ref string, duration float64, onProgress func(float64)) (probe.LoudnessMeasurement, error)
}

// Logger is the subset of *logging.Logger the planner uses.
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Debug(verbose bool, format string, args ...interface{})
	progress.StatusWriter
}

// Source is one probed input file.
type Source struct {
	Path  string
	Probe *probe.ProbeResult
}

// Planner computes per-stream directives for one input at a time. It holds
// no per-file state, so one Planner can plan many files.
type Planner struct {
	cfg      *config.Config
	analyzer Analyzer
	log      Logger
}

// New validates cfg and returns a Planner. It fails when the target
// language does not resolve, before any stream is processed. analyzer may
// be nil only when neither crop detection nor loudness normalization is
// enabled.
func New(cfg *config.Config, analyzer Analyzer, log Logger) (*Planner, error) {
	target := cfg.TargetLanguage
	if target == "" {
		target = language.Normalize(cfg.Language)
	}
	if target == language.Unknown {
		return nil, fmt.Errorf("invalid language %q: use an ISO 639-1 code, ISO 639-2 code, or full english name", cfg.Language)
	}
	if analyzer == nil && (cfg.AudioLevel || cfg.AutocropEnabled()) {
		return nil, errors.New("planner: analyzer required for crop detection and loudness normalization")
	}
	c := *cfg
	c.TargetLanguage = target
	return &Planner{cfg: &c, analyzer: analyzer, log: log}, nil
}

// DefaultStreamMap maps every video, audio and subtitle stream of input 0,
// except attached pictures, to consecutive output positions in container
// order.
func DefaultStreamMap(pr *probe.ProbeResult) StreamMap {
	var smap StreamMap
	for _, s := range pr.Streams {
		switch s.CodecType {
		case probe.TypeVideo, probe.TypeAudio, probe.TypeSubtitle:
		default:
			continue
		}
		if s.IsAttachedPic {
			continue
		}
		smap = append(smap, MapEntry{Position: len(smap), Source: StreamRef{Input: 0, Stream: s.Index}})
	}
	return smap
}

// analysis is what one stream's concurrent task produces.
type analysis struct {
	filter string
	output string
	codec  *CodecOverride
	err    error
}

// Plan computes the ChangeSet for src.
//
// Metadata is resolved first and default tracks are selected in one
// sequential pass over smap. Crop detection and loudness measurement then
// run concurrently, one task per stream, each writing only its own result
// slot. A failed analysis stage is recorded on that stream's change and
// does not affect other streams. Results are merged in map order.
func (p *Planner) Plan(ctx context.Context, src Source, smap StreamMap) (*ChangeSet, error) {
	resolved, err := p.resolve(src, smap)
	if err != nil {
		return nil, err
	}

	sel := SelectDefaults(resolved, p.cfg)
	p.logSelection(resolved, sel)

	results := make([]analysis, len(resolved))
	if p.needsAnalysis() {
		if err := p.analyze(ctx, src, resolved, results); err != nil {
			return nil, err
		}
	}

	cs := &ChangeSet{Changes: make([]StreamChange, len(resolved)), Selection: sel}
	for i, rs := range resolved {
		change := StreamChange{
			Position:  rs.Entry.Position,
			Source:    rs.Entry.Source,
			CodecType: rs.Stream.CodecType,
		}
		if NeedsTitle(rs.Stream, p.cfg) {
			change.Title = StreamTitle(rs.Stream)
			p.log.Debug(p.cfg.Verbose, "Set title for %s stream %q [%s] to %q",
				rs.Stream.CodecType, rs.Stream.Title, rs.Entry.Source, change.Title)
		}
		change.Disposition = sel.Flags[rs.Entry.Position]
		change.Filter = results[i].filter
		change.Output = results[i].output
		change.Codec = results[i].codec
		change.Err = results[i].err
		cs.Changes[i] = change
	}
	return cs, nil
}

// resolve joins every map entry with its metadata. A missing stream is an
// error for the whole input: no directives are produced. Output positions
// must follow map order, since ffmpeg numbers output streams by -map order.
func (p *Planner) resolve(src Source, smap StreamMap) ([]ResolvedStream, error) {
	if src.Probe == nil {
		return nil, fmt.Errorf("no probe data for %s", src.Path)
	}
	seen := make(map[int]bool, len(smap))
	resolved := make([]ResolvedStream, 0, len(smap))
	for i, e := range smap {
		if seen[e.Position] {
			return nil, fmt.Errorf("output position %d mapped twice", e.Position)
		}
		seen[e.Position] = true
		if e.Position != i {
			return nil, fmt.Errorf("map %s: output position %d out of order, want %d", e.Source, e.Position, i)
		}
		if e.Source.Input != 0 {
			return nil, fmt.Errorf("map %s: only input 0 is available", e.Source)
		}
		s, err := src.Probe.Stream(e.Source.Stream)
		if err != nil {
			return nil, fmt.Errorf("map %s: %w", e.Source, err)
		}
		resolved = append(resolved, ResolvedStream{
			Entry:    e,
			Stream:   s,
			Language: language.Normalize(s.Language),
		})
	}
	return resolved, nil
}

func (p *Planner) logSelection(resolved []ResolvedStream, sel Selection) {
	for _, pos := range sel.Skipped {
		for _, rs := range resolved {
			if rs.Entry.Position == pos {
				p.log.Debug(p.cfg.Verbose, "Skipping eligible subtitle [%s] %q: commentary track", rs.Entry.Source, rs.Stream.Title)
			}
		}
	}
	if !sel.AudioSelected {
		p.log.Debug(p.cfg.Verbose, "No audio stream matching language %s found. No default audio set. Attempting subtitles...", p.cfg.TargetLanguage)
		if !sel.SubtitleSelected {
			p.log.Debug(p.cfg.Verbose, "No subtitle stream matching language %s found. No default subtitle set.", p.cfg.TargetLanguage)
		}
	}
}

func (p *Planner) needsAnalysis() bool {
	return p.cfg.AudioLevel || p.cfg.AutocropEnabled() || p.cfg.ScaleHeight > 0
}

// analyze fans out one task per stream and waits for all of them. The
// progress reporter runs only while loudness measurements are in flight.
func (p *Planner) analyze(ctx context.Context, src Source, resolved []ResolvedStream, results []analysis) error {
	var events chan progress.Event
	var reporter sync.WaitGroup
	if p.cfg.AudioLevel && hasType(resolved, probe.TypeAudio) {
		events = make(chan progress.Event, 64)
		r := &progress.Reporter{Out: p.log, Interval: p.cfg.ProgressInterval.Std(), Label: "Normalizing audio"}
		reporter.Add(1)
		go func() {
			defer reporter.Done()
			r.Run(ctx, events)
		}()
	}

	var g errgroup.Group
	for i, rs := range resolved {
		i, rs := i, rs
		g.Go(func() error {
			results[i] = p.analyzeStream(ctx, src, rs, events)
			return nil
		})
	}
	_ = g.Wait()

	if events != nil {
		close(events)
		reporter.Wait()
	}
	return ctx.Err()
}

func (p *Planner) analyzeStream(ctx context.Context, src Source, rs ResolvedStream, events chan<- progress.Event) analysis {
	switch rs.Stream.CodecType {
	case probe.TypeVideo:
		if rs.Stream.IsAttachedPic {
			return analysis{}
		}
		return p.analyzeVideo(ctx, src, rs)
	case probe.TypeAudio:
		if p.cfg.AudioLevel {
			return p.analyzeAudio(ctx, src, rs, events)
		}
	}
	return analysis{}
}

func (p *Planner) analyzeVideo(ctx context.Context, src Source, rs ResolvedStream) analysis {
	var res analysis
	ref := rs.Entry.Source
	c := newChain(ref)

	var crop probe.CropRegion
	var applied bool
	if p.cfg.AutocropEnabled() {
		offsets := SampleOffsets(src.Probe.Format.Duration, p.cfg.AutocropIntervals)
		if len(offsets) == 0 {
			p.log.Debug(p.cfg.Verbose, "Unknown duration for %s; skipping crop detection on [%s]", src.Path, ref)
		}
		var err error
		crop, applied, err = SampleCrop(ctx, p.analyzer, src.Path, ref, offsets, rs.Stream.IsHDR(), p.cfg.CropStrategy)
		if err != nil {
			p.log.Warn("Crop detection failed for [%s]: %v", ref, err)
			res.err = err
		} else if applied {
			p.log.Info("Crop [%s]: %dx%d -> %s", ref, rs.Stream.Width, rs.Stream.Height, crop.Filter())
		}
	}

	width, height := videoStages(c, p.cfg, rs.Stream, crop, applied)
	if c.filtered() {
		res.filter = c.String()
		res.output = c.output()
		res.codec = videoOverride(p.cfg, width, height, src.Probe.Format.BitRate)
	}
	return res
}

func (p *Planner) analyzeAudio(ctx context.Context, src Source, rs ResolvedStream, events chan<- progress.Event) analysis {
	ref := rs.Entry.Source
	name := ref.String()
	defer progress.Send(ctx, events, progress.Event{Stream: name, Done: true})

	m, err := p.analyzer.MeasureLoudness(ctx, src.Path, name, src.Probe.Format.Duration, func(pct float64) {
		progress.Send(ctx, events, progress.Event{Stream: name, Percent: pct})
	})
	if err != nil {
		p.log.Warn("Loudness measurement failed for [%s]: %v", ref, err)
		return analysis{err: fmt.Errorf("loudness measurement for %s: %w", ref, err)}
	}
	p.log.Debug(p.cfg.Verbose, "Loudness [%s]: I=%.2f LUFS LRA=%.2f LU TP=%.2f dBTP",
		ref, m.Integrated, m.Range, m.TruePeak)

	c := newChain(ref)
	loudnormStage(c, m)
	return analysis{filter: c.String(), output: c.output(), codec: audioOverride(p.cfg)}
}

func hasType(resolved []ResolvedStream, codecType string) bool {
	for _, rs := range resolved {
		if rs.Stream.CodecType == codecType {
			return true
		}
	}
	return false
}

// Describe renders one change as a log-friendly line.
func Describe(c *StreamChange) string {
	var parts []string
	if md := c.Metadata(); len(md) > 0 {
		parts = append(parts, strings.Join(md, ", "))
	}
	if c.Filter != "" {
		parts = append(parts, "filter "+c.Filter)
	}
	if c.Codec != nil {
		parts = append(parts, "encode "+c.Codec.Encoder)
	}
	if c.Err != nil {
		parts = append(parts, "error: "+c.Err.Error())
	}
	if len(parts) == 0 {
		return c.Key() + " [" + c.Source.String() + "] unchanged"
	}
	return c.Key() + " [" + c.Source.String() + "] " + strings.Join(parts, "; ")
}
