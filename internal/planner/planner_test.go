package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/streamnorm/internal/config"
	"github.com/backmassage/streamnorm/internal/probe"
)

// --- Fakes ---

type fakeAnalyzer struct {
	cropFn func(ctx context.Context, ref string, offset float64) (probe.CropRegion, error)
	loudFn func(ctx context.Context, ref string, onProgress func(float64)) (probe.LoudnessMeasurement, error)
}

func (f *fakeAnalyzer) DetectCrop(ctx context.Context, _, ref string, offset float64, _ bool) (probe.CropRegion, error) {
	if f.cropFn == nil {
		return probe.CropRegion{}, errors.New("unexpected crop detection")
	}
	return f.cropFn(ctx, ref, offset)
}

func (f *fakeAnalyzer) MeasureLoudness(ctx context.Context, _, ref string, _ float64, onProgress func(float64)) (probe.LoudnessMeasurement, error) {
	if f.loudFn == nil {
		return probe.LoudnessMeasurement{}, errors.New("unexpected loudness measurement")
	}
	return f.loudFn(ctx, ref, onProgress)
}

type fakeLogger struct {
	mu      sync.Mutex
	lines   []string
	status  []string
	cleared int
}

func (l *fakeLogger) add(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *fakeLogger) Info(format string, args ...interface{}) { l.add("INFO", format, args...) }
func (l *fakeLogger) Warn(format string, args ...interface{}) { l.add("WARN", format, args...) }
func (l *fakeLogger) Debug(verbose bool, format string, args ...interface{}) {
	if verbose {
		l.add("DEBUG", format, args...)
	}
}

func (l *fakeLogger) Status(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = append(l.status, text)
}

func (l *fakeLogger) ClearStatus() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleared++
}

func (l *fakeLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// --- Fixtures ---

var measured = probe.LoudnessMeasurement{Integrated: -27.5, Range: 9.2, TruePeak: -3.1, Threshold: -38}

func movie() *probe.ProbeResult {
	return &probe.ProbeResult{
		Format: probe.FormatInfo{Filename: "movie.mkv", Duration: 130, BitRate: 8_000_000},
		Streams: []probe.Stream{
			{Index: 0, CodecType: probe.TypeVideo, CodecName: "hevc", Width: 1920, Height: 1080},
			{Index: 1, CodecType: probe.TypeAudio, CodecName: "ac3", Channels: 6, Language: "eng"},
			{Index: 2, CodecType: probe.TypeAudio, CodecName: "aac", Channels: 2, Language: "fre"},
			{Index: 3, CodecType: probe.TypeSubtitle, CodecName: "subrip", Language: "eng"},
		},
	}
}

func letterboxed(context.Context, string, float64) (probe.CropRegion, error) {
	return probe.CropRegion{Width: 1920, Height: 800, X: 0, Y: 140}, nil
}

func measuredOK(_ context.Context, _ string, onProgress func(float64)) (probe.LoudnessMeasurement, error) {
	onProgress(50)
	onProgress(100)
	return measured, nil
}

func newPlanner(t *testing.T, cfg *config.Config, a Analyzer) (*Planner, *fakeLogger) {
	t.Helper()
	log := &fakeLogger{}
	p, err := New(cfg, a, log)
	require.NoError(t, err)
	return p, log
}

// --- Tests ---

func TestPlan_Full(t *testing.T) {
	cfg := validCfg(t, func(c *config.Config) {
		c.AudioLevel = true
		c.ScaleHeight = 720
		c.AutocropIntervals = 12
	})
	p, _ := newPlanner(t, cfg, &fakeAnalyzer{cropFn: letterboxed, loudFn: measuredOK})
	pr := movie()

	cs, err := p.Plan(t.Context(), Source{Path: "movie.mkv", Probe: pr}, DefaultStreamMap(pr))
	require.NoError(t, err)
	require.Len(t, cs.Changes, 4)
	assert.Empty(t, cs.Failed())

	video := cs.Change(0)
	assert.Equal(t, "[0:0]crop=1920:800:0:140[0-0-crop];[0-0-crop]scale=-2:720[0-0-scale]", video.Filter)
	assert.Equal(t, "[0-0-scale]", video.MapTarget())
	assert.Equal(t, &CodecOverride{Kind: probe.TypeVideo, Encoder: "libx265", CRF: 19, Preset: "slow", Note: "fixed"}, video.Codec)
	assert.Empty(t, video.Title)
	assert.Equal(t, DispositionUnset, video.Disposition)

	eng := cs.Change(1)
	assert.Equal(t, "English (AC3 6)", eng.Title)
	assert.Equal(t, DispositionDefault, eng.Disposition)
	assert.Equal(t, "[0:1]"+measured.SecondPass()+"[0-1-loudnorm]", eng.Filter)
	assert.Equal(t, &CodecOverride{Kind: probe.TypeAudio, Encoder: "aac", Bitrate: "256k", SampleRate: 48000}, eng.Codec)
	assert.Equal(t, []string{"title=English (AC3 6)", "DISPOSITION:default=1"}, eng.Metadata())

	fre := cs.Change(2)
	assert.Equal(t, "French (AAC Stereo)", fre.Title)
	assert.Equal(t, DispositionOff, fre.Disposition)
	assert.Equal(t, "[0-2-loudnorm]", fre.MapTarget())

	sub := cs.Change(3)
	assert.Equal(t, "English (SUBRIP)", sub.Title)
	assert.Equal(t, DispositionUnset, sub.Disposition, "subtitles are untouched when audio matched")
	assert.Empty(t, sub.Filter)
	assert.Equal(t, "0:3", sub.MapTarget())

	assert.Equal(t, video.Filter+";"+eng.Filter+";"+fre.Filter, cs.Graph())
}

func TestPlan_DefaultIndependentOfCompletionOrder(t *testing.T) {
	pr := &probe.ProbeResult{
		Format: probe.FormatInfo{Duration: 60},
		Streams: []probe.Stream{
			{Index: 0, CodecType: probe.TypeAudio, CodecName: "aac", Channels: 2, Language: "eng"},
			{Index: 1, CodecType: probe.TypeAudio, CodecName: "aac", Channels: 2, Language: "en"},
			{Index: 2, CodecType: probe.TypeAudio, CodecName: "aac", Channels: 2, Language: "eng"},
		},
	}
	// The first stream finishes last.
	slowFirst := func(ctx context.Context, ref string, _ func(float64)) (probe.LoudnessMeasurement, error) {
		if ref == "0:0" {
			select {
			case <-time.After(50 * time.Millisecond):
			case <-ctx.Done():
				return probe.LoudnessMeasurement{}, ctx.Err()
			}
		}
		return measured, nil
	}
	cfg := validCfg(t, func(c *config.Config) { c.AudioLevel = true })
	p, _ := newPlanner(t, cfg, &fakeAnalyzer{loudFn: slowFirst})

	for range 3 {
		cs, err := p.Plan(t.Context(), Source{Path: "a.mkv", Probe: pr}, DefaultStreamMap(pr))
		require.NoError(t, err)
		assert.Equal(t, DispositionDefault, cs.Change(0).Disposition)
		assert.Equal(t, DispositionOff, cs.Change(1).Disposition)
		assert.Equal(t, DispositionOff, cs.Change(2).Disposition)
	}
}

func TestPlan_CropFailureIsolated(t *testing.T) {
	failing := func(_ context.Context, ref string, offset float64) (probe.CropRegion, error) {
		return probe.CropRegion{}, &probe.ProbeInvocationError{Tool: "ffmpeg", Target: ref, Err: errors.New("exit status 1")}
	}
	cfg := validCfg(t, func(c *config.Config) {
		c.AudioLevel = true
		c.AutocropIntervals = 4
	})
	p, log := newPlanner(t, cfg, &fakeAnalyzer{cropFn: failing, loudFn: measuredOK})
	pr := movie()

	cs, err := p.Plan(t.Context(), Source{Path: "movie.mkv", Probe: pr}, DefaultStreamMap(pr))
	require.NoError(t, err)

	video := cs.Change(0)
	var pie *probe.ProbeInvocationError
	require.True(t, errors.As(video.Err, &pie), "got %v", video.Err)
	assert.Empty(t, video.Filter)
	assert.Nil(t, video.Codec)
	assert.Equal(t, "0:0", video.MapTarget())

	eng := cs.Change(1)
	assert.NoError(t, eng.Err)
	assert.Equal(t, DispositionDefault, eng.Disposition)
	assert.NotEmpty(t, eng.Filter)
	assert.Len(t, cs.Failed(), 1)
	assert.True(t, log.contains("Crop detection failed for [0:0]"))
}

func TestPlan_CropFailureKeepsScale(t *testing.T) {
	failing := func(context.Context, string, float64) (probe.CropRegion, error) {
		return probe.CropRegion{}, &probe.CropParseError{Reason: "no crop line found"}
	}
	cfg := validCfg(t, func(c *config.Config) {
		c.ScaleHeight = 720
		c.AutocropIntervals = 2
	})
	p, _ := newPlanner(t, cfg, &fakeAnalyzer{cropFn: failing})
	pr := movie()

	cs, err := p.Plan(t.Context(), Source{Path: "movie.mkv", Probe: pr}, DefaultStreamMap(pr))
	require.NoError(t, err)

	video := cs.Change(0)
	require.Error(t, video.Err)
	assert.Equal(t, "[0:0]scale=-2:720[0-0-scale]", video.Filter)
}

func TestPlan_LoudnessFailureIsolated(t *testing.T) {
	loud := func(_ context.Context, ref string, _ func(float64)) (probe.LoudnessMeasurement, error) {
		if ref == "0:2" {
			return probe.LoudnessMeasurement{}, &probe.MeasurementParseError{Reason: "no loudnorm report"}
		}
		return measured, nil
	}
	cfg := validCfg(t, func(c *config.Config) { c.AudioLevel = true })
	p, _ := newPlanner(t, cfg, &fakeAnalyzer{loudFn: loud})
	pr := movie()

	cs, err := p.Plan(t.Context(), Source{Path: "movie.mkv", Probe: pr}, DefaultStreamMap(pr))
	require.NoError(t, err)

	fre := cs.Change(2)
	var mpe *probe.MeasurementParseError
	require.True(t, errors.As(fre.Err, &mpe))
	assert.Contains(t, fre.Err.Error(), "loudness measurement for 0:2")
	assert.Empty(t, fre.Filter)
	assert.Nil(t, fre.Codec)
	assert.Equal(t, "French (AAC Stereo)", fre.Title, "metadata directives survive a failed measurement")
	assert.Equal(t, DispositionOff, fre.Disposition)

	assert.NoError(t, cs.Change(1).Err)
	assert.NotEmpty(t, cs.Change(1).Filter)
}

func TestPlan_Idempotent(t *testing.T) {
	pr := &probe.ProbeResult{
		Streams: []probe.Stream{
			{Index: 0, CodecType: probe.TypeVideo, CodecName: "h264", Width: 1280, Height: 720},
			{Index: 1, CodecType: probe.TypeAudio, CodecName: "aac", Channels: 2, Language: "eng", Title: "English (AAC Stereo)"},
			{Index: 2, CodecType: probe.TypeSubtitle, CodecName: "ass", Language: "eng", Title: "Signs"},
		},
	}
	p, _ := newPlanner(t, validCfg(t, nil), nil)
	smap := DefaultStreamMap(pr)

	first, err := p.Plan(t.Context(), Source{Path: "x.mkv", Probe: pr}, smap)
	require.NoError(t, err)
	second, err := p.Plan(t.Context(), Source{Path: "x.mkv", Probe: pr}, smap)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Empty(t, first.Change(1).Title, "existing titles are kept without force")
	assert.Empty(t, first.Change(2).Title)
	assert.Equal(t, DispositionDefault, first.Change(1).Disposition)
}

func TestPlan_ResolveErrors(t *testing.T) {
	pr := movie()
	p, _ := newPlanner(t, validCfg(t, nil), nil)
	src := Source{Path: "movie.mkv", Probe: pr}

	tests := []struct {
		name string
		smap StreamMap
		want string
	}{
		{"missing stream", StreamMap{{Position: 0, Source: StreamRef{Stream: 9}}}, "stream 9 not found"},
		{"second input", StreamMap{{Position: 0, Source: StreamRef{Input: 1, Stream: 0}}}, "only input 0"},
		{"duplicate position", StreamMap{
			{Position: 0, Source: StreamRef{Stream: 0}},
			{Position: 0, Source: StreamRef{Stream: 1}},
		}, "mapped twice"},
		{"positions out of map order", StreamMap{
			{Position: 1, Source: StreamRef{Stream: 2}},
			{Position: 0, Source: StreamRef{Stream: 1}},
		}, "output position 1 out of order, want 0"},
		{"gap in positions", StreamMap{
			{Position: 0, Source: StreamRef{Stream: 0}},
			{Position: 2, Source: StreamRef{Stream: 1}},
		}, "output position 2 out of order, want 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := p.Plan(t.Context(), src, tt.smap)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Nil(t, cs)
		})
	}

	_, err := p.Plan(t.Context(), Source{Path: "gone.mkv"}, nil)
	assert.Error(t, err)
}

func TestPlan_CustomStreamMap(t *testing.T) {
	pr := movie()
	p, _ := newPlanner(t, validCfg(t, nil), nil)
	// French first: map order, not container order, decides the default.
	smap := StreamMap{
		{Position: 0, Source: StreamRef{Stream: 0}},
		{Position: 1, Source: StreamRef{Stream: 2}},
		{Position: 2, Source: StreamRef{Stream: 1}},
	}
	cs, err := p.Plan(t.Context(), Source{Path: "movie.mkv", Probe: pr}, smap)
	require.NoError(t, err)
	assert.Equal(t, DispositionOff, cs.Change(1).Disposition)
	assert.Equal(t, DispositionDefault, cs.Change(2).Disposition)
	assert.Equal(t, "metadata:s:2", cs.Change(2).Key())
	assert.Equal(t, "0:1", cs.Change(2).MapTarget())
}

func TestPlan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	blocked := func(ctx context.Context, _ string, _ func(float64)) (probe.LoudnessMeasurement, error) {
		<-ctx.Done()
		return probe.LoudnessMeasurement{}, ctx.Err()
	}
	cfg := validCfg(t, func(c *config.Config) { c.AudioLevel = true })
	p, _ := newPlanner(t, cfg, &fakeAnalyzer{loudFn: blocked})
	pr := movie()

	cs, err := p.Plan(ctx, Source{Path: "movie.mkv", Probe: pr}, DefaultStreamMap(pr))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, cs)
}

func TestPlan_ProgressClearedAfterAnalysis(t *testing.T) {
	slow := func(ctx context.Context, _ string, onProgress func(float64)) (probe.LoudnessMeasurement, error) {
		for pct := 10.0; pct <= 100; pct += 30 {
			onProgress(pct)
			time.Sleep(5 * time.Millisecond)
		}
		return measured, nil
	}
	cfg := validCfg(t, func(c *config.Config) {
		c.AudioLevel = true
		c.ProgressInterval = config.Duration(time.Millisecond)
	})
	p, log := newPlanner(t, cfg, &fakeAnalyzer{loudFn: slow})
	pr := movie()

	_, err := p.Plan(t.Context(), Source{Path: "movie.mkv", Probe: pr}, DefaultStreamMap(pr))
	require.NoError(t, err)

	log.mu.Lock()
	defer log.mu.Unlock()
	assert.Equal(t, 1, log.cleared)
	for _, line := range log.status {
		assert.True(t, strings.HasPrefix(line, "Normalizing audio: "), line)
	}
}

func TestPlan_NoReporterWithoutAudioLevel(t *testing.T) {
	cfg := validCfg(t, func(c *config.Config) { c.AutocropIntervals = 2 })
	p, log := newPlanner(t, cfg, &fakeAnalyzer{cropFn: letterboxed})
	pr := movie()

	_, err := p.Plan(t.Context(), Source{Path: "movie.mkv", Probe: pr}, DefaultStreamMap(pr))
	require.NoError(t, err)
	assert.Zero(t, log.cleared)
}

func TestNew(t *testing.T) {
	t.Run("invalid language", func(t *testing.T) {
		for _, code := range []string{"xx", "qqq", "und"} {
			cfg := config.DefaultConfig()
			cfg.AutocropIntervals = 0
			cfg.Language = code
			_, err := New(&cfg, nil, &fakeLogger{})
			require.Error(t, err, code)
			assert.Contains(t, err.Error(), `invalid language "`+code+`"`)
		}
	})

	t.Run("analyzer required", func(t *testing.T) {
		cfg := config.DefaultConfig()
		_, err := New(&cfg, nil, &fakeLogger{})
		assert.Error(t, err, "autocrop is on by default")

		cfg.AutocropIntervals = 0
		_, err = New(&cfg, nil, &fakeLogger{})
		assert.NoError(t, err)
	})

	t.Run("config is copied", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.AutocropIntervals = 0
		p, err := New(&cfg, nil, &fakeLogger{})
		require.NoError(t, err)
		cfg.Language = "fre"
		assert.Equal(t, "English", p.cfg.TargetLanguage)
	})
}

func TestDefaultStreamMap(t *testing.T) {
	pr := &probe.ProbeResult{
		Streams: []probe.Stream{
			{Index: 0, CodecType: probe.TypeVideo, CodecName: "h264"},
			{Index: 1, CodecType: probe.TypeAudio, CodecName: "aac"},
			{Index: 2, CodecType: "data", CodecName: "bin_data"},
			{Index: 3, CodecType: probe.TypeSubtitle, CodecName: "ass"},
			{Index: 4, CodecType: probe.TypeVideo, CodecName: "mjpeg", IsAttachedPic: true},
			{Index: 5, CodecType: "attachment"},
		},
	}
	assert.Equal(t, StreamMap{
		{Position: 0, Source: StreamRef{Stream: 0}},
		{Position: 1, Source: StreamRef{Stream: 1}},
		{Position: 2, Source: StreamRef{Stream: 3}},
	}, DefaultStreamMap(pr))
}

func TestDescribe(t *testing.T) {
	c := &StreamChange{
		Position:    1,
		Source:      StreamRef{Stream: 1},
		Title:       "English (AAC Stereo)",
		Disposition: DispositionDefault,
		Filter:      "[0:1]loudnorm[0-1-loudnorm]",
		Codec:       &CodecOverride{Encoder: "aac"},
	}
	assert.Equal(t,
		"metadata:s:1 [0:1] title=English (AAC Stereo), DISPOSITION:default=1; filter [0:1]loudnorm[0-1-loudnorm]; encode aac",
		Describe(c))

	assert.Equal(t, "metadata:s:0 [0:0] unchanged", Describe(&StreamChange{}))
}
