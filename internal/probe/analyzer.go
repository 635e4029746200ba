package probe

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Runner runs one external command and returns its diagnostic (stderr)
// output. onLine, when non-nil, receives each diagnostic line as it arrives;
// ffmpeg's carriage-return progress updates count as lines.
type Runner interface {
	Run(ctx context.Context, name string, args []string, onLine func(string)) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements [Runner].
func (ExecRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", err
	}
	if err := cmd.Start(); err != nil {
		return "", err
	}

	var buf strings.Builder
	sc := bufio.NewScanner(stderr)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(scanDiagnosticLines)
	for sc.Scan() {
		line := sc.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')
		if onLine != nil {
			onLine(line)
		}
	}
	// Keep the pipe drained if the scanner gave up, or Wait can block.
	_, _ = io.Copy(io.Discard, stderr)

	err = cmd.Wait()
	return buf.String(), err
}

// scanDiagnosticLines is bufio.ScanLines that also splits on '\r'.
func scanDiagnosticLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// cropdetect black-level limits. HDR sources sit on a raised black floor,
// so the SDR limit would detect bars as picture.
const (
	cropLimitSDR = 24
	cropLimitHDR = 100
)

// cropFrames is how many frames each crop sample decodes.
const cropFrames = 2

// Analyzer runs the ffmpeg analysis passes: loudness measurement and crop
// detection. Runner defaults to [ExecRunner] when nil.
type Analyzer struct {
	FFmpeg string
	Runner Runner
}

// NewAnalyzer returns an Analyzer that runs the given ffmpeg binary.
func NewAnalyzer(ffmpeg string) *Analyzer {
	return &Analyzer{FFmpeg: ffmpeg, Runner: ExecRunner{}}
}

func (a *Analyzer) run(ctx context.Context, target string, args []string, onLine func(string)) (string, error) {
	runner := a.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	report, err := runner.Run(ctx, a.FFmpeg, args, onLine)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", &ProbeInvocationError{Tool: a.FFmpeg, Target: target, Stderr: tail(report), Err: err}
	}
	return report, nil
}

// MeasureLoudness runs one full first-pass loudnorm analysis of the stream
// ref ("0:1") of input. onProgress, when non-nil, receives percent complete
// derived from ffmpeg's time= stats against duration (seconds).
func (a *Analyzer) MeasureLoudness(ctx context.Context, input, ref string, duration float64, onProgress func(float64)) (LoudnessMeasurement, error) {
	args := []string{
		"-hide_banner", "-nostdin",
		"-i", input,
		"-map", ref,
		"-af", "loudnorm=print_format=json",
		"-f", "null", "-",
	}
	var onLine func(string)
	if onProgress != nil && duration > 0 {
		onLine = func(line string) {
			if t, ok := parseStatsTime(line); ok {
				pct := t / duration * 100
				if pct > 100 {
					pct = 100
				}
				onProgress(pct)
			}
		}
	}
	report, err := a.run(ctx, ref, args, onLine)
	if err != nil {
		return LoudnessMeasurement{}, err
	}
	return ParseLoudnorm(report)
}

// DetectCrop runs cropdetect over a few frames of stream ref starting at
// offset seconds and returns the suggested crop.
func (a *Analyzer) DetectCrop(ctx context.Context, input, ref string, offset float64, hdr bool) (CropRegion, error) {
	limit := cropLimitSDR
	if hdr {
		limit = cropLimitHDR
	}
	args := []string{
		"-hide_banner", "-nostdin",
		"-ss", strconv.FormatFloat(offset, 'f', 3, 64),
		"-i", input,
		"-map", ref,
		"-frames:v", strconv.Itoa(cropFrames),
		"-vf", "cropdetect=limit=" + strconv.Itoa(limit) + ":round=2:reset=0",
		"-f", "null", "-",
	}
	target := ref + "@" + strconv.FormatFloat(offset, 'f', 1, 64) + "s"
	report, err := a.run(ctx, target, args, nil)
	if err != nil {
		return CropRegion{}, err
	}
	return ParseCrop(report)
}

// reStatsTime matches the position in ffmpeg's stats line,
// e.g. "size=N/A time=00:12:34.56 bitrate=N/A speed=98x".
var reStatsTime = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// parseStatsTime returns the stats-line position in seconds.
func parseStatsTime(line string) (float64, bool) {
	m := reStatsTime.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, false
	}
	return float64(h*3600+mins*60) + sec, true
}
