package probe

import (
	"fmt"
	"strings"
)

// ProbeInvocationError reports that an external tool (ffprobe, or ffmpeg
// running an analysis pass) could not be run or exited non-zero.
type ProbeInvocationError struct {
	Tool   string // Binary that was invoked.
	Target string // Stream reference or file the invocation was for.
	Stderr string // Last lines of the tool's diagnostic output.
	Err    error
}

func (e *ProbeInvocationError) Error() string {
	msg := fmt.Sprintf("%s failed for %s: %v", e.Tool, e.Target, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ProbeInvocationError) Unwrap() error { return e.Err }

// MeasurementParseError reports that a loudness analysis report could not
// be turned into a LoudnessMeasurement.
type MeasurementParseError struct {
	Reason string
	Err    error
}

func (e *MeasurementParseError) Error() string {
	if e.Err != nil {
		return "loudnorm report: " + e.Reason + ": " + e.Err.Error()
	}
	return "loudnorm report: " + e.Reason
}

func (e *MeasurementParseError) Unwrap() error { return e.Err }

// CropParseError reports that cropdetect output held no usable crop line.
type CropParseError struct {
	Reason string
}

func (e *CropParseError) Error() string { return "cropdetect report: " + e.Reason }

// tailLines is how much diagnostic output an invocation error keeps.
const tailLines = 3

// tail returns the last few non-empty lines of s, joined with " | ".
func tail(s string) string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	var kept []string
	for i := len(lines) - 1; i >= 0 && len(kept) < tailLines; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			kept = append(kept, l)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, " | ")
}
