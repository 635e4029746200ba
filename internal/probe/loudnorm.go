package probe

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// LoudnessMeasurement is the first-pass EBU R128 analysis of one audio
// stream, as reported by ffmpeg's loudnorm filter.
type LoudnessMeasurement struct {
	Integrated float64 // LUFS.
	Range      float64 // LU.
	TruePeak   float64 // dBTP.
	Threshold  float64 // LUFS.
}

// SecondPass returns the loudnorm filter expression that applies this
// measurement.
func (m LoudnessMeasurement) SecondPass() string {
	return fmt.Sprintf("loudnorm=measured_I=%.2f:measured_LRA=%.2f:measured_TP=%.2f:measured_thresh=%.2f",
		m.Integrated, m.Range, m.TruePeak, m.Threshold)
}

// reLoudnormMarker matches the log prefix loudnorm prints immediately before
// its JSON summary, e.g. "[Parsed_loudnorm_0 @ 0x5581c0a3c4c0]".
var reLoudnormMarker = regexp.MustCompile(`\[Parsed_loudnorm_\d+ @ 0x[0-9a-fA-F]+\]`)

// loudnormReport is the JSON summary. ffmpeg prints every value as a string.
type loudnormReport struct {
	InputI      *string `json:"input_i"`
	InputLRA    *string `json:"input_lra"`
	InputTP     *string `json:"input_tp"`
	InputThresh *string `json:"input_thresh"`
}

// ParseLoudnorm extracts the measurement from the diagnostic output of a
// print_format=json loudnorm pass. The summary is the JSON object that
// follows the last marker line. Every failure is a *MeasurementParseError.
func ParseLoudnorm(report string) (LoudnessMeasurement, error) {
	locs := reLoudnormMarker.FindAllStringIndex(report, -1)
	if len(locs) == 0 {
		return LoudnessMeasurement{}, &MeasurementParseError{Reason: "marker not found"}
	}
	body := report[locs[len(locs)-1][1]:]

	start := strings.IndexByte(body, '{')
	end := strings.IndexByte(body, '}')
	if start < 0 || end < start {
		return LoudnessMeasurement{}, &MeasurementParseError{Reason: "no JSON object after marker"}
	}
	object := strings.NewReplacer("\r", "", "\n", "", "\t", "").Replace(body[start : end+1])

	var raw loudnormReport
	if err := json.Unmarshal([]byte(object), &raw); err != nil {
		return LoudnessMeasurement{}, &MeasurementParseError{Reason: "malformed JSON", Err: err}
	}

	var m LoudnessMeasurement
	fields := []struct {
		name string
		src  *string
		dst  *float64
	}{
		{"input_i", raw.InputI, &m.Integrated},
		{"input_lra", raw.InputLRA, &m.Range},
		{"input_tp", raw.InputTP, &m.TruePeak},
		{"input_thresh", raw.InputThresh, &m.Threshold},
	}
	for _, f := range fields {
		if f.src == nil {
			return LoudnessMeasurement{}, &MeasurementParseError{Reason: "missing " + f.name}
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(*f.src), 64)
		if err != nil {
			return LoudnessMeasurement{}, &MeasurementParseError{Reason: "invalid " + f.name, Err: err}
		}
		// Silent input yields "-inf", which no second pass can use.
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return LoudnessMeasurement{}, &MeasurementParseError{Reason: fmt.Sprintf("%s is not finite (%s)", f.name, *f.src)}
		}
		*f.dst = v
	}
	return m, nil
}
