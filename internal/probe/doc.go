// Package probe inspects media with ffprobe and runs the ffmpeg analysis
// passes the planner depends on.
//
// Files:
//   - prober.go: Probe and ParseJSON, one ffprobe JSON call per file.
//   - types.go, hdr.go: ProbeResult and Stream, with HDR detection.
//   - analyzer.go: Analyzer (loudnorm measurement, cropdetect sampling) on
//     top of a Runner so tests never need ffmpeg.
//   - loudnorm.go, crop.go: parsers for the two diagnostic reports.
//   - errors.go: ProbeInvocationError, MeasurementParseError, CropParseError.
package probe
