// Package planner computes per-stream directives for one input file: titles,
// default-track flags, and filtergraph fragments for crop, scale and
// loudness normalization. The ffmpeg package turns a ChangeSet into an
// argument list.
//
// Layout:
//   - StreamRef, StreamMap, StreamChange, ChangeSet (types.go)
//   - ChannelLabel, StreamTitle, NeedsTitle (title.go)
//   - SelectDefaults: audio first, subtitle fallback (disposition.go, subtitle.go)
//   - SampleOffsets, AggregateCrop, SampleCrop (crop.go)
//   - filter chain threading and encoder overrides (filter.go, audio.go, quality.go)
//   - Planner.Plan: resolve, select, concurrent analysis, merge (planner.go)
package planner
