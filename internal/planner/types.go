package planner

import (
	"strconv"
	"strings"
)

// StreamRef identifies one stream of one input, as ffmpeg's "input:stream".
type StreamRef struct {
	Input  int
	Stream int
}

// String returns "0:1", the form accepted by -map.
func (r StreamRef) String() string {
	return strconv.Itoa(r.Input) + ":" + strconv.Itoa(r.Stream)
}

// Pad returns the filtergraph input pad, "[0:1]".
func (r StreamRef) Pad() string { return "[" + r.String() + "]" }

// Label returns the filtergraph label produced by stage, "[0-1-crop]".
func (r StreamRef) Label(stage string) string {
	return "[" + strconv.Itoa(r.Input) + "-" + strconv.Itoa(r.Stream) + "-" + stage + "]"
}

// MapEntry feeds Source into output stream Position.
type MapEntry struct {
	Position int
	Source   StreamRef
}

// StreamMap is the ordered list of mapped streams. Order is precedence for
// default-track selection, and ffmpeg assigns output indexes in this order.
type StreamMap []MapEntry

// Disposition is the default-flag directive for one output stream.
type Disposition int

const (
	DispositionUnset   Disposition = iota // No directive.
	DispositionOff                        // default=0
	DispositionDefault                    // default=1
)

// CodecOverride replaces stream copy for a stream that runs through a
// filter chain. Video uses CRF and Preset; audio uses Bitrate and SampleRate.
type CodecOverride struct {
	Kind       string // probe.TypeVideo or probe.TypeAudio.
	Encoder    string
	CRF        int
	Preset     string
	Bitrate    string
	SampleRate int
	Note       string // How CRF was chosen, for logs.
}

// StreamChange holds every directive for one output stream.
type StreamChange struct {
	Position  int
	Source    StreamRef
	CodecType string

	Title       string // New title; empty leaves the existing one.
	Disposition Disposition

	Filter string         // Composed filtergraph fragment; empty when unfiltered.
	Output string         // Final filtergraph label to map; empty maps Source directly.
	Codec  *CodecOverride // Nil keeps stream copy.

	// Err records analysis stages that failed for this stream. The stream
	// is still mapped; only the failed stage is missing from Filter.
	Err error
}

// Key returns the ffmpeg metadata specifier for the change, "metadata:s:2".
func (c *StreamChange) Key() string { return "metadata:s:" + strconv.Itoa(c.Position) }

// Metadata renders the title and disposition directives as key=value
// strings: "title=English (AAC Stereo)", "DISPOSITION:default=1".
func (c *StreamChange) Metadata() []string {
	var out []string
	if c.Title != "" {
		out = append(out, "title="+c.Title)
	}
	switch c.Disposition {
	case DispositionDefault:
		out = append(out, "DISPOSITION:default=1")
	case DispositionOff:
		out = append(out, "DISPOSITION:default=0")
	}
	return out
}

// MapTarget returns what -map should select: the final filter label, or the
// source stream when nothing was filtered.
func (c *StreamChange) MapTarget() string {
	if c.Output != "" {
		return c.Output
	}
	return c.Source.String()
}

// Empty reports whether the change carries no directive at all.
func (c *StreamChange) Empty() bool {
	return c.Title == "" && c.Disposition == DispositionUnset && c.Filter == "" && c.Codec == nil
}

// ChangeSet is the merged result of planning one input: one StreamChange
// per mapped stream, in stream map order.
type ChangeSet struct {
	Changes   []StreamChange
	Selection Selection
}

// Change returns the change for output position pos, or nil.
func (cs *ChangeSet) Change(pos int) *StreamChange {
	for i := range cs.Changes {
		if cs.Changes[i].Position == pos {
			return &cs.Changes[i]
		}
	}
	return nil
}

// Graph joins every non-empty fragment into one -filter_complex value.
func (cs *ChangeSet) Graph() string {
	var parts []string
	for _, c := range cs.Changes {
		if c.Filter != "" {
			parts = append(parts, c.Filter)
		}
	}
	return strings.Join(parts, ";")
}

// Failed returns the changes that recorded a stage error.
func (cs *ChangeSet) Failed() []StreamChange {
	var out []StreamChange
	for _, c := range cs.Changes {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// Empty reports whether no stream received any directive.
func (cs *ChangeSet) Empty() bool {
	for i := range cs.Changes {
		if !cs.Changes[i].Empty() {
			return false
		}
	}
	return true
}
