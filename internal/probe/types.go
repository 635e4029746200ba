package probe

import (
	"fmt"
	"strconv"
)

// Codec types as reported by ffprobe's codec_type field.
const (
	TypeVideo    = "video"
	TypeAudio    = "audio"
	TypeSubtitle = "subtitle"
)

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename       string
	NbStreams      int
	FormatName     string
	FormatLongName string
	Duration       float64
	Size           int64
	BitRate        int64
	Tags           map[string]string
}

// Stream holds the parsed properties of a single stream. Fields that do not
// apply to the stream's type are left at their zero value. Language and Title
// are empty when the container carries no such tag.
type Stream struct {
	Index     int
	CodecType string
	CodecName string
	Profile   string
	PixFmt    string

	// Video.
	Width          int
	Height         int
	ColorTransfer  string
	ColorPrimaries string
	ColorSpace     string

	// Audio.
	Channels      int
	ChannelLayout string
	SampleRate    int

	Language      string
	Title         string
	IsDefault     bool
	IsAttachedPic bool
	IsBitmap      bool
}

// Ref returns the stream's "input:index" reference for input 0, as accepted
// by ffmpeg's -map option.
func (s *Stream) Ref() string { return "0:" + strconv.Itoa(s.Index) }

// ProbeResult is the fully parsed output of a single ffprobe JSON call.
// Streams are kept in container order.
type ProbeResult struct {
	Format  FormatInfo
	Streams []Stream
}

// Stream returns the stream with the given container index.
func (p *ProbeResult) Stream(index int) (*Stream, error) {
	for i := range p.Streams {
		if p.Streams[i].Index == index {
			return &p.Streams[i], nil
		}
	}
	return nil, fmt.Errorf("stream %d not found in %s", index, p.Format.Filename)
}

// PrimaryVideo returns the first video stream that is not an attached
// picture, or nil.
func (p *ProbeResult) PrimaryVideo() *Stream {
	for i := range p.Streams {
		s := &p.Streams[i]
		if s.CodecType == TypeVideo && !s.IsAttachedPic {
			return s
		}
	}
	return nil
}

// AudioStreams returns the audio streams in container order.
func (p *ProbeResult) AudioStreams() []Stream { return p.ofType(TypeAudio) }

// SubtitleStreams returns the subtitle streams in container order.
func (p *ProbeResult) SubtitleStreams() []Stream { return p.ofType(TypeSubtitle) }

func (p *ProbeResult) ofType(codecType string) []Stream {
	var out []Stream
	for _, s := range p.Streams {
		if s.CodecType == codecType {
			out = append(out, s)
		}
	}
	return out
}

// Resolution returns "WxH" for the primary video stream, or "unknown".
func (p *ProbeResult) Resolution() string {
	v := p.PrimaryVideo()
	if v == nil || v.Width <= 0 || v.Height <= 0 {
		return "unknown"
	}
	return strconv.Itoa(v.Width) + "x" + strconv.Itoa(v.Height)
}
