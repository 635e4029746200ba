package probe

// IsHDR reports whether a video stream carries HDR color metadata:
// smpte2084/arib-std-b67 transfer or bt2020 primaries.
func (s *Stream) IsHDR() bool {
	if s.CodecType != TypeVideo {
		return false
	}
	switch s.ColorTransfer {
	case "smpte2084", "arib-std-b67":
		return true
	}
	return s.ColorPrimaries == "bt2020"
}

// HDRType returns "hdr10" if the primary video stream has HDR color
// metadata, otherwise "sdr".
func (p *ProbeResult) HDRType() string {
	if v := p.PrimaryVideo(); v != nil && v.IsHDR() {
		return "hdr10"
	}
	return "sdr"
}
