package mf

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
	"github.com/thesyncim/mf/com"
)

// VideoCodec identifies a compressed video format.
type VideoCodec int

const (
	VideoCodecUnknown VideoCodec = iota
	VideoCodecVP8
	VideoCodecVP9
	VideoCodecH264
	VideoCodecH265
	VideoCodecAV1
)

func (c VideoCodec) String() string {
	switch c {
	case VideoCodecVP8:
		return "VP8"
	case VideoCodecVP9:
		return "VP9"
	case VideoCodecH264:
		return "H264"
	case VideoCodecH265:
		return "H265"
	case VideoCodecAV1:
		return "AV1"
	default:
		return "Unknown"
	}
}

// MimeType returns the WebRTC MIME type for this codec.
func (c VideoCodec) MimeType() string {
	switch c {
	case VideoCodecVP8:
		return webrtc.MimeTypeVP8
	case VideoCodecVP9:
		return webrtc.MimeTypeVP9
	case VideoCodecH264:
		return webrtc.MimeTypeH264
	case VideoCodecH265:
		return webrtc.MimeTypeH265
	case VideoCodecAV1:
		return webrtc.MimeTypeAV1
	default:
		return ""
	}
}

// Subtype returns the Media Foundation subtype, or GUID_NULL.
func (c VideoCodec) Subtype() com.GUID {
	switch c {
	case VideoCodecVP8:
		return MFVideoFormat_VP80
	case VideoCodecVP9:
		return MFVideoFormat_VP90
	case VideoCodecH264:
		return MFVideoFormat_H264
	case VideoCodecH265:
		return MFVideoFormat_HEVC
	case VideoCodecAV1:
		return MFVideoFormat_AV1
	default:
		return com.GUID{}
	}
}

// ClockRate returns the RTP clock rate for this codec.
func (c VideoCodec) ClockRate() uint32 {
	// All video codecs use 90kHz clock
	return 90000
}

// AudioCodec identifies a compressed audio format.
type AudioCodec int

const (
	AudioCodecUnknown AudioCodec = iota
	AudioCodecOpus
	AudioCodecG711A // A-law (PCMA)
	AudioCodecG711U // μ-law (PCMU)
	AudioCodecAAC
)

func (c AudioCodec) String() string {
	switch c {
	case AudioCodecOpus:
		return "Opus"
	case AudioCodecG711A:
		return "PCMA"
	case AudioCodecG711U:
		return "PCMU"
	case AudioCodecAAC:
		return "AAC"
	default:
		return "Unknown"
	}
}

// MimeType returns the WebRTC MIME type for this codec.
func (c AudioCodec) MimeType() string {
	switch c {
	case AudioCodecOpus:
		return webrtc.MimeTypeOpus
	case AudioCodecG711A:
		return webrtc.MimeTypePCMA
	case AudioCodecG711U:
		return webrtc.MimeTypePCMU
	case AudioCodecAAC:
		return "audio/AAC"
	default:
		return ""
	}
}

// Subtype returns the Media Foundation subtype, or GUID_NULL.
func (c AudioCodec) Subtype() com.GUID {
	switch c {
	case AudioCodecOpus:
		return MFAudioFormat_Opus
	case AudioCodecG711A:
		return MFAudioFormat_ALAW
	case AudioCodecG711U:
		return MFAudioFormat_MULAW
	case AudioCodecAAC:
		return MFAudioFormat_AAC
	default:
		return com.GUID{}
	}
}

// ClockRate returns the RTP clock rate for this codec.
func (c AudioCodec) ClockRate() uint32 {
	switch c {
	case AudioCodecOpus:
		return 48000
	case AudioCodecG711A, AudioCodecG711U:
		return 8000
	case AudioCodecAAC:
		return 48000 // Varies, but 48kHz is common
	default:
		return 48000
	}
}

// Channels returns the RTP channel count for this codec.
func (c AudioCodec) Channels() uint16 {
	if c == AudioCodecOpus {
		return 2
	}
	return 1
}

// Media Foundation subtypes of the supported codecs.
var (
	MFVideoFormat_H264 = FourCCSubtype(FourCC("H264"))
	MFVideoFormat_HEVC = FourCCSubtype(FourCC("HEVC"))
	MFVideoFormat_VP80 = FourCCSubtype(FourCC("VP80"))
	MFVideoFormat_VP90 = FourCCSubtype(FourCC("VP90"))
	MFVideoFormat_AV1  = FourCCSubtype(FourCC("AV01"))

	MFAudioFormat_Opus  = FourCCSubtype(0x704F)
	MFAudioFormat_MULAW = FourCCSubtype(0x0007)
	MFAudioFormat_ALAW  = FourCCSubtype(0x0006)
	MFAudioFormat_AAC   = FourCCSubtype(0x1610)
)

// Codec is either a VideoCodec or an AudioCodec.
type Codec interface {
	fmt.Stringer
	MimeType() string
	Subtype() com.GUID
	ClockRate() uint32
}

var knownCodecs = []Codec{
	VideoCodecVP8, VideoCodecVP9, VideoCodecH264, VideoCodecH265, VideoCodecAV1,
	AudioCodecOpus, AudioCodecG711A, AudioCodecG711U, AudioCodecAAC,
}

// CodecForMimeType looks up a codec by MIME type, ignoring case.
func CodecForMimeType(mimeType string) (Codec, bool) {
	for _, c := range knownCodecs {
		if strings.EqualFold(c.MimeType(), mimeType) {
			return c, true
		}
	}
	return nil, false
}

func codecForSubtype(subtype com.GUID) (Codec, bool) {
	for _, c := range knownCodecs {
		if c.Subtype() == subtype {
			return c, true
		}
	}
	return nil, false
}

func majorTypeOf(c Codec) com.GUID {
	if _, ok := c.(AudioCodec); ok {
		return MFMediaType_Audio
	}
	return MFMediaType_Video
}

// SubtypeForMimeType returns the Media Foundation subtype for a WebRTC MIME
// type.
func SubtypeForMimeType(mimeType string) (com.GUID, bool) {
	c, ok := CodecForMimeType(mimeType)
	if !ok {
		return com.GUID{}, false
	}
	return c.Subtype(), true
}

// CapabilityForSubtype returns the WebRTC codec capability for a Media
// Foundation subtype.
func CapabilityForSubtype(subtype com.GUID) (webrtc.RTPCodecCapability, bool) {
	c, ok := codecForSubtype(subtype)
	if !ok {
		return webrtc.RTPCodecCapability{}, false
	}
	capability := webrtc.RTPCodecCapability{MimeType: c.MimeType(), ClockRate: c.ClockRate()}
	if a, ok := c.(AudioCodec); ok {
		capability.Channels = a.Channels()
	}
	return capability, true
}

// NewMediaTypeFromCapability returns a media type describing a WebRTC codec.
// Audio types carry the sample rate and channel count.
func NewMediaTypeFromCapability(capability webrtc.RTPCodecCapability) (*MediaType, error) {
	c, ok := CodecForMimeType(capability.MimeType)
	if !ok {
		return nil, fmt.Errorf("mf: no media subtype for %q: %w", capability.MimeType, MF_E_INVALIDMEDIATYPE)
	}
	mt := NewMediaType(majorTypeOf(c), c.Subtype())
	if _, ok := c.(AudioCodec); ok {
		rate := capability.ClockRate
		if rate == 0 {
			rate = c.ClockRate()
		}
		if err := mt.SetUINT32(MF_MT_AUDIO_SAMPLES_PER_SECOND, rate); err != nil {
			mt.Release()
			return nil, err
		}
		if capability.Channels > 0 {
			if err := mt.SetUINT32(MF_MT_AUDIO_NUM_CHANNELS, uint32(capability.Channels)); err != nil {
				mt.Release()
				return nil, err
			}
		}
	}
	return mt, nil
}

// subtypeName names major types and codec subtypes for diagnostics.
func subtypeName(g com.GUID) string {
	switch g {
	case MFMediaType_Video:
		return "video"
	case MFMediaType_Audio:
		return "audio"
	}
	if c, ok := codecForSubtype(g); ok {
		return c.String()
	}
	return g.String()
}
