package mf

import (
	"fmt"
	"math"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"
	"github.com/thesyncim/mf/com"
	"go.uber.org/zap"
)

// DefaultMTU is the packet size budget used when a config leaves MTU unset.
const DefaultMTU = 1200

// maxMTU is the largest MTU whose payload budget fits the payloader's uint16.
const maxMTU = math.MaxUint16 + rtpHeaderSize

// rtpHeaderSize is the fixed RTP header without CSRCs or extensions.
const rtpHeaderSize = 12

// RTPPacketizerConfig configures an RTPPacketizerTransform.
type RTPPacketizerConfig struct {
	// Codec is the format of the incoming frames.
	Codec       webrtc.RTPCodecCapability
	PayloadType uint8
	SSRC        uint32
	// MTU bounds a marshaled packet, header included.
	MTU int
	// Sequencer numbers the packets. Nil starts at a random number.
	Sequencer rtp.Sequencer
	// InitialTimestamp is the RTP timestamp of sample time 0.
	InitialTimestamp uint32
}

// DefaultRTPPacketizerConfig returns a VP8 configuration.
func DefaultRTPPacketizerConfig() RTPPacketizerConfig {
	return RTPPacketizerConfig{
		Codec:       webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		PayloadType: 96,
		MTU:         DefaultMTU,
	}
}

// payloaderFor returns the pion payloader for a codec.
func payloaderFor(c Codec) (rtp.Payloader, error) {
	switch c {
	case VideoCodecVP8:
		return &codecs.VP8Payloader{}, nil
	case VideoCodecVP9:
		return &codecs.VP9Payloader{}, nil
	case VideoCodecH264:
		return &codecs.H264Payloader{}, nil
	case VideoCodecAV1:
		return &codecs.AV1Payloader{}, nil
	case AudioCodecOpus:
		return &codecs.OpusPayloader{}, nil
	case AudioCodecG711A, AudioCodecG711U:
		return &codecs.G711Payloader{}, nil
	}
	return nil, fmt.Errorf("mf: no RTP payloader for %s", c)
}

type rtpPacket struct {
	data []byte
	when int64
}

// RTPPacketizerTransform splits encoded frames into RTP packets. Each input
// sample holds one frame; each output sample holds one marshaled packet and
// carries the frame's sample time. The RTP timestamp is derived from the
// sample time and the codec clock rate.
type RTPPacketizerTransform struct {
	rtpTransform
	config    RTPPacketizerConfig
	payloader rtp.Payloader

	packets []rtpPacket
}

var _ Transform = (*RTPPacketizerTransform)(nil)

// NewRTPPacketizerTransform creates the transform.
func NewRTPPacketizerTransform(config RTPPacketizerConfig) (*RTPPacketizerTransform, error) {
	c, ok := CodecForMimeType(config.Codec.MimeType)
	if !ok {
		return nil, fmt.Errorf("mf: unknown codec %q", config.Codec.MimeType)
	}
	p, err := payloaderFor(c)
	if err != nil {
		return nil, err
	}
	if config.Codec.ClockRate == 0 {
		config.Codec.ClockRate = c.ClockRate()
	}
	if config.MTU <= 0 {
		config.MTU = DefaultMTU
	}
	if config.MTU <= rtpHeaderSize {
		return nil, fmt.Errorf("mf: MTU %d leaves no room for payload", config.MTU)
	}
	if config.MTU > maxMTU {
		return nil, fmt.Errorf("mf: MTU %d exceeds %d", config.MTU, maxMTU)
	}
	if config.Sequencer == nil {
		config.Sequencer = rtp.NewRandomSequencer()
	}
	available, err := NewMediaTypeFromCapability(config.Codec)
	if err != nil {
		return nil, err
	}
	t := &RTPPacketizerTransform{config: config, payloader: p}
	t.setup(c, available, t.resetLocked)
	return t, nil
}

// rtpTimestamp converts a sample time in 100-ns units to the RTP clock.
func (t *RTPPacketizerTransform) rtpTimestamp(when int64) uint32 {
	return t.config.InitialTimestamp + uint32(when*int64(t.config.Codec.ClockRate)/10_000_000)
}

func (t *RTPPacketizerTransform) GetInputStatus(id uint32) (InputStatusFlags, error) {
	if err := checkStream(id); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.packets) == 0 {
		return InputStatusAcceptData, nil
	}
	return 0, nil
}

func (t *RTPPacketizerTransform) GetOutputStatus() (OutputStatusFlags, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.packets) > 0 {
		return OutputStatusSampleReady, nil
	}
	return 0, nil
}

func (t *RTPPacketizerTransform) ProcessMessage(m TransformMessage) error {
	com.Logger().Debug("mf: rtp packetizer message", zap.Stringer("type", m.Type()))
	switch msg := m.(type) {
	case *SetD3DManagerMessage:
		if msg.Manager != nil {
			return com.E_NOTIMPL
		}
	case *NotifyEndOfStreamMessage:
		return checkStream(msg.StreamID)
	default:
		if m.Type() == MessageCommandFlush {
			t.mu.Lock()
			t.packets = nil
			t.mu.Unlock()
		}
	}
	return nil
}

// ProcessInput packetizes one frame. Packets of the previous frame must be
// collected first.
func (t *RTPPacketizerTransform) ProcessInput(id uint32, sample *Sample, _ uint32) error {
	if err := checkStream(id); err != nil {
		return err
	}
	if !t.typesSet() {
		return MF_E_TRANSFORM_TYPE_NOT_SET
	}
	t.mu.Lock()
	pending := len(t.packets) > 0
	t.mu.Unlock()
	if pending {
		return MF_E_NOTACCEPTING
	}

	frame, err := sample.Bytes()
	if err != nil {
		return err
	}
	when, err := sample.SampleTime()
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	payloads := t.payloader.Payload(uint16(t.config.MTU-rtpHeaderSize), frame)
	ts := t.rtpTimestamp(when)
	for i, payload := range payloads {
		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         i == len(payloads)-1,
				PayloadType:    t.config.PayloadType,
				SequenceNumber: t.config.Sequencer.NextSequenceNumber(),
				Timestamp:      ts,
				SSRC:           t.config.SSRC,
			},
			Payload: payload,
		}
		raw, err := pkt.Marshal()
		if err != nil {
			t.packets = nil
			return fmt.Errorf("rtp marshal: %w", err)
		}
		t.packets = append(t.packets, rtpPacket{data: raw, when: when})
	}
	return nil
}

func (t *RTPPacketizerTransform) ProcessOutput(_ ProcessOutputFlags, buffers []OutputDataBuffer) (ProcessOutputStatus, error) {
	if len(buffers) != 1 {
		return 0, com.E_INVALIDARG
	}
	out := &buffers[0]
	if err := checkStream(out.StreamID); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.packets) == 0 {
		return 0, MF_E_TRANSFORM_NEED_MORE_INPUT
	}
	pkt := t.packets[0]
	if err := outputSample(out, pkt.data, pkt.when); err != nil {
		return 0, err
	}
	t.packets = t.packets[1:]
	out.Status = 0
	if len(t.packets) > 0 {
		out.Status = OutputDataBufferIncomplete
	}
	return 0, nil
}

func (t *RTPPacketizerTransform) resetLocked() {
	t.packets = nil
}

// Close releases the media types the transform holds.
func (t *RTPPacketizerTransform) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked()
	return nil
}
