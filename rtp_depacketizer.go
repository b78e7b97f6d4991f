package mf

import (
	"errors"
	"fmt"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"
	"github.com/thesyncim/mf/com"
	"go.uber.org/zap"
)

var errNoPacket = errors.New("mf: sample carries no RTP packet")

// MFSampleExtension_CleanPoint marks samples that can be decoded on their own.
var MFSampleExtension_CleanPoint = com.MustParseGUID("9cdf01d8-a0f0-43ba-b077-eaa06cbd728a")

// RTPDepacketizerConfig configures an RTPDepacketizerTransform.
type RTPDepacketizerConfig struct {
	// Codec is the payload format of the incoming packets.
	Codec webrtc.RTPCodecCapability
	// MaxQueuedFrames is how many complete frames may wait for
	// ProcessOutput before ProcessInput answers MF_E_NOTACCEPTING.
	MaxQueuedFrames int
	// MaxFrameSize bounds a reassembled frame in bytes. Larger frames are
	// dropped.
	MaxFrameSize int
}

// DefaultRTPDepacketizerConfig returns a VP8 configuration.
func DefaultRTPDepacketizerConfig() RTPDepacketizerConfig {
	return RTPDepacketizerConfig{
		Codec:           webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		MaxQueuedFrames: 8,
		MaxFrameSize:    4 << 20,
	}
}

// depacketizerFor returns the pion depacketizer for a codec.
func depacketizerFor(c Codec) (rtp.Depacketizer, error) {
	switch c {
	case VideoCodecVP8:
		return &codecs.VP8Packet{}, nil
	case VideoCodecVP9:
		return &codecs.VP9Packet{}, nil
	case VideoCodecH264:
		return &codecs.H264Packet{}, nil
	case AudioCodecOpus:
		return &codecs.OpusPacket{}, nil
	}
	return nil, fmt.Errorf("mf: no RTP depacketizer for %s", c)
}

type rtpFrame struct {
	data      []byte
	timestamp uint32
	key       bool
}

// RTPDepacketizerTransform is a transform with one input and one output
// stream. Each input sample holds one RTP packet; each output sample holds one
// reassembled frame, stamped with the RTP time converted to 100-ns units.
// Output samples are allocated by the transform when the caller passes none.
type RTPDepacketizerTransform struct {
	rtpTransform
	config       RTPDepacketizerConfig
	depacketizer rtp.Depacketizer

	partial   []byte
	timestamp uint32
	started   bool
	firstTS   uint32
	frames    []rtpFrame
	dropped   int
}

var _ Transform = (*RTPDepacketizerTransform)(nil)

// NewRTPDepacketizerTransform creates the transform. Expose it to native code
// with WrapTransform or TransformPointer.
func NewRTPDepacketizerTransform(config RTPDepacketizerConfig) (*RTPDepacketizerTransform, error) {
	c, ok := CodecForMimeType(config.Codec.MimeType)
	if !ok {
		return nil, fmt.Errorf("mf: unknown codec %q", config.Codec.MimeType)
	}
	d, err := depacketizerFor(c)
	if err != nil {
		return nil, err
	}
	if config.Codec.ClockRate == 0 {
		config.Codec.ClockRate = c.ClockRate()
	}
	if config.MaxQueuedFrames <= 0 {
		config.MaxQueuedFrames = DefaultRTPDepacketizerConfig().MaxQueuedFrames
	}
	available, err := NewMediaTypeFromCapability(config.Codec)
	if err != nil {
		return nil, err
	}
	t := &RTPDepacketizerTransform{config: config, depacketizer: d}
	t.setup(c, available, t.resetLocked)
	return t, nil
}

// Dropped returns the number of frames discarded for exceeding MaxFrameSize.
func (t *RTPDepacketizerTransform) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

func (t *RTPDepacketizerTransform) GetInputStatus(id uint32) (InputStatusFlags, error) {
	if err := checkStream(id); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.frames) < t.config.MaxQueuedFrames {
		return InputStatusAcceptData, nil
	}
	return 0, nil
}

func (t *RTPDepacketizerTransform) GetOutputStatus() (OutputStatusFlags, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.frames) > 0 {
		return OutputStatusSampleReady, nil
	}
	return 0, nil
}

func (t *RTPDepacketizerTransform) ProcessMessage(m TransformMessage) error {
	com.Logger().Debug("mf: rtp depacketizer message", zap.Stringer("type", m.Type()))
	t.mu.Lock()
	defer t.mu.Unlock()
	switch msg := m.(type) {
	case *SetD3DManagerMessage:
		if msg.Manager != nil {
			return com.E_NOTIMPL
		}
	case *NotifyEndOfStreamMessage:
		if err := checkStream(msg.StreamID); err != nil {
			return err
		}
		t.partial = t.partial[:0]
	default:
		switch m.Type() {
		case MessageCommandFlush:
			t.frames = nil
			t.partial = t.partial[:0]
		case MessageCommandDrain:
			// A partial frame can never complete once input stops.
			t.partial = t.partial[:0]
		}
	}
	return nil
}

func (t *RTPDepacketizerTransform) ProcessInput(id uint32, sample *Sample, _ uint32) error {
	if err := checkStream(id); err != nil {
		return err
	}
	if !t.typesSet() {
		return MF_E_TRANSFORM_TYPE_NOT_SET
	}
	t.mu.Lock()
	full := len(t.frames) >= t.config.MaxQueuedFrames
	t.mu.Unlock()
	if full {
		return MF_E_NOTACCEPTING
	}

	data, err := sample.Bytes()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: %w", errNoPacket, com.E_INVALIDARG)
	}
	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return fmt.Errorf("rtp: %w: %w", err, com.E_INVALIDARG)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.depacketizeLocked(&pkt)
}

func (t *RTPDepacketizerTransform) depacketizeLocked(pkt *rtp.Packet) error {
	if len(pkt.Payload) == 0 {
		return nil
	}
	// Handle timestamp changes (new frame started)
	if len(t.partial) > 0 && t.timestamp != pkt.Timestamp {
		t.partial = t.partial[:0]
	}
	t.timestamp = pkt.Timestamp

	payload, err := t.depacketizer.Unmarshal(pkt.Payload)
	if err != nil {
		return fmt.Errorf("%s depacketize: %w", t.codec, err)
	}
	t.partial = append(t.partial, payload...)

	if !t.depacketizer.IsPartitionTail(pkt.Marker, pkt.Payload) || len(t.partial) == 0 {
		return nil
	}
	if t.config.MaxFrameSize > 0 && len(t.partial) > t.config.MaxFrameSize {
		t.dropped++
		t.partial = t.partial[:0]
		return nil
	}
	if !t.started {
		t.started = true
		t.firstTS = pkt.Timestamp
	}
	frame := rtpFrame{
		data:      append([]byte(nil), t.partial...),
		timestamp: pkt.Timestamp,
	}
	frame.key = isKeyFrame(t.codec, frame.data)
	t.frames = append(t.frames, frame)
	t.partial = t.partial[:0]
	return nil
}

// sampleTime converts an RTP timestamp to 100-ns units relative to the first
// frame.
func (t *RTPDepacketizerTransform) sampleTime(ts uint32) int64 {
	return int64(int32(ts-t.firstTS)) * 10_000_000 / int64(t.config.Codec.ClockRate)
}

func (t *RTPDepacketizerTransform) ProcessOutput(_ ProcessOutputFlags, buffers []OutputDataBuffer) (ProcessOutputStatus, error) {
	if len(buffers) != 1 {
		return 0, com.E_INVALIDARG
	}
	out := &buffers[0]
	if err := checkStream(out.StreamID); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.frames) == 0 {
		return 0, MF_E_TRANSFORM_NEED_MORE_INPUT
	}
	frame := t.frames[0]
	if err := outputSample(out, frame.data, t.sampleTime(frame.timestamp)); err != nil {
		return 0, err
	}
	if err := out.Sample.SetUINT32(MFSampleExtension_CleanPoint, uint32(boolToInt32(frame.key))); err != nil {
		return 0, err
	}

	t.frames = t.frames[1:]
	out.Status = 0
	if len(t.frames) > 0 {
		out.Status = OutputDataBufferIncomplete
	}
	return 0, nil
}

func (t *RTPDepacketizerTransform) resetLocked() {
	t.frames = nil
	t.partial = t.partial[:0]
	t.started = false
}

// Close releases the media types the transform holds. It runs when the last
// reference to the transform's shadow is released.
func (t *RTPDepacketizerTransform) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releaseLocked()
	return nil
}

// isKeyFrame inspects the start of a reassembled frame.
func isKeyFrame(c Codec, frame []byte) bool {
	if len(frame) == 0 {
		return false
	}
	switch c {
	case VideoCodecVP8:
		// Bit 0 of the VP8 frame tag is 0 for key frames.
		return frame[0]&0x01 == 0
	case VideoCodecH264:
		return h264HasIDR(frame)
	case AudioCodecOpus:
		return true
	}
	return false
}

const nalTypeIDR = 5

// h264HasIDR scans Annex-B data for an IDR slice.
func h264HasIDR(data []byte) bool {
	for i := 0; i+3 < len(data); i++ {
		if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			if data[i+3]&0x1F == nalTypeIDR {
				return true
			}
			i += 2
		}
	}
	return false
}
