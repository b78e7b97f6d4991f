package mf

import (
	"bytes"
	"testing"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thesyncim/mf/com"
)

// packetize splits a frame with a pion payloader and marshals the packets.
func packetize(t *testing.T, p rtp.Payloader, mtu uint16, seq *uint16, ts uint32, frame []byte) [][]byte {
	t.Helper()
	payloads := p.Payload(mtu, frame)
	out := make([][]byte, len(payloads))
	for i, payload := range payloads {
		pkt := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         i == len(payloads)-1,
				PayloadType:    96,
				SequenceNumber: *seq,
				Timestamp:      ts,
				SSRC:           0x1234,
			},
			Payload: payload,
		}
		*seq++
		raw, err := pkt.Marshal()
		require.NoError(t, err)
		out[i] = raw
	}
	return out
}

func negotiate(t *testing.T, c *TransformClient) {
	t.Helper()
	types, ok, err := c.InputAvailableTypes(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, types, 1)
	require.NoError(t, c.SetInputMediaType(0, types[0]))
	types[0].Release()

	types, ok, err = c.OutputAvailableTypes(0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, types, 1)
	require.NoError(t, c.SetOutputMediaType(0, types[0]))
	types[0].Release()
}

func feed(t *testing.T, c *TransformClient, packets [][]byte) {
	t.Helper()
	for _, raw := range packets {
		s := NewMemorySampleFrom(raw, 0, 0)
		ok, err := c.TryProcessInput(0, s)
		s.Release()
		require.NoError(t, err)
		require.True(t, ok)
	}
}

// pull asks for one output sample. It returns nil when the transform needs
// more input.
func pull(t *testing.T, c *TransformClient) *OutputDataBuffer {
	t.Helper()
	buffers := []OutputDataBuffer{{StreamID: 0}}
	ok, _, err := c.TryProcessOutput(0, buffers)
	require.NoError(t, err)
	if !ok {
		return nil
	}
	require.NotNil(t, buffers[0].Sample)
	return &buffers[0]
}

func TestRTPDepacketizer_VP8Frames(t *testing.T) {
	before := com.LiveShadows()
	tr, err := NewRTPDepacketizerTransform(DefaultRTPDepacketizerConfig())
	require.NoError(t, err)
	c := WrapTransform(tr)

	negotiate(t, c)

	key := append([]byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a}, bytes.Repeat([]byte{0xAB}, 44)...)
	delta := append([]byte{0x31}, bytes.Repeat([]byte{0xCD}, 30)...)
	var seq uint16
	payloader := &codecs.VP8Payloader{}
	feed(t, c, packetize(t, payloader, 20, &seq, 3000, key))
	feed(t, c, packetize(t, payloader, 20, &seq, 6000, delta))

	status, err := c.OutputStatus()
	require.NoError(t, err)
	assert.Equal(t, OutputStatusSampleReady, status)

	tests := []struct {
		frame  []byte
		time   int64
		clean  uint32
		status OutputDataBufferStatus
	}{
		{key, 0, 1, OutputDataBufferIncomplete},
		{delta, 333333, 0, 0},
	}
	for i, tt := range tests {
		out := pull(t, c)
		require.NotNil(t, out, "frame %d", i)
		assert.Equal(t, tt.status, out.Status)

		data, err := out.Sample.Bytes()
		require.NoError(t, err)
		assert.Equal(t, tt.frame, data)

		when, err := out.Sample.SampleTime()
		require.NoError(t, err)
		assert.Equal(t, tt.time, when)

		clean, err := out.Sample.GetUINT32(MFSampleExtension_CleanPoint)
		require.NoError(t, err)
		assert.Equal(t, tt.clean, clean)
		out.Sample.Release()
	}
	assert.Nil(t, pull(t, c))

	require.NoError(t, c.Close())
	assert.Equal(t, before, com.LiveShadows())
}

func TestRTPDepacketizer_PartialFrameDroppedOnNewTimestamp(t *testing.T) {
	tr, err := NewRTPDepacketizerTransform(DefaultRTPDepacketizerConfig())
	require.NoError(t, err)
	c := WrapTransform(tr)
	defer c.Close()
	negotiate(t, c)

	lost := bytes.Repeat([]byte{0x10}, 50)
	whole := bytes.Repeat([]byte{0x11}, 10)
	var seq uint16
	payloader := &codecs.VP8Payloader{}
	packets := packetize(t, payloader, 20, &seq, 100, lost)
	feed(t, c, packets[:len(packets)-1]) // marker packet lost
	feed(t, c, packetize(t, payloader, 20, &seq, 200, whole))

	out := pull(t, c)
	require.NotNil(t, out)
	defer out.Sample.Release()
	data, err := out.Sample.Bytes()
	require.NoError(t, err)
	assert.Equal(t, whole, data)
	assert.Nil(t, pull(t, c))
}

func TestRTPDepacketizer_Backpressure(t *testing.T) {
	cfg := DefaultRTPDepacketizerConfig()
	cfg.Codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2}
	cfg.MaxQueuedFrames = 1
	tr, err := NewRTPDepacketizerTransform(cfg)
	require.NoError(t, err)
	c := WrapTransform(tr)
	defer c.Close()
	negotiate(t, c)

	var seq uint16
	payloader := &codecs.OpusPayloader{}
	feed(t, c, packetize(t, payloader, 1200, &seq, 960, []byte{0xFC, 0x01, 0x02}))

	status, err := c.InputStatus(0)
	require.NoError(t, err)
	assert.Zero(t, status)

	s := NewMemorySampleFrom(packetize(t, payloader, 1200, &seq, 1920, []byte{0xFC, 0x03})[0], 0, 0)
	defer s.Release()
	ok, err := c.TryProcessInput(0, s)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Flush())
	assert.Nil(t, pull(t, c))

	ok, err = c.TryProcessInput(0, s)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRTPDepacketizer_CallerProvidedSample(t *testing.T) {
	cfg := DefaultRTPDepacketizerConfig()
	cfg.Codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}
	tr, err := NewRTPDepacketizerTransform(cfg)
	require.NoError(t, err)
	c := WrapTransform(tr)
	defer c.Close()
	negotiate(t, c)

	var seq uint16
	payloader := &codecs.OpusPayloader{}
	feed(t, c, packetize(t, payloader, 1200, &seq, 48000, []byte{0x78, 0x01}))
	feed(t, c, packetize(t, payloader, 1200, &seq, 48960, []byte{0x78, 0x02, 0x03}))

	own := NewMemorySample()
	defer own.Release()
	b := NewMemoryBuffer(16)
	require.NoError(t, own.AddBuffer(b))
	b.Release()

	for _, want := range []struct {
		data []byte
		time int64
	}{
		{[]byte{0x78, 0x01}, 0},
		{[]byte{0x78, 0x02, 0x03}, 200000},
	} {
		buffers := []OutputDataBuffer{{StreamID: 0, Sample: own}}
		ok, _, err := c.TryProcessOutput(0, buffers)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Same(t, own, buffers[0].Sample)

		data, err := own.Bytes()
		require.NoError(t, err)
		assert.Equal(t, want.data, data)
		when, err := own.SampleTime()
		require.NoError(t, err)
		assert.Equal(t, want.time, when)
	}
}

func TestRTPDepacketizer_TypeNegotiation(t *testing.T) {
	tr, err := NewRTPDepacketizerTransform(DefaultRTPDepacketizerConfig())
	require.NoError(t, err)
	c := WrapTransform(tr)
	defer c.Close()

	_, _, err = c.OutputAvailableTypes(0)
	assert.ErrorIs(t, err, MF_E_TRANSFORM_TYPE_NOT_SET)

	current, err := c.InputCurrentType(0)
	require.NoError(t, err)
	assert.Nil(t, current)

	h264 := NewMediaType(MFMediaType_Video, MFVideoFormat_H264)
	defer h264.Release()
	assert.Equal(t, MF_E_INVALIDMEDIATYPE, c.TestInputType(0, h264))

	vp8 := NewMediaType(MFMediaType_Video, MFVideoFormat_VP80)
	defer vp8.Release()
	assert.Equal(t, com.S_OK, c.TestInputType(0, vp8))
	current, err = c.InputCurrentType(0)
	require.NoError(t, err)
	assert.Nil(t, current, "a test-only set must not change the type")

	assert.ErrorIs(t, c.SetOutputMediaType(0, vp8), MF_E_TRANSFORM_TYPE_NOT_SET)
	require.NoError(t, c.SetInputMediaType(0, vp8))
	current, err = c.InputCurrentType(0)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, vp8.NativePointer(), current.NativePointer())
	current.Release()

	s := NewMemorySampleFrom([]byte{0x80}, 0, 0)
	defer s.Release()
	assert.ErrorIs(t, c.ProcessInput(0, s, 0), MF_E_TRANSFORM_TYPE_NOT_SET)

	_, err = c.InputStreamInfo(1)
	assert.ErrorIs(t, err, MF_E_INVALIDSTREAMNUMBER)

	_, ok, err := c.StreamIDs()
	require.NoError(t, err)
	assert.False(t, ok)

	limits, err := c.StreamLimits()
	require.NoError(t, err)
	assert.Equal(t, StreamLimits{1, 1, 1, 1}, limits)

	require.NoError(t, c.SetInputMediaType(0, nil))
	current, err = c.InputCurrentType(0)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestRTPDepacketizer_RejectsGarbage(t *testing.T) {
	tr, err := NewRTPDepacketizerTransform(DefaultRTPDepacketizerConfig())
	require.NoError(t, err)
	c := WrapTransform(tr)
	defer c.Close()
	negotiate(t, c)

	s := NewMemorySampleFrom([]byte{0x01, 0x02}, 0, 0)
	defer s.Release()
	assert.ErrorIs(t, c.ProcessInput(0, s, 0), com.E_INVALIDARG)

	empty := NewMemorySampleFrom(nil, 0, 0)
	defer empty.Release()
	assert.ErrorIs(t, c.ProcessInput(0, empty, 0), com.E_INVALIDARG)
}

func TestRTPDepacketizer_HardwareManagerRejected(t *testing.T) {
	tr, err := NewRTPDepacketizerTransform(DefaultRTPDepacketizerConfig())
	require.NoError(t, err)
	c := WrapTransform(tr)
	defer c.Close()

	h := dxgiStubContract.Wrap(&deviceStub{})
	defer com.Release(h)
	manager := &DXGIDeviceManager{com.Attach(h)}
	assert.ErrorIs(t, c.SendMessage(&SetD3DManagerMessage{Manager: manager}), com.E_NOTIMPL)
	require.NoError(t, c.SendMessage(&SetD3DManagerMessage{}))
	require.NoError(t, c.EndOfStream(0))
	assert.ErrorIs(t, c.EndOfStream(3), MF_E_INVALIDSTREAMNUMBER)
}

func TestNewRTPDepacketizerTransform_UnsupportedCodec(t *testing.T) {
	cfg := DefaultRTPDepacketizerConfig()
	cfg.Codec.MimeType = webrtc.MimeTypeAV1
	_, err := NewRTPDepacketizerTransform(cfg)
	assert.Error(t, err)

	cfg.Codec.MimeType = "video/unknown"
	_, err = NewRTPDepacketizerTransform(cfg)
	assert.Error(t, err)
}

func TestH264HasIDR(t *testing.T) {
	assert.True(t, h264HasIDR([]byte{0, 0, 0, 1, 0x67, 0x42, 0, 0, 0, 1, 0x65, 0x88}))
	assert.False(t, h264HasIDR([]byte{0, 0, 0, 1, 0x41, 0x9a}))
	assert.True(t, isKeyFrame(VideoCodecVP8, []byte{0x10}))
	assert.False(t, isKeyFrame(VideoCodecVP8, []byte{0x11}))
}
