package mf

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thesyncim/mf/com"
)

func newPacketizerClient(t *testing.T, cfg RTPPacketizerConfig) *TransformClient {
	t.Helper()
	tr, err := NewRTPPacketizerTransform(cfg)
	require.NoError(t, err)
	c := WrapTransform(tr)
	t.Cleanup(func() { c.Close() })
	negotiate(t, c)
	return c
}

// drainPackets collects every output sample until the transform asks for
// more input.
func drainPackets(t *testing.T, c *TransformClient) []*Sample {
	t.Helper()
	var out []*Sample
	for {
		b := pull(t, c)
		if b == nil {
			return out
		}
		out = append(out, b.Sample)
	}
}

func TestRTPPacketizer_VP8(t *testing.T) {
	cfg := DefaultRTPPacketizerConfig()
	cfg.SSRC = 12345
	cfg.MTU = 100
	cfg.Sequencer = rtp.NewFixedSequencer(100)
	cfg.InitialTimestamp = 5000
	c := newPacketizerClient(t, cfg)

	frame := make([]byte, 500)
	for i := range frame {
		frame[i] = byte(i)
	}
	in := NewMemorySampleFrom(frame, 1_000_000, 0)
	defer in.Release()
	ok, err := c.TryProcessInput(0, in)
	require.NoError(t, err)
	require.True(t, ok)

	// One frame at a time.
	ok, err = c.TryProcessInput(0, in)
	require.NoError(t, err)
	assert.False(t, ok)

	samples := drainPackets(t, c)
	require.Greater(t, len(samples), 1)
	for i, s := range samples {
		raw, err := s.Bytes()
		require.NoError(t, err)
		assert.LessOrEqual(t, len(raw), cfg.MTU)

		var pkt rtp.Packet
		require.NoError(t, pkt.Unmarshal(raw))
		assert.Equal(t, uint32(12345), pkt.SSRC)
		assert.Equal(t, uint8(96), pkt.PayloadType)
		assert.Equal(t, uint32(5000+9000), pkt.Timestamp)
		assert.Equal(t, uint16(100+i), pkt.SequenceNumber)
		assert.Equal(t, i == len(samples)-1, pkt.Marker, "packet %d", i)

		when, err := s.SampleTime()
		require.NoError(t, err)
		assert.Equal(t, int64(1_000_000), when)
		s.Release()
	}

	status, err := c.InputStatus(0)
	require.NoError(t, err)
	assert.Equal(t, InputStatusAcceptData, status)
}

func TestRTPPacketizer_Flush(t *testing.T) {
	cfg := DefaultRTPPacketizerConfig()
	cfg.Codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}
	c := newPacketizerClient(t, cfg)

	in := NewMemorySampleFrom([]byte{0xFC, 0xFF, 0xFE}, 0, 0)
	defer in.Release()
	ok, err := c.TryProcessInput(0, in)
	require.NoError(t, err)
	require.True(t, ok)

	status, err := c.OutputStatus()
	require.NoError(t, err)
	assert.Equal(t, OutputStatusSampleReady, status)

	require.NoError(t, c.Flush())
	assert.Nil(t, pull(t, c))
}

func TestNewRTPPacketizerTransform_Config(t *testing.T) {
	cfg := DefaultRTPPacketizerConfig()
	cfg.MTU = rtpHeaderSize
	_, err := NewRTPPacketizerTransform(cfg)
	assert.Error(t, err)

	cfg = DefaultRTPPacketizerConfig()
	cfg.MTU = maxMTU + 1
	_, err = NewRTPPacketizerTransform(cfg)
	assert.ErrorContains(t, err, "exceeds")

	cfg = DefaultRTPPacketizerConfig()
	cfg.MTU = maxMTU
	tr, err := NewRTPPacketizerTransform(cfg)
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	cfg = DefaultRTPPacketizerConfig()
	cfg.Codec.MimeType = "video/unknown"
	_, err = NewRTPPacketizerTransform(cfg)
	assert.Error(t, err)

	cfg = DefaultRTPPacketizerConfig()
	cfg.Codec = webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeAV1}
	tr, err = NewRTPPacketizerTransform(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint32(90000), tr.config.Codec.ClockRate)
	assert.Equal(t, DefaultMTU, tr.config.MTU)
	require.NoError(t, tr.Close())
}

// Frames pass through a packetizer and a depacketizer, both driven through
// their vtables.
func TestRTPRoundTrip(t *testing.T) {
	before := com.LiveShadows()
	tests := []struct {
		name   string
		codec  webrtc.RTPCodecCapability
		frames [][]byte
	}{
		{
			name:  "vp8",
			codec: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
			frames: [][]byte{
				append([]byte{0x10}, make([]byte, 2999)...),
				append([]byte{0x31}, make([]byte, 700)...),
			},
		},
		{
			name:  "opus",
			codec: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			frames: [][]byte{
				{0xFC, 0x01, 0x02, 0x03},
				{0xFC, 0x04},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcfg := DefaultRTPPacketizerConfig()
			pcfg.Codec = tt.codec
			pcfg.MTU = 400
			tr, err := NewRTPPacketizerTransform(pcfg)
			require.NoError(t, err)
			packetizer := WrapTransform(tr)
			defer packetizer.Close()
			negotiate(t, packetizer)

			dcfg := DefaultRTPDepacketizerConfig()
			dcfg.Codec = tt.codec
			dr, err := NewRTPDepacketizerTransform(dcfg)
			require.NoError(t, err)
			depacketizer := WrapTransform(dr)
			defer depacketizer.Close()
			negotiate(t, depacketizer)

			for i, frame := range tt.frames {
				in := NewMemorySampleFrom(frame, int64(i)*1_000_000, 0)
				ok, err := packetizer.TryProcessInput(0, in)
				in.Release()
				require.NoError(t, err)
				require.True(t, ok)

				for _, pkt := range drainPackets(t, packetizer) {
					ok, err := depacketizer.TryProcessInput(0, pkt)
					pkt.Release()
					require.NoError(t, err)
					require.True(t, ok)
				}

				out := pull(t, depacketizer)
				require.NotNil(t, out, "frame %d", i)
				got, err := out.Sample.Bytes()
				require.NoError(t, err)
				assert.Equal(t, frame, got)
				when, err := out.Sample.SampleTime()
				require.NoError(t, err)
				assert.Equal(t, int64(i)*1_000_000, when)
				out.Sample.Release()
			}
		})
	}
	assert.Equal(t, before, com.LiveShadows())
}
