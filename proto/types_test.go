package proto_test

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfreymuth/cras/proto"
)

func TestStreamID(t *testing.T) {
	id := proto.NewStreamID(0x1234, 0xBEEF)
	assert.Equal(t, proto.StreamID(0x1234BEEF), id)
	assert.Equal(t, proto.ClientID(0x1234), id.Client())
	assert.Equal(t, uint16(0xBEEF), id.Index())
	assert.Equal(t, "0x1234beef", id.String())
}

func TestFrameBytes(t *testing.T) {
	tests := []struct {
		format   proto.SampleFormat
		channels int
		want     int
	}{
		{proto.FormatU8, 1, 1},
		{proto.FormatS16LE, 2, 4},
		{proto.FormatS24LE, 2, 8},
		{proto.FormatS32LE, 6, 24},
		{proto.SampleFormat(99), 2, 0},
	}
	for _, tt := range tests {
		f := proto.NewAudioFormat(tt.format, 48000, tt.channels)
		assert.Equal(t, tt.want, f.FrameBytes(), f.String())
	}
}

func TestDefaultChannelLayout(t *testing.T) {
	l := proto.DefaultChannelLayout(2)
	assert.Equal(t, int8(0), l[proto.ChannelFL])
	assert.Equal(t, int8(1), l[proto.ChannelFR])
	for _, pos := range l[2:] {
		assert.Equal(t, int8(-1), pos)
	}
}

func TestEffects(t *testing.T) {
	e := proto.EffectSet(proto.EffectEchoCancellation, proto.EffectGainControl)
	assert.True(t, e.Has(proto.EffectEchoCancellation))
	assert.True(t, e.Has(proto.EffectEchoCancellation|proto.EffectGainControl))
	assert.False(t, e.Has(proto.EffectNoiseSuppression))
	assert.Zero(t, proto.EffectSet())
}

func TestClientType(t *testing.T) {
	for _, ct := range []proto.ClientType{proto.ClientTypeUnknown, proto.ClientTypeTest, proto.ClientTypeChrome} {
		parsed, err := proto.ParseClientType(ct.String())
		require.NoError(t, err)
		assert.Equal(t, ct, parsed)
	}
	_, err := proto.ParseClientType("nonsense")
	assert.Error(t, err)
	assert.Equal(t, "ClientType(200)", proto.ClientType(200).String())
}

func TestErrno(t *testing.T) {
	assert.NoError(t, proto.Errno(0))
	assert.ErrorIs(t, proto.Errno(-22), syscall.EINVAL)
	assert.ErrorIs(t, proto.Errno(19), syscall.ENODEV)
}

func TestSocketType(t *testing.T) {
	for _, typ := range []proto.SocketType{proto.SocketLegacy, proto.SocketUnified, proto.SocketPlayback} {
		parsed, err := proto.ParseSocketType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
	t.Setenv("CRAS_SOCKET_DIR", "/tmp/crasdir")
	assert.Equal(t, "/tmp/crasdir/"+proto.SocketUnified.FileName(), proto.SocketPath("", proto.SocketUnified))
	assert.Equal(t, "/x/"+proto.SocketLegacy.FileName(), proto.SocketPath("/x", proto.SocketLegacy))
}
