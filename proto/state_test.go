package proto

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateLayout(t *testing.T) {
	assert.Equal(t, 10788, UpdateCountOffset)
	assert.Equal(t, 10824, AudioDebugInfoOffset)
	assert.Equal(t, 135328, DefaultOutputBufferSizeOffset)
	assert.Equal(t, DefaultOutputBufferSizeOffset+4, StateMinSize)
	assert.Equal(t, AudioDebugInfoOffset, Size(reflect.TypeOf(ServerState{})))
}

func TestServerStateRoundTrip(t *testing.T) {
	s := &ServerState{StateVersion: StateVersion, Volume: 75, Mute: 1, NumOutputDevs: 1}
	PutCString(s.OutputDevs[0].Name[:], "Speaker")
	b := make([]byte, StateMinSize)
	EncodeServerState(b, s)

	out, err := DecodeServerState(b)
	require.NoError(t, err)
	assert.Equal(t, s, out)
	assert.Equal(t, "Speaker", CString(out.OutputDevs[0].Name[:]))

	_, err = DecodeServerState(b[:100])
	assert.Error(t, err)
}

func TestAudioDebugInfoRoundTrip(t *testing.T) {
	d := &AudioDebugInfo{NumStreams: 1, NumDevs: 1}
	d.Streams[0].StreamID = uint64(NewStreamID(2, 0))
	d.Log.Len = 4
	d.Log.WritePos = 1
	d.Log.Log[0] = AudioThreadEvent{TagSec: 3<<24 | 17, Nsec: 5}
	b := make([]byte, StateMinSize)
	EncodeAudioDebugInfo(b, d)

	out, err := DecodeAudioDebugInfo(b)
	require.NoError(t, err)
	assert.Equal(t, d, out)
	ev := out.Log.Ordered()
	require.Len(t, ev, 1)
	assert.Equal(t, uint8(3), ev[0].Tag())
	assert.Equal(t, uint32(17), ev[0].Sec())
}

func TestEventLogOrdered(t *testing.T) {
	var l AudioThreadEventLog
	l.Len = 4
	// six events written into a ring of four: 2 and 3 remain in place,
	// 4 and 5 overwrote 0 and 1
	for seq := uint32(0); seq < 6; seq++ {
		l.Log[seq%4] = AudioThreadEvent{TagSec: 1 << 24, Data1: seq}
		l.WritePos++
	}
	var got []uint32
	for _, e := range l.Ordered() {
		got = append(got, e.Data1)
	}
	assert.Equal(t, []uint32{2, 3, 4, 5}, got)
}

func TestEventLogPartial(t *testing.T) {
	var l AudioThreadEventLog
	l.Len = 8
	l.Log[0] = AudioThreadEvent{TagSec: 1 << 24, Data1: 10}
	l.Log[1] = AudioThreadEvent{TagSec: 1 << 24, Data1: 11}
	l.WritePos = 2
	got := l.Ordered()
	require.Len(t, got, 2)
	assert.Equal(t, uint32(10), got[0].Data1)
}

func TestCString(t *testing.T) {
	var b [8]byte
	PutCString(b[:], "too long for this")
	assert.Equal(t, "too lon", CString(b[:]))
	assert.Zero(t, b[7])
	PutCString(b[:], "ab")
	assert.Equal(t, "ab", CString(b[:]))
	assert.Equal(t, [8]byte{'a', 'b'}, b)
}
