package proto

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prepareUint32Buf() []byte {
	var buf bytes.Buffer
	for i := uint32(0); i < 1000; i++ {
		if err := binary.Write(&buf, binary.LittleEndian, i); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

func TestProtocolReaderUint32(t *testing.T) {
	r := NewReader(prepareUint32Buf())
	for i := uint32(0); i < 1000; i++ {
		require.Equal(t, i, r.uint32())
	}
	require.NoError(t, r.Err())
	assert.Equal(t, 4000, r.pos)
	assert.Zero(t, r.Remaining())
}

func BenchmarkProtocolReaderUint32(b *testing.B) {
	buf := prepareUint32Buf()
	for n := 0; n < b.N; n++ {
		r := NewReader(buf)
		for i := uint32(0); i < 1000; i++ {
			if d := r.uint32(); d != i {
				b.Fatalf("expecting read %d, got %d", i, d)
			}
		}
	}
}

func TestProtocolReaderUint64(t *testing.T) {
	var b []byte
	for i := uint64(0); i < 1000; i++ {
		b = binary.LittleEndian.AppendUint64(b, i<<32|i)
	}
	r := NewReader(b)
	for i := uint64(0); i < 1000; i++ {
		require.Equal(t, i<<32|i, r.uint64())
	}
	assert.Equal(t, 8000, r.pos)
}

func TestProtocolReaderShort(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	assert.Zero(t, r.uint32())
	assert.ErrorIs(t, r.Err(), errShortRead)
	// reads after an error return zero values
	assert.Zero(t, r.byte())
	assert.Zero(t, r.Remaining())
}

type sample struct {
	A uint8
	B int16
	C uint32
	D float32
	E [3]byte
	F [2]uint16
	G int64
	H bool
	X int `cras:"-"`
	T []byte
}

func TestRoundTrip(t *testing.T) {
	in := sample{A: 1, B: -2, C: 3, D: 0.5, E: [3]byte{'a', 'b', 'c'}, F: [2]uint16{7, 8}, G: -9, H: true, X: 99, T: []byte{4, 5}}
	var w ProtocolWriter
	w.value(reflect.ValueOf(in))
	b := w.Bytes()
	require.Len(t, b, 1+2+4+4+3+4+8+1+2)
	assert.Equal(t, Size(reflect.TypeOf(in))+2, len(b))

	var out sample
	require.NoError(t, NewReader(b).Decode(&out))
	in.X = 0
	assert.Equal(t, in, out)
}

func TestOffset(t *testing.T) {
	typ := reflect.TypeOf(sample{})
	assert.Equal(t, 0, Offset(typ, "A"))
	assert.Equal(t, 3, Offset(typ, "C"))
	assert.Equal(t, 14, Offset(typ, "F"))
	assert.Equal(t, 27, Offset(typ, "T"))
	assert.Panics(t, func() { Offset(typ, "Missing") })
}

func TestMessageSizes(t *testing.T) {
	assert.Equal(t, 23, Size(reflect.TypeOf(AudioFormat{})))
	assert.Len(t, Marshal(&ConnectStream{}), 99)
	assert.Len(t, MarshalReply(&StreamConnected{}), 51)
	assert.Len(t, Marshal(&DumpAudioThread{}), HeaderSize)
	assert.Len(t, MarshalAudio(AudioMessage{}), AudioMessageSize)
}

func TestHeader(t *testing.T) {
	b := Marshal(&SetSystemVolume{Volume: 42})
	assert.Equal(t, uint32(len(b)), binary.LittleEndian.Uint32(b[0:]))
	assert.Equal(t, uint32(OpSetSystemVolume), binary.LittleEndian.Uint32(b[4:]))
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(b[8:]))
}

func TestDecodeReply(t *testing.T) {
	in := &StreamConnected{
		Err:            -22,
		StreamID:       NewStreamID(3, 4),
		Format:         NewAudioFormat(FormatS16LE, 48000, 2),
		SamplesShmSize: 4096,
		Effects:        EffectEchoCancellation,
	}
	out, err := DecodeReply(MarshalReply(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	hw, err := DecodeReply(MarshalReply(&HotwordModelsReady{NumBytes: 3, Models: []byte("abc")}))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), hw.(*HotwordModelsReady).Models)
}

func TestDecodeReplyErrors(t *testing.T) {
	good := MarshalReply(&OutputVolumeChanged{Volume: 5})

	tests := []struct {
		name string
		b    []byte
	}{
		{"short header", good[:6]},
		{"length mismatch", append(append([]byte(nil), good...), 0)},
		{"unknown", MarshalReply(&OutputVolumeChanged{})[:HeaderSize]},
		{"short payload", func() []byte {
			b := MarshalReply(&OutputMuteChanged{})[:HeaderSize+4]
			binary.LittleEndian.PutUint32(b, uint32(len(b)))
			return b
		}()},
	}
	binary.LittleEndian.PutUint32(tests[2].b[4:], 999)
	binary.LittleEndian.PutUint32(tests[2].b, HeaderSize)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReply(tt.b)
			var derr *DecodeError
			assert.ErrorAs(t, err, &derr)
		})
	}
}

func TestDecodeRequest(t *testing.T) {
	in := &ConnectStream{
		ProtoVersion:  ProtocolVersion,
		Direction:     DirectionInput,
		StreamID:      NewStreamID(1, 2),
		BufferFrames:  256,
		CbThreshold:   256,
		Format:        NewAudioFormat(FormatS32LE, 44100, 6),
		DevIdx:        NoDevice,
		Effects:       EffectSet(EffectNoiseSuppression, EffectGainControl),
		ClientType:    ClientTypeTest,
		ClientShmSize: 1 << 16,
		BufferOffsets: [2]uint64{0, 1 << 15},
	}
	out, err := DecodeRequest(Marshal(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeRequest(MarshalReply(&Connected{})[:HeaderSize])
	assert.Error(t, err)
}

func TestAudioMessage(t *testing.T) {
	m := AudioMessage{ID: AudioDataCaptured, Error: -5, Frames: 480}
	out, err := UnmarshalAudio(MarshalAudio(m))
	require.NoError(t, err)
	assert.Equal(t, m, out)

	_, err = UnmarshalAudio(MarshalAudio(AudioMessage{ID: 7}))
	assert.Error(t, err)
	_, err = UnmarshalAudio(make([]byte, 8))
	assert.Error(t, err)
}
