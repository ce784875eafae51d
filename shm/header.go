package shm

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Layout of the stream header region. It describes a single ring of
// frames; servers that talk to this package must use the same layout.
const (
	offUsedSize      = 0
	offFrameBytes    = 4
	offReadOffset    = 8
	offWriteOffset   = 12
	offVolumeScaler  = 16
	offMute          = 20
	offNumOverruns   = 24
	offOverrunFrames = 28
	offTsSec         = 32
	offTsNsec        = 40
	offBufferOffset  = 48

	// HeaderSize is the size of the stream header region.
	HeaderSize = 64
)

// A Header is the metadata region of a stream. It describes the samples
// ring: its size, the frame size and the read and write cursors, counted
// in frames.
type Header struct {
	r *Region
}

// NewHeader wraps a mapped header region.
func NewHeader(r *Region) (*Header, error) {
	if r.Len() < HeaderSize {
		return nil, fmt.Errorf("shm: header region of %d bytes", r.Len())
	}
	return &Header{r: r}, nil
}

// Init sets up a fresh header. It is used by the owner of the region.
func (h *Header) Init(usedSize, frameBytes uint32) {
	clear(h.r.b[:HeaderSize])
	h.r.StoreUint32(offUsedSize, usedSize)
	h.r.StoreUint32(offFrameBytes, frameBytes)
	h.SetVolumeScaler(1)
}

// UsedSize is the size of the samples ring in bytes.
func (h *Header) UsedSize() uint32 { return h.r.LoadUint32(offUsedSize) }

func (h *Header) FrameBytes() uint32 { return h.r.LoadUint32(offFrameBytes) }

// Capacity returns the ring size in frames.
func (h *Header) Capacity() uint32 {
	fb := h.FrameBytes()
	if fb == 0 {
		return 0
	}
	return h.UsedSize() / fb
}

func (h *Header) ReadOffset() uint32 { return h.r.LoadUint32(offReadOffset) }

func (h *Header) SetReadOffset(frames uint32) { h.r.StoreUint32(offReadOffset, frames) }

func (h *Header) WriteOffset() uint32 { return h.r.LoadUint32(offWriteOffset) }

func (h *Header) SetWriteOffset(frames uint32) { h.r.StoreUint32(offWriteOffset, frames) }

func (h *Header) VolumeScaler() float32 {
	return math.Float32frombits(h.r.LoadUint32(offVolumeScaler))
}

func (h *Header) SetVolumeScaler(v float32) {
	h.r.StoreUint32(offVolumeScaler, math.Float32bits(v))
}

func (h *Header) Mute() bool { return h.r.LoadUint32(offMute) != 0 }

func (h *Header) SetMute(m bool) {
	var v uint32
	if m {
		v = 1
	}
	h.r.StoreUint32(offMute, v)
}

func (h *Header) NumOverruns() uint32 { return h.r.LoadUint32(offNumOverruns) }

func (h *Header) OverrunFrames() uint32 { return h.r.LoadUint32(offOverrunFrames) }

// AddOverrun records frames lost to an overrun.
func (h *Header) AddOverrun(frames uint32) {
	h.r.StoreUint32(offNumOverruns, h.NumOverruns()+1)
	h.r.StoreUint32(offOverrunFrames, h.OverrunFrames()+frames)
}

// Timestamp is the time the last buffer was handed out. The two words are
// not read atomically.
func (h *Header) Timestamp() time.Time {
	sec := int64(binary.LittleEndian.Uint64(h.r.b[offTsSec:]))
	nsec := int64(binary.LittleEndian.Uint64(h.r.b[offTsNsec:]))
	if sec == 0 && nsec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, nsec)
}

func (h *Header) SetTimestamp(t time.Time) {
	binary.LittleEndian.PutUint64(h.r.b[offTsSec:], uint64(t.Unix()))
	binary.LittleEndian.PutUint64(h.r.b[offTsNsec:], uint64(t.Nanosecond()))
}

// BufferOffset returns the byte offset of buffer i in client owned
// memory.
func (h *Header) BufferOffset(i int) uint64 {
	return binary.LittleEndian.Uint64(h.r.b[offBufferOffset+8*i:])
}

func (h *Header) SetBufferOffset(i int, off uint64) {
	binary.LittleEndian.PutUint64(h.r.b[offBufferOffset+8*i:], off)
}

func (h *Header) Region() *Region { return h.r }
