package cras

import (
	"io"
	"unsafe"

	"github.com/jfreymuth/cras/proto"
)

// A Reader provides audio data in a specific format. Readers can be passed
// to PlaybackBuffer.Fill.
type Reader interface {
	io.Reader
	SampleFormat() proto.SampleFormat
}

// A Writer consumes audio data in a specific format. Writers can be passed
// to CaptureBuffer.WriteTo.
type Writer interface {
	io.Writer
	SampleFormat() proto.SampleFormat
}

// Uint8Reader implements the Reader interface.
// The semantics are the same as io.Reader's Read.
type Uint8Reader func([]byte) (int, error)

// Int16Reader implements the Reader interface.
// The semantics are the same as io.Reader's Read, but it returns
// the number of int16 values read, not the number of bytes.
type Int16Reader func([]int16) (int, error)

// Int32Reader implements the Reader interface.
// The semantics are the same as io.Reader's Read, but it returns
// the number of int32 values read, not the number of bytes.
type Int32Reader func([]int32) (int, error)

func (c Uint8Reader) Read(buf []byte) (int, error)      { return c(buf) }
func (c Uint8Reader) SampleFormat() proto.SampleFormat { return proto.FormatU8 }

func (c Int16Reader) Read(buf []byte) (int, error) {
	n, err := c(int16Slice(buf))
	return n * 2, err
}
func (c Int16Reader) SampleFormat() proto.SampleFormat { return proto.FormatS16LE }

func (c Int32Reader) Read(buf []byte) (int, error) {
	n, err := c(int32Slice(buf))
	return n * 4, err
}
func (c Int32Reader) SampleFormat() proto.SampleFormat { return proto.FormatS32LE }

// Int16Writer implements the Writer interface.
// It returns the number of int16 values written.
type Int16Writer func([]int16) (int, error)

// Int32Writer implements the Writer interface.
// It returns the number of int32 values written.
type Int32Writer func([]int32) (int, error)

func (c Int16Writer) Write(buf []byte) (int, error) {
	n, err := c(int16Slice(buf))
	return n * 2, err
}
func (c Int16Writer) SampleFormat() proto.SampleFormat { return proto.FormatS16LE }

func (c Int32Writer) Write(buf []byte) (int, error) {
	n, err := c(int32Slice(buf))
	return n * 4, err
}
func (c Int32Writer) SampleFormat() proto.SampleFormat { return proto.FormatS32LE }

// Int16 returns the buffer as S16LE samples. It panics on big endian
// machines.
func (b *PlaybackBuffer) Int16() []int16 { return int16Slice(b.data) }

// Int32 returns the buffer as S32LE or S24LE samples.
func (b *PlaybackBuffer) Int32() []int32 { return int32Slice(b.data) }

// Int16 returns the buffer as S16LE samples. It panics on big endian
// machines.
func (b *CaptureBuffer) Int16() []int16 { return int16Slice(b.data) }

// Int32 returns the buffer as S32LE or S24LE samples.
func (b *CaptureBuffer) Int32() []int32 { return int32Slice(b.data) }

var littleEndian = func() bool {
	i := uint16(1)
	return *(*byte)(unsafe.Pointer(&i)) == 1
}()

func int16Slice(s []byte) []int16 {
	if !littleEndian {
		panic("cras: sample views need a little endian machine")
	}
	if len(s) < 2 {
		return nil
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(unsafe.SliceData(s))), len(s)/2)
}

func int32Slice(s []byte) []int32 {
	if !littleEndian {
		panic("cras: sample views need a little endian machine")
	}
	if len(s) < 4 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(unsafe.SliceData(s))), len(s)/4)
}
