package cras

import (
	"fmt"
	"io"

	"github.com/jfreymuth/cras/proto"
)

// committer is the owner of a buffer. commit is called exactly once per
// buffer, with the number of frames transferred.
type committer interface {
	commit(frames uint32) error
}

// buffer is the part of the ring buffer handed out for one transfer.
//
// Unless Commit is called, releasing the buffer commits the frames moved
// through the transfer methods, or the whole buffer if none was called.
type buffer struct {
	c          committer
	data       []byte
	frames     uint32
	frameBytes int
	format     proto.SampleFormat
	pos        int
	used       bool
	done       bool
}

// Frames returns the length of the buffer in frames.
func (b *buffer) Frames() int { return int(b.frames) }

// FrameSize returns the size of one frame in bytes.
func (b *buffer) FrameSize() int { return b.frameBytes }

// Commit reports that frames frames were transferred and releases the
// buffer. It panics if frames is larger than the buffer.
func (b *buffer) Commit(frames int) error {
	if frames < 0 || frames > int(b.frames) {
		panic(fmt.Sprintf("cras: commit of %d frames on a buffer of %d", frames, b.frames))
	}
	if b.done {
		return nil
	}
	b.done = true
	return b.c.commit(uint32(frames))
}

// Close releases the buffer. Closing a released buffer is a no-op.
func (b *buffer) Close() error {
	if b.done {
		return nil
	}
	n := b.Frames()
	if b.used {
		n = b.pos / b.frameBytes
	}
	return b.Commit(n)
}

// transfer is called by every method that moves data through the buffer.
func (b *buffer) transfer() error {
	if b.done {
		return ErrBufferReleased
	}
	b.used = true
	return nil
}

// sameLayout reports whether samples of format a can be stored in a buffer
// of format b. S24LE samples live in 32 bit words like S32LE.
func sameLayout(a, b proto.SampleFormat) bool {
	if a == b {
		return true
	}
	wide := func(f proto.SampleFormat) bool { return f == proto.FormatS24LE || f == proto.FormatS32LE }
	return wide(a) && wide(b)
}

func (b *buffer) checkFormat(f proto.SampleFormat) error {
	if b.format != 0 && !sameLayout(f, b.format) {
		return fmt.Errorf("%w: %s data for a %s stream", ErrSampleFormat, f, b.format)
	}
	return nil
}

// A PlaybackBuffer is a writable part of a playback stream's ring buffer.
// It stays valid until it is released by Commit or Close, by requesting the
// next buffer, or by closing the stream.
type PlaybackBuffer struct {
	buffer
}

// Bytes returns the buffer memory.
func (b *PlaybackBuffer) Bytes() []byte { return b.data }

// Write copies p into the buffer after the data written so far. It
// returns io.ErrShortWrite if p does not fit.
func (b *PlaybackBuffer) Write(p []byte) (int, error) {
	if err := b.transfer(); err != nil {
		return 0, err
	}
	n := copy(b.data[b.pos:], p)
	b.pos += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Fill reads from r until the buffer is full. It returns io.EOF if r ended
// before. Partial frames at the end are dropped when the buffer is
// committed. If r is a Reader, its sample format must be the stream's.
func (b *PlaybackBuffer) Fill(r io.Reader) (int, error) {
	if err := b.transfer(); err != nil {
		return 0, err
	}
	if sr, ok := r.(Reader); ok {
		if err := b.checkFormat(sr.SampleFormat()); err != nil {
			return 0, err
		}
	}
	n, err := io.ReadFull(r, b.data[b.pos:])
	b.pos += n
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

// A CaptureBuffer is a readable part of a capture stream's ring buffer.
// The memory must not be modified.
type CaptureBuffer struct {
	buffer
}

// Bytes returns the buffer memory.
func (b *CaptureBuffer) Bytes() []byte { return b.data }

// Read copies data that has not been read yet. It returns io.EOF once the
// whole buffer has been read.
func (b *CaptureBuffer) Read(p []byte) (int, error) {
	if err := b.transfer(); err != nil {
		return 0, err
	}
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}

// WriteTo writes the unread data to w. If w is a Writer, its sample
// format must be the stream's.
func (b *CaptureBuffer) WriteTo(w io.Writer) (int64, error) {
	if err := b.transfer(); err != nil {
		return 0, err
	}
	if sw, ok := w.(Writer); ok {
		if err := b.checkFormat(sw.SampleFormat()); err != nil {
			return 0, err
		}
	}
	n, err := w.Write(b.data[b.pos:])
	b.pos += n
	return int64(n), err
}
