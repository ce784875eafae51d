package cras

import (
	"context"
	"time"

	"github.com/jfreymuth/cras/proto"
)

// A NoopCaptureStream records silence without a server. Buffers are handed
// out at the stream's frame rate.
type NoopCaptureStream struct {
	format    proto.AudioFormat
	blockSize uint32
	silence   []byte
	start     time.Time
	frames    uint64
	cursor    uint64
	buf       *buffer
	closed    bool
}

func newNoopCaptureStream(r *streamRequest) *NoopCaptureStream {
	return &NoopCaptureStream{
		format:    r.format,
		blockSize: r.blockSize,
		silence:   make([]byte, int(r.blockSize)*r.format.FrameBytes()),
	}
}

// NewNoopCaptureStream returns a stream that records silence.
func NewNoopCaptureStream(channels int, format proto.SampleFormat, rate uint32, blockSize int) *NoopCaptureStream {
	return newNoopCaptureStream(newStreamRequest(proto.DirectionInput, channels, format, rate, blockSize, nil))
}

func (n *NoopCaptureStream) Format() proto.AudioFormat { return n.format }

func (n *NoopCaptureStream) BlockSize() int { return int(n.blockSize) }

func (n *NoopCaptureStream) FrameSize() int { return n.format.FrameBytes() }

// Frames returns the number of frames committed so far.
func (n *NoopCaptureStream) Frames() uint64 { return n.cursor }

// NextBuffer waits until a block of frames would have been captured and
// returns it, filled with silence.
func (n *NoopCaptureStream) NextBuffer() (*CaptureBuffer, error) {
	return n.nextBuffer(context.Background())
}

func (n *NoopCaptureStream) nextBuffer(ctx context.Context) (*CaptureBuffer, error) {
	if n.closed {
		return nil, &TransportError{Op: "next buffer", Err: ErrStreamClosed}
	}
	if n.buf != nil {
		n.buf.Close()
	}
	if err := n.wait(ctx); err != nil {
		return nil, err
	}
	clear(n.silence)
	b := &CaptureBuffer{buffer{c: n, data: n.silence, frames: n.blockSize, frameBytes: n.format.FrameBytes(), format: n.format.Format}}
	n.buf = &b.buffer
	return b, nil
}

// wait sleeps until the next block is due.
func (n *NoopCaptureStream) wait(ctx context.Context) error {
	now := time.Now()
	if n.start.IsZero() {
		n.start = now
	}
	due := n.start.Add(time.Duration(n.frames) * time.Second / time.Duration(n.format.FrameRate))
	n.frames += uint64(n.blockSize)
	if d := due.Sub(now); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			n.frames -= uint64(n.blockSize)
			return ctx.Err()
		}
	}
	return nil
}

func (n *NoopCaptureStream) commit(frames uint32) error {
	n.buf = nil
	n.cursor += uint64(frames)
	return nil
}

func (n *NoopCaptureStream) Close() error {
	if n.buf != nil {
		n.buf.Close()
	}
	n.closed = true
	return nil
}

// NoopAsyncCaptureStream is the AsyncCaptureSource form of
// NoopCaptureStream.
type NoopAsyncCaptureStream struct {
	*NoopCaptureStream
}

// NextBuffer waits until a block is due or ctx is done.
func (n *NoopAsyncCaptureStream) NextBuffer(ctx context.Context) (*CaptureBuffer, error) {
	return n.nextBuffer(ctx)
}
