package cras

import (
	"context"

	"github.com/jfreymuth/cras/proto"
)

// CaptureSource is implemented by CaptureStream and NoopCaptureStream.
type CaptureSource interface {
	NextBuffer() (*CaptureBuffer, error)
	Format() proto.AudioFormat
	BlockSize() int
	Close() error
}

// AsyncCaptureSource is implemented by AsyncCaptureStream and
// NoopAsyncCaptureStream.
type AsyncCaptureSource interface {
	NextBuffer(ctx context.Context) (*CaptureBuffer, error)
	Format() proto.AudioFormat
	BlockSize() int
	Close() error
}

// A CaptureStream receives audio from the server. Its methods block the
// calling thread.
type CaptureStream struct {
	*stream
}

// NewCaptureStream creates a capture stream. If capture is not enabled on
// the client, it returns a NoopCaptureStream that records silence; a
// stream pinned to a device with StreamDevice panics instead.
func (c *Client) NewCaptureStream(channels int, format proto.SampleFormat, rate uint32, blockSize int, opts ...StreamOption) (CaptureSource, error) {
	r := newStreamRequest(proto.DirectionInput, channels, format, rate, blockSize, opts)
	if !c.capture && !r.pinned {
		return newNoopCaptureStream(r), nil
	}
	s, err := c.newStream(context.Background(), PollExecutor{}, r)
	if err != nil {
		return nil, err
	}
	return &CaptureStream{s}, nil
}

// NextBuffer waits until the server has captured data and returns it. A
// buffer that is still held is committed first.
func (c *CaptureStream) NextBuffer() (*CaptureBuffer, error) {
	b := new(CaptureBuffer)
	if err := c.next(context.Background(), PollExecutor{}, &b.buffer); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *CaptureStream) Close() error { return c.close() }

// An AsyncCaptureStream is a CaptureStream whose waits are done by an
// Executor.
type AsyncCaptureStream struct {
	*stream
	ex Executor
}

// NewAsyncCaptureStream creates a capture stream that waits with ex. It
// substitutes a NoopAsyncCaptureStream like NewCaptureStream does.
func (c *Client) NewAsyncCaptureStream(ctx context.Context, ex Executor, channels int, format proto.SampleFormat, rate uint32, blockSize int, opts ...StreamOption) (AsyncCaptureSource, error) {
	r := newStreamRequest(proto.DirectionInput, channels, format, rate, blockSize, opts)
	if !c.capture && !r.pinned {
		return &NoopAsyncCaptureStream{newNoopCaptureStream(r)}, nil
	}
	s, err := c.newStream(ctx, ex, r)
	if err != nil {
		return nil, err
	}
	return &AsyncCaptureStream{s, ex}, nil
}

// NextBuffer waits until the server has captured data or ctx is done.
func (c *AsyncCaptureStream) NextBuffer(ctx context.Context) (*CaptureBuffer, error) {
	b := new(CaptureBuffer)
	if err := c.next(ctx, c.ex, &b.buffer); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *AsyncCaptureStream) Close() error { return c.close() }
