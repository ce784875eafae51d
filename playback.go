package cras

import (
	"context"

	"github.com/jfreymuth/cras/proto"
)

// A PlaybackStream sends audio to the server. Its methods block the
// calling thread.
//
// The usual loop requests a buffer, fills it and releases it:
//
//	for {
//		buf, err := stream.NextBuffer()
//		if err != nil {
//			return err
//		}
//		n, _ := src.Read(buf.Bytes())
//		buf.Commit(n / buf.FrameSize())
//	}
type PlaybackStream struct {
	*stream
}

// NewPlaybackStream creates a playback stream. blockSize is the number of
// frames the server asks for at a time.
func (c *Client) NewPlaybackStream(channels int, format proto.SampleFormat, rate uint32, blockSize int, opts ...StreamOption) (*PlaybackStream, error) {
	s, err := c.newStream(context.Background(), PollExecutor{}, newStreamRequest(proto.DirectionOutput, channels, format, rate, blockSize, opts))
	if err != nil {
		return nil, err
	}
	return &PlaybackStream{s}, nil
}

// NextBuffer waits until the server requests data and returns the buffer
// to fill. A buffer that is still held is committed first.
func (p *PlaybackStream) NextBuffer() (*PlaybackBuffer, error) {
	b := new(PlaybackBuffer)
	if err := p.next(context.Background(), PollExecutor{}, &b.buffer); err != nil {
		return nil, err
	}
	return b, nil
}

// Close commits a buffer that is still held and releases the stream.
func (p *PlaybackStream) Close() error { return p.close() }

// An AsyncPlaybackStream is a PlaybackStream whose waits are done by an
// Executor.
type AsyncPlaybackStream struct {
	*stream
	ex Executor
}

// NewAsyncPlaybackStream creates a playback stream that waits with ex.
func (c *Client) NewAsyncPlaybackStream(ctx context.Context, ex Executor, channels int, format proto.SampleFormat, rate uint32, blockSize int, opts ...StreamOption) (*AsyncPlaybackStream, error) {
	s, err := c.newStream(ctx, ex, newStreamRequest(proto.DirectionOutput, channels, format, rate, blockSize, opts))
	if err != nil {
		return nil, err
	}
	return &AsyncPlaybackStream{s, ex}, nil
}

// NextBuffer waits until the server requests data or ctx is done.
func (p *AsyncPlaybackStream) NextBuffer(ctx context.Context) (*PlaybackBuffer, error) {
	b := new(PlaybackBuffer)
	if err := p.next(ctx, p.ex, &b.buffer); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *AsyncPlaybackStream) Close() error { return p.close() }

func (c *Client) newStream(ctx context.Context, ex Executor, r *streamRequest) (*stream, error) {
	cn, err := c.connectStream(ctx, ex, r)
	if err != nil {
		return nil, err
	}
	return newStream(c, r, cn)
}
