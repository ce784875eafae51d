package cras

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jfreymuth/cras/proto"
	"github.com/jfreymuth/cras/shm"
)

// A ShmStream is a stream whose samples live in memory owned by the
// client. Instead of handing out buffers, the stream tells the client how
// many frames the server wants, and the client tells the stream where in
// its memory they are.
type ShmStream interface {
	// WaitForNextAction waits up to timeout for the server to request or
	// offer frames. It returns nil and no error on timeout. A negative
	// timeout waits without limit.
	WaitForNextAction(timeout time.Duration) (*ShmRequest, error)
	Direction() proto.Direction
	Format() proto.AudioFormat
	FrameSize() int
	Close() error
}

type shmCommitter interface {
	setBufferOffsetAndFrames(offset uint64, frames int) error
	bufferOffset() uint64
	requestDone()
}

// A ShmRequest is one request from the server. Closing it without calling
// SetBufferOffsetAndFrames commits the requested frames at the current
// buffer offset.
type ShmRequest struct {
	s      shmCommitter
	frames int
	done   bool
}

// RequestedFrames returns the number of frames the server asked for.
func (r *ShmRequest) RequestedFrames() int { return r.frames }

// SetBufferOffsetAndFrames reports that frames frames are ready at offset
// bytes into the client memory and completes the request.
func (r *ShmRequest) SetBufferOffsetAndFrames(offset uint64, frames int) error {
	if r.done {
		return ErrBufferReleased
	}
	if frames < 0 || frames > r.frames {
		return fmt.Errorf("cras: %d frames for a request of %d", frames, r.frames)
	}
	if err := r.s.setBufferOffsetAndFrames(offset, frames); err != nil {
		return err
	}
	r.done = true
	r.s.requestDone()
	return nil
}

// Close completes the request if it is still open.
func (r *ShmRequest) Close() error {
	if r.done {
		return nil
	}
	return r.SetBufferOffsetAndFrames(r.s.bufferOffset(), r.frames)
}

// ClientShmStream is a ShmStream connected to the server.
type ClientShmStream struct {
	c         *Client
	id        proto.StreamID
	dir       proto.Direction
	format    proto.AudioFormat
	blockSize uint32
	memSize   uint64

	audio  *net.UnixConn
	header *shm.Header
	req    *ShmRequest
	closed bool
	msg    [proto.AudioMessageSize]byte

	log logrus.FieldLogger
}

// NewShmStream creates a stream over client memory. offsets are the byte
// offsets of the two buffers in mem. A capture stream on a client without
// capture enabled is a NullShmStream.
func (c *Client) NewShmStream(dir proto.Direction, channels int, format proto.SampleFormat, rate uint32, blockSize int, mem SharedMemory, offsets [2]uint64, opts ...StreamOption) (ShmStream, error) {
	r := newStreamRequest(dir, channels, format, rate, blockSize, opts)
	if dir == proto.DirectionInput && !c.capture && !r.pinned {
		return newNullShmStream(r), nil
	}
	fb := uint64(r.format.FrameBytes())
	for _, off := range offsets {
		if off+uint64(r.blockSize)*fb > uint64(mem.Size()) {
			panic("cras: buffer offset outside of client memory")
		}
	}
	r.shm = mem
	r.offsets = offsets
	cn, err := c.connectStream(context.Background(), PollExecutor{}, r)
	if err != nil {
		return nil, err
	}
	hr, err := shm.MapFile(cn.headerFd, true)
	cn.headerFd = -1
	if err != nil {
		cn.close()
		return nil, &StreamSetupError{StreamID: cn.id, Err: err}
	}
	header, err := shm.NewHeader(hr)
	if err != nil {
		hr.Close()
		cn.close()
		return nil, &StreamSetupError{StreamID: cn.id, Err: err}
	}
	header.SetBufferOffset(0, offsets[0])
	header.SetBufferOffset(1, offsets[1])
	return &ClientShmStream{
		c:         c,
		id:        cn.id,
		dir:       dir,
		format:    r.format,
		blockSize: r.blockSize,
		memSize:   uint64(mem.Size()),
		audio:     cn.audio,
		header:    header,
		log:       c.log.WithField("stream_id", cn.id),
	}, nil
}

func (s *ClientShmStream) ID() proto.StreamID { return s.id }

func (s *ClientShmStream) Direction() proto.Direction { return s.dir }

func (s *ClientShmStream) Format() proto.AudioFormat { return s.format }

func (s *ClientShmStream) FrameSize() int { return s.format.FrameBytes() }

func (s *ClientShmStream) WaitForNextAction(timeout time.Duration) (*ShmRequest, error) {
	if s.closed {
		return nil, &TransportError{Op: "wait for next action", Err: ErrStreamClosed}
	}
	if s.req != nil {
		if err := s.req.Close(); err != nil {
			return nil, err
		}
	}
	ok, err := pollReadable(s.audio, pollTimeout(timeout))
	if err != nil {
		return nil, s.fail(waitError(err))
	}
	if !ok {
		return nil, nil
	}
	if _, err := io.ReadFull(s.audio, s.msg[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, s.fail(ErrUnexpectedExit)
		}
		return nil, s.fail(&TransportError{Op: "read audio message", Err: err})
	}
	m, err := proto.UnmarshalAudio(s.msg[:])
	if err != nil {
		return nil, s.fail(err)
	}
	want := uint32(proto.AudioRequestData)
	if s.dir == proto.DirectionInput {
		want = proto.AudioDataReady
	}
	if m.ID != want {
		return nil, fmt.Errorf("%w: audio message %d", ErrMessageType, m.ID)
	}
	s.req = &ShmRequest{s: s, frames: int(min(m.Frames, s.blockSize))}
	return s.req, nil
}

// pollTimeout converts timeout to poll milliseconds, rounding up so a short
// timeout still waits.
func pollTimeout(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}

func (s *ClientShmStream) bufferOffset() uint64 { return s.header.BufferOffset(0) }

func (s *ClientShmStream) requestDone() { s.req = nil }

func (s *ClientShmStream) setBufferOffsetAndFrames(offset uint64, frames int) error {
	if s.closed {
		return &TransportError{Op: "commit", Err: ErrStreamClosed}
	}
	if offset+uint64(frames)*uint64(s.FrameSize()) > s.memSize {
		return fmt.Errorf("cras: %d frames at offset %d exceed client memory of %d bytes", frames, offset, s.memSize)
	}
	s.header.SetBufferOffset(0, offset)
	id := uint32(proto.AudioDataReady)
	if s.dir == proto.DirectionOutput {
		s.header.SetWriteOffset(uint32(frames))
	} else {
		s.header.SetReadOffset(uint32(frames))
		id = proto.AudioDataCaptured
	}
	b := proto.MarshalAudio(proto.AudioMessage{ID: id, Frames: uint32(frames)})
	if _, err := s.audio.Write(b); err != nil {
		return s.fail(&TransportError{Op: "write audio message", Err: err})
	}
	return nil
}

func (s *ClientShmStream) fail(err error) error {
	s.log.WithError(err).Debug("closing stream")
	s.teardown()
	return err
}

func (s *ClientShmStream) teardown() {
	if s.closed {
		return
	}
	s.closed = true
	s.audio.Close()
	s.header.Region().Close()
	if err := s.c.conn.Send(&proto.DisconnectStream{StreamID: s.id}); err != nil {
		s.log.WithError(err).Debug("disconnect not sent")
	}
}

// Close completes an open request and releases the stream.
func (s *ClientShmStream) Close() error {
	var err error
	if s.req != nil && !s.closed {
		err = s.req.Close()
	}
	s.teardown()
	return err
}

// A NullShmStream is a ShmStream without a server. It requests a block
// of frames at the stream's frame rate and drops what it is given.
type NullShmStream struct {
	noop *NoopCaptureStream
	dir  proto.Direction
	req  *ShmRequest
	off  uint64
}

func newNullShmStream(r *streamRequest) *NullShmStream {
	return &NullShmStream{noop: newNoopCaptureStream(r), dir: r.dir}
}

// NewNullShmStream returns a stream that needs no server.
func NewNullShmStream(dir proto.Direction, channels int, format proto.SampleFormat, rate uint32, blockSize int) *NullShmStream {
	return newNullShmStream(newStreamRequest(dir, channels, format, rate, blockSize, nil))
}

func (s *NullShmStream) Direction() proto.Direction { return s.dir }

func (s *NullShmStream) Format() proto.AudioFormat { return s.noop.format }

func (s *NullShmStream) FrameSize() int { return s.noop.FrameSize() }

// Frames returns the number of frames committed so far.
func (s *NullShmStream) Frames() uint64 { return s.noop.cursor }

func (s *NullShmStream) WaitForNextAction(timeout time.Duration) (*ShmRequest, error) {
	if s.noop.closed {
		return nil, &TransportError{Op: "wait for next action", Err: ErrStreamClosed}
	}
	if s.req != nil {
		s.req.Close()
	}
	ctx := context.Background()
	if timeout >= 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := s.noop.wait(ctx); err != nil {
		return nil, nil
	}
	s.req = &ShmRequest{s: s, frames: int(s.noop.blockSize)}
	return s.req, nil
}

func (s *NullShmStream) bufferOffset() uint64 { return s.off }

func (s *NullShmStream) requestDone() { s.req = nil }

func (s *NullShmStream) setBufferOffsetAndFrames(offset uint64, frames int) error {
	s.off = offset
	return s.noop.commit(uint32(frames))
}

func (s *NullShmStream) Close() error {
	if s.req != nil {
		s.req.Close()
	}
	return s.noop.Close()
}
