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

type streamState int

const (
	connectedState streamState = iota
	awaitingBuffer
	bufferAcquired
	closed
)

// stream is the data path shared by all stream types connected to the
// server. The samples region is a ring of capacity frames; the stream owns
// the cursor into it and publishes it to the header on every commit.
type stream struct {
	c         *Client
	id        proto.StreamID
	dir       proto.Direction
	format    proto.AudioFormat
	blockSize uint32

	audio    *net.UnixConn
	header   *shm.Header
	samples  *shm.Region
	capacity uint32
	cursor   uint32

	state    streamState
	buf      *buffer
	err      error // returned by the next operation
	closeErr error // why the stream was closed, nil for Close
	msg      [proto.AudioMessageSize]byte

	log logrus.FieldLogger
}

func newStream(c *Client, r *streamRequest, cn *connection) (*stream, error) {
	fail := func(err error) (*stream, error) {
		cn.close()
		return nil, &StreamSetupError{StreamID: cn.id, Err: err}
	}
	hr, err := shm.MapFile(cn.headerFd, true)
	cn.headerFd = -1
	if err != nil {
		return fail(err)
	}
	header, err := shm.NewHeader(hr)
	if err != nil {
		hr.Close()
		return fail(err)
	}
	s := &stream{
		c:         c,
		id:        cn.id,
		dir:       r.dir,
		format:    r.format,
		blockSize: r.blockSize,
		audio:     cn.audio,
		header:    header,
		log:       c.log.WithField("stream_id", cn.id),
	}
	if int(header.FrameBytes()) != r.format.FrameBytes() {
		hr.Close()
		return fail(fmt.Errorf("header frame size %d, format has %d", header.FrameBytes(), r.format.FrameBytes()))
	}
	if cn.samplesFd >= 0 {
		s.samples, err = shm.MapFile(cn.samplesFd, r.dir == proto.DirectionOutput)
		cn.samplesFd = -1
		if err != nil {
			hr.Close()
			return fail(err)
		}
		if int(header.UsedSize()) > s.samples.Len() {
			hr.Close()
			s.samples.Close()
			return fail(fmt.Errorf("samples region of %d bytes, header uses %d", s.samples.Len(), header.UsedSize()))
		}
	}
	s.capacity = header.Capacity()
	if s.capacity == 0 {
		hr.Close()
		if s.samples != nil {
			s.samples.Close()
		}
		return fail(errors.New("empty sample buffer"))
	}
	if r.dir == proto.DirectionOutput {
		s.cursor = header.WriteOffset() % s.capacity
	} else {
		s.cursor = header.ReadOffset() % s.capacity
	}
	return s, nil
}

// ID returns the id of the stream.
func (s *stream) ID() proto.StreamID { return s.id }

func (s *stream) Direction() proto.Direction { return s.dir }

// Format returns the format the server connected the stream with.
func (s *stream) Format() proto.AudioFormat { return s.format }

func (s *stream) FrameRate() int { return int(s.format.FrameRate) }

func (s *stream) Channels() int { return int(s.format.NumChannels) }

// BlockSize returns the largest number of frames in one buffer.
func (s *stream) BlockSize() int { return int(s.blockSize) }

// FrameSize returns the size of one frame in bytes.
func (s *stream) FrameSize() int { return s.format.FrameBytes() }

// Capacity returns the size of the ring buffer in frames.
func (s *stream) Capacity() int { return int(s.capacity) }

// Overruns returns the number of overruns the server recorded.
func (s *stream) Overruns() uint32 {
	if s.state == closed {
		return 0
	}
	return s.header.NumOverruns()
}

// Timestamp returns the time the server associated with the current
// buffer. For playback it is the time the first frame will play, for
// capture the time the first frame was recorded.
func (s *stream) Timestamp() time.Time {
	if s.state == closed {
		return time.Time{}
	}
	return s.header.Timestamp()
}

// next waits for the server to ask for or offer frames and hands out the
// buffer at the cursor as b.
func (s *stream) next(ctx context.Context, ex Executor, b *buffer) error {
	if err := s.release("next buffer"); err != nil {
		return err
	}
	s.state = awaitingBuffer
	want := uint32(proto.AudioRequestData)
	if s.dir == proto.DirectionInput {
		want = proto.AudioDataReady
	}
	m, err := s.readAudio(ctx, ex)
	if err != nil {
		return err
	}
	if m.ID != want {
		s.state = connectedState
		return fmt.Errorf("%w: audio message %d", ErrMessageType, m.ID)
	}
	if m.Error != 0 {
		s.state = connectedState
		return &TransportError{Op: "audio message", Err: proto.Errno(m.Error)}
	}
	frames := min(m.Frames, s.blockSize, s.capacity-s.cursor)
	fb := uint32(s.format.FrameBytes())
	data := s.samples.Bytes()[s.cursor*fb : (s.cursor+frames)*fb]
	*b = buffer{c: s, data: data, frames: frames, frameBytes: int(fb), format: s.format.Format}
	s.buf = b
	s.state = bufferAcquired
	return nil
}

// release commits an outstanding buffer and returns a pending error.
func (s *stream) release(op string) error {
	if s.state == closed {
		return s.closedError(op)
	}
	if s.buf != nil {
		s.buf.Close()
	}
	if s.err != nil {
		err := s.err
		s.err = nil
		return err
	}
	if s.state == closed {
		return s.closedError(op)
	}
	return nil
}

func (s *stream) closedError(op string) error {
	if s.closeErr != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("%w: %w", ErrStreamClosed, s.closeErr)}
	}
	return &TransportError{Op: op, Err: ErrStreamClosed}
}

func (s *stream) readAudio(ctx context.Context, ex Executor) (proto.AudioMessage, error) {
	if err := ex.WaitReadable(ctx, s.audio); err != nil {
		err = waitError(err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.state = connectedState
			return proto.AudioMessage{}, err
		}
		s.fail(err)
		return proto.AudioMessage{}, err
	}
	if _, err := io.ReadFull(s.audio, s.msg[:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrUnexpectedExit
		} else {
			err = &TransportError{Op: "read audio message", Err: err}
		}
		s.fail(err)
		return proto.AudioMessage{}, err
	}
	m, err := proto.UnmarshalAudio(s.msg[:])
	if err != nil {
		s.fail(err)
		return m, err
	}
	return m, nil
}

// commit is called exactly once per buffer.
func (s *stream) commit(frames uint32) error {
	s.buf = nil
	if s.state == closed {
		return s.closedError("commit")
	}
	s.state = connectedState
	s.cursor = (s.cursor + frames) % s.capacity
	id := uint32(proto.AudioDataReady)
	if s.dir == proto.DirectionOutput {
		s.header.SetWriteOffset(s.cursor)
	} else {
		s.header.SetReadOffset(s.cursor)
		id = proto.AudioDataCaptured
	}
	if err := s.writeAudio(id, frames); err != nil {
		s.log.WithError(err).Warn("commit failed")
		s.err = err
		return err
	}
	return nil
}

func (s *stream) writeAudio(id, frames uint32) error {
	b := proto.MarshalAudio(proto.AudioMessage{ID: id, Frames: frames})
	if _, err := s.audio.Write(b); err != nil {
		err = &TransportError{Op: "write audio message", Err: err}
		s.fail(err)
		return err
	}
	return nil
}

// fail closes the stream after an I/O error.
func (s *stream) fail(err error) {
	if s.state == closed {
		return
	}
	s.closeErr = err
	s.teardown()
}

func (s *stream) teardown() {
	s.state = closed
	s.audio.Close()
	s.header.Region().Close()
	if s.samples != nil {
		s.samples.Close()
	}
	if err := s.c.conn.Send(&proto.DisconnectStream{StreamID: s.id}); err != nil {
		s.log.WithError(err).Debug("disconnect not sent")
	}
}

// close commits an outstanding buffer and releases the stream. The
// server notices the closed audio socket and drops its side.
func (s *stream) close() error {
	if s.state != closed && s.buf != nil {
		s.buf.Close()
	}
	if s.state != closed {
		s.teardown()
	}
	err := s.err
	s.err = nil
	return err
}
