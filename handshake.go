package cras

import (
	"context"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/jfreymuth/cras/proto"
)

// streamRequest collects the parameters of a new stream.
type streamRequest struct {
	dir       proto.Direction
	format    proto.AudioFormat
	blockSize uint32
	device    uint32
	pinned    bool
	effects   proto.Effects

	// set for streams whose samples live in client memory
	shm     SharedMemory
	offsets [2]uint64
}

func newStreamRequest(dir proto.Direction, channels int, format proto.SampleFormat, rate uint32, blockSize int, opts []StreamOption) *streamRequest {
	if channels <= 0 || channels > proto.ChannelMax {
		panic("cras: invalid channel count")
	}
	if format.BytesPerSample() == 0 {
		panic("cras: invalid sample format")
	}
	if blockSize <= 0 {
		panic("cras: invalid block size")
	}
	if rate == 0 {
		panic("cras: invalid frame rate")
	}
	r := &streamRequest{
		dir:       dir,
		format:    proto.NewAudioFormat(format, rate, channels),
		blockSize: uint32(blockSize),
		device:    proto.NoDevice,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type StreamOption func(*streamRequest)

// StreamDevice pins the stream to the device with the given index.
func StreamDevice(index uint32) StreamOption {
	return func(r *streamRequest) {
		r.device = index
		r.pinned = true
	}
}

// StreamEffects requests processing effects for the stream.
func StreamEffects(effects ...proto.Effects) StreamOption {
	return func(r *streamRequest) { r.effects |= proto.EffectSet(effects...) }
}

// StreamChannelLayout overrides the default channel layout.
func StreamChannelLayout(l proto.ChannelLayout) StreamOption {
	return func(r *streamRequest) { r.format.Layout = l }
}

// SharedMemory is client owned memory holding the samples of a stream.
// *shm.Memory implements it.
type SharedMemory interface {
	Fd() int
	Size() int64
}

// connection is the result of a successful handshake. It owns the
// audio socket and the region descriptors.
type connection struct {
	id        proto.StreamID
	reply     *proto.StreamConnected
	audio     *net.UnixConn
	headerFd  int
	samplesFd int
}

func (cn *connection) close() {
	cn.audio.Close()
	proto.CloseFds([]int{cn.headerFd})
	if cn.samplesFd >= 0 {
		proto.CloseFds([]int{cn.samplesFd})
	}
}

// connectStream asks the server for a stream and waits until it is
// connected. Replies for other streams and notifications received in the
// meantime are dropped.
func (c *Client) connectStream(ctx context.Context, ex Executor, r *streamRequest) (*connection, error) {
	if r.dir == proto.DirectionInput && !c.capture {
		panic("cras: capture stream on a client without capture enabled")
	}
	id, err := c.nextStreamID()
	if err != nil {
		return nil, err
	}

	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, &TransportError{Op: "socketpair", Err: err}
	}
	msg := &proto.ConnectStream{
		ProtoVersion: proto.ProtocolVersion,
		Direction:    r.dir,
		StreamID:     id,
		StreamType:   c.streamType,
		BufferFrames: r.blockSize,
		CbThreshold:  r.blockSize,
		Format:       r.format,
		DevIdx:       r.device,
		Effects:      r.effects,
		ClientType:   c.clientType,
	}
	fds := []int{pair[1]}
	if r.shm != nil {
		msg.ClientShmSize = uint64(r.shm.Size())
		msg.BufferOffsets = r.offsets
		fds = append(fds, r.shm.Fd())
	}
	err = c.send("connect stream", msg, fds...)
	unix.Close(pair[1])
	if err != nil {
		unix.Close(pair[0])
		return nil, err
	}

	log := c.log.WithField("stream_id", id)
	var reply *proto.StreamConnected
	var rfds []int
	for reply == nil {
		res, err := waitForMessage(ctx, ex, c.conn)
		if err != nil {
			unix.Close(pair[0])
			return nil, err
		}
		switch res := res.(type) {
		case streamConnected:
			if res.msg.StreamID == id {
				reply, rfds = res.msg, res.fds
				continue
			}
			log.WithField("other", res.msg.StreamID).Debug("dropping reply for another stream")
		case unhandled:
			log.WithField("message", fmt.Sprintf("%T", res.msg)).Debug("dropping message during stream setup")
		default:
			log.Debug("dropping unexpected message during stream setup")
		}
		discard(res)
	}

	fail := func(err error) (*connection, error) {
		unix.Close(pair[0])
		proto.CloseFds(rfds)
		return nil, &StreamSetupError{StreamID: id, Err: err}
	}
	if reply.Err != 0 {
		return fail(proto.Errno(reply.Err))
	}
	if reply.Format.Format != r.format.Format || reply.Format.FrameRate != r.format.FrameRate || reply.Format.NumChannels != r.format.NumChannels {
		return fail(fmt.Errorf("%w: requested %s, got %s", ErrFormatMismatch, r.format, reply.Format))
	}
	want := 2
	if r.shm != nil {
		want = 1
	}
	if len(rfds) != want {
		return fail(fmt.Errorf("got %d descriptors, want %d", len(rfds), want))
	}

	f := os.NewFile(uintptr(pair[0]), "cras audio socket")
	fc, err := net.FileConn(f)
	f.Close()
	if err != nil {
		proto.CloseFds(rfds)
		return nil, &StreamSetupError{StreamID: id, Err: err}
	}
	cn := &connection{id: id, reply: reply, audio: fc.(*net.UnixConn), headerFd: rfds[0], samplesFd: -1}
	if want == 2 {
		cn.samplesFd = rfds[1]
	}
	log.WithField("format", reply.Format.String()).Debug("stream connected")
	return cn, nil
}
