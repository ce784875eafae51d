package crastest

import (
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jfreymuth/cras/proto"
	"github.com/jfreymuth/cras/shm"
)

// A Stream is the server side of a connected stream.
type Stream struct {
	s       *Server
	Request *proto.ConnectStream

	audio   *net.UnixConn
	header  *shm.Header
	samples *shm.Region
	// Client is the client owned memory of a shm stream.
	Client *shm.Region

	mems []*shm.Memory
}

type acceptConfig struct {
	capacity uint32
	errno    int32
	format   func(*proto.AudioFormat)
	fds      int
}

type AcceptOption func(*acceptConfig)

// Capacity sets the size of the samples ring in frames. It defaults to
// twice the requested block size.
func Capacity(frames uint32) AcceptOption {
	return func(c *acceptConfig) { c.capacity = frames }
}

// Refuse makes the server answer with a negative errno.
func Refuse(errno unix.Errno) AcceptOption {
	return func(c *acceptConfig) { c.errno = -int32(errno) }
}

// ChangeFormat modifies the format echoed to the client.
func ChangeFormat(f func(*proto.AudioFormat)) AcceptOption {
	return func(c *acceptConfig) { c.format = f }
}

// AttachFds overrides the number of region descriptors sent.
func AttachFds(n int) AcceptOption {
	return func(c *acceptConfig) { c.fds = n }
}

// Accept reads a CONNECT_STREAM request and answers it. For a refused
// stream it returns nil.
func (s *Server) Accept(opts ...AcceptOption) *Stream {
	msg, fds := s.Read()
	req, ok := msg.(*proto.ConnectStream)
	if !ok {
		proto.CloseFds(fds)
		if msg != nil {
			s.errorf("got %T, want ConnectStream", msg)
		}
		return nil
	}
	return s.AcceptRequest(req, fds, opts...)
}

// AcceptRequest answers a CONNECT_STREAM request that was already read,
// fds are the descriptors that came with it.
func (s *Server) AcceptRequest(req *proto.ConnectStream, fds []int, opts ...AcceptOption) *Stream {
	cfg := acceptConfig{capacity: 2 * req.BufferFrames, fds: -1}
	for _, opt := range opts {
		opt(&cfg)
	}
	shmStream := req.ClientShmSize > 0
	want := 1
	if shmStream {
		want = 2
	}
	if len(fds) != want {
		proto.CloseFds(fds)
		s.errorf("ConnectStream with %d descriptors, want %d", len(fds), want)
		return nil
	}
	reply := &proto.StreamConnected{StreamID: req.StreamID, Format: req.Format, Effects: req.Effects}
	if cfg.format != nil {
		cfg.format(&reply.Format)
	}
	if cfg.errno != 0 {
		proto.CloseFds(fds)
		reply.Err = cfg.errno
		s.Send(reply)
		return nil
	}

	st := &Stream{s: s, Request: req}
	f := os.NewFile(uintptr(fds[0]), "crastest audio")
	c, err := net.FileConn(f)
	f.Close()
	if err != nil {
		proto.CloseFds(fds[1:])
		s.errorf("audio socket: %v", err)
		return nil
	}
	st.audio = c.(*net.UnixConn)
	s.t.Cleanup(st.close)

	if shmStream {
		st.Client, err = shm.MapFile(fds[1], true)
		if err != nil {
			s.errorf("client memory: %v", err)
			return nil
		}
	}

	fb := uint32(req.Format.FrameBytes())
	hm := st.memory("header", shm.HeaderSize)
	if hm == nil {
		return nil
	}
	hr, err := hm.Map(true)
	if err != nil {
		s.errorf("%v", err)
		return nil
	}
	st.header, _ = shm.NewHeader(hr)
	st.header.Init(cfg.capacity*fb, fb)

	regionFds := []int{hm.Fd()}
	if !shmStream {
		sm := st.memory("samples", int64(cfg.capacity*fb))
		if sm == nil {
			return nil
		}
		st.samples, err = sm.Map(true)
		if err != nil {
			s.errorf("%v", err)
			return nil
		}
		reply.SamplesShmSize = cfg.capacity * fb
		regionFds = append(regionFds, sm.Fd())
	}
	if cfg.fds >= 0 {
		regionFds = regionFds[:min(cfg.fds, len(regionFds))]
	}
	s.Send(reply, regionFds...)
	return st
}

func (st *Stream) memory(kind string, size int64) *shm.Memory {
	m, err := shm.NewMemory(name(kind), size)
	if err != nil {
		st.s.errorf("%v", err)
		return nil
	}
	st.mems = append(st.mems, m)
	return m
}

func (st *Stream) close() {
	st.audio.Close()
	if st.header != nil {
		st.header.Region().Close()
	}
	if st.samples != nil {
		st.samples.Close()
	}
	if st.Client != nil {
		st.Client.Close()
	}
	for _, m := range st.mems {
		m.Close()
	}
}

// Header returns the stream header.
func (st *Stream) Header() *shm.Header { return st.header }

// Samples returns the samples ring.
func (st *Stream) Samples() []byte { return st.samples.Bytes() }

// ID returns the id the client chose.
func (st *Stream) ID() proto.StreamID { return st.Request.StreamID }

// RequestData asks a playback client for frames.
func (st *Stream) RequestData(frames uint32) { st.send(proto.AudioRequestData, frames) }

// DataReady tells a capture client frames are ready.
func (st *Stream) DataReady(frames uint32) { st.send(proto.AudioDataReady, frames) }

// SendAudio sends an arbitrary audio message.
func (st *Stream) SendAudio(m proto.AudioMessage) {
	if _, err := st.audio.Write(proto.MarshalAudio(m)); err != nil {
		st.s.errorf("write audio message: %v", err)
	}
}

func (st *Stream) send(id, frames uint32) {
	st.SendAudio(proto.AudioMessage{ID: id, Frames: frames})
}

// ReadAudio reads the next audio message from the client.
func (st *Stream) ReadAudio() (proto.AudioMessage, error) {
	st.audio.SetReadDeadline(time.Now().Add(Timeout))
	b := make([]byte, proto.AudioMessageSize)
	if _, err := io.ReadFull(st.audio, b); err != nil {
		return proto.AudioMessage{}, err
	}
	return proto.UnmarshalAudio(b)
}

// ExpectAudio reads the next audio message and checks its id. It returns
// the frame count.
func (st *Stream) ExpectAudio(id uint32) uint32 {
	m, err := st.ReadAudio()
	if err != nil {
		st.s.errorf("read audio message: %v", err)
		return 0
	}
	if m.ID != id {
		st.s.errorf("audio message %d, want %d", m.ID, id)
	}
	return m.Frames
}

// ExpectClosed checks that the client closed its end of the audio socket.
func (st *Stream) ExpectClosed() {
	m, err := st.ReadAudio()
	if err == nil {
		st.s.errorf("audio message %d, want end of stream", m.ID)
	}
}

// Hangup closes the server end of the audio socket.
func (st *Stream) Hangup() { st.audio.Close() }
