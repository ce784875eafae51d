// Package crastest implements a fake CRAS server for tests. It speaks the
// server side of the control protocol over a socket pair and owns the
// shared memory regions a real server would create.
package crastest

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"golang.org/x/sys/unix"

	"github.com/jfreymuth/cras/proto"
	"github.com/jfreymuth/cras/shm"
)

// Timeout bounds every wait of the fake server.
var Timeout = 5 * time.Second

// A Server is the server side of one client connection.
//
// Failures are reported with t.Errorf, so a Server can be used from
// goroutines other than the test goroutine.
type Server struct {
	t      testing.TB
	id     proto.ClientID
	conn   *proto.Conn
	client *proto.Conn

	mem   *shm.Memory
	state *shm.Region
	mu    sync.Mutex

	wg sync.WaitGroup
}

// New creates a server that assigns id to its client. Everything is
// released when the test ends.
func New(t testing.TB, id proto.ClientID) *Server {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	s := &Server{t: t, id: id}
	s.conn = fileConn(t, fds[0])
	s.client = fileConn(t, fds[1])

	s.mem, err = shm.NewMemory(name("state"), int64(proto.StateMinSize))
	if err != nil {
		t.Fatal(err)
	}
	s.state, err = s.mem.Map(true)
	if err != nil {
		t.Fatal(err)
	}
	proto.EncodeServerState(s.state.Bytes(), &proto.ServerState{
		StateVersion:  proto.StateVersion,
		Volume:        100,
		MinVolumeDBFS: -10000,
	})
	t.Cleanup(func() {
		s.wg.Wait()
		s.conn.Close()
		s.client.Close()
		s.state.Close()
		s.mem.Close()
	})
	return s
}

func fileConn(t testing.TB, fd int) *proto.Conn {
	f := os.NewFile(uintptr(fd), "crastest")
	defer f.Close()
	c, err := proto.FileConn(f)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func name(kind string) string { return "crastest-" + kind + "-" + xid.New().String() }

// ClientConn returns the client end of the control socket.
func (s *Server) ClientConn() *proto.Conn { return s.client }

// ID returns the client id the server assigns.
func (s *Server) ID() proto.ClientID { return s.id }

// Connect sends the CONNECTED message with the state region attached.
func (s *Server) Connect() {
	fd, err := s.mem.Dup()
	if err != nil {
		s.t.Errorf("crastest: dup state: %v", err)
		return
	}
	defer unix.Close(fd)
	s.Send(&proto.Connected{ClientID: s.id}, fd)
}

// Send sends a message to the client.
func (s *Server) Send(msg proto.Reply, fds ...int) {
	if err := s.conn.SendReply(msg, fds...); err != nil {
		s.t.Errorf("crastest: send %T: %v", msg, err)
	}
}

// SendRaw sends an encoded message.
func (s *Server) SendRaw(b []byte) {
	if err := s.conn.WriteRaw(b); err != nil {
		s.t.Errorf("crastest: send: %v", err)
	}
}

// Hangup closes the server end of the control socket.
func (s *Server) Hangup() { s.conn.Close() }

// Read reads the next request. The caller owns the returned descriptors.
func (s *Server) Read() (proto.RequestArgs, []int) {
	s.conn.SetReadDeadline(time.Now().Add(Timeout))
	b, fds, err := s.conn.ReadRaw()
	if err != nil {
		s.t.Errorf("crastest: read request: %v", err)
		return nil, nil
	}
	msg, err := proto.DecodeRequest(b)
	if err != nil {
		proto.CloseFds(fds)
		s.t.Errorf("crastest: %v", err)
		return nil, nil
	}
	return msg, fds
}

// IdleTimeout is how long ExpectIdle waits for a request.
var IdleTimeout = 50 * time.Millisecond

// ExpectIdle checks that the client sends nothing for IdleTimeout.
func (s *Server) ExpectIdle() {
	s.conn.SetReadDeadline(time.Now().Add(IdleTimeout))
	b, fds, err := s.conn.ReadRaw()
	if err == nil {
		proto.CloseFds(fds)
		if msg, derr := proto.DecodeRequest(b); derr == nil {
			s.errorf("unexpected request %T", msg)
		} else {
			s.errorf("unexpected message: %v", derr)
		}
		return
	}
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		s.errorf("waiting for silence: %v", err)
	}
}

// Expect reads the next request and checks that it is a T.
func Expect[T proto.RequestArgs](s *Server) T {
	var zero T
	msg, fds := s.Read()
	proto.CloseFds(fds)
	if msg == nil {
		return zero
	}
	m, ok := msg.(T)
	if !ok {
		s.t.Errorf("crastest: got %T, want %T", msg, zero)
		return zero
	}
	return m
}

// SetState changes the state region the way the server does: the update
// count is odd while the change is written.
func (s *Server) SetState(f func(*proto.ServerState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := proto.DecodeServerState(s.state.Bytes())
	if err != nil {
		s.t.Errorf("crastest: %v", err)
		return
	}
	count := st.UpdateCount + 1
	s.state.StoreUint32(proto.UpdateCountOffset, count)
	f(st)
	st.UpdateCount = count
	proto.EncodeServerState(s.state.Bytes(), st)
	s.state.StoreUint32(proto.UpdateCountOffset, count+1)
}

// SetDebugInfo stores d in the state region.
func (s *Server) SetDebugInfo(d *proto.AudioDebugInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proto.EncodeAudioDebugInfo(s.state.Bytes(), d)
}

func (s *Server) SetDefaultOutputBufferSize(frames uint32) {
	s.state.StoreUint32(proto.DefaultOutputBufferSizeOffset, frames)
}

// Region returns the writable state region.
func (s *Server) Region() *shm.Region { return s.state }

// Go runs f in a goroutine. The test waits for it before cleaning up.
func (s *Server) Go(f func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
}

// Wait waits for the functions started with Go.
func (s *Server) Wait() { s.wg.Wait() }

func (s *Server) errorf(format string, args ...any) {
	s.t.Errorf("crastest: "+format, args...)
}
