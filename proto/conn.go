package proto

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// maxFds is the largest number of descriptors attached to one message.
const maxFds = 2

// Conn is a control connection to the server. Every message is one
// datagram, descriptors travel as SCM_RIGHTS ancillary data.
//
// Sends may happen from several goroutines at once: every message is a
// single datagram and nothing is shared between sends. Only one goroutine
// may receive at a time.
type Conn struct {
	c   *net.UnixConn
	buf []byte
	oob []byte
}

// NewConn wraps a connected seqpacket socket.
func NewConn(c *net.UnixConn) *Conn {
	return &Conn{
		c:   c,
		buf: make([]byte, MaxMessageSize),
		oob: make([]byte, unix.CmsgSpace(maxFds*4)),
	}
}

// FileConn wraps a connected seqpacket socket descriptor. The descriptor is
// duplicated; the caller keeps ownership of f.
func FileConn(f *os.File) (*Conn, error) {
	c, err := net.FileConn(f)
	if err != nil {
		return nil, err
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		c.Close()
		return nil, fmt.Errorf("cras: %s is not a unix socket", f.Name())
	}
	return NewConn(uc), nil
}

// Send writes a request with the given descriptors attached.
func (c *Conn) Send(msg RequestArgs, fds ...int) error {
	return c.write(Marshal(msg), fds)
}

// SendReply writes a server message. It exists for test servers.
func (c *Conn) SendReply(msg Reply, fds ...int) error {
	return c.write(MarshalReply(msg), fds)
}

// WriteRaw writes an already encoded message.
func (c *Conn) WriteRaw(b []byte, fds ...int) error {
	return c.write(b, fds)
}

func (c *Conn) write(b []byte, fds []int) error {
	var oob []byte
	if len(fds) > 0 {
		oob = syscall.UnixRights(fds...)
	}
	n, oobn, err := c.c.WriteMsgUnix(b, oob, nil)
	if err != nil {
		return err
	}
	if n != len(b) || oobn != len(oob) {
		return io.ErrShortWrite
	}
	return nil
}

// ReadRaw reads one datagram and the descriptors attached to it. The
// returned slice is valid until the next read. A zero length datagram
// is reported as io.EOF because that is how the socket reports a closed
// peer.
func (c *Conn) ReadRaw() ([]byte, []int, error) {
	n, oobn, flags, _, err := c.c.ReadMsgUnix(c.buf, c.oob)
	if err != nil {
		return nil, nil, err
	}
	fds, ferr := parseRights(c.oob[:oobn])
	if n == 0 {
		closeAll(fds)
		return nil, nil, io.EOF
	}
	if flags&unix.MSG_TRUNC != 0 {
		closeAll(fds)
		return nil, nil, &DecodeError{Reason: "message truncated"}
	}
	if flags&unix.MSG_CTRUNC != 0 || ferr != nil {
		closeAll(fds)
		return nil, nil, &DecodeError{Reason: "bad descriptor attachment"}
	}
	return c.buf[:n], fds, nil
}

// Recv reads and decodes one server message. Received descriptors belong to
// the caller, also when decoding fails.
func (c *Conn) Recv() (Reply, []int, error) {
	b, fds, err := c.ReadRaw()
	if err != nil {
		return nil, nil, err
	}
	msg, err := DecodeReply(b)
	return msg, fds, err
}

func parseRights(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, err
	}
	var fds []int
	for _, m := range msgs {
		if m.Header.Level != unix.SOL_SOCKET || m.Header.Type != unix.SCM_RIGHTS {
			continue
		}
		f, err := unix.ParseUnixRights(&m)
		if err != nil {
			closeAll(fds)
			return nil, err
		}
		fds = append(fds, f...)
	}
	return fds, nil
}

func closeAll(fds []int) {
	for _, fd := range fds {
		unix.Close(fd)
	}
}

// CloseFds closes received descriptors that are not going to be used.
func CloseFds(fds []int) { closeAll(fds) }

func (c *Conn) SyscallConn() (syscall.RawConn, error) { return c.c.SyscallConn() }

func (c *Conn) SetReadDeadline(t time.Time) error { return c.c.SetReadDeadline(t) }

// Fd returns the socket descriptor, for callers that must keep it open
// across a fork.
func (c *Conn) Fd() int {
	fd := -1
	rc, err := c.c.SyscallConn()
	if err != nil {
		return fd
	}
	rc.Control(func(s uintptr) { fd = int(s) })
	return fd
}

func (c *Conn) Close() error {
	err := c.c.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
