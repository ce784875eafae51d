package cras

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jfreymuth/cras/internal/log"
	"github.com/jfreymuth/cras/proto"
)

// A Client is a connection to the CRAS server.
//
// A Client is not safe for concurrent use. Streams created by a client may
// be used from other goroutines, one goroutine per stream.
type Client struct {
	conn  *proto.Conn
	state *serverState
	id    proto.ClientID

	nextStream uint32
	capture    bool
	clientType proto.ClientType
	streamType proto.StreamType

	log logrus.FieldLogger

	server     string
	socketType proto.SocketType
	socketDir  string
}

// NewClient connects to the server and waits for it to accept the
// connection.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		socketType: proto.SocketLegacy,
		clientType: proto.ClientTypeUnknown,
		streamType: proto.StreamTypeDefault,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.GetLogger()
	}

	if c.conn == nil {
		addr := socketAddr{typ: c.socketType, path: proto.SocketPath(c.socketDir, c.socketType)}
		if c.server != "" {
			var err error
			addr, err = parseServerString(c.server)
			if err != nil {
				return nil, err
			}
			c.socketType = addr.typ
		}
		conn, err := proto.Dial(addr.path)
		if err != nil {
			return nil, &TransportError{Op: "dial", Err: err}
		}
		c.conn = conn
	}

	res, err := waitForMessage(context.Background(), PollExecutor{}, c.conn)
	if err != nil {
		c.conn.Close()
		return nil, err
	}
	conn, ok := res.(connected)
	if !ok {
		discard(res)
		c.conn.Close()
		return nil, ErrMessageType
	}
	c.id = conn.id
	c.state, err = newServerState(conn.stateFd)
	if err != nil {
		c.conn.Close()
		return nil, err
	}
	c.log = c.log.WithField("client_id", c.id)
	c.log.Debug("connected to server")
	return c, nil
}

// Close closes the connection and unmaps the server state. Streams
// created by the client stay usable.
func (c *Client) Close() error {
	err := c.conn.Close()
	if c.state != nil {
		c.state.close()
	}
	return err
}

// ID returns the id the server assigned to the client.
func (c *Client) ID() proto.ClientID { return c.id }

// EnableCapture allows the client to create capture streams. Without it,
// capture streams not pinned to a device record silence without contacting
// the server.
func (c *Client) EnableCapture() { c.capture = true }

// SetClientType sets the client type reported when connecting streams.
func (c *Client) SetClientType(t proto.ClientType) { c.clientType = t }

// SetStreamType sets the stream type all future streams are created with.
func (c *Client) SetStreamType(t proto.StreamType) { c.streamType = t }

// Fds returns the descriptors the client needs. A process that sandboxes
// itself must keep them open.
func (c *Client) Fds() []int { return []int{c.conn.Fd()} }

// nextStreamID returns a new stream id. The counter is never reset, so ids
// of closed streams are not reused.
func (c *Client) nextStreamID() (proto.StreamID, error) {
	if c.nextStream > 0xFFFF {
		return 0, ErrStreamIDsExhausted
	}
	id := proto.NewStreamID(c.id, uint16(c.nextStream))
	c.nextStream++
	return id, nil
}

func (c *Client) send(op string, msg proto.RequestArgs, fds ...int) error {
	if err := c.conn.Send(msg, fds...); err != nil {
		return &TransportError{Op: op, Err: err}
	}
	return nil
}

type ClientOption func(*Client)

// ClientSocketType selects the server socket to connect to.
func ClientSocketType(t proto.SocketType) ClientOption {
	return func(c *Client) { c.socketType = t }
}

// ClientSocketDir overrides the socket directory, which defaults to
// CRAS_SOCKET_DIR or /run/cras.
func ClientSocketDir(dir string) ClientOption {
	return func(c *Client) { c.socketDir = dir }
}

// ClientServer selects the server socket with a string, see
// parseServerString for the format. It takes precedence over
// ClientSocketType and ClientSocketDir.
func ClientServer(s string) ClientOption {
	return func(c *Client) { c.server = s }
}

// ClientConn makes the client use an already connected socket.
func ClientConn(conn *proto.Conn) ClientOption {
	return func(c *Client) { c.conn = conn }
}

func ClientLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) { c.log = l }
}

// ClientCapture is the option form of EnableCapture.
func ClientCapture(enable bool) ClientOption {
	return func(c *Client) { c.capture = enable }
}

func ClientType(t proto.ClientType) ClientOption {
	return func(c *Client) { c.clientType = t }
}

func ClientStreamType(t proto.StreamType) ClientOption {
	return func(c *Client) { c.streamType = t }
}

// A Generator creates clients with fixed settings, for code that needs to
// reconnect.
type Generator struct {
	Capture    bool
	ClientType proto.ClientType
	SocketType proto.SocketType
	StreamType proto.StreamType
	Options    []ClientOption
}

// Generate creates a new client.
func (g *Generator) Generate() (*Client, error) {
	opts := append([]ClientOption{
		ClientSocketType(g.SocketType),
		ClientCapture(g.Capture),
		ClientType(g.ClientType),
		ClientStreamType(g.StreamType),
	}, g.Options...)
	c, err := NewClient(opts...)
	if err != nil {
		var terr *TransportError
		if errors.As(err, &terr) {
			return nil, fmt.Errorf("cras: connecting to %s socket: %w", g.SocketType, err)
		}
		return nil, err
	}
	return c, nil
}
