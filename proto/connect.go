package proto

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// DefaultSocketDir is where the server creates its sockets.
const DefaultSocketDir = "/run/cras"

// SocketType selects one of the sockets the server listens on.
type SocketType int

const (
	SocketLegacy SocketType = iota
	SocketUnified
	SocketPlayback
	SocketCapture
	SocketVMsLegacy
	SocketVMsUnified
	SocketPluginPlayback
	SocketPluginUnified
	numSocketTypes
)

var socketFiles = [...]string{
	".cras_socket",
	".cras_unified",
	".cras_playback",
	".cras_capture",
	".cras_vms_legacy",
	".cras_vms_unified",
	".cras_plugin_playback",
	".cras_plugin_unified",
}

var socketNames = [...]string{
	"legacy",
	"unified",
	"playback",
	"capture",
	"vms_legacy",
	"vms_unified",
	"plugin_playback",
	"plugin_unified",
}

// FileName returns the name of the socket file in the socket directory.
func (t SocketType) FileName() string {
	if t < 0 || t >= numSocketTypes {
		return ""
	}
	return socketFiles[t]
}

func (t SocketType) String() string {
	if t < 0 || t >= numSocketTypes {
		return fmt.Sprintf("SocketType(%d)", int(t))
	}
	return socketNames[t]
}

// ParseSocketType is the inverse of SocketType.String.
func ParseSocketType(s string) (SocketType, error) {
	for i, name := range socketNames {
		if name == s {
			return SocketType(i), nil
		}
	}
	return 0, fmt.Errorf("cras: unknown socket type %q", s)
}

// SocketDir returns the socket directory, CRAS_SOCKET_DIR if it is set.
func SocketDir() string {
	if dir, ok := os.LookupEnv("CRAS_SOCKET_DIR"); ok && dir != "" {
		return dir
	}
	return DefaultSocketDir
}

// SocketPath returns the path of the socket of type t in dir. An empty dir
// means SocketDir().
func SocketPath(dir string, t SocketType) string {
	if dir == "" {
		dir = SocketDir()
	}
	return filepath.Join(dir, t.FileName())
}

// Dial connects to the server socket at path.
func Dial(path string) (*Conn, error) {
	c, err := net.DialUnix("unixpacket", nil, &net.UnixAddr{Name: path, Net: "unixpacket"})
	if err != nil {
		return nil, err
	}
	return NewConn(c), nil
}
