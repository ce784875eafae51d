package cras

import (
	"fmt"
	"strings"

	"github.com/jfreymuth/cras/proto"
)

// socketAddr is a resolved server socket.
type socketAddr struct {
	typ  proto.SocketType
	path string
}

// parseServerString parses the argument of ClientServer. Accepted forms
// are a socket type name ("unified"), a type in a directory
// ("unified@/run/cras"), an absolute socket path ("/run/cras/.cras_socket")
// and the same path prefixed with "unix:".
func parseServerString(s string) (socketAddr, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return socketAddr{}, fmt.Errorf("cras: empty server string")
	case s[0] == '/':
		return socketAddr{typ: typeOfPath(s), path: s}, nil
	case strings.HasPrefix(s, "unix:"):
		if len(s) == 5 || s[5] != '/' {
			return socketAddr{}, fmt.Errorf("cras: invalid server string %q", s)
		}
		return socketAddr{typ: typeOfPath(s[5:]), path: s[5:]}, nil
	}
	name, dir, _ := strings.Cut(s, "@")
	t, err := proto.ParseSocketType(name)
	if err != nil {
		return socketAddr{}, err
	}
	return socketAddr{typ: t, path: proto.SocketPath(dir, t)}, nil
}

// typeOfPath guesses the socket type from a socket file name, falling back
// to the legacy socket.
func typeOfPath(path string) proto.SocketType {
	for t := proto.SocketLegacy; t <= proto.SocketPluginUnified; t++ {
		if strings.HasSuffix(path, "/"+t.FileName()) {
			return t
		}
	}
	return proto.SocketLegacy
}
