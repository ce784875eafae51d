package cras

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jfreymuth/cras/proto"
)

func TestParseServerString(t *testing.T) {
	t.Setenv("CRAS_SOCKET_DIR", "/tmp/cras")
	cases := []struct {
		input  string
		result socketAddr
	}{
		{
			"/path/to/socket",
			socketAddr{proto.SocketLegacy, "/path/to/socket"},
		},
		{
			"unix:/run/cras/.cras_unified",
			socketAddr{proto.SocketUnified, "/run/cras/.cras_unified"},
		},
		{
			"playback",
			socketAddr{proto.SocketPlayback, "/tmp/cras/.cras_playback"},
		},
		{
			"vms_unified@/var/run/cras",
			socketAddr{proto.SocketVMsUnified, "/var/run/cras/.cras_vms_unified"},
		},
	}
	for _, c := range cases {
		s, err := parseServerString(c.input)
		if assert.NoError(t, err, c.input) {
			assert.Equal(t, c.result, s, c.input)
		}
	}
}

func TestParseServerStringInvalid(t *testing.T) {
	for _, s := range []string{"", "unix:", "unix:relative", "tcp:host:port", "bogus@/run/cras"} {
		_, err := parseServerString(s)
		assert.Error(t, err, s)
	}
}
