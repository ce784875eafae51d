package cras

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfreymuth/cras/internal/crastest"
	"github.com/jfreymuth/cras/proto"
)

func TestAudioDebugInfo(t *testing.T) {
	c, srv := newTestClient(t)
	d := &proto.AudioDebugInfo{NumDevs: 1, NumStreams: 2}
	proto.PutCString(d.Devs[0].DevName[:], "Speaker")
	d.Devs[0].FrameRate = 48000
	d.Streams[0].StreamID = uint64(proto.NewStreamID(testClientID, 0))
	d.Streams[1].StreamID = uint64(proto.NewStreamID(testClientID, 1))
	d.Log.Len = 16
	d.Log.WritePos = 2
	d.Log.Log[0] = proto.AudioThreadEvent{TagSec: 1<<24 | 10}
	d.Log.Log[1] = proto.AudioThreadEvent{TagSec: 2<<24 | 11}
	srv.SetDebugInfo(d)
	srv.Send(&proto.AudioDebugInfoReady{})

	info, err := c.AudioDebugInfo()
	require.NoError(t, err)
	crastest.Expect[*proto.DumpAudioThread](srv)

	require.Len(t, info.Devices, 1)
	assert.Equal(t, "Speaker", proto.CString(info.Devices[0].DevName[:]))
	assert.Equal(t, uint32(48000), info.Devices[0].FrameRate)
	require.Len(t, info.Streams, 2)
	assert.Equal(t, uint64(proto.NewStreamID(testClientID, 1)), info.Streams[1].StreamID)
	require.Len(t, info.Events, 2)
	assert.Equal(t, uint8(1), info.Events[0].Tag())
	assert.Equal(t, uint8(2), info.Events[1].Tag())
}

func TestAudioDebugInfoWrongReply(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Send(&proto.OutputVolumeChanged{Volume: 1})
	_, err := c.AudioDebugInfo()
	assert.ErrorIs(t, err, ErrMessageType)
}

func TestAudioDebugInfoHangup(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Go(func() {
		crastest.Expect[*proto.DumpAudioThread](srv)
		srv.Hangup()
	})
	_, err := c.AudioDebugInfo()
	assert.ErrorIs(t, err, ErrUnexpectedExit)
	srv.Wait()
}

func TestAudioDebugInfoClampsCounts(t *testing.T) {
	c, srv := newTestClient(t)
	srv.SetDebugInfo(&proto.AudioDebugInfo{NumDevs: 100, NumStreams: 100})
	srv.Send(&proto.AudioDebugInfoReady{})
	info, err := c.AudioDebugInfo()
	require.NoError(t, err)
	assert.Len(t, info.Devices, proto.MaxDebugDevs)
	assert.Len(t, info.Streams, proto.MaxDebugStreams)
	assert.Empty(t, info.Events)
}
