package cras

import "github.com/jfreymuth/cras/proto"

// MaxVolume is the highest system volume.
const MaxVolume = 100

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// SetSystemVolume asks the server to set the system volume, 0 to 100. The
// server does not reply; the new value shows up in SystemVolume once the
// server has applied it. Values above MaxVolume are clamped by the server.
func (c *Client) SetSystemVolume(volume uint32) error {
	return c.send("set system volume", &proto.SetSystemVolume{Volume: volume})
}

// SetSystemMute asks the server to mute or unmute the system.
func (c *Client) SetSystemMute(mute bool) error {
	return c.send("set system mute", &proto.SetSystemMute{Mute: boolInt(mute)})
}

// SetUserMute sets the mute state that represents the user's choice, as
// opposed to the system mute used during device switches.
func (c *Client) SetUserMute(mute bool) error {
	return c.send("set user mute", &proto.SetUserMute{Mute: boolInt(mute)})
}

// SetSystemMuteLocked prevents or allows changes of the system mute.
func (c *Client) SetSystemMuteLocked(locked bool) error {
	return c.send("set system mute locked", &proto.SetSystemMuteLocked{Locked: boolInt(locked)})
}

func (c *Client) SetCaptureMute(mute bool) error {
	return c.send("set capture mute", &proto.SetSystemCaptureMute{Mute: boolInt(mute)})
}

// SystemVolume returns the system volume as last published by the server.
func (c *Client) SystemVolume() uint32 { return c.state.snapshot().Volume }

// SystemMute reports whether the system is muted.
func (c *Client) SystemMute() bool { return c.state.snapshot().Mute != 0 }

func (c *Client) UserMute() bool { return c.state.snapshot().UserMute != 0 }

func (c *Client) SystemMuteLocked() bool { return c.state.snapshot().MuteLocked != 0 }

func (c *Client) CaptureMute() bool { return c.state.snapshot().CaptureMute != 0 }

// CaptureGain returns the capture gain in dBFS * 100.
func (c *Client) CaptureGain() int32 { return c.state.snapshot().CaptureGain }

// VolumeRange returns the output volume at volume 1 and at MaxVolume, in
// dBFS * 100.
func (c *Client) VolumeRange() (min, max int32) {
	s := c.state.snapshot()
	return s.MinVolumeDBFS, s.MaxVolumeDBFS
}

// Suspended reports whether the server is suspended.
func (c *Client) Suspended() bool { return c.state.snapshot().Suspended != 0 }

// NumActiveStreams returns the number of active streams in a direction.
func (c *Client) NumActiveStreams(dir proto.Direction) uint32 {
	if dir >= proto.NumDirections {
		return 0
	}
	return c.state.snapshot().NumActiveStreams[dir]
}

// NumStreamsAttached returns the number of streams attached since the
// server started.
func (c *Client) NumStreamsAttached() uint32 { return c.state.snapshot().NumStreamsAttached }

// DefaultOutputBufferSize returns the server's default output buffer size
// in frames.
func (c *Client) DefaultOutputBufferSize() int { return int(c.state.defaultOutputBufferSize()) }
