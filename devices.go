package cras

import (
	"iter"
	"time"

	"github.com/jfreymuth/cras/proto"
)

// A Device is an audio device known to the server.
type Device struct {
	info proto.IodevInfo
}

// Index is the identifier of the device within the server.
func (d *Device) Index() uint32 { return d.info.Idx }

// Name is a human-readable name of the device.
func (d *Device) Name() string { return proto.CString(d.info.Name[:]) }

// StableID stays the same for a device across reboots and reconnects.
func (d *Device) StableID() uint32 { return d.info.StableID }

// MaxSupportedChannels is 0 if the device has not been opened yet.
func (d *Device) MaxSupportedChannels() int { return int(d.info.MaxSupportedChannels) }

// LastOpenResult tells whether the last attempt to open the device
// succeeded: 0 unknown, 1 success, 2 failure.
func (d *Device) LastOpenResult() uint32 { return d.info.LastOpenResult }

// Info returns the raw device record.
func (d *Device) Info() proto.IodevInfo { return d.info }

// A Node is a jack, speaker or microphone of a device.
type Node struct {
	info proto.IonodeInfo
}

// ID combines the device and node index into the node id used by the
// server's notifications.
func (n *Node) ID() uint64 { return uint64(n.info.IodevIdx)<<32 | uint64(n.info.IonodeIdx) }

func (n *Node) DeviceIndex() uint32 { return n.info.IodevIdx }

func (n *Node) Index() uint32 { return n.info.IonodeIdx }

func (n *Node) Name() string { return proto.CString(n.info.Name[:]) }

// Type is the node type name, like "HEADPHONE" or "INTERNAL_MIC".
func (n *Node) Type() string { return proto.CString(n.info.Type[:]) }

func (n *Node) Plugged() bool { return n.info.Plugged != 0 }

// PluggedTime is the time the node was attached, if it is plugged.
func (n *Node) PluggedTime() time.Time {
	if !n.Plugged() {
		return time.Time{}
	}
	return time.Unix(n.info.PluggedTime.Sec, n.info.PluggedTime.Usec*1000)
}

func (n *Node) Active() bool { return n.info.Active != 0 }

// Volume is the node volume, 0 to 100.
func (n *Node) Volume() uint32 { return n.info.Volume }

// CaptureGain is in dBFS * 100.
func (n *Node) CaptureGain() int32 { return n.info.CaptureGain }

func (n *Node) UIGainScaler() float32 { return n.info.UIGainScaler }

func (n *Node) LeftRightSwapped() bool { return n.info.LeftRightSwapped != 0 }

func (n *Node) StableID() uint32 { return n.info.StableID }

func (n *Node) ActiveHotwordModel() string { return proto.CString(n.info.ActiveHotwordModel[:]) }

// NumVolumeSteps is the number of volume steps suggested for an output
// node, 0 for input nodes.
func (n *Node) NumVolumeSteps() int { return int(n.info.NumVolumeSteps) }

func (n *Node) Info() proto.IonodeInfo { return n.info }

// OutputDevices returns the attached output devices. The server state is
// read when iteration starts, every iteration reads it again.
func (c *Client) OutputDevices() iter.Seq[*Device] {
	return c.devices(func(s *proto.ServerState) []proto.IodevInfo { return s.OutputDevs[:min(s.NumOutputDevs, proto.MaxIodevs)] })
}

// InputDevices returns the attached input devices.
func (c *Client) InputDevices() iter.Seq[*Device] {
	return c.devices(func(s *proto.ServerState) []proto.IodevInfo { return s.InputDevs[:min(s.NumInputDevs, proto.MaxIodevs)] })
}

// OutputNodes returns the nodes of all output devices.
func (c *Client) OutputNodes() iter.Seq[*Node] {
	return c.nodes(func(s *proto.ServerState) []proto.IonodeInfo { return s.OutputNodes[:min(s.NumOutputNodes, proto.MaxIonodes)] })
}

// InputNodes returns the nodes of all input devices.
func (c *Client) InputNodes() iter.Seq[*Node] {
	return c.nodes(func(s *proto.ServerState) []proto.IonodeInfo { return s.InputNodes[:min(s.NumInputNodes, proto.MaxIonodes)] })
}

func (c *Client) devices(list func(*proto.ServerState) []proto.IodevInfo) iter.Seq[*Device] {
	return func(yield func(*Device) bool) {
		for _, info := range list(c.state.snapshot()) {
			if !yield(&Device{info: info}) {
				return
			}
		}
	}
}

func (c *Client) nodes(list func(*proto.ServerState) []proto.IonodeInfo) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, info := range list(c.state.snapshot()) {
			if !yield(&Node{info: info}) {
				return
			}
		}
	}
}
