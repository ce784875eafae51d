package proto

import (
	"fmt"
	"reflect"
)

// HeaderSize is the size of the header preceding every control message.
const HeaderSize = 8

// MaxMessageSize bounds the size of a single control message.
const MaxMessageSize = 4096

// RequestArgs is implemented by messages sent to the server.
type RequestArgs interface{ command() uint32 }

// Reply is implemented by messages sent by the server.
type Reply interface{ IsReply() uint32 }

// Header precedes every control message.
type Header struct {
	Length uint32
	ID     uint32
}

// ConnectStream asks the server to create a stream. It is sent with one end
// of a socket pair attached, and for client-owned shared memory, the memory
// descriptor.
type ConnectStream struct {
	ProtoVersion  uint32
	Direction     Direction
	StreamID      StreamID
	StreamType    StreamType
	BufferFrames  uint32
	CbThreshold   uint32
	Flags         uint32
	Format        AudioFormat
	DevIdx        uint32
	Effects       Effects
	ClientType    ClientType
	ClientShmSize uint64
	BufferOffsets [2]uint64
}

type DisconnectStream struct{ StreamID StreamID }

type SetSystemVolume struct{ Volume uint32 }

type SetSystemMute struct{ Mute int32 }

type SetUserMute struct{ Mute int32 }

type SetSystemMuteLocked struct{ Locked int32 }

type SetSystemCaptureMute struct{ Mute int32 }

type DumpAudioThread struct{}

func (*ConnectStream) command() uint32        { return OpConnectStream }
func (*DisconnectStream) command() uint32     { return OpDisconnectStream }
func (*SetSystemVolume) command() uint32      { return OpSetSystemVolume }
func (*SetSystemMute) command() uint32        { return OpSetSystemMute }
func (*SetUserMute) command() uint32          { return OpSetUserMute }
func (*SetSystemMuteLocked) command() uint32  { return OpSetSystemMuteLocked }
func (*SetSystemCaptureMute) command() uint32 { return OpSetSystemCaptureMute }
func (*DumpAudioThread) command() uint32      { return OpDumpAudioThread }

// Connected is the first message a client receives. It carries the
// descriptor of the server state region.
type Connected struct{ ClientID ClientID }

// StreamConnected answers ConnectStream. It carries the header and samples
// region descriptors.
type StreamConnected struct {
	Err            int32
	StreamID       StreamID
	Format         AudioFormat
	SamplesShmSize uint32
	Effects        Effects
}

type AudioDebugInfoReady struct{}

type HotwordModelsReady struct {
	NumBytes uint32
	Models   []byte
}

type OutputVolumeChanged struct{ Volume int32 }

type OutputMuteChanged struct {
	Muted      int32
	UserMuted  int32
	MuteLocked int32
}

type CaptureGainChanged struct{ Gain int32 }

type CaptureMuteChanged struct {
	Muted      int32
	MuteLocked int32
}

type NodesChanged struct{}

type ActiveNodeChanged struct {
	Direction Direction
	NodeID    uint64
}

type OutputNodeVolumeChanged struct {
	NodeID uint64
	Volume int32
}

type NodeLeftRightSwappedChanged struct {
	NodeID  uint64
	Swapped int32
}

type InputNodeGainChanged struct {
	NodeID uint64
	Gain   int32
}

type NumActiveStreamsChanged struct {
	Direction Direction
	Num       uint32
}

type AtlogFdReady struct{}

func (*Connected) IsReply() uint32                   { return OpConnected }
func (*StreamConnected) IsReply() uint32             { return OpStreamConnected }
func (*AudioDebugInfoReady) IsReply() uint32         { return OpAudioDebugInfoReady }
func (*HotwordModelsReady) IsReply() uint32          { return OpGetHotwordModelsReady }
func (*OutputVolumeChanged) IsReply() uint32         { return OpOutputVolumeChanged }
func (*OutputMuteChanged) IsReply() uint32           { return OpOutputMuteChanged }
func (*CaptureGainChanged) IsReply() uint32          { return OpCaptureGainChanged }
func (*CaptureMuteChanged) IsReply() uint32          { return OpCaptureMuteChanged }
func (*NodesChanged) IsReply() uint32                { return OpNodesChanged }
func (*ActiveNodeChanged) IsReply() uint32           { return OpActiveNodeChanged }
func (*OutputNodeVolumeChanged) IsReply() uint32     { return OpOutputNodeVolumeChanged }
func (*NodeLeftRightSwappedChanged) IsReply() uint32 { return OpNodeLeftRightSwappedChanged }
func (*InputNodeGainChanged) IsReply() uint32        { return OpInputNodeGainChanged }
func (*NumActiveStreamsChanged) IsReply() uint32     { return OpNumActiveStreamsChanged }
func (*AtlogFdReady) IsReply() uint32                { return OpAtlogFdReady }

func newReply(id uint32) Reply {
	switch id {
	case OpConnected:
		return &Connected{}
	case OpStreamConnected:
		return &StreamConnected{}
	case OpAudioDebugInfoReady:
		return &AudioDebugInfoReady{}
	case OpGetHotwordModelsReady:
		return &HotwordModelsReady{}
	case OpOutputVolumeChanged:
		return &OutputVolumeChanged{}
	case OpOutputMuteChanged:
		return &OutputMuteChanged{}
	case OpCaptureGainChanged:
		return &CaptureGainChanged{}
	case OpCaptureMuteChanged:
		return &CaptureMuteChanged{}
	case OpNodesChanged:
		return &NodesChanged{}
	case OpActiveNodeChanged:
		return &ActiveNodeChanged{}
	case OpOutputNodeVolumeChanged:
		return &OutputNodeVolumeChanged{}
	case OpNodeLeftRightSwappedChanged:
		return &NodeLeftRightSwappedChanged{}
	case OpInputNodeGainChanged:
		return &InputNodeGainChanged{}
	case OpNumActiveStreamsChanged:
		return &NumActiveStreamsChanged{}
	case OpAtlogFdReady:
		return &AtlogFdReady{}
	}
	return nil
}

// DecodeReply decodes a complete server message, header included.
func DecodeReply(b []byte) (Reply, error) {
	r := NewReader(b)
	var h Header
	r.Decode(&h)
	if r.Err() != nil {
		return nil, &DecodeError{Reason: "short header"}
	}
	if int(h.Length) != len(b) {
		return nil, &DecodeError{ID: h.ID, Reason: fmt.Sprintf("length %d does not match received %d bytes", h.Length, len(b))}
	}
	msg := newReply(h.ID)
	if msg == nil {
		return nil, &DecodeError{ID: h.ID, Reason: "unknown message"}
	}
	t := reflect.TypeOf(msg).Elem()
	size := Size(t)
	if r.Remaining() < size || (r.Remaining() > size && !hasTrailingSlice(t)) {
		return nil, &DecodeError{ID: h.ID, Reason: fmt.Sprintf("payload of %d bytes, expected %d", r.Remaining(), size)}
	}
	if err := r.Decode(msg); err != nil {
		return nil, &DecodeError{ID: h.ID, Reason: err.Error()}
	}
	return msg, nil
}

// AudioMessage is exchanged over the per-stream audio socket.
type AudioMessage struct {
	ID     uint32
	Error  int32
	Frames uint32
}

// AudioMessageSize is the encoded size of an AudioMessage.
const AudioMessageSize = 12

// MarshalAudio encodes an audio message.
func MarshalAudio(m AudioMessage) []byte {
	var w ProtocolWriter
	w.value(reflect.ValueOf(m))
	return w.Bytes()
}

// UnmarshalAudio decodes an audio message.
func UnmarshalAudio(b []byte) (AudioMessage, error) {
	var m AudioMessage
	if len(b) != AudioMessageSize {
		return m, &DecodeError{Reason: fmt.Sprintf("audio message of %d bytes", len(b))}
	}
	NewReader(b).Decode(&m)
	switch m.ID {
	case AudioRequestData, AudioDataReady, AudioDataCaptured:
	default:
		return m, &DecodeError{ID: m.ID, Reason: "unknown audio message"}
	}
	return m, nil
}

func newRequest(id uint32) RequestArgs {
	switch id {
	case OpConnectStream:
		return &ConnectStream{}
	case OpDisconnectStream:
		return &DisconnectStream{}
	case OpSetSystemVolume:
		return &SetSystemVolume{}
	case OpSetSystemMute:
		return &SetSystemMute{}
	case OpSetUserMute:
		return &SetUserMute{}
	case OpSetSystemMuteLocked:
		return &SetSystemMuteLocked{}
	case OpSetSystemCaptureMute:
		return &SetSystemCaptureMute{}
	case OpDumpAudioThread:
		return &DumpAudioThread{}
	}
	return nil
}

// DecodeRequest decodes a complete client message, header included. It is
// used by test servers.
func DecodeRequest(b []byte) (RequestArgs, error) {
	r := NewReader(b)
	var h Header
	r.Decode(&h)
	if r.Err() != nil {
		return nil, &DecodeError{Reason: "short header"}
	}
	if int(h.Length) != len(b) {
		return nil, &DecodeError{ID: h.ID, Reason: fmt.Sprintf("length %d does not match received %d bytes", h.Length, len(b))}
	}
	msg := newRequest(h.ID)
	if msg == nil {
		return nil, &DecodeError{ID: h.ID, Reason: "unknown request"}
	}
	if size := Size(reflect.TypeOf(msg).Elem()); r.Remaining() != size {
		return nil, &DecodeError{ID: h.ID, Reason: fmt.Sprintf("payload of %d bytes, expected %d", r.Remaining(), size)}
	}
	if err := r.Decode(msg); err != nil {
		return nil, &DecodeError{ID: h.ID, Reason: err.Error()}
	}
	return msg, nil
}
