package proto

import (
	"bytes"
	"reflect"
)

// Array sizes of the server state region.
const (
	MaxIodevs           = 20
	MaxIonodes          = 20
	MaxAttachedClients  = 20
	MaxDebugDevs        = 4
	MaxDebugStreams     = 8
	AudioThreadLogSize  = 1024 * 6
	IodevNameSize       = 64
	NodeTypeSize        = 32
	NodeNameSize        = 64
	NodeHotwordNameSize = 16
)

// IodevInfo describes an audio device.
type IodevInfo struct {
	Idx                  uint32
	Name                 [IodevNameSize]byte
	StableID             uint32
	MaxSupportedChannels uint32
	LastOpenResult       uint32
}

// IonodeInfo describes a node, a jack or a built-in speaker or mic, of a
// device.
type IonodeInfo struct {
	IodevIdx           uint32
	IonodeIdx          uint32
	Plugged            int32
	Active             int32
	PluggedTime        Timeval
	Volume             uint32
	CaptureGain        int32
	UIGainScaler       float32
	LeftRightSwapped   int32
	TypeEnum           uint32
	StableID           uint32
	Type               [NodeTypeSize]byte
	Name               [NodeNameSize]byte
	ActiveHotwordModel [NodeHotwordNameSize]byte
	DisplayRotation    uint32
	AudioEffect        uint32
	NumVolumeSteps     int32
}

// Timeval is the usec counterpart of Timespec.
type Timeval struct {
	Sec  int64
	Usec int64
}

type AttachedClientInfo struct {
	ID  uint32
	Pid int32
	UID uint32
	GID uint32
}

// ServerState is the leading part of the state region the server shares
// with every client. The audio debug info follows it.
type ServerState struct {
	StateVersion         uint32
	Volume               uint32
	MinVolumeDBFS        int32
	MaxVolumeDBFS        int32
	Mute                 int32
	UserMute             int32
	MuteLocked           int32
	Suspended            int32
	CaptureGain          int32
	CaptureMute          int32
	CaptureMuteLocked    int32
	NumStreamsAttached   uint32
	NumOutputDevs        uint32
	NumInputDevs         uint32
	OutputDevs           [MaxIodevs]IodevInfo
	InputDevs            [MaxIodevs]IodevInfo
	NumOutputNodes       uint32
	NumInputNodes        uint32
	OutputNodes          [MaxIonodes]IonodeInfo
	InputNodes           [MaxIonodes]IonodeInfo
	NumAttachedClients   uint32
	ClientInfo           [MaxAttachedClients]AttachedClientInfo
	UpdateCount          uint32
	NumActiveStreams     [NumDirections]uint32
	LastActiveStreamTime Timespec
}

type DevDebugInfo struct {
	DevName                  [NodeNameSize]byte
	BufferSize               uint32
	MinBufferLevel           uint32
	MinCbLevel               uint32
	MaxCbLevel               uint32
	FrameRate                uint32
	NumChannels              uint32
	EstRateRatio             float64
	EstRateRatioWhenUnderrun float64
	Direction                uint8
	NumUnderruns             uint32
	NumSevereUnderruns       uint32
	HighestHwLevel           uint32
	RuntimeSec               uint32
	RuntimeNsec              uint32
	LongestWakeSec           uint32
	LongestWakeNsec          uint32
	SoftwareGainScaler       float64
	DevIdx                   uint32
}

type StreamDebugInfo struct {
	StreamID                   uint64
	DevIdx                     uint32
	Direction                  uint32
	StreamType                 uint32
	ClientType                 uint32
	BufferFrames               uint32
	CbThreshold                uint32
	Effects                    uint64
	Flags                      uint32
	FrameRate                  uint32
	NumChannels                uint32
	LongestFetchSec            uint32
	LongestFetchNsec           uint32
	NumDelayedFetches          uint32
	NumMissedCb                uint32
	NumOverruns                uint32
	IsPinned                   uint32
	PinnedDevIdx               uint32
	RuntimeSec                 uint32
	RuntimeNsec                uint32
	StreamVolume               float64
	ChannelLayout              ChannelLayout
	OverrunFrames              uint32
	DroppedSamplesDurationSec  uint32
	DroppedSamplesDurationNsec uint32
	UnderrunDurationSec        uint32
	UnderrunDurationNsec       uint32
}

type AudioThreadEvent struct {
	TagSec uint32
	Nsec   uint32
	Data1  uint32
	Data2  uint32
	Data3  uint32
}

// Tag returns the event type stored in the top byte of TagSec.
func (e AudioThreadEvent) Tag() uint8 { return uint8(e.TagSec >> 24) }

// Sec returns the seconds part of the event time.
func (e AudioThreadEvent) Sec() uint32 { return e.TagSec & 0x00FFFFFF }

type AudioThreadEventLog struct {
	WritePos     uint64
	SyncWritePos uint64
	Len          uint32
	Log          [AudioThreadLogSize]AudioThreadEvent
}

// Ordered returns the recorded events, oldest first. The log is a ring
// that wraps at Len; slots that were never written are skipped.
func (l *AudioThreadEventLog) Ordered() []AudioThreadEvent {
	n := uint64(l.Len)
	if n == 0 || n > AudioThreadLogSize {
		n = AudioThreadLogSize
	}
	pos := l.WritePos % n
	var out []AudioThreadEvent
	for i := uint64(0); i < n; i++ {
		e := l.Log[(pos+i)%n]
		if e == (AudioThreadEvent{}) {
			continue
		}
		out = append(out, e)
	}
	return out
}

type AudioDebugInfo struct {
	NumStreams uint32
	NumDevs    uint32
	Devs       [MaxDebugDevs]DevDebugInfo
	Streams    [MaxDebugStreams]StreamDebugInfo
	Log        AudioThreadEventLog
}

// Offsets within the state region.
var (
	UpdateCountOffset             = Offset(reflect.TypeOf(ServerState{}), "UpdateCount")
	AudioDebugInfoOffset          = Size(reflect.TypeOf(ServerState{}))
	DefaultOutputBufferSizeOffset = AudioDebugInfoOffset + Size(reflect.TypeOf(AudioDebugInfo{}))

	// StateMinSize is the smallest region that holds every field this
	// package reads.
	StateMinSize = DefaultOutputBufferSizeOffset + 4
)

// DecodeServerState decodes the leading part of a state region copy.
func DecodeServerState(b []byte) (*ServerState, error) {
	var s ServerState
	if err := NewReader(b).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// EncodeServerState encodes s into b, which must be at least
// AudioDebugInfoOffset bytes long. It exists for test servers.
func EncodeServerState(b []byte, s *ServerState) {
	var w ProtocolWriter
	w.value(reflect.ValueOf(s).Elem())
	copy(b, w.Bytes())
}

// DecodeAudioDebugInfo decodes the debug info part of a state region copy.
func DecodeAudioDebugInfo(b []byte) (*AudioDebugInfo, error) {
	var d AudioDebugInfo
	if len(b) < AudioDebugInfoOffset {
		return nil, errShortRead
	}
	if err := NewReader(b[AudioDebugInfoOffset:]).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// EncodeAudioDebugInfo encodes d into its place within the state region b.
func EncodeAudioDebugInfo(b []byte, d *AudioDebugInfo) {
	var w ProtocolWriter
	w.value(reflect.ValueOf(d).Elem())
	copy(b[AudioDebugInfoOffset:], w.Bytes())
}

// CString returns the contents of a NUL terminated fixed size array.
func CString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// PutCString stores s in b, truncated and NUL terminated.
func PutCString(b []byte, s string) {
	n := copy(b[:len(b)-1], s)
	clear(b[n:])
}
