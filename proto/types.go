package proto

import "fmt"

// Sample formats, using the ALSA numbering the server expects.
const (
	FormatU8    SampleFormat = 1
	FormatS16LE SampleFormat = 2
	FormatS24LE SampleFormat = 6
	FormatS32LE SampleFormat = 10
)

// SampleFormat identifies the encoding of a single sample.
type SampleFormat int32

// BytesPerSample returns the size of one sample, or 0 for an unknown format.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16LE:
		return 2
	case FormatS24LE, FormatS32LE:
		return 4
	}
	return 0
}

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "U8"
	case FormatS16LE:
		return "S16LE"
	case FormatS24LE:
		return "S24LE"
	case FormatS32LE:
		return "S32LE"
	}
	return fmt.Sprintf("SampleFormat(%d)", int32(f))
}

// Direction is the direction of an audio stream.
type Direction uint32

const (
	DirectionOutput Direction = iota
	DirectionInput
	DirectionUndefined
	DirectionPostMixPreDSP
	NumDirections
)

func (d Direction) String() string {
	switch d {
	case DirectionOutput:
		return "playback"
	case DirectionInput:
		return "capture"
	case DirectionUndefined:
		return "undefined"
	case DirectionPostMixPreDSP:
		return "post mix pre dsp"
	}
	return fmt.Sprintf("Direction(%d)", uint32(d))
}

// StreamType tells the server what kind of audio a stream carries.
type StreamType uint32

const (
	StreamTypeDefault StreamType = iota
	StreamTypeMultimedia
	StreamTypeVoiceCommunication
	StreamTypeSpeechRecognition
	StreamTypeProAudio
	StreamTypeAccessibility
)

// ClientType identifies the kind of client to the server.
type ClientType uint32

const (
	ClientTypeUnknown ClientType = iota
	ClientTypeLegacy
	ClientTypeTest
	ClientTypePCM
	ClientTypeChrome
	ClientTypeARC
	ClientTypeCrosVM
	ClientTypeServerStream
	ClientTypeLacros
	ClientTypePlugin
	ClientTypeARCVM
	ClientTypeBorealis
	ClientTypeSoundCardInit
	numClientTypes
)

var clientTypeNames = [...]string{
	"unknown", "legacy", "test", "pcm", "chrome", "arc", "crosvm",
	"server_stream", "lacros", "plugin", "arcvm", "borealis", "sound_card_init",
}

func (t ClientType) String() string {
	if t < numClientTypes {
		return clientTypeNames[t]
	}
	return fmt.Sprintf("ClientType(%d)", uint32(t))
}

// ParseClientType is the inverse of ClientType.String.
func ParseClientType(s string) (ClientType, error) {
	for i, name := range clientTypeNames {
		if name == s {
			return ClientType(i), nil
		}
	}
	return 0, fmt.Errorf("cras: unknown client type %q", s)
}

// Effects is a bit mask of processing effects requested for a stream.
type Effects uint64

const (
	EffectEchoCancellation Effects = 1 << iota
	EffectNoiseSuppression
	EffectGainControl
	EffectVoiceDetection
	EffectDSPEchoCancellationAllowed
	EffectDSPNoiseSuppressionAllowed
	EffectDSPGainControlAllowed
	EffectIgnoreUIGains
)

// EffectSet combines a list of effects into a mask.
func EffectSet(effects ...Effects) Effects {
	var e Effects
	for _, f := range effects {
		e |= f
	}
	return e
}

// Has reports whether all effects in f are set in e.
func (e Effects) Has(f Effects) bool { return e&f == f }

// Special device indices.
const (
	NoDevice uint32 = iota
	SilentRecordDevice
	SilentPlaybackDevice
	SilentHotwordDevice
)

// ClientID is the identifier the server assigns to a connected client.
type ClientID uint32

// A StreamID identifies a stream within the server. The upper 16 bits hold
// the id of the client that owns the stream, the lower 16 bits a counter
// local to that client.
type StreamID uint32

// NewStreamID combines a client id and a per-client stream counter.
func NewStreamID(client ClientID, index uint16) StreamID {
	return StreamID(uint32(client)<<16 | uint32(index))
}

// Client returns the id of the client that owns the stream.
func (id StreamID) Client() ClientID { return ClientID(id >> 16) }

// Index returns the per-client part of the id.
func (id StreamID) Index() uint16 { return uint16(id) }

func (id StreamID) String() string { return fmt.Sprintf("%#x", uint32(id)) }

// Channel positions used in channel layouts.
const (
	ChannelFL = iota
	ChannelFR
	ChannelRL
	ChannelRR
	ChannelFC
	ChannelLFE
	ChannelSL
	ChannelSR
	ChannelRC
	ChannelFLC
	ChannelFRC
	ChannelMax
)

// A ChannelLayout maps channel positions to indices within a frame;
// -1 marks an unused position.
type ChannelLayout [ChannelMax]int8

// DefaultChannelLayout returns the layout the server assumes for n
// channels: the first n positions in order.
func DefaultChannelLayout(n int) ChannelLayout {
	var l ChannelLayout
	for i := range l {
		if i < n {
			l[i] = int8(i)
		} else {
			l[i] = -1
		}
	}
	return l
}

// AudioFormat describes the samples of a stream.
type AudioFormat struct {
	Format      SampleFormat
	FrameRate   uint32
	NumChannels uint32
	Layout      ChannelLayout
}

// NewAudioFormat returns a format with the default channel layout.
func NewAudioFormat(format SampleFormat, rate uint32, channels int) AudioFormat {
	return AudioFormat{
		Format:      format,
		FrameRate:   rate,
		NumChannels: uint32(channels),
		Layout:      DefaultChannelLayout(channels),
	}
}

// FrameBytes returns the size of one frame.
func (f AudioFormat) FrameBytes() int {
	return f.Format.BytesPerSample() * int(f.NumChannels)
}

func (f AudioFormat) String() string {
	return fmt.Sprintf("%s %dHz %dch", f.Format, f.FrameRate, f.NumChannels)
}

// Timespec is the architecture independent timespec used in shared memory.
type Timespec struct {
	Sec  int64
	Nsec int64
}
