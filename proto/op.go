package proto

// Messages sent from the client to the server.
const (
	OpConnectStream         = 0
	OpDisconnectStream      = 1
	OpSwitchStreamTypeIodev = 2
	OpSetSystemVolume       = 3
	OpSetSystemMute         = 4
	OpSetUserMute           = 5
	OpSetSystemMuteLocked   = 6
	OpSetSystemCaptureGain  = 7
	OpSetSystemCaptureMute  = 8
	OpSetCaptureMuteLocked  = 9
	OpSetNodeAttr           = 10
	OpSelectNode            = 11
	OpReloadDSP             = 12
	OpDumpDSPInfo           = 13
	OpDumpAudioThread       = 14
	OpDumpSnapshots         = 15
	OpAddActiveNode         = 16
	OpRemoveActiveNode      = 17
	OpAddTestDev            = 18
	OpTestDevCommand        = 19
	OpSuspend               = 20
	OpResume                = 21
	OpConfigGlobalRemix     = 22
	OpGetHotwordModels      = 23
	OpSetHotwordModel       = 24
	OpRegisterNotification  = 25
	OpSetAECDump            = 26
	OpReloadAECConfig       = 27
	OpDumpBT                = 28
	OpSetBTWBSEnabled       = 29
	OpGetAtlogFd            = 30
	OpDumpMain              = 31
)

// Messages sent from the server to the client. Ids 4 to 13 are
// notifications the server sends to clients that registered for them.
const (
	OpConnected                   = 0
	OpStreamConnected             = 1
	OpAudioDebugInfoReady         = 2
	OpGetHotwordModelsReady       = 3
	OpOutputVolumeChanged         = 4
	OpOutputMuteChanged           = 5
	OpCaptureGainChanged          = 6
	OpCaptureMuteChanged          = 7
	OpNodesChanged                = 8
	OpActiveNodeChanged           = 9
	OpOutputNodeVolumeChanged     = 10
	OpNodeLeftRightSwappedChanged = 11
	OpInputNodeGainChanged        = 12
	OpNumActiveStreamsChanged     = 13
	OpAtlogFdReady                = 14
)

// Messages exchanged over a per-stream audio socket.
const (
	AudioRequestData  = 0 // server -> client, playback
	AudioDataReady    = 1 // client -> server for playback, server -> client for capture
	AudioDataCaptured = 2 // client -> server, capture
)

// opName is used in error messages.
func opName(op uint32) string {
	switch op {
	case OpConnected:
		return "connected"
	case OpStreamConnected:
		return "stream connected"
	case OpAudioDebugInfoReady:
		return "audio debug info ready"
	case OpGetHotwordModelsReady:
		return "hotword models ready"
	case OpOutputVolumeChanged:
		return "output volume changed"
	case OpOutputMuteChanged:
		return "output mute changed"
	case OpCaptureGainChanged:
		return "capture gain changed"
	case OpCaptureMuteChanged:
		return "capture mute changed"
	case OpNodesChanged:
		return "nodes changed"
	case OpActiveNodeChanged:
		return "active node changed"
	case OpOutputNodeVolumeChanged:
		return "output node volume changed"
	case OpNodeLeftRightSwappedChanged:
		return "node left right swapped changed"
	case OpInputNodeGainChanged:
		return "input node gain changed"
	case OpNumActiveStreamsChanged:
		return "num active streams changed"
	case OpAtlogFdReady:
		return "atlog fd ready"
	}
	return "unknown"
}
