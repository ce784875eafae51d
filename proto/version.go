package proto

// ProtocolVersion is sent with every connect stream message. The server
// rejects streams whose version it does not speak.
const ProtocolVersion = 11

// StateVersion is the layout version of the server state region this
// package can decode.
const StateVersion = 2
