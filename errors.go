package cras

import (
	"errors"
	"fmt"

	"github.com/jfreymuth/cras/proto"
)

var (
	// ErrUnexpectedExit is returned when the server closes a socket while
	// the client is waiting for a message.
	ErrUnexpectedExit = errors.New("cras: connection closed unexpectedly")
	// ErrMessageType is returned when the server answers with a message of
	// the wrong kind.
	ErrMessageType = errors.New("cras: unexpected message type")
	// ErrStreamClosed is returned by operations on a closed stream.
	ErrStreamClosed = errors.New("cras: stream closed")
	// ErrFormatMismatch is returned when the server connects a stream with
	// a format other than the requested one.
	ErrFormatMismatch = errors.New("cras: server changed the stream format")
	// ErrBufferReleased is returned when using a buffer after it was
	// committed.
	ErrBufferReleased = errors.New("cras: buffer already released")
	// ErrSampleFormat is returned when a Reader or Writer does not use the
	// sample format of the stream.
	ErrSampleFormat = errors.New("cras: sample format does not match the stream")
	// ErrStreamIDsExhausted is returned when a client has used up its
	// stream ids.
	ErrStreamIDsExhausted = errors.New("cras: no stream ids left")
)

// A TransportError is returned when reading from or writing to a socket
// fails.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return "cras: " + e.Op + ": " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// A StreamSetupError is returned when the server refuses a stream or the
// stream's shared memory cannot be used.
type StreamSetupError struct {
	StreamID proto.StreamID
	Err      error
}

func (e *StreamSetupError) Error() string {
	return fmt.Sprintf("cras: setting up stream %s: %v", e.StreamID, e.Err)
}

func (e *StreamSetupError) Unwrap() error { return e.Err }
