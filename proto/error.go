package proto

import (
	"errors"
	"fmt"
	"syscall"
)

var errShortRead = errors.New("short read")

// A DecodeError is returned for messages that cannot be interpreted.
type DecodeError struct {
	ID     uint32
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cras: cannot decode %s message (%d): %s", opName(e.ID), e.ID, e.Reason)
}

// Errno converts an error code sent by the server. The server sends
// negative errno values; zero means success.
func Errno(code int32) error {
	if code == 0 {
		return nil
	}
	if code < 0 {
		code = -code
	}
	return syscall.Errno(code)
}
