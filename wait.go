package cras

import (
	"context"
	"errors"
	"io"

	"github.com/jfreymuth/cras/proto"
)

// serverResult is a classified server message.
type serverResult interface{ isServerResult() }

type connected struct {
	id      proto.ClientID
	stateFd int
}

// streamConnected owns the descriptors that came with the reply.
type streamConnected struct {
	msg *proto.StreamConnected
	fds []int
}

type debugInfoReady struct{}

// unhandled is any other well formed message, notifications included.
type unhandled struct {
	msg proto.Reply
}

func (connected) isServerResult()       {}
func (streamConnected) isServerResult() {}
func (debugInfoReady) isServerResult()  {}
func (unhandled) isServerResult()       {}

// waitForMessage waits until conn is readable and reads exactly one
// message. The message is assumed to answer the last request; replies
// carry no request id to match.
func waitForMessage(ctx context.Context, ex Executor, conn *proto.Conn) (serverResult, error) {
	if err := ex.WaitReadable(ctx, conn); err != nil {
		return nil, waitError(err)
	}
	msg, fds, err := conn.Recv()
	if err != nil {
		proto.CloseFds(fds)
		if errors.Is(err, io.EOF) {
			return nil, ErrUnexpectedExit
		}
		var derr *proto.DecodeError
		if errors.As(err, &derr) {
			return nil, err
		}
		return nil, &TransportError{Op: "read", Err: err}
	}
	switch msg := msg.(type) {
	case *proto.Connected:
		if len(fds) != 1 {
			proto.CloseFds(fds)
			return nil, &proto.DecodeError{ID: proto.OpConnected, Reason: "missing server state descriptor"}
		}
		return connected{id: msg.ClientID, stateFd: fds[0]}, nil
	case *proto.StreamConnected:
		return streamConnected{msg: msg, fds: fds}, nil
	case *proto.AudioDebugInfoReady:
		proto.CloseFds(fds)
		return debugInfoReady{}, nil
	}
	proto.CloseFds(fds)
	return unhandled{msg: msg}, nil
}

func waitError(err error) error {
	if errors.Is(err, ErrUnexpectedExit) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &TransportError{Op: "wait", Err: err}
}

// discard releases whatever a result owns.
func discard(r serverResult) {
	switch r := r.(type) {
	case connected:
		proto.CloseFds([]int{r.stateFd})
	case streamConnected:
		proto.CloseFds(r.fds)
	}
}
