package cras

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Pollable is a socket an Executor can wait on. *net.UnixConn and
// *proto.Conn implement it.
type Pollable interface {
	SyscallConn() (syscall.RawConn, error)
	SetReadDeadline(time.Time) error
}

// An Executor decides how a client waits for a socket to become readable.
// These waits are the only points where the client blocks.
type Executor interface {
	// WaitReadable returns nil once p can be read without blocking, or once
	// the peer has closed it and a read will report that.
	WaitReadable(ctx context.Context, p Pollable) error
}

// PollExecutor blocks the calling thread in poll(2). It ignores the
// context: a wait ends only when data arrives or the server hangs up.
// Closing the socket from another goroutine blocks until the wait ends.
type PollExecutor struct{}

func (PollExecutor) WaitReadable(_ context.Context, p Pollable) error {
	ok, err := pollReadable(p, -1)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnexpectedExit
	}
	return nil
}

// pollReadable waits up to timeout milliseconds, forever if timeout is
// negative. It reports false on timeout.
func pollReadable(p Pollable, timeout int) (bool, error) {
	rc, err := p.SyscallConn()
	if err != nil {
		return false, err
	}
	var revents int16
	var perr error
	err = rc.Control(func(fd uintptr) {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		for {
			_, perr = unix.Poll(pfd, timeout)
			if !errors.Is(perr, syscall.EINTR) {
				break
			}
		}
		revents = pfd[0].Revents
	})
	if err != nil {
		return false, err
	}
	if perr != nil {
		return false, fmt.Errorf("poll: %w", perr)
	}
	return readiness(revents, timeout)
}

func readiness(revents int16, timeout int) (bool, error) {
	switch {
	case revents&unix.POLLIN != 0:
		return true, nil
	case revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0:
		return false, ErrUnexpectedExit
	case timeout < 0:
		return false, ErrUnexpectedExit
	}
	return false, nil
}

// NetpollExecutor parks the calling goroutine on the Go runtime's network
// poller instead of blocking a thread. Cancelling the context ends the
// wait with the context's error.
type NetpollExecutor struct{}

var aLongTimeAgo = time.Unix(1, 0)

func (NetpollExecutor) WaitReadable(ctx context.Context, p Pollable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rc, err := p.SyscallConn()
	if err != nil {
		return err
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		p.SetReadDeadline(aLongTimeAgo)
		close(fired)
	})
	var revents int16
	var perr error
	err = rc.Read(func(fd uintptr) bool {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		_, perr = unix.Poll(pfd, 0)
		if errors.Is(perr, syscall.EINTR) {
			perr = nil
			return false
		}
		revents = pfd[0].Revents
		return perr != nil || revents != 0
	})
	if !stop() {
		<-fired
		p.SetReadDeadline(time.Time{})
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	if perr != nil {
		return fmt.Errorf("poll: %w", perr)
	}
	_, err = readiness(revents, -1)
	return err
}
