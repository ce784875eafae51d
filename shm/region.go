// Package shm maps the shared memory regions exchanged with the audio
// server.
package shm

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned when accessing an unmapped region.
var ErrClosed = errors.New("shm: region is closed")

// A Region is a shared memory mapping.
type Region struct {
	b        []byte
	writable bool
}

// Map maps size bytes of fd. The descriptor may be closed afterwards.
func Map(fd int, size int, writable bool) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid size %d", size)
	}
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	b, err := unix.Mmap(fd, 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	return &Region{b: b, writable: writable}, nil
}

// MapFile maps the whole file behind fd and closes fd, also on failure.
func MapFile(fd int, writable bool) (*Region, error) {
	defer unix.Close(fd)
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, fmt.Errorf("shm: fstat: %w", err)
	}
	return Map(fd, int(st.Size), writable)
}

// Bytes returns the mapped memory. It must not be used after Close.
func (r *Region) Bytes() []byte { return r.b }

func (r *Region) Len() int { return len(r.b) }

func (r *Region) Writable() bool { return r.writable }

// Snapshot copies the region.
func (r *Region) Snapshot() []byte {
	return append([]byte(nil), r.b...)
}

// LoadUint32 atomically reads the 32 bit word at off, which must be
// aligned.
func (r *Region) LoadUint32(off int) uint32 {
	return atomic.LoadUint32(r.word(off))
}

// StoreUint32 atomically writes the 32 bit word at off.
func (r *Region) StoreUint32(off int, v uint32) {
	atomic.StoreUint32(r.word(off), v)
}

func (r *Region) word(off int) *uint32 {
	if off%4 != 0 || off+4 > len(r.b) {
		panic(fmt.Sprintf("shm: bad word offset %d", off))
	}
	return (*uint32)(unsafe.Pointer(&r.b[off]))
}

// Close unmaps the region. Closing twice is a no-op.
func (r *Region) Close() error {
	if r.b == nil {
		return nil
	}
	err := unix.Munmap(r.b)
	r.b = nil
	return err
}

// Memory is anonymous shared memory owned by this process, for streams
// whose samples live in client memory and for test servers.
type Memory struct {
	f    *os.File
	size int64
}

// NewMemory creates a memory file of the given size.
func NewMemory(name string, size int64) (*Memory, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: ftruncate: %w", err)
	}
	return &Memory{f: os.NewFile(uintptr(fd), name), size: size}, nil
}

func (m *Memory) Fd() int { return int(m.f.Fd()) }

func (m *Memory) Size() int64 { return m.size }

// Map maps the whole memory file.
func (m *Memory) Map(writable bool) (*Region, error) {
	return Map(m.Fd(), int(m.size), writable)
}

// Dup returns a new descriptor for the memory file, for sending it to
// another process.
func (m *Memory) Dup() (int, error) {
	return unix.FcntlInt(m.f.Fd(), unix.F_DUPFD_CLOEXEC, 0)
}

func (m *Memory) Close() error { return m.f.Close() }
