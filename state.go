package cras

import (
	"fmt"
	"runtime"

	"github.com/jfreymuth/cras/proto"
	"github.com/jfreymuth/cras/shm"
)

// maxStateReads bounds the retries of a torn state read. After that the
// last copy is used as is.
const maxStateReads = 16

// serverState is the read only state region shared by the server.
//
// The server increments update_count before and after every change, so
// the count is odd while an update is in progress. A copy is coherent if
// the count was even and unchanged across it.
type serverState struct {
	r *shm.Region
}

func newServerState(fd int) (*serverState, error) {
	r, err := shm.MapFile(fd, false)
	if err != nil {
		return nil, err
	}
	if r.Len() < proto.StateMinSize {
		r.Close()
		return nil, fmt.Errorf("cras: server state region of %d bytes, need %d", r.Len(), proto.StateMinSize)
	}
	s := &serverState{r: r}
	if v := r.LoadUint32(0); v != proto.StateVersion {
		r.Close()
		return nil, fmt.Errorf("cras: server state version %d, want %d", v, proto.StateVersion)
	}
	return s, nil
}

// read copies the first n bytes of the region.
func (s *serverState) read(n int) []byte {
	b := s.r.Bytes()
	buf := make([]byte, n)
	for i := 0; i < maxStateReads; i++ {
		before := s.r.LoadUint32(proto.UpdateCountOffset)
		if before&1 != 0 {
			runtime.Gosched()
			continue
		}
		copy(buf, b[:n])
		if s.r.LoadUint32(proto.UpdateCountOffset) == before {
			return buf
		}
	}
	copy(buf, b[:n])
	return buf
}

func (s *serverState) snapshot() *proto.ServerState {
	st, err := proto.DecodeServerState(s.read(proto.AudioDebugInfoOffset))
	if err != nil {
		// the region size is checked when mapping
		panic(err)
	}
	return st
}

func (s *serverState) debugInfo() (*proto.AudioDebugInfo, error) {
	return proto.DecodeAudioDebugInfo(s.read(proto.DefaultOutputBufferSizeOffset))
}

func (s *serverState) defaultOutputBufferSize() int32 {
	return int32(s.r.LoadUint32(proto.DefaultOutputBufferSizeOffset))
}

func (s *serverState) close() error { return s.r.Close() }
