package cras

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/jfreymuth/cras/internal/crastest"
	"github.com/jfreymuth/cras/proto"
)

func openPlayback(t *testing.T, c *Client, srv *crastest.Server, opts ...crastest.AcceptOption) (*PlaybackStream, *crastest.Stream) {
	t.Helper()
	var st *crastest.Stream
	srv.Go(func() { st = srv.Accept(opts...) })
	p, err := c.NewPlaybackStream(2, proto.FormatS16LE, 44100, 256)
	srv.Wait()
	require.NoError(t, err)
	require.NotNil(t, st)
	t.Cleanup(func() { p.Close() })
	return p, st
}

func TestPlaybackStream(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)

	req := st.Request
	assert.Equal(t, uint32(proto.ProtocolVersion), req.ProtoVersion)
	assert.Equal(t, proto.DirectionOutput, req.Direction)
	assert.Equal(t, proto.NewStreamID(testClientID, 0), req.StreamID)
	assert.Equal(t, uint32(256), req.BufferFrames)
	assert.Equal(t, uint32(256), req.CbThreshold)
	assert.Equal(t, proto.NewAudioFormat(proto.FormatS16LE, 44100, 2), req.Format)
	assert.Equal(t, proto.NoDevice, req.DevIdx)
	assert.Zero(t, req.ClientShmSize)

	assert.Equal(t, req.StreamID, p.ID())
	assert.Equal(t, 4, p.FrameSize())
	assert.Equal(t, 44100, p.FrameRate())
	assert.Equal(t, 2, p.Channels())
	assert.Equal(t, 256, p.BlockSize())
	assert.Equal(t, 512, p.Capacity())
	assert.Equal(t, proto.DirectionOutput, p.Direction())

	st.RequestData(256)
	buf, err := p.NextBuffer()
	require.NoError(t, err)
	assert.Equal(t, 256, buf.Frames())
	assert.Equal(t, 4, buf.FrameSize())
	require.Len(t, buf.Bytes(), 1024)
	for i := range buf.Bytes() {
		buf.Bytes()[i] = byte(i)
	}
	require.NoError(t, buf.Close())
	assert.Equal(t, uint32(256), st.ExpectAudio(proto.AudioDataReady))
	assert.Equal(t, uint32(256), st.Header().WriteOffset())
	assert.Equal(t, byte(200), st.Samples()[200])

	// closing again does nothing
	require.NoError(t, buf.Close())
	_, err = buf.Write([]byte{1})
	assert.ErrorIs(t, err, ErrBufferReleased)
}

func TestPlaybackRingWrap(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv, crastest.Capacity(300))
	assert.Equal(t, 300, p.Capacity())

	st.RequestData(256)
	buf, err := p.NextBuffer()
	require.NoError(t, err)
	assert.Equal(t, 256, buf.Frames())
	require.NoError(t, buf.Commit(256))
	assert.Equal(t, uint32(256), st.ExpectAudio(proto.AudioDataReady))

	// only 44 frames are left before the end of the ring
	st.RequestData(256)
	buf, err = p.NextBuffer()
	require.NoError(t, err)
	assert.Equal(t, 44, buf.Frames())
	buf.Bytes()[0] = 0x7F
	assert.Equal(t, byte(0x7F), st.Samples()[256*4])
	require.NoError(t, buf.Commit(44))
	assert.Equal(t, uint32(44), st.ExpectAudio(proto.AudioDataReady))
	assert.Equal(t, uint32(0), st.Header().WriteOffset())

	st.RequestData(10)
	buf, err = p.NextBuffer()
	require.NoError(t, err)
	assert.Equal(t, 10, buf.Frames())
	assert.Equal(t, byte(0), buf.Bytes()[0])
}

func TestPlaybackCommitProgress(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)

	st.RequestData(100)
	buf, err := p.NextBuffer()
	require.NoError(t, err)
	assert.Equal(t, 100, buf.Frames())
	n, err := buf.Write(make([]byte, 42))
	require.NoError(t, err)
	assert.Equal(t, 42, n)
	// ten full frames were written, the partial frame is dropped
	require.NoError(t, buf.Close())
	assert.Equal(t, uint32(10), st.ExpectAudio(proto.AudioDataReady))
	assert.Equal(t, uint32(10), st.Header().WriteOffset())

	st.RequestData(4)
	buf, err = p.NextBuffer()
	require.NoError(t, err)
	n, err = buf.Write(make([]byte, 20))
	assert.Equal(t, 16, n)
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Panics(t, func() { buf.Commit(5) })
	assert.Panics(t, func() { buf.Commit(-1) })
	require.NoError(t, buf.Commit(0))
	assert.Equal(t, uint32(0), st.ExpectAudio(proto.AudioDataReady))
}

func TestPlaybackFill(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)

	st.RequestData(8)
	buf, err := p.NextBuffer()
	require.NoError(t, err)
	n, err := buf.Fill(io.LimitReader(zeros{}, 12))
	assert.Equal(t, 12, n)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, buf.Close())
	assert.Equal(t, uint32(3), st.ExpectAudio(proto.AudioDataReady))
}

func TestEmptyTransferCommitsNothing(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)

	st.RequestData(256)
	buf, err := p.NextBuffer()
	require.NoError(t, err)
	n, err := buf.Fill(bytes.NewReader(nil))
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, buf.Close())
	assert.Equal(t, uint32(0), st.ExpectAudio(proto.AudioDataReady))
	assert.Equal(t, uint32(0), st.Header().WriteOffset())

	// a playback buffer that was never written to is committed whole
	st.RequestData(256)
	buf, err = p.NextBuffer()
	require.NoError(t, err)
	require.NoError(t, buf.Close())
	assert.Equal(t, uint32(256), st.ExpectAudio(proto.AudioDataReady))
}

func TestFailedWriteToCommitsNothing(t *testing.T) {
	c, srv := newTestClient(t, ClientCapture(true))
	var st *crastest.Stream
	srv.Go(func() { st = srv.Accept() })
	src, err := c.NewCaptureStream(1, proto.FormatS16LE, 16000, 160)
	srv.Wait()
	require.NoError(t, err)
	defer src.Close()

	st.DataReady(160)
	buf, err := src.NextBuffer()
	require.NoError(t, err)
	n, err := buf.WriteTo(failingWriter{})
	assert.Zero(t, n)
	assert.ErrorIs(t, err, errDiskFull)
	require.NoError(t, buf.Close())
	assert.Equal(t, uint32(0), st.ExpectAudio(proto.AudioDataCaptured))
	assert.Equal(t, uint32(0), st.Header().ReadOffset())
}

var errDiskFull = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errDiskFull }

func TestSampleFormatChecked(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)

	st.RequestData(16)
	buf, err := p.NextBuffer()
	require.NoError(t, err)
	_, err = buf.Fill(Int32Reader(func(s []int32) (int, error) { return len(s), nil }))
	assert.ErrorIs(t, err, ErrSampleFormat)
	n, err := buf.Fill(Int16Reader(func(s []int16) (int, error) {
		clear(s)
		return len(s), nil
	}))
	require.NoError(t, err)
	assert.Equal(t, 64, n)
	require.NoError(t, buf.Close())
	assert.Equal(t, uint32(16), st.ExpectAudio(proto.AudioDataReady))
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestNextBufferReleasesOutstanding(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)

	st.RequestData(64)
	first, err := p.NextBuffer()
	require.NoError(t, err)

	st.RequestData(64)
	_, err = p.NextBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(64), st.ExpectAudio(proto.AudioDataReady))
	_, err = first.Write([]byte{0})
	assert.ErrorIs(t, err, ErrBufferReleased)

	// closing the stream releases the second buffer
	require.NoError(t, p.Close())
	assert.Equal(t, uint32(64), st.ExpectAudio(proto.AudioDataReady))
	st.ExpectClosed()
	crastest.Expect[*proto.DisconnectStream](srv)
}

func TestStreamIDsNotReused(t *testing.T) {
	c, srv := newTestClient(t)
	var ids []proto.StreamID
	for i := 0; i < 3; i++ {
		var st *crastest.Stream
		srv.Go(func() {
			if i > 0 {
				crastest.Expect[*proto.DisconnectStream](srv)
			}
			st = srv.Accept()
		})
		p, err := c.NewPlaybackStream(1, proto.FormatS16LE, 48000, 128)
		srv.Wait()
		require.NoError(t, err)
		ids = append(ids, st.ID())
		require.NoError(t, p.Close())
	}
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1])
	}
}

func TestClosedStream(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	st.ExpectClosed()

	_, err := p.NextBuffer()
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.Zero(t, p.Overruns())
	assert.True(t, p.Timestamp().IsZero())
}

func TestServerClosesStream(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)
	st.Hangup()

	_, err := p.NextBuffer()
	assert.ErrorIs(t, err, ErrUnexpectedExit)

	_, err = p.NextBuffer()
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.ErrorIs(t, err, ErrUnexpectedExit)
}

func TestCommitFailure(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)

	st.RequestData(16)
	buf, err := p.NextBuffer()
	require.NoError(t, err)
	st.Hangup()
	err = buf.Close()
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, syscall.EPIPE)

	_, err = p.NextBuffer()
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.ErrorIs(t, err, syscall.EPIPE)
}

func TestAudioMessageErrors(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)

	st.DataReady(16)
	_, err := p.NextBuffer()
	assert.ErrorIs(t, err, ErrMessageType)

	st.SendAudio(proto.AudioMessage{ID: proto.AudioRequestData, Error: -int32(unix.EIO)})
	_, err = p.NextBuffer()
	assert.ErrorIs(t, err, syscall.EIO)

	// the stream survives both
	st.RequestData(16)
	buf, err := p.NextBuffer()
	require.NoError(t, err)
	assert.Equal(t, 16, buf.Frames())
}

func TestStreamTimestampAndOverruns(t *testing.T) {
	c, srv := newTestClient(t)
	p, st := openPlayback(t, c, srv)
	st.Header().AddOverrun(12)
	assert.Equal(t, uint32(1), p.Overruns())
	assert.True(t, p.Timestamp().IsZero())
}

func TestStreamOptions(t *testing.T) {
	c, srv := newTestClient(t, ClientType(proto.ClientTypeTest), ClientStreamType(proto.StreamTypeProAudio))
	layout := proto.DefaultChannelLayout(2)
	layout[proto.ChannelFL], layout[proto.ChannelFR] = 1, 0

	var st *crastest.Stream
	srv.Go(func() { st = srv.Accept() })
	p, err := c.NewPlaybackStream(2, proto.FormatS32LE, 48000, 480,
		StreamDevice(7),
		StreamEffects(proto.EffectEchoCancellation, proto.EffectNoiseSuppression),
		StreamChannelLayout(layout))
	srv.Wait()
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, uint32(7), st.Request.DevIdx)
	assert.Equal(t, proto.EffectEchoCancellation|proto.EffectNoiseSuppression, st.Request.Effects)
	assert.Equal(t, layout, st.Request.Format.Layout)
	assert.Equal(t, proto.ClientTypeTest, st.Request.ClientType)
	assert.Equal(t, proto.StreamTypeProAudio, st.Request.StreamType)
	assert.Equal(t, 8, p.FrameSize())
}

func TestInvalidStreamParameters(t *testing.T) {
	c, _ := newTestClient(t)
	assert.Panics(t, func() { c.NewPlaybackStream(0, proto.FormatS16LE, 48000, 256) })
	assert.Panics(t, func() { c.NewPlaybackStream(proto.ChannelMax+1, proto.FormatS16LE, 48000, 256) })
	assert.Panics(t, func() { c.NewPlaybackStream(2, proto.SampleFormat(42), 48000, 256) })
	assert.Panics(t, func() { c.NewPlaybackStream(2, proto.FormatS16LE, 48000, 0) })
	assert.Panics(t, func() { c.NewPlaybackStream(2, proto.FormatS16LE, 0, 256) })
	// a capture-disabled client checks the rate before substituting silence
	assert.Panics(t, func() { c.NewCaptureStream(2, proto.FormatS16LE, 0, 256) })
	assert.Panics(t, func() { NewNullShmStream(proto.DirectionInput, 2, proto.FormatS16LE, 0, 256) })
}

func TestStreamSetupErrors(t *testing.T) {
	tests := []struct {
		name  string
		opt   crastest.AcceptOption
		check func(t *testing.T, err error)
	}{
		{"refused", crastest.Refuse(unix.EINVAL), func(t *testing.T, err error) {
			assert.ErrorIs(t, err, syscall.EINVAL)
		}},
		{"rate", crastest.ChangeFormat(func(f *proto.AudioFormat) { f.FrameRate = 48000 }), func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrFormatMismatch)
		}},
		{"channels", crastest.ChangeFormat(func(f *proto.AudioFormat) { f.NumChannels = 1 }), func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrFormatMismatch)
		}},
		{"descriptors", crastest.AttachFds(1), func(t *testing.T, err error) {
			assert.ErrorContains(t, err, "descriptors")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, srv := newTestClient(t)
			srv.Go(func() { srv.Accept(tt.opt) })
			_, err := c.NewPlaybackStream(2, proto.FormatS16LE, 44100, 256)
			srv.Wait()
			var serr *StreamSetupError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, proto.NewStreamID(testClientID, 0), serr.StreamID)
			tt.check(t, err)

			// the failed stream's id is not handed out again
			id, err := c.nextStreamID()
			require.NoError(t, err)
			assert.Equal(t, uint16(1), id.Index())
		})
	}
}

func TestHandshakeSkipsUnrelatedMessages(t *testing.T) {
	c, srv := newTestClient(t)
	var st *crastest.Stream
	srv.Go(func() {
		msg, fds := srv.Read()
		req := msg.(*proto.ConnectStream)
		srv.Send(&proto.OutputVolumeChanged{Volume: 10})
		srv.Send(&proto.NodesChanged{})
		srv.Send(&proto.StreamConnected{StreamID: req.StreamID + 1, Format: req.Format})
		st = srv.AcceptRequest(req, fds)
	})
	p, err := c.NewPlaybackStream(2, proto.FormatS16LE, 44100, 256)
	srv.Wait()
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, st.ID(), p.ID())
}

func TestHandshakeServerGone(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Go(func() {
		msg, fds := srv.Read()
		proto.CloseFds(fds)
		assert.IsType(t, &proto.ConnectStream{}, msg)
		srv.Hangup()
	})
	_, err := c.NewPlaybackStream(2, proto.FormatS16LE, 44100, 256)
	srv.Wait()
	assert.ErrorIs(t, err, ErrUnexpectedExit)
}

func TestCaptureStream(t *testing.T) {
	c, srv := newTestClient(t, ClientCapture(true))
	var st *crastest.Stream
	srv.Go(func() { st = srv.Accept() })
	src, err := c.NewCaptureStream(1, proto.FormatS16LE, 16000, 160)
	srv.Wait()
	require.NoError(t, err)
	defer src.Close()
	cs, ok := src.(*CaptureStream)
	require.True(t, ok)
	assert.Equal(t, proto.DirectionInput, st.Request.Direction)

	for i := range 320 {
		st.Samples()[i] = byte(i)
	}
	st.DataReady(160)
	buf, err := cs.NextBuffer()
	require.NoError(t, err)
	assert.Equal(t, 160, buf.Frames())
	p := make([]byte, 100)
	n, err := buf.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, byte(99), p[99])
	// fifty frames were read
	require.NoError(t, buf.Close())
	assert.Equal(t, uint32(50), st.ExpectAudio(proto.AudioDataCaptured))
	assert.Equal(t, uint32(50), st.Header().ReadOffset())

	st.DataReady(160)
	buf, err = cs.NextBuffer()
	require.NoError(t, err)
	assert.Equal(t, 160, buf.Frames())
	assert.Equal(t, byte(100), buf.Bytes()[0])
	var sink counter
	_, err = buf.WriteTo(&sink)
	require.NoError(t, err)
	assert.Equal(t, 320, int(sink))
	n, err = buf.Read(p)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, buf.Close())
	assert.Equal(t, uint32(160), st.ExpectAudio(proto.AudioDataCaptured))

	st.RequestData(16)
	_, err = cs.NextBuffer()
	assert.ErrorIs(t, err, ErrMessageType)
}

type counter int

func (c *counter) Write(p []byte) (int, error) {
	*c += counter(len(p))
	return len(p), nil
}

func TestCaptureDisabled(t *testing.T) {
	c, srv := newTestClient(t)
	src, err := c.NewCaptureStream(2, proto.FormatS16LE, 48000, 480)
	require.NoError(t, err)
	defer src.Close()
	noop, ok := src.(*NoopCaptureStream)
	require.True(t, ok)
	srv.ExpectIdle()
	assert.Equal(t, 480, noop.BlockSize())

	buf, err := noop.NextBuffer()
	require.NoError(t, err)
	assert.Equal(t, 480, buf.Frames())
	assert.Len(t, buf.Bytes(), 480*4)
	for _, b := range buf.Bytes() {
		require.Zero(t, b)
	}
	require.NoError(t, buf.Commit(100))
	assert.Equal(t, uint64(100), noop.Frames())

	buf, err = noop.NextBuffer()
	require.NoError(t, err)
	require.NoError(t, noop.Close())
	assert.Equal(t, uint64(580), noop.Frames())
	_, err = noop.NextBuffer()
	assert.ErrorIs(t, err, ErrStreamClosed)
	_, err = buf.Read(make([]byte, 4))
	assert.ErrorIs(t, err, ErrBufferReleased)
}

func TestPinnedCaptureWithoutCapture(t *testing.T) {
	c, _ := newTestClient(t)
	assert.Panics(t, func() {
		c.NewCaptureStream(2, proto.FormatS16LE, 48000, 480, StreamDevice(3))
	})
}

func ExamplePlaybackStream() {
	c, err := NewClient()
	if err != nil {
		fmt.Println(err)
		return
	}
	defer c.Close()
	p, err := c.NewPlaybackStream(2, proto.FormatS16LE, 48000, 480)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer p.Close()
	for range 100 {
		buf, err := p.NextBuffer()
		if errors.Is(err, ErrUnexpectedExit) {
			fmt.Println("server exited")
			return
		} else if err != nil {
			fmt.Println(err)
			return
		}
		clear(buf.Bytes())
		buf.Close()
	}
}
