package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// A source produces interleaved 16-bit samples.
type source interface {
	SampleRate() int
	Channels() int
	// ReadSamples has the semantics of io.Reader's Read, counted in
	// samples.
	ReadSamples(p []int16) (int, error)
}

func openSource(path string, r io.ReadSeeker) (source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return newWavSource(r)
	case ".mp3":
		return newMP3Source(r)
	case ".ogg", ".oga":
		return newOggSource(r)
	}
	return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
}

type wavSource struct {
	d   *wav.Decoder
	buf *audio.IntBuffer
}

func newWavSource(r io.ReadSeeker) (*wavSource, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("invalid wav file")
	}
	if d.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported wav bit depth %d, want 16", d.BitDepth)
	}
	if err := d.FwdToPCM(); err != nil {
		return nil, err
	}
	return &wavSource{d: d, buf: &audio.IntBuffer{Format: d.Format(), SourceBitDepth: 16}}, nil
}

func (s *wavSource) SampleRate() int { return int(s.d.SampleRate) }
func (s *wavSource) Channels() int   { return int(s.d.NumChans) }

func (s *wavSource) ReadSamples(p []int16) (int, error) {
	if cap(s.buf.Data) < len(p) {
		s.buf.Data = make([]int, len(p))
	}
	s.buf.Data = s.buf.Data[:len(p)]
	n, err := s.d.PCMBuffer(s.buf)
	for i, v := range s.buf.Data[:n] {
		p[i] = int16(v)
	}
	if n == 0 && err == nil {
		err = io.EOF
	}
	return n, err
}

// mp3Source reads the decoder's output, which is always 16-bit little
// endian stereo.
type mp3Source struct {
	d     *mp3.Decoder
	bytes []byte
}

func newMP3Source(r io.Reader) (*mp3Source, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &mp3Source{d: d}, nil
}

func (s *mp3Source) SampleRate() int { return s.d.SampleRate() }
func (s *mp3Source) Channels() int   { return 2 }

func (s *mp3Source) ReadSamples(p []int16) (int, error) {
	if cap(s.bytes) < 2*len(p) {
		s.bytes = make([]byte, 2*len(p))
	}
	b := s.bytes[:2*len(p)]
	n, err := io.ReadFull(s.d, b)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	for i := range n / 2 {
		p[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return n / 2, err
}

type oggSource struct {
	r   *oggvorbis.Reader
	buf []float32
}

func newOggSource(r io.Reader) (*oggSource, error) {
	or, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &oggSource{r: or}, nil
}

func (s *oggSource) SampleRate() int { return s.r.SampleRate() }
func (s *oggSource) Channels() int   { return s.r.Channels() }

func (s *oggSource) ReadSamples(p []int16) (int, error) {
	if cap(s.buf) < len(p) {
		s.buf = make([]float32, len(p))
	}
	buf := s.buf[:len(p)]
	n, err := s.r.Read(buf)
	for i, v := range buf[:n] {
		p[i] = floatToInt16(v)
	}
	return n, err
}

func floatToInt16(v float32) int16 {
	v = max(-1, min(1, v))
	return int16(math.Round(float64(v) * math.MaxInt16))
}
