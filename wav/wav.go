// Package wav writes rendered signal into wav files and loads samples
// from them.
package wav

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/dudk/phonograph/signal"
)

// pcmFormat is wav audio format for integer PCM.
const pcmFormat = 1

// Sink saves audio to wav file.
type Sink struct {
	path     string
	bitDepth signal.BitDepth
	file     *os.File
	encoder  *wav.Encoder
}

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")
	// ErrInvalidFile is returned when file is not a valid wav.
	ErrInvalidFile = errors.New("wav is not valid")
)

func supported(bitDepth signal.BitDepth) bool {
	switch bitDepth {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
		return true
	}
	return false
}

// NewSink creates new wav sink.
func NewSink(path string, bitDepth signal.BitDepth) (*Sink, error) {
	if !supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	return &Sink{
		path:     path,
		bitDepth: bitDepth,
	}, nil
}

// Sink creates the file and returns function which encodes every block.
func (s *Sink) Sink(sampleRate, numChannels int) (func(signal.Float64) error, error) {
	f, err := os.Create(s.path)
	if err != nil {
		return nil, err
	}
	s.file = f
	s.encoder = wav.NewEncoder(f, sampleRate, int(s.bitDepth), numChannels, pcmFormat)
	ib := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: int(s.bitDepth),
	}
	return func(b signal.Float64) error {
		ib.Data = b.AsInterInt(s.bitDepth)
		return s.encoder.Write(ib)
	}, nil
}

// Flush finalizes wav header and closes the file.
func (s *Sink) Flush() error {
	if s.encoder == nil {
		return nil
	}
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// Load reads the whole wav file. It returns non-interleaved signal and
// its sample rate.
func Load(path string) (signal.Float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, fmt.Errorf("%v: %w", path, ErrInvalidFile)
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	if bitDepth != signal.BitDepth8 && !supported(bitDepth) {
		return nil, 0, fmt.Errorf("%v: %w", path, ErrUnsupportedBitDepth)
	}
	ib, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%v: %w", path, err)
	}
	numChannels := decoder.Format().NumChannels
	b := signal.InterInt{
		Data:        ib.Data,
		NumChannels: numChannels,
		BitDepth:    bitDepth,
	}.AsFloat64()
	return b, int(decoder.SampleRate), nil
}
