// Package mp3 encodes rendered signal into mp3 files with lame.
package mp3

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/viert/lame"

	"github.com/dudk/phonograph/signal"
)

// Sink allows to send data to mp3 files.
type Sink struct {
	path    string
	bitRate int
	quality int
	f       *os.File
	wr      *lame.LameWriter
	buf     bytes.Buffer
}

// NewSink creates new Sink. Quality is lame quality from 0 (best) to 9.
func NewSink(path string, bitRate int, quality int) *Sink {
	return &Sink{
		path:    path,
		bitRate: bitRate,
		quality: quality,
	}
}

// Sink creates the file and returns function which encodes every block.
func (s *Sink) Sink(sampleRate, numChannels int) (func(signal.Float64) error, error) {
	var err error
	s.f, err = os.Create(s.path)
	if err != nil {
		return nil, err
	}

	s.wr = lame.NewWriter(s.f)
	s.wr.Encoder.SetBitrate(s.bitRate)
	s.wr.Encoder.SetQuality(s.quality)
	s.wr.Encoder.SetNumChannels(numChannels)
	s.wr.Encoder.SetInSamplerate(sampleRate)
	if numChannels == 1 {
		s.wr.Encoder.SetMode(lame.MONO)
	} else {
		s.wr.Encoder.SetMode(lame.JOINT_STEREO)
	}
	s.wr.Encoder.SetVBR(lame.VBR_RH)
	s.wr.Encoder.InitParams()

	return func(b signal.Float64) error {
		s.buf.Reset()
		ints := b.AsInterInt(signal.BitDepth16)
		for i := range ints {
			if err := binary.Write(&s.buf, binary.LittleEndian, int16(ints[i])); err != nil {
				return err
			}
		}
		_, err := s.wr.Write(s.buf.Bytes())
		return err
	}, nil
}

// Flush cleans up buffers and closes the file.
func (s *Sink) Flush() error {
	if s.wr == nil {
		return nil
	}
	if err := s.wr.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
