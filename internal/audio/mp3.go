package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to interleaved 16-bit little-endian stereo.
const mp3FrameBytes = 4

// MP3Source reads the left channel of an MP3 file.
type MP3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	r       *bufio.Reader
	frame   [mp3FrameBytes]byte
	frames  int
}

// OpenMP3 opens an MP3 file for decoding.
func OpenMP3(path string) (*MP3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open mp3: %w", err)
	}
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("audio: decode mp3: %w", err)
	}
	frames := 0
	if n := decoder.Length(); n > 0 {
		frames = int(n / mp3FrameBytes)
	}
	return &MP3Source{
		file:    f,
		decoder: decoder,
		r:       bufio.NewReaderSize(decoder, 16*1024),
		frames:  frames,
	}, nil
}

// SampleRate returns the sample rate in Hz.
func (s *MP3Source) SampleRate() int { return s.decoder.SampleRate() }

// Len returns the number of decoded frames.
func (s *MP3Source) Len() int { return s.frames }

// Channels is always 2 for go-mp3 output.
func (s *MP3Source) Channels() int { return 2 }

// Next returns the next left channel sample.
func (s *MP3Source) Next() (float32, error) {
	if _, err := io.ReadFull(s.r, s.frame[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	left := int16(binary.LittleEndian.Uint16(s.frame[:2]))
	return float32(left) / 32768, nil
}

// Close closes the underlying file.
func (s *MP3Source) Close() error {
	return s.file.Close()
}
