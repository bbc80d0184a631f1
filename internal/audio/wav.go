package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVSource reads integer PCM WAV files.
type WAVSource struct {
	file     *os.File
	decoder  *wav.Decoder
	buf      *audio.IntBuffer
	pos, n   int
	frames   int
	rate     int
	channels int
	bitDepth int
	scale    float32
}

// OpenWAV opens an integer PCM WAV file and positions it at the sample data.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open wav: %w", err)
	}
	src, err := newWAVSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

func newWAVSource(f *os.File) (*WAVSource, error) {
	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid WAV file", ErrUnsupportedFormat, f.Name())
	}
	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: WAV audio format %d (only integer PCM)", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}
	// Move to start of PCM data
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("audio: seek to PCM data: %w", err)
	}

	channels := int(decoder.NumChans)
	bitDepth := int(decoder.BitDepth)
	if channels < 1 || bitDepth < 8 || bitDepth > 32 || bitDepth%8 != 0 {
		return nil, fmt.Errorf("%w: %d channels at %d bits", ErrUnsupportedFormat, channels, bitDepth)
	}

	return &WAVSource{
		file:    f,
		decoder: decoder,
		buf: &audio.IntBuffer{
			Format: decoder.Format(),
			Data:   make([]int, 4096*channels),
		},
		frames:   int(decoder.PCMLen()) / (bitDepth / 8 * channels),
		rate:     int(decoder.SampleRate),
		channels: channels,
		bitDepth: bitDepth,
		scale:    float32(int64(1) << (bitDepth - 1)),
	}, nil
}

// SampleRate returns the sample rate in Hz.
func (s *WAVSource) SampleRate() int { return s.rate }

// Len returns the number of frames in the file.
func (s *WAVSource) Len() int { return s.frames }

// Channels returns the channel count of the file.
func (s *WAVSource) Channels() int { return s.channels }

// BitDepth returns the bits per sample of the file.
func (s *WAVSource) BitDepth() int { return s.bitDepth }

// Next returns the next channel 0 sample.
func (s *WAVSource) Next() (float32, error) {
	if s.pos >= s.n {
		n, err := s.decoder.PCMBuffer(s.buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("audio: read wav: %w", err)
		}
		n -= n % s.channels
		if n == 0 {
			return 0, io.EOF
		}
		s.pos, s.n = 0, n
	}
	x := s.buf.Data[s.pos]
	s.pos += s.channels
	if s.bitDepth == 8 {
		// 8-bit WAV is unsigned.
		x -= 128
	}
	return float32(x) / s.scale, nil
}

// Close closes the underlying file.
func (s *WAVSource) Close() error {
	return s.file.Close()
}

// WAVSink writes mono 16-bit PCM audio.
type WAVSink struct {
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
	written int
	closed  bool
}

// CreateWAV creates a WAV file at path for mono audio at sampleRate.
func CreateWAV(path string, sampleRate int) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("audio: create wav: %w", err)
	}
	return &WAVSink{
		file:    f,
		encoder: wav.NewEncoder(f, sampleRate, 16, 1, wavFormatPCM),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: 16,
		},
	}, nil
}

// Write appends samples, clamping them to [-1, 1].
func (s *WAVSink) Write(samples []float32) error {
	if s.closed {
		return errors.New("audio: write to closed wav sink")
	}
	if len(samples) == 0 {
		return nil
	}
	s.buf.Data = s.buf.Data[:0]
	for _, x := range samples {
		s.buf.Data = append(s.buf.Data, int(ToInt16(x)))
	}
	if err := s.encoder.Write(s.buf); err != nil {
		return fmt.Errorf("audio: write wav: %w", err)
	}
	s.written += len(samples)
	return nil
}

// Written returns the number of samples written so far.
func (s *WAVSink) Written() int {
	return s.written
}

// Close finalises the WAV header and closes the file. Calling it again is a
// no-op.
func (s *WAVSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.written == 0 {
		// The encoder only writes its header along with the first samples.
		s.buf.Data = s.buf.Data[:0]
		if err := s.encoder.Write(s.buf); err != nil {
			s.file.Close()
			return fmt.Errorf("audio: write wav header: %w", err)
		}
	}
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return fmt.Errorf("audio: finalise wav: %w", err)
	}
	return s.file.Close()
}

// ToInt16 converts a normalised sample to 16-bit PCM with clipping.
func ToInt16(x float32) int16 {
	v := x * 32767
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	case v != v: // NaN
		return 0
	}
	return int16(v)
}
