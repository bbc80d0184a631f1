// Package audio reads and writes the mono audio on either side of the FM
// pipeline: decoded files feeding the modulator, and the WAV file and
// speaker output fed by the demodulator.
package audio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"fm-transceiver/internal/dsp"
)

// ErrUnsupportedFormat is returned for audio files the sources cannot decode.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Source is a file-backed audio source. Next yields channel 0 normalised to
// [-1, 1] and io.EOF at the end of the file.
type Source interface {
	dsp.AudioSource
	io.Closer
}

// OpenSource opens an audio file, choosing the decoder by extension.
func OpenSource(path string) (Source, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return OpenWAV(path)
	case ".mp3":
		return OpenMP3(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Duration returns the length of a source in seconds.
func Duration(src dsp.AudioSource) float64 {
	if src.SampleRate() <= 0 {
		return 0
	}
	return float64(src.Len()) / float64(src.SampleRate())
}

// ReadAll drains a source into memory.
func ReadAll(src dsp.AudioSource) ([]float32, error) {
	out := make([]float32, 0, src.Len())
	for {
		x, err := src.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, x)
	}
}
