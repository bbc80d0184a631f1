package radio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"fm-transceiver/internal/iq"
)

// recording yields interleaved 8-bit I/Q from a file on disk.
type recording interface {
	read(dst []int8) (int, error)
	Close() error
}

// openRecording opens an IQ recording. It may be in a WAV container (16-bit
// stereo, I on the left channel) or raw interleaved signed bytes.
func openRecording(path string) (recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("radio: open recording: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		// Not a WAV file, reading raw IQ. The header probe moved the offset.
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("radio: rewind recording: %w", err)
		}
		return &rawRecording{file: f}, nil
	}

	if decoder.BitDepth != 16 || decoder.NumChans != 2 {
		f.Close()
		return nil, fmt.Errorf("%w: %d-bit, %d channels (want 16-bit I/Q pairs)", ErrBadRecording, decoder.BitDepth, decoder.NumChans)
	}
	// Move to start of PCM/IQ data
	if err := decoder.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("radio: seek to IQ data: %w", err)
	}
	return &wavRecording{
		file:    f,
		decoder: decoder,
		buf:     &audio.IntBuffer{Format: decoder.Format()},
	}, nil
}

type rawRecording struct {
	file *os.File
	buf  []byte
}

func (r *rawRecording) read(dst []int8) (int, error) {
	if cap(r.buf) < len(dst) {
		r.buf = make([]byte, len(dst))
	}
	n, err := r.file.Read(r.buf[:len(dst)])
	for i := 0; i < n; i++ {
		dst[i] = int8(r.buf[i])
	}
	return n, err
}

func (r *rawRecording) Close() error { return r.file.Close() }

type wavRecording struct {
	file    *os.File
	decoder *wav.Decoder
	buf     *audio.IntBuffer
}

func (r *wavRecording) read(dst []int8) (int, error) {
	if cap(r.buf.Data) < len(dst) {
		r.buf.Data = make([]int, len(dst))
	}
	r.buf.Data = r.buf.Data[:len(dst)]
	n, err := r.decoder.PCMBuffer(r.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	for i := 0; i < n; i++ {
		dst[i] = iq.Int16ToInt8(int16(r.buf.Data[i]))
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (r *wavRecording) Close() error { return r.file.Close() }
