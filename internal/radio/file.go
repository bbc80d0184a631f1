package radio

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fm-transceiver/internal/dsp"
	"fm-transceiver/internal/iq"
	"fm-transceiver/internal/ringbuffer"
)

// FileConfig configures a file-backed device.
type FileConfig struct {
	// Input is the IQ recording streamed by StartRX.
	Input string
	// InputCenter is the frequency the recording was centred on, or 0 if
	// unknown. When set, received samples are shifted as if the device were
	// tuned to the frequency passed to SetFrequency.
	InputCenter uint64
	// Output is the file StartTX writes raw interleaved int8 I/Q to.
	Output string
	// BufferSize is the number of I/Q samples per transfer.
	BufferSize int
	// RingBufferSize is the capacity in bytes between the file reader and
	// the streaming loop.
	RingBufferSize int
	// Realtime paces transfers at the configured sample rate.
	Realtime bool
}

// FileBackend stands in for SDR hardware with files on disk.
type FileBackend struct {
	cfg FileConfig
}

// NewFileBackend returns a backend whose devices use cfg.
func NewFileBackend(cfg FileConfig) *FileBackend {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 131_072
	}
	if cfg.RingBufferSize <= 2*cfg.BufferSize {
		cfg.RingBufferSize = 8 * cfg.BufferSize
	}
	return &FileBackend{cfg: cfg}
}

func (b *FileBackend) Init() error { return nil }
func (b *FileBackend) Exit() error { return nil }

// Open returns a new file device.
func (b *FileBackend) Open() (Device, error) {
	serial := "file"
	if b.cfg.Input != "" {
		serial += ":" + filepath.Base(b.cfg.Input)
	} else if b.cfg.Output != "" {
		serial += ":" + filepath.Base(b.cfg.Output)
	}
	done := make(chan struct{})
	close(done)
	return &fileDevice{cfg: b.cfg, serial: serial, done: done}, nil
}

type fileDevice struct {
	cfg    FileConfig
	serial string

	mu         sync.Mutex
	sampleRate uint32
	frequency  uint64
	lnaGain    uint32
	rxGain     uint32
	txGain     uint32
	closed     bool
	streaming  bool
	stop       chan struct{}
	done       chan struct{}
	rb         *ringbuffer.RingBuffer[int8]
	wg         sync.WaitGroup
}

func (d *fileDevice) Serial() string { return d.serial }

func (d *fileDevice) SetSampleRate(hz uint32) error {
	if hz == 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRate, hz)
	}
	return d.set(func() { d.sampleRate = hz })
}

func (d *fileDevice) SetFrequency(hz uint64) error {
	return d.set(func() { d.frequency = hz })
}

func (d *fileDevice) SetLNAGain(db uint32) error {
	v, err := clampGain(db, MaxLNAGain, 8)
	if err != nil {
		return err
	}
	return d.set(func() { d.lnaGain = v })
}

func (d *fileDevice) SetRXVGAGain(db uint32) error {
	v, err := clampGain(db, MaxRXVGAGain, 2)
	if err != nil {
		return err
	}
	return d.set(func() { d.rxGain = v })
}

func (d *fileDevice) SetTXVGAGain(db uint32) error {
	v, err := clampGain(db, MaxTXVGAGain, 1)
	if err != nil {
		return err
	}
	return d.set(func() { d.txGain = v })
}

func (d *fileDevice) set(apply func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	apply()
	return nil
}

func (d *fileDevice) IsStreaming() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streaming
}

func (d *fileDevice) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// begin claims the device for a stream and returns its stop and done
// channels.
func (d *fileDevice) begin() (stop, done chan struct{}, err error) {
	switch {
	case d.closed:
		return nil, nil, ErrClosed
	case d.streaming:
		return nil, nil, ErrBusy
	case d.sampleRate == 0:
		return nil, nil, ErrNotTuned
	}
	d.streaming = true
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	return d.stop, d.done, nil
}

func (d *fileDevice) finish(done chan struct{}) {
	d.mu.Lock()
	d.streaming = false
	d.mu.Unlock()
	close(done)
}

func (d *fileDevice) StartRX(cb RXCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.Input == "" {
		return ErrNoInput
	}
	rec, err := openRecording(d.cfg.Input)
	if err != nil {
		return err
	}
	var shift *dsp.Mixer
	if d.sampleRate > 0 && d.cfg.InputCenter != 0 && d.cfg.InputCenter != d.frequency {
		// A signal at absolute frequency f sits at f-InputCenter in the
		// recording and must end up at f-frequency.
		shift, err = dsp.NewMixer(float64(int64(d.cfg.InputCenter)-int64(d.frequency)), int(d.sampleRate))
		if err != nil {
			rec.Close()
			return err
		}
	}
	stop, done, err := d.begin()
	if err != nil {
		rec.Close()
		return err
	}

	rb := ringbuffer.New[int8](d.cfg.RingBufferSize)
	d.rb = rb
	d.wg.Add(2)
	go d.readRecording(rec, rb)
	go d.streamRX(cb, rb, shift, d.interval(), stop, done)
	return nil
}

// readRecording copies the recording into the ring buffer until it is
// exhausted or the buffer is closed.
func (d *fileDevice) readRecording(rec recording, rb *ringbuffer.RingBuffer[int8]) {
	defer d.wg.Done()
	defer rec.Close()
	defer rb.Close() // Ensure the buffer is closed when this function exits.

	buf := make([]int8, 2*d.cfg.BufferSize)
	for {
		n, err := rec.read(buf)
		if n > 0 && !rb.Write(buf[:n]) {
			return
		}
		if err == io.EOF {
			return
		} else if err != nil {
			log.Printf("radio: recording read error: %v", err)
			return
		}
	}
}

func (d *fileDevice) streamRX(cb RXCallback, rb *ringbuffer.RingBuffer[int8], shift *dsp.Mixer, interval time.Duration, stop, done chan struct{}) {
	defer d.wg.Done()
	defer d.finish(done)

	frameSize := 2 * d.cfg.BufferSize
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var scratch []complex64
	var index uint64
	for {
		raw := rb.Read(frameSize)
		// nil means the buffer is closed and drained.
		if raw == nil {
			return
		}
		if len(raw) < frameSize {
			// Transfers are fixed size; a trailing partial one is dropped.
			return
		}
		if shift != nil {
			scratch = iq.FromInt8(scratch[:0], raw)
			index = shift.Process(scratch, index)
			iq.PutInt8(raw, scratch)
		}

		if tick != nil {
			select {
			case <-tick:
			case <-stop:
				return
			}
		}
		select {
		case <-stop:
			return
		default:
		}
		cb(raw)
	}
}

func (d *fileDevice) StartTX(cb TXCallback) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.Output == "" {
		return ErrNoOutput
	}
	if d.closed || d.streaming {
		// Fail before truncating the output.
		_, _, err := d.begin()
		return err
	}
	f, err := os.Create(d.cfg.Output)
	if err != nil {
		return fmt.Errorf("radio: create IQ output: %w", err)
	}
	stop, done, err := d.begin()
	if err != nil {
		f.Close()
		return err
	}
	d.rb = nil
	d.wg.Add(1)
	go d.streamTX(cb, f, d.interval(), stop, done)
	return nil
}

func (d *fileDevice) streamTX(cb TXCallback, f *os.File, interval time.Duration, stop, done chan struct{}) {
	defer d.wg.Done()
	defer d.finish(done)

	w := bufio.NewWriterSize(f, 1<<20)
	defer func() {
		if err := w.Flush(); err != nil {
			log.Printf("radio: flush IQ output: %v", err)
		}
		if err := f.Close(); err != nil {
			log.Printf("radio: close IQ output: %v", err)
		}
	}()

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	buf := make([]int8, 2*d.cfg.BufferSize)
	out := make([]byte, len(buf))
	for {
		if tick != nil {
			select {
			case <-tick:
			case <-stop:
				return
			}
		}
		select {
		case <-stop:
			return
		default:
		}

		cb(buf)
		for i, v := range buf {
			out[i] = byte(v)
		}
		if _, err := w.Write(out); err != nil {
			log.Printf("radio: write IQ output: %v", err)
			return
		}
	}
}

// interval is the wall-clock duration of one transfer when pacing.
func (d *fileDevice) interval() time.Duration {
	if !d.cfg.Realtime {
		return 0
	}
	return time.Duration(float64(d.cfg.BufferSize) / float64(d.sampleRate) * float64(time.Second))
}

// halt stops the current stream and waits for the transfer in flight.
func (d *fileDevice) halt() {
	d.mu.Lock()
	stop, rb := d.stop, d.rb
	d.stop, d.rb = nil, nil
	d.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if rb != nil {
		rb.Close()
	}
	d.wg.Wait()
}

func (d *fileDevice) StopRX() error {
	d.halt()
	return nil
}

func (d *fileDevice) StopTX() error {
	d.halt()
	return nil
}

func (d *fileDevice) Close() error {
	d.halt()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
