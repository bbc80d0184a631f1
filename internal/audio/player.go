package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// Player plays mono audio on the default output device. Writes are queued
// and dropped when the device falls behind, so a slow sound card never
// stalls the caller.
type Player struct {
	ctx     *oto.Context
	player  *oto.Player
	writer  *io.PipeWriter
	queue   chan []byte
	done    chan struct{}
	dropped atomic.Int64
}

// NewPlayer opens the default output device for mono 16-bit audio.
func NewPlayer(sampleRate int) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: create oto context: %w", err)
	}
	<-ready

	reader, writer := io.Pipe()
	p := &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(reader),
		writer: writer,
		queue:  make(chan []byte, 32),
		done:   make(chan struct{}),
	}
	go p.pump()
	p.player.Play()
	return p, nil
}

func (p *Player) pump() {
	defer close(p.done)
	for buf := range p.queue {
		if _, err := p.writer.Write(buf); err != nil {
			log.Printf("audio: player write failed: %v", err)
			return
		}
	}
}

// Write queues samples for playback without blocking.
func (p *Player) Write(samples []float32) {
	if len(samples) == 0 {
		return
	}
	buf := make([]byte, 2*len(samples))
	for i, x := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(ToInt16(x)))
	}
	select {
	case p.queue <- buf:
	default:
		p.dropped.Add(int64(len(samples)))
	}
}

// Dropped returns the number of samples discarded because the queue was full.
func (p *Player) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops playback and releases the device.
func (p *Player) Close() error {
	close(p.queue)
	<-p.done
	p.writer.Close()
	err := p.player.Close()
	if serr := p.ctx.Suspend(); err == nil {
		err = serr
	}
	return err
}
