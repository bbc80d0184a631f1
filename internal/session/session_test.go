package session

import (
	"errors"
	"io"
	"math"
	"testing"

	"fm-transceiver/internal/dsp"
	"fm-transceiver/internal/spectrum"
)

type tone struct {
	rate, n, pos int
	freq, amp    float64
	err          error
}

func (s *tone) SampleRate() int { return s.rate }
func (s *tone) Len() int        { return s.n }
func (s *tone) Channels() int   { return 1 }

func (s *tone) Next() (float32, error) {
	if s.pos >= s.n {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	x := s.amp * math.Sin(2*math.Pi*s.freq*float64(s.pos)/float64(s.rate))
	s.pos++
	return float32(x), nil
}

func receiverConfig() dsp.DemodulatorConfig {
	return dsp.DemodulatorConfig{
		SampleRate:  441_000,
		AudioRate:   44_100,
		IFCutoff:    200_000,
		AudioCutoff: 15_000,
		Gain:        1,
		DC:          dsp.DCPerChunk,
	}
}

func TestRoundTrip_ToneSurvives(t *testing.T) {
	for _, freq := range []float64{440, 1_000, 3_000} {
		tx, err := NewTransmitter(&tone{rate: 44_100, n: 44_100, freq: freq, amp: 0.5}, dsp.ModulatorConfig{
			SampleRate: 441_000,
			Bandwidth:  75_000,
		})
		if err != nil {
			t.Fatal(err)
		}
		rx, err := NewReceiver(receiverConfig(), 0)
		if err != nil {
			t.Fatal(err)
		}

		buf := make([]int8, 2*4_096)
		for tx.Progress() < 1 {
			tx.HandleTX(buf)
			rx.HandleRX(buf)
		}
		audio := rx.Drain()
		if len(audio) < 40_000 {
			t.Fatalf("%g Hz: only %d audio samples", freq, len(audio))
		}

		// Skip the start-up transient.
		got := spectrum.PeakFrequency(audio[1_000:], rx.AudioRate())
		if math.Abs(got-freq) > 5 {
			t.Errorf("demodulated peak at %.1f Hz, want %g Hz", got, freq)
		}
		if rms := spectrum.RMS(audio[1_000:]); rms < 0.1 {
			t.Errorf("%g Hz: audio RMS %f too low", freq, rms)
		}
	}
}

func TestReceiver_DrainAndCounters(t *testing.T) {
	rx, err := NewReceiver(receiverConfig(), 50e-6)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]int8, 2*1_000)
	for i := range buf {
		buf[i] = 100
	}
	for i := 0; i < 4; i++ {
		rx.HandleRX(buf)
	}
	if rx.Chunks() != 4 || rx.Samples() != 4_000 {
		t.Fatalf("chunks %d, samples %d; want 4, 4000", rx.Chunks(), rx.Samples())
	}
	if got := len(rx.Drain()); got != 400 {
		t.Fatalf("drained %d samples, want 400", got)
	}
	if got := rx.Drain(); len(got) != 0 {
		t.Fatalf("second drain returned %d samples", len(got))
	}
}

func TestNewReceiver_InvalidConfig(t *testing.T) {
	cfg := receiverConfig()
	cfg.AudioCutoff = 0
	if _, err := NewReceiver(cfg, 0); !errors.Is(err, dsp.ErrInvalidCutoff) {
		t.Fatalf("expected ErrInvalidCutoff, got %v", err)
	}
}

func TestTransmitter_FinishedAndUnitOutput(t *testing.T) {
	tx, err := NewTransmitter(&tone{rate: 8_000, n: 800, freq: 500, amp: 1}, dsp.ModulatorConfig{
		SampleRate: 80_000,
		Bandwidth:  5_000,
	})
	if err != nil {
		t.Fatal(err)
	}
	if tx.Ratio() != 10 {
		t.Fatalf("ratio = %d, want 10", tx.Ratio())
	}

	buf := make([]int8, 2*1_000+1)
	for i := 0; i < 7; i++ {
		select {
		case <-tx.Finished():
			t.Fatalf("finished after %d transfers", i)
		default:
		}
		tx.HandleTX(buf)
		for k := 0; k+1 < len(buf); k += 2 {
			mag := math.Hypot(float64(buf[k]), float64(buf[k+1]))
			if mag < 120 || mag > 128 {
				t.Fatalf("transfer %d sample %d: magnitude %f", i, k/2, mag)
			}
		}
		if buf[len(buf)-1] != 0 {
			t.Fatal("odd trailing byte not cleared")
		}
	}
	tx.HandleTX(buf)
	select {
	case <-tx.Finished():
	default:
		t.Fatalf("not finished at progress %f", tx.Progress())
	}
	if tx.Progress() != 1 || tx.Err() != nil {
		t.Fatalf("progress %f, err %v", tx.Progress(), tx.Err())
	}
}

func TestTransmitter_ReportsReadError(t *testing.T) {
	boom := errors.New("truncated file")
	tx, err := NewTransmitter(&tone{rate: 8_000, n: 10, freq: 500, amp: 1, err: boom}, dsp.ModulatorConfig{
		SampleRate: 80_000,
		Bandwidth:  5_000,
	})
	if err != nil {
		t.Fatal(err)
	}
	tx.HandleTX(make([]int8, 2*500))
	if !errors.Is(tx.Err(), boom) {
		t.Fatalf("expected read error, got %v", tx.Err())
	}
}

func TestNewTransmitter_RateOrder(t *testing.T) {
	_, err := NewTransmitter(&tone{rate: 44_100}, dsp.ModulatorConfig{SampleRate: 8_000, Bandwidth: 75_000})
	if !errors.Is(err, dsp.ErrRateOrder) {
		t.Fatalf("expected ErrRateOrder, got %v", err)
	}
}
