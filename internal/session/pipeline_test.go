package session

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"fm-transceiver/internal/dsp"
	"fm-transceiver/internal/radio"
	"fm-transceiver/internal/spectrum"
)

// Transmit a tone into an IQ file through the file device, then receive it
// back from that file.
func TestFileDevice_TransmitThenReceive(t *testing.T) {
	iqPath := filepath.Join(t.TempDir(), "tone.iq")

	tx, err := NewTransmitter(&tone{rate: 44_100, n: 22_050, freq: 1_000, amp: 0.5}, dsp.ModulatorConfig{
		SampleRate: 441_000,
		Bandwidth:  75_000,
	})
	if err != nil {
		t.Fatal(err)
	}
	host := radio.NewHost(radio.NewFileBackend(radio.FileConfig{Output: iqPath, BufferSize: 4_096}))
	out, err := host.Open()
	if err != nil {
		t.Fatal(err)
	}
	out.SetSampleRate(441_000)
	if err := out.StartTX(tx.HandleTX); err != nil {
		t.Fatal(err)
	}
	select {
	case <-tx.Finished():
	case <-time.After(10 * time.Second):
		t.Fatal("transmission did not finish")
	}
	out.StopTX()
	out.Close()
	if host.Handles() != 0 {
		t.Fatalf("%d handles still open", host.Handles())
	}

	rx, err := NewReceiver(receiverConfig(), 0)
	if err != nil {
		t.Fatal(err)
	}
	in, err := radio.NewHost(radio.NewFileBackend(radio.FileConfig{Input: iqPath, BufferSize: 4_096})).Open()
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	in.SetSampleRate(441_000)
	if err := in.StartRX(rx.HandleRX); err != nil {
		t.Fatal(err)
	}
	select {
	case <-in.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("reception did not finish")
	}

	audio := rx.Drain()
	if len(audio) < 22_000 {
		t.Fatalf("only %d audio samples received", len(audio))
	}
	if got := spectrum.PeakFrequency(audio[1_000:20_000], rx.AudioRate()); math.Abs(got-1_000) > 5 {
		t.Errorf("received peak at %.1f Hz, want 1000 Hz", got)
	}
}
