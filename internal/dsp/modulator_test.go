package dsp

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"
)

func TestNewModulator_RateBelowAudioRate(t *testing.T) {
	_, err := NewModulator(constantSource(44_100, 10, 0), ModulatorConfig{SampleRate: 8_000, Bandwidth: 75_000, RoundRatio: true})
	if !errors.Is(err, ErrRateOrder) {
		t.Fatalf("expected ErrRateOrder, got %v", err)
	}
}

func TestNewModulator_FractionalRatio(t *testing.T) {
	src := constantSource(44_100, 10, 0)
	_, err := NewModulator(src, ModulatorConfig{SampleRate: 2_000_000, Bandwidth: 75_000})
	if !errors.Is(err, ErrFractionalRatio) {
		t.Fatalf("expected ErrFractionalRatio, got %v", err)
	}

	m, err := NewModulator(src, ModulatorConfig{SampleRate: 2_000_000, Bandwidth: 75_000, RoundRatio: true})
	if err != nil {
		t.Fatalf("RoundRatio: %v", err)
	}
	if m.Ratio() != 45 {
		t.Fatalf("ratio = %d, want 45", m.Ratio())
	}

	// 2e6/48000 = 41.67 rounds up, not down.
	m, err = NewModulator(constantSource(48_000, 10, 0), ModulatorConfig{SampleRate: 2_000_000, Bandwidth: 75_000, RoundRatio: true})
	if err != nil {
		t.Fatalf("RoundRatio: %v", err)
	}
	if m.Ratio() != 42 {
		t.Fatalf("ratio = %d, want 42", m.Ratio())
	}
}

func TestNewModulator_InvalidParameters(t *testing.T) {
	cases := []struct {
		name string
		src  *sliceSource
		cfg  ModulatorConfig
		want error
	}{
		{"zero bandwidth", constantSource(8_000, 1, 0), ModulatorConfig{SampleRate: 80_000}, ErrInvalidBandwidth},
		{"negative bandwidth", constantSource(8_000, 1, 0), ModulatorConfig{SampleRate: 80_000, Bandwidth: -1}, ErrInvalidBandwidth},
		{"zero rf rate", constantSource(8_000, 1, 0), ModulatorConfig{Bandwidth: 5_000}, ErrInvalidRate},
		{"zero audio rate", constantSource(0, 1, 0), ModulatorConfig{SampleRate: 80_000, Bandwidth: 5_000}, ErrInvalidRate},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := NewModulator(c.src, c.cfg); !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestModulator_BroadcastDeviationPhaseIncrement(t *testing.T) {
	m, err := NewModulator(constantSource(44_100, 1_000, 1), ModulatorConfig{
		SampleRate: 2_000_000,
		Bandwidth:  75_000,
		RoundRatio: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	// The first window interpolates up from silence.
	for i := 0; i < m.Ratio(); i++ {
		m.Sample()
	}

	want := 2 * math.Pi * 75_000 / 2_000_000.0
	if !near(want, 0.2356, 1e-4) {
		t.Fatalf("sanity: %f", want)
	}
	prevPhase := m.Phase()
	prev := m.Sample()
	if !near(m.Phase()-prevPhase, want, 1e-9) {
		t.Fatalf("phase step = %f, want %f", m.Phase()-prevPhase, want)
	}
	for i := 0; i < 10_000; i++ {
		prevPhase = m.Phase()
		s := m.Sample()
		if !near(m.Phase()-prevPhase, want, 1e-9) {
			t.Fatalf("sample %d: phase step = %f, want %f", i, m.Phase()-prevPhase, want)
		}
		if step := cmplx.Phase(complex128(s * complex(real(prev), -imag(prev)))); !near(step, want, 1e-4) {
			t.Fatalf("sample %d: output rotation %f, want %f", i, step, want)
		}
		prev = s
	}
}

func TestModulator_UnitMagnitude(t *testing.T) {
	m, err := NewModulator(toneSource(8_000, 800, 440, 0.9), ModulatorConfig{SampleRate: 80_000, Bandwidth: 5_000})
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]complex64, 4096)
	for k := 0; k < 5; k++ {
		m.Fill(buf)
		for i, s := range buf {
			if mag := cmplx.Abs(complex128(s)); !near(mag, 1, 1e-6) {
				t.Fatalf("block %d sample %d: magnitude %f", k, i, mag)
			}
		}
	}
}

func TestModulator_InterpolatesBetweenAudioSamples(t *testing.T) {
	src := &sliceSource{rate: 1_000, samples: []float32{0.5, -0.5}}
	m, err := NewModulator(src, ModulatorConfig{SampleRate: 4_000, Bandwidth: 1_000})
	if err != nil {
		t.Fatal(err)
	}

	// Windows: [0 -> 0.5], [0.5 -> -0.5], [-0.5 -> 0], then silence.
	want := []float64{0, 0.125, 0.25, 0.375, 0.5, 0.25, 0, -0.25, -0.5, -0.375, -0.25, -0.125, 0, 0}
	for i, v := range want {
		before := m.Phase()
		m.Sample()
		step := m.Phase() - before
		if expected := 2 * math.Pi * v * 1_000 / 4_000; !near(step, expected, 1e-7) {
			t.Errorf("sample %d: phase step %f, want %f", i, step, expected)
		}
	}
}

func TestModulator_TailIsConstantCarrier(t *testing.T) {
	src := toneSource(8_000, 50, 1_000, 0.8)
	m, err := NewModulator(src, ModulatorConfig{SampleRate: 80_000, Bandwidth: 5_000})
	if err != nil {
		t.Fatal(err)
	}

	// 50 audio samples plus the final window back down to silence.
	for i := 0; i < 51*m.Ratio(); i++ {
		m.Sample()
	}
	if !m.Exhausted() {
		t.Fatal("expected source to be exhausted")
	}
	if m.Err() != nil {
		t.Fatalf("EOF should not be reported as an error: %v", m.Err())
	}

	phase := m.Phase()
	first := m.Sample()
	for i := 0; i < 1_000; i++ {
		if s := m.Sample(); s != first {
			t.Fatalf("tail sample %d: %v, want constant %v", i, s, first)
		}
	}
	if m.Phase() != phase {
		t.Fatalf("tail phase moved from %f to %f", phase, m.Phase())
	}
}

func TestModulator_ProgressMonotonicAndBounded(t *testing.T) {
	m, err := NewModulator(toneSource(8_000, 800, 300, 0.5), ModulatorConfig{SampleRate: 80_000, Bandwidth: 5_000})
	if err != nil {
		t.Fatal(err)
	}
	last := m.Progress()
	if last != 0 {
		t.Fatalf("initial progress = %f, want 0", last)
	}
	for i := 0; i < 12_000; i++ {
		m.Sample()
		p := m.Progress()
		if p < last {
			t.Fatalf("progress decreased at sample %d: %f -> %f", i, last, p)
		}
		if p > 1 {
			t.Fatalf("progress exceeded 1 at sample %d: %f", i, p)
		}
		last = p
	}
	if last != 1 {
		t.Fatalf("final progress = %f, want 1", last)
	}
}

func TestModulator_ProgressEmptySource(t *testing.T) {
	m, err := NewModulator(&sliceSource{rate: 8_000}, ModulatorConfig{SampleRate: 80_000, Bandwidth: 5_000})
	if err != nil {
		t.Fatal(err)
	}
	if p := m.Progress(); p != 1 {
		t.Fatalf("progress of empty source = %f, want 1", p)
	}
}

func TestModulator_ReadErrorBecomesSilence(t *testing.T) {
	boom := errors.New("disk on fire")
	src := &sliceSource{rate: 8_000, samples: []float32{1, 1}, err: boom}
	m, err := NewModulator(src, ModulatorConfig{SampleRate: 16_000, Bandwidth: 1_000})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		m.Sample()
	}
	if !errors.Is(m.Err(), boom) {
		t.Fatalf("expected read error to be kept, got %v", m.Err())
	}
	if !m.Exhausted() {
		t.Fatal("expected source to be treated as exhausted")
	}
}
