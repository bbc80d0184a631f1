package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fm-transceiver/internal/dsp"
)

// Config holds all the configuration parameters for the application.
type Config struct {
	// RF side
	IQSampleRate int `yaml:"iq_sample_rate"`
	BufferSize   int `yaml:"buffer_size"` // IQ samples per device transfer
	// RingBufferSize is the capacity, in bytes, of the buffer between a
	// recording reader and the device streaming loop.
	RingBufferSize int  `yaml:"ring_buffer_size"`
	Realtime       bool `yaml:"realtime"`

	// Audio side
	OutputSampleRate int `yaml:"output_sample_rate"`

	Transmit Transmit `yaml:"transmit"`
	Receive  Receive  `yaml:"receive"`
}

// Transmit holds the transmit-only settings.
type Transmit struct {
	Frequency  uint64  `yaml:"frequency"`
	Gain       uint32  `yaml:"gain"`
	Bandwidth  float64 `yaml:"bandwidth"`
	RoundRatio bool    `yaml:"round_ratio"`
}

// Receive holds the receive-only settings.
type Receive struct {
	Frequency uint64 `yaml:"frequency"`
	Gain      uint32 `yaml:"gain"`
	LNAGain   uint32 `yaml:"lna_gain"`
	// Offset is how far above the tuned centre the station sits. The device
	// is tuned Offset below the station and the demodulator mixes it back.
	Offset              float64 `yaml:"offset"`
	ChannelFilterCutoff float64 `yaml:"channel_filter_cutoff"`
	AudioFilterCutoff   float64 `yaml:"audio_filter_cutoff"`
	DemodGain           float32 `yaml:"demod_gain"`
	DCRemoval           string  `yaml:"dc_removal"`
	DeemphTau           float64 `yaml:"deemph_tau"` // 0 disables de-emphasis
}

// New returns a new Config with default values.
func New() *Config {
	return &Config{
		IQSampleRate:     2_000_000,
		BufferSize:       131_072,            // one 256 KiB transfer of 8-bit I/Q
		RingBufferSize:   4 * 2 * 2_000_000, // 4s of 8-bit I/Q
		OutputSampleRate: 44_100,
		Transmit: Transmit{
			Frequency:  100_000_000,
			Gain:       30,
			Bandwidth:  75_000,
			RoundRatio: true,
		},
		Receive: Receive{
			Frequency:           100_000_000,
			Gain:                0,
			LNAGain:             30,
			Offset:              900_000,
			ChannelFilterCutoff: 200_000,
			AudioFilterCutoff:   22_000,
			DemodGain:           1,
			DCRemoval:           "chunk",
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot drive a session.
func (c *Config) Validate() error {
	switch {
	case c.IQSampleRate <= 0:
		return fmt.Errorf("config: iq_sample_rate must be positive, got %d", c.IQSampleRate)
	case c.OutputSampleRate <= 0:
		return fmt.Errorf("config: output_sample_rate must be positive, got %d", c.OutputSampleRate)
	case c.IQSampleRate < c.OutputSampleRate:
		return fmt.Errorf("config: iq_sample_rate %d below output_sample_rate %d", c.IQSampleRate, c.OutputSampleRate)
	case c.BufferSize <= 0:
		return fmt.Errorf("config: buffer_size must be positive, got %d", c.BufferSize)
	case c.RingBufferSize <= 2*c.BufferSize:
		return fmt.Errorf("config: ring_buffer_size %d must exceed one transfer (%d bytes)", c.RingBufferSize, 2*c.BufferSize)
	case !(c.Transmit.Bandwidth > 0):
		return fmt.Errorf("config: transmit.bandwidth must be positive, got %g", c.Transmit.Bandwidth)
	case !(c.Receive.ChannelFilterCutoff > 0):
		return fmt.Errorf("config: receive.channel_filter_cutoff must be positive, got %g", c.Receive.ChannelFilterCutoff)
	case !(c.Receive.AudioFilterCutoff > 0):
		return fmt.Errorf("config: receive.audio_filter_cutoff must be positive, got %g", c.Receive.AudioFilterCutoff)
	case c.Receive.Offset > float64(c.Receive.Frequency):
		return fmt.Errorf("config: receive.offset %g exceeds receive.frequency %d", c.Receive.Offset, c.Receive.Frequency)
	case c.Receive.DeemphTau < 0:
		return errors.New("config: receive.deemph_tau must not be negative")
	}
	if _, err := dsp.ParseDCMode(c.Receive.DCRemoval); err != nil {
		return fmt.Errorf("config: receive.dc_removal: %w", err)
	}
	return nil
}

// Demodulator returns the receive chain settings.
func (c *Config) Demodulator() dsp.DemodulatorConfig {
	mode, _ := dsp.ParseDCMode(c.Receive.DCRemoval)
	return dsp.DemodulatorConfig{
		SampleRate:  c.IQSampleRate,
		AudioRate:   c.OutputSampleRate,
		Offset:      -c.Receive.Offset,
		IFCutoff:    c.Receive.ChannelFilterCutoff,
		AudioCutoff: c.Receive.AudioFilterCutoff,
		Gain:        c.Receive.DemodGain,
		DC:          mode,
	}
}

// Modulator returns the transmit chain settings.
func (c *Config) Modulator() dsp.ModulatorConfig {
	return dsp.ModulatorConfig{
		SampleRate: c.IQSampleRate,
		Bandwidth:  c.Transmit.Bandwidth,
		RoundRatio: c.Transmit.RoundRatio,
	}
}

// TunedFrequency is the centre frequency the receiver tunes to.
func (c *Config) TunedFrequency() uint64 {
	return uint64(int64(c.Receive.Frequency) - int64(c.Receive.Offset))
}
