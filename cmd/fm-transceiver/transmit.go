package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"fm-transceiver/internal/audio"
	"fm-transceiver/internal/config"
	"fm-transceiver/internal/radio"
	"fm-transceiver/internal/session"
	"fm-transceiver/internal/ui"
)

func runTransmit(args []string) error {
	def := config.New()
	fs := flag.NewFlagSet("transmit", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	frequency := fs.Uint64("frequency", def.Transmit.Frequency, "Transmit frequency in Hz")
	gain := fs.Uint("gain", uint(def.Transmit.Gain), "TX VGA gain in dB (0-47)")
	bandwidth := fs.Float64("bandwidth", def.Transmit.Bandwidth, "Frequency deviation in Hz at full scale")
	iqPath := fs.String("iq", "transmit.iq", "File the IQ stream is written to")
	realtime := fs.Bool("realtime", def.Realtime, "Pace the stream at the sample rate")
	noTUI := fs.Bool("no-tui", false, "Disable TUI, log progress instead")
	logFile := fs.String("log-file", "fm-transceiver.log", "Log file path while the TUI is running")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: fm-transceiver transmit [flags] <audio file>")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	audioPath := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	set := setFlags(fs)
	if set["frequency"] {
		cfg.Transmit.Frequency = *frequency
	}
	if set["gain"] {
		cfg.Transmit.Gain = uint32(*gain)
	}
	if set["bandwidth"] {
		cfg.Transmit.Bandwidth = *bandwidth
	}
	if set["realtime"] {
		cfg.Realtime = *realtime
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	useTUI := !*noTUI
	logPath := ""
	if useTUI {
		// TUI mode: log only to file
		logPath = *logFile
	}
	closeLog, err := setupLogging(logPath)
	if err != nil {
		return err
	}
	defer closeLog.Close()

	src, err := audio.OpenSource(audioPath)
	if err != nil {
		return err
	}
	defer src.Close()
	log.Printf("Opened %s: %d Hz, %d channels, %.1fs", audioPath, src.SampleRate(), src.Channels(), audio.Duration(src))
	if msg := ratioWarning(cfg.IQSampleRate, src.SampleRate(), cfg.Transmit.RoundRatio); msg != "" {
		// Shown on the terminal too; in TUI mode the log only goes to a file.
		fmt.Fprintln(os.Stderr, msg)
		log.Print(msg)
	}

	tx, err := session.NewTransmitter(src, cfg.Modulator())
	if err != nil {
		return err
	}

	host := radio.NewHost(radio.NewFileBackend(radio.FileConfig{
		Output:         *iqPath,
		BufferSize:     cfg.BufferSize,
		RingBufferSize: cfg.RingBufferSize,
		Realtime:       cfg.Realtime,
	}))
	dev, err := host.Open()
	if err != nil {
		return err
	}
	defer dev.Close()
	fmt.Printf("Connected to: %s\n", dev.Serial())

	if err := dev.SetSampleRate(uint32(cfg.IQSampleRate)); err != nil {
		return err
	}
	if err := dev.SetFrequency(cfg.Transmit.Frequency); err != nil {
		return err
	}
	if err := dev.SetTXVGAGain(cfg.Transmit.Gain); err != nil {
		return err
	}

	abort := make(chan struct{}, 1)
	var prog *tea.Program
	progDone := make(chan struct{})
	if useTUI {
		prog = ui.NewProgram(ui.NewModel(ui.Info{
			File:      audioPath,
			Frequency: cfg.Transmit.Frequency,
			Serial:    dev.Serial(),
			Duration:  time.Duration(audio.Duration(src) * float64(time.Second)),
		}, abort))
		go func() {
			defer close(progDone)
			if _, err := prog.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	} else {
		close(progDone)
	}

	if err := dev.StartTX(tx.HandleTX); err != nil {
		return err
	}
	log.Printf("Transmitting on %d Hz", cfg.Transmit.Frequency)
	start := time.Now()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	var lastLogged int
	var stopErr error
loop:
	for {
		select {
		case <-tx.Finished():
			break loop
		case <-dev.Done():
			stopErr = errors.New("device stopped streaming")
			break loop
		case <-abort:
			log.Printf("Received quit signal from TUI")
			break loop
		case <-sigChan:
			log.Printf("Shutdown signal received")
			break loop
		case <-ticker.C:
			p := tx.Progress()
			if prog != nil {
				prog.Send(ui.ProgressMsg{Progress: p, Elapsed: time.Since(start)})
			} else if pct := int(p * 100); pct/10 > lastLogged/10 {
				lastLogged = pct
				log.Printf("Progress: %d%%", pct)
			}
		}
	}

	if err := dev.StopTX(); err != nil {
		log.Printf("Error stopping transmit: %v", err)
	}
	if stopErr == nil {
		stopErr = tx.Err()
	}
	if prog != nil {
		prog.Send(ui.ProgressMsg{Progress: tx.Progress(), Elapsed: time.Since(start)})
		prog.Send(ui.DoneMsg{Err: stopErr})
	}
	<-progDone

	if stopErr != nil {
		return fmt.Errorf("transmit: %w", stopErr)
	}
	log.Printf("Transmitted %s in %s", audioPath, time.Since(start).Round(time.Millisecond))
	return nil
}

// ratioWarning describes the rounding applied when the RF rate is not a
// multiple of the audio rate, or returns "" when there is none.
func ratioWarning(rfRate, audioRate int, round bool) string {
	if !round || audioRate <= 0 || rfRate < audioRate || rfRate%audioRate == 0 {
		return ""
	}
	ratio := int(math.Round(float64(rfRate) / float64(audioRate)))
	return fmt.Sprintf("Warning: sample rate %d is not a multiple of %d Hz; rounding to %d samples per audio sample (audio plays %.2f%% fast or slow)",
		rfRate, audioRate, ratio, 100*math.Abs(float64(rfRate)/float64(ratio*audioRate)-1))
}
