package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fm-transceiver/internal/audio"
	"fm-transceiver/internal/config"
	"fm-transceiver/internal/radio"
	"fm-transceiver/internal/session"
)

func runReceive(args []string) error {
	def := config.New()
	fs := flag.NewFlagSet("receive", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	frequency := fs.Uint64("frequency", def.Receive.Frequency, "Station frequency in Hz")
	gain := fs.Uint("gain", uint(def.Receive.Gain), "RX VGA gain in dB (0-62)")
	lnaGain := fs.Uint("lna-gain", uint(def.Receive.LNAGain), "LNA gain in dB (0-40)")
	offset := fs.Float64("offset", def.Receive.Offset, "Tune this many Hz below the station")
	iqPath := fs.String("iq", "", "IQ recording to receive from (raw int8 or 16-bit WAV)")
	iqCenter := fs.Uint64("iq-center", 0, "Centre frequency of the recording in Hz (0 if it is already tuned)")
	realtime := fs.Bool("realtime", def.Realtime, "Pace the stream at the sample rate")
	listen := fs.Bool("listen", false, "Play the audio while receiving")
	dc := fs.String("dc", def.Receive.DCRemoval, "DC removal: chunk, running or off")
	logFile := fs.String("log-file", "", "Log file path (default stderr)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: fm-transceiver receive [flags] <output.wav>")
		fs.PrintDefaults()
	}
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	outPath := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	set := setFlags(fs)
	if set["frequency"] {
		cfg.Receive.Frequency = *frequency
	}
	if set["gain"] {
		cfg.Receive.Gain = uint32(*gain)
	}
	if set["lna-gain"] {
		cfg.Receive.LNAGain = uint32(*lnaGain)
	}
	if set["offset"] {
		cfg.Receive.Offset = *offset
	}
	if set["realtime"] {
		cfg.Realtime = *realtime
	}
	if set["dc"] {
		cfg.Receive.DCRemoval = *dc
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *iqPath == "" {
		return fmt.Errorf("receive: -iq is required")
	}

	closeLog, err := setupLogging(*logFile)
	if err != nil {
		return err
	}
	defer closeLog.Close()

	rx, err := session.NewReceiver(cfg.Demodulator(), cfg.Receive.DeemphTau)
	if err != nil {
		return err
	}
	sink, err := audio.CreateWAV(outPath, cfg.OutputSampleRate)
	if err != nil {
		return err
	}
	defer sink.Close()

	var player *audio.Player
	if *listen {
		if player, err = audio.NewPlayer(cfg.OutputSampleRate); err != nil {
			return err
		}
		defer func() {
			if d := player.Dropped(); d > 0 {
				log.Printf("Player dropped %d samples", d)
			}
			player.Close()
		}()
	}

	host := radio.NewHost(radio.NewFileBackend(radio.FileConfig{
		Input:          *iqPath,
		InputCenter:    *iqCenter,
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

	tuned := cfg.TunedFrequency()
	if err := dev.SetSampleRate(uint32(cfg.IQSampleRate)); err != nil {
		return err
	}
	if err := dev.SetFrequency(tuned); err != nil {
		return err
	}
	if err := dev.SetLNAGain(cfg.Receive.LNAGain); err != nil {
		return err
	}
	if err := dev.SetRXVGAGain(cfg.Receive.Gain); err != nil {
		return err
	}

	if err := dev.StartRX(rx.HandleRX); err != nil {
		return err
	}
	log.Printf("Receiving %d Hz (tuned to %d Hz), writing %s", cfg.Receive.Frequency, tuned, outPath)
	fmt.Println("Press Enter to stop.")

	enter := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(enter)
	}()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	flush := func() error {
		samples := rx.Drain()
		if player != nil {
			player.Write(samples)
		}
		return sink.Write(samples)
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-enter:
			break loop
		case <-sigChan:
			log.Printf("Shutdown signal received")
			break loop
		case <-dev.Done():
			log.Printf("End of input")
			break loop
		case <-ticker.C:
			if err := flush(); err != nil {
				dev.StopRX()
				return err
			}
		}
	}

	if err := dev.StopRX(); err != nil {
		log.Printf("Error stopping receive: %v", err)
	}
	// Audio produced by the last transfers.
	if err := flush(); err != nil {
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}
	log.Printf("Wrote %d samples (%.1fs) from %d transfers", sink.Written(),
		float64(sink.Written())/float64(cfg.OutputSampleRate), rx.Chunks())
	return nil
}
