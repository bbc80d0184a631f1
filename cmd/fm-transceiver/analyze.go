package main

import (
	"flag"
	"fmt"
	"os"

	"fm-transceiver/internal/audio"
	"fm-transceiver/internal/spectrum"
)

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: fm-transceiver analyze <audio file>")
	}
	fs.Parse(args)
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}
	path := fs.Arg(0)

	src, err := audio.OpenSource(path)
	if err != nil {
		return err
	}
	defer src.Close()

	samples, err := audio.ReadAll(src)
	if err != nil {
		return err
	}

	fmt.Printf("File:        %s\n", path)
	fmt.Printf("Sample rate: %d Hz\n", src.SampleRate())
	fmt.Printf("Channels:    %d\n", src.Channels())
	fmt.Printf("Duration:    %.3fs\n", audio.Duration(src))
	fmt.Printf("RMS:         %.4f\n", spectrum.RMS(samples))
	fmt.Printf("Peak:        %.1f Hz\n", spectrum.PeakFrequency(samples, src.SampleRate()))
	return nil
}
