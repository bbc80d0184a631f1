package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"fm-transceiver/internal/config"
)

const usage = `usage: fm-transceiver <command> [flags] <file>

commands:
  transmit   modulate an audio file and send it
  receive    demodulate a station into a WAV file
  analyze    report the rate, level and dominant tone of an audio file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "transmit", "tx":
		err = runTransmit(args)
	case "receive", "rx":
		err = runReceive(args)
	case "analyze":
		err = runAnalyze(args)
	case "help", "-h", "-help", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// setupLogging tags every line with a fresh session id. When logFile is set
// output goes there only, otherwise to stderr. The returned closer is never
// nil.
func setupLogging(logFile string) (io.Closer, error) {
	log.SetPrefix(fmt.Sprintf("session=%s ", uuid.NewString()))
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	if logFile == "" {
		log.SetOutput(os.Stderr)
		return io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}
	log.SetOutput(f)
	return f, nil
}

// loadConfig reads path over the defaults, or returns the defaults when path
// is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.New(), nil
	}
	return config.Load(path)
}

// setFlags returns the names of the flags given on the command line, so
// explicit flags override the config file and defaults don't.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}
