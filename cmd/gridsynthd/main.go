// Command gridsynthd runs the grid synth engine as a standalone process:
// it opens audio output, starts the sequencer clock, and listens for a
// monome-style OSC grid and an optional serial encoder box, per §6.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	gridsynth "github.com/gridsynth/ether-core"
)

func main() {
	var (
		oscPort      = pflag.IntP("osc-port", "p", 7771, "UDP port the OSC grid controller listens on.")
		oscPrefix    = pflag.StringP("osc-prefix", "x", "/monome", "OSC address prefix the grid device announces under.")
		serialDevice = pflag.StringP("serial-device", "s", "", "Serial device path for the 4-encoder control box. Empty disables it.")
		sampleRate   = pflag.Float64P("sample-rate", "r", 48000, "Audio output sample rate, in Hz.")
		blockSize    = pflag.IntP("block-size", "b", 128, "Audio callback block size, in frames.")
		slotCount    = pflag.IntP("slots", "n", 8, "Number of instrument slots.")
		bpm          = pflag.Float64P("bpm", "t", 120, "Sequencer tempo, in beats per minute.")
		verbose      = pflag.BoolP("verbose", "v", false, "Enable debug-level logging.")
		help         = pflag.BoolP("help", "h", false, "Display help text.")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "gridsynthd - realtime polyphonic grid synthesizer and step sequencer.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: gridsynthd [options]\n\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	cfg := gridsynth.Config{
		SampleRate:   *sampleRate,
		BlockSize:    *blockSize,
		SlotCount:    *slotCount,
		BPM:          *bpm,
		OSCPrefix:    *oscPrefix,
		OSCPort:      *oscPort,
		SerialDevice: *serialDevice,
		Logger:       logger,
	}

	core, err := gridsynth.New(cfg)
	if err != nil {
		logger.Fatal("failed to build core", "err", err)
	}

	logger.Info("starting gridsynthd",
		"sampleRate", cfg.SampleRate,
		"blockSize", cfg.BlockSize,
		"slots", cfg.SlotCount,
		"bpm", cfg.BPM,
		"oscPort", cfg.OSCPort,
		"serialDevice", cfg.SerialDevice,
	)
	core.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	core.Stop()
}
