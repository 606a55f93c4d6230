package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/chip8/devices/fffe/clock"
	"github.com/hexaflex/chip8/devices/fffe/display"
	"github.com/hexaflex/chip8/devices/fffe/tty"
)

// Config defines program configuration.
type Config struct {
	Program     string        // Path to the ROM image to load.
	ScaleFactor int           // Amount by which each pixel is scaled.
	Fullscreen  bool          // Run in fullscreen?
	Rate        int           // Instructions per second.
	Foreground  uint32        // Lit pixel color as 0xRRGGBB.
	Background  uint32        // Unlit pixel color as 0xRRGGBB.
	Debug       bool          // Start with execution paused.
	PrintTrace  bool          // Print instruction trace data?
	Mute        bool          // Disable audio output.
	WavFile     string        // Record the tone to this file, if set.
	Seed        int64         // Random seed for RND. Zero picks one from the clock.
	TTY         bool          // Run in the terminal instead of a window.
	KeyHold     time.Duration // How long a key typed in the terminal stays down.
	StatsView   string        // Address for the runtime statistics server, if set.
}

// parseArgs parses command line arguments as applicable.
//
// If an error occurred, this exits the program with an appropriate message.
// When version information is requested, it is printed to stdout and the program ends cleanly.
func parseArgs() *Config {
	c := defaultConfig()

	flag.Usage = func() {
		fmt.Printf("%s [options] <rom file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.IntVar(&c.ScaleFactor, "scale", c.ScaleFactor, "Pixel scale factor for the display.")
	flag.BoolVar(&c.Fullscreen, "fullscreen", c.Fullscreen, "Run the display in fullscreen or windowed mode.")
	flag.IntVar(&c.Rate, "ips", c.Rate, "Number of instructions executed per second.")
	flag.Func("fg", "Foreground color as RRGGBB. (default e0e0e0)", colorFlag(&c.Foreground))
	flag.Func("bg", "Background color as RRGGBB. (default 101010)", colorFlag(&c.Background))
	flag.BoolVar(&c.Debug, "debug", c.Debug, "Start with execution paused.")
	flag.BoolVar(&c.PrintTrace, "trace", c.PrintTrace, "Print instruction trace data.")
	flag.BoolVar(&c.Mute, "mute", c.Mute, "Disable audio output.")
	flag.StringVar(&c.WavFile, "wav", c.WavFile, "Record the tone to the given WAV file.")
	flag.Int64Var(&c.Seed, "seed", c.Seed, "Random seed. Zero picks one from the clock.")
	flag.BoolVar(&c.TTY, "tty", c.TTY, "Run in the terminal instead of a window.")
	flag.DurationVar(&c.KeyHold, "key-hold", c.KeyHold, "How long a key typed in the terminal stays down.")
	flag.StringVar(&c.StatsView, "statsview", c.StatsView, "Serve runtime statistics at the given address. E.g.: localhost:18066")

	version := flag.Bool("version", false, "Display version information.")
	flag.Parse()

	if *version {
		fmt.Println(Version())
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if c.Rate < 1 || c.ScaleFactor < 1 {
		fmt.Fprintln(os.Stderr, "-ips and -scale must be positive")
		os.Exit(1)
	}

	c.Program = flag.Arg(0)
	return c
}

func defaultConfig() *Config {
	return &Config{
		ScaleFactor: 10,
		Rate:        clock.InstructionRate,
		Foreground:  display.DefaultForeground,
		Background:  display.DefaultBackground,
		KeyHold:     tty.DefaultHold,
	}
}

// colorFlag returns a flag handler storing a color in v.
func colorFlag(v *uint32) func(string) error {
	return func(s string) error {
		n, err := parseColor(s)
		if err != nil {
			return err
		}
		*v = n
		return nil
	}
}

// parseColor parses a color in RRGGBB notation with an optional # or 0x prefix.
func parseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	if len(hex) != 6 {
		return 0, errors.Errorf("invalid color %q; expected RRGGBB", s)
	}

	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid color %q", s)
	}

	return uint32(n), nil
}
