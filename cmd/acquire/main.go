// cmd/acquire/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
)

// Options are shared by every command.
type Options struct {
	LogLevel string `long:"log-level" default:"info" choice:"debug" choice:"info" choice:"warn" choice:"error" description:"Minimum log level"`
	LogJSON  bool   `long:"log-json" description:"Log JSON lines instead of console output"`

	Run      RunCommand      `command:"run" description:"Poll devices, evaluate formulas and publish values"`
	Eval     EvalCommand     `command:"eval" description:"Evaluate one formula and print the result"`
	Write    WriteCommand    `command:"write" description:"Write a value to a configured channel"`
	Simulate SimulateCommand `command:"simulate" alias:"sim" description:"Serve an in-memory Modbus TCP device"`
	Ports    PortsCommand    `command:"ports" description:"List serial ports usable for RTU"`
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)

	if _, err := parser.Parse(); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from the global options.
func newLogger() zerolog.Logger {
	lvl, err := zerolog.ParseLevel(opts.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if opts.LogJSON {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	return log.Level(lvl).With().Timestamp().Logger()
}
