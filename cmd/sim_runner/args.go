package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/miretskiy/endurer/simulator"
)

// autoRecordName makes a bare --record pick a generated database name
const autoRecordName = "auto"

// options are the run settings that are not part of SimConfig
type options struct {
	configFile string
	record     bool
	recordPath string // empty: generated name
	jsonOutput bool
	outputFile string
	logLevel   string
}

type runFlags struct {
	mode             string
	pageSize         int64
	endurance        int64
	remapPeriod      float64
	inputs           []string
	timeUnits        []float64
	seed             uint32
	extraWrites      uint64
	progressInterval uint64

	opts options
}

// addRunFlags declares the simulation flags on fs
func addRunFlags(fs *pflag.FlagSet) *runFlags {
	f := &runFlags{}
	fs.StringVarP(&f.mode, "mode", "m", "", "Simulation mode: write, time or lifetime")
	fs.Int64VarP(&f.pageSize, "page-size", "p", 0, "Page size in bytes")
	fs.Int64VarP(&f.endurance, "endurance", "c", 0, "Cell write endurance")
	fs.Float64VarP(&f.remapPeriod, "remap-period", "r", 0, "Remap period in write units (write mode) or time units (time mode)")
	fs.StringArrayVarP(&f.inputs, "input", "i", nil, "Input write histogram; repeat once per node")
	fs.Float64SliceVarP(&f.timeUnits, "time-units", "t", nil, "Time units (instructions, cycles or seconds) of each input")
	fs.Uint32Var(&f.seed, "seed", simulator.DefaultRandomSeed, "Remap scheduler seed")
	fs.Uint64Var(&f.extraWrites, "extra-writes", simulator.DefaultExtraWritesPerRemap, "Writes charged to every page per remap")
	fs.Uint64Var(&f.progressInterval, "progress-interval", simulator.DefaultProgressInterval, "Iterations between progress messages (0 = off)")

	fs.StringVar(&f.opts.configFile, "config", "", "Path to JSON configuration file; flags override its values")
	fs.StringVar(&f.opts.recordPath, "record", "", "Record the run into --record=<path>.sqlite3 (bare --record picks a name)")
	fs.Lookup("record").NoOptDefVal = autoRecordName
	fs.BoolVar(&f.opts.jsonOutput, "json", false, "Print the report as JSON")
	fs.StringVar(&f.opts.outputFile, "output", "", "Write the report to this file instead of stdout")
	fs.StringVar(&f.opts.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	return f
}

// parseArgs builds a configuration from command-line arguments. It keeps no
// state between calls.
func parseArgs(args []string) (simulator.SimConfig, options, error) {
	fs := pflag.NewFlagSet("sim_runner", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := addRunFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return simulator.SimConfig{}, options{}, err
		}
		return simulator.SimConfig{}, options{}, simulator.ErrArgument(err.Error())
	}
	if fs.NArg() > 0 {
		return simulator.SimConfig{}, options{}, simulator.ErrArgument("each argument must be accompanied by a flag")
	}

	config := simulator.DefaultConfig()
	fromFile := f.opts.configFile != ""
	if fromFile {
		var err error
		if config, err = loadConfigFile(f.opts.configFile); err != nil {
			return simulator.SimConfig{}, options{}, err
		}
	}

	if err := f.apply(fs, &config, fromFile); err != nil {
		return simulator.SimConfig{}, options{}, err
	}

	opts := f.opts
	if fs.Changed("record") {
		opts.record = true
		if opts.recordPath == autoRecordName {
			opts.recordPath = ""
		}
	}
	return config, opts, nil
}

// apply overlays flags on config. Without a config file the flags the
// reference tool requires must all be present.
func (f *runFlags) apply(fs *pflag.FlagSet, config *simulator.SimConfig, fromFile bool) error {
	if fs.Changed("mode") {
		mode, err := simulator.ParseMode(f.mode)
		if err != nil {
			return simulator.ErrArgument("mode must be either 'time', 'write', or 'lifetime': <-m MODE>")
		}
		config.Mode = mode
	} else if !fromFile {
		return simulator.ErrArgument("mode must be either 'time', 'write', or 'lifetime': <-m MODE>")
	}

	if fs.Changed("page-size") {
		config.PageSizeBytes = f.pageSize
	} else if !fromFile {
		return simulator.ErrArgument("must supply page size: <-p PAGE_SIZE>")
	}

	if fs.Changed("endurance") {
		config.CellWriteEndurance = f.endurance
	} else if !fromFile {
		return simulator.ErrArgument("must supply cell write endurance: <-c ENDU>")
	}

	if fs.Changed("remap-period") {
		config.RemapPeriod = f.remapPeriod
	} else if !fromFile && config.Mode != simulator.ModeLifetime {
		return simulator.ErrArgument("must supply remap period (in time units or write units, depending on mode): <-r PERIOD>")
	}

	inputsSet, timeUnitsSet := fs.Changed("input"), fs.Changed("time-units")
	if !fromFile || inputsSet || timeUnitsSet {
		if len(f.inputs) == 0 {
			return simulator.ErrArgument("must supply input file(s): <-i INPUT_FILE> [-i INPUT_FILE]...")
		}
		if len(f.timeUnits) == 0 {
			return simulator.ErrArgument("must supply input time units (in instructions/cycles/seconds): <-t TIME_UNITS> [-t TIME_UNITS]...")
		}
		if len(f.inputs) != len(f.timeUnits) {
			return simulator.ErrInvalidConfig("must specify an identical number of input files (-i) and input time units (-t)")
		}
		config.Inputs = make([]simulator.InputConfig, len(f.inputs))
		for i := range f.inputs {
			config.Inputs[i] = simulator.InputConfig{Path: f.inputs[i], TimeUnits: f.timeUnits[i]}
		}
	}

	if fs.Changed("seed") || !fromFile {
		config.RandomSeed = f.seed
	}
	if fs.Changed("extra-writes") || !fromFile {
		config.ExtraWritesPerRemap = f.extraWrites
	}
	if fs.Changed("progress-interval") || !fromFile {
		config.ProgressInterval = f.progressInterval
	}
	return nil
}

// loadConfigFile decodes a JSON SimConfig on top of the defaults
func loadConfigFile(path string) (simulator.SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return simulator.SimConfig{}, simulator.ErrIO(fmt.Sprintf("error reading config file %s", path), err)
	}
	config := simulator.DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return simulator.SimConfig{}, simulator.ErrArgument(fmt.Sprintf("error parsing config JSON %s: %v", path, err))
	}
	return config, nil
}
