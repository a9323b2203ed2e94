package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/miretskiy/endurer/recording"
	"github.com/miretskiy/endurer/simulator"
	"github.com/miretskiy/endurer/trace"
)

// run loads the traces, simulates until wear-out and writes the report to
// stdout, or to the output file when one is set
func run(config simulator.SimConfig, opts options, stdout io.Writer) error {
	writeSets, err := trace.LoadAll(config)
	if err != nil {
		return err
	}
	if config.Mode != simulator.ModeTime && !simulator.HasWrites(writeSets) {
		return simulator.ErrInvalidInput("inputs contain no writes; no page can wear out")
	}

	sim, err := simulator.NewSimulator(config, writeSets)
	if err != nil {
		return err
	}
	sim.LogEvent = func(msg string) {
		logrus.Info(msg)
	}

	var rec *recording.Recorder
	if opts.record {
		if rec, err = recording.New(opts.recordPath); err != nil {
			return err
		}
		sim.AddObserver(rec)
	}

	logrus.Debugf("Starting %s-mode simulation: %d node(s), %d pages per memory",
		config.Mode, sim.NumNodes(), sim.MemoryNPages())
	startTime := time.Now()
	sim.Run()
	elapsed := time.Since(startTime)
	logrus.Debugf("Simulation completed in %v", elapsed)

	stats := sim.Stats()
	if rec != nil {
		rec.RecordRun(config, stats)
		if err := rec.Close(); err != nil {
			return fmt.Errorf("error writing recording %s: %w", rec.Filename(), err)
		}
	}

	out := stdout
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return simulator.ErrIO(fmt.Sprintf("error creating output file %s", opts.outputFile), err)
		}
		defer f.Close()
		out = f
	}

	if opts.jsonOutput {
		err = writeJSONReport(out, report{
			Config:   config,
			Stats:    stats,
			Clock:    sim.Clock(),
			RealTime: elapsed.Seconds(),
		})
	} else {
		err = writeTextReport(out, stats)
	}
	if err != nil {
		return err
	}
	if opts.outputFile != "" {
		logrus.Infof("Results written to %s", opts.outputFile)
	}
	return nil
}
