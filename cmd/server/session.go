package main

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/miretskiy/endurer/simulator"
	"github.com/miretskiy/endurer/trace"
)

var errNotConfigured = errors.New("no simulation configured; send config_update first")

// simState manages one connection's simulation and UI pacing
type simState struct {
	sim       *simulator.Simulator
	config    simulator.SimConfig
	writeSets [][]uint64
	running   bool
	paused    bool
	last      simulator.EpochSample // Most recent epoch, kept by the observer hooks
	metrics   *promMetrics
	log       *logrus.Entry
	mu        sync.Mutex
	stopCh    chan struct{}
}

func newSimState(metrics *promMetrics, log *logrus.Entry) *simState {
	return &simState{
		config:  simulator.DefaultConfig(),
		metrics: metrics,
		log:     log,
		stopCh:  make(chan struct{}),
	}
}

// ObserveEpoch implements simulator.Observer. It runs inside step, under mu.
func (s *simState) ObserveEpoch(sample simulator.EpochSample) {
	s.last = sample
}

// ObserveRemap implements simulator.Observer
func (s *simState) ObserveRemap(simulator.RemapSample) {}

// updateConfig replaces the simulation. Without inline write sets the traces
// named by config are loaded from disk.
func (s *simState) updateConfig(config simulator.SimConfig, writeSets [][]uint64) error {
	if writeSets == nil {
		var err error
		if writeSets, err = trace.LoadAll(config); err != nil {
			return err
		}
	}
	if config.Mode != simulator.ModeTime && !simulator.HasWrites(writeSets) {
		return simulator.ErrInvalidInput("write sets contain no writes")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rebuild(config, writeSets); err != nil {
		return err
	}
	s.running = false
	s.paused = false
	return nil
}

// rebuild must be called with mu held
func (s *simState) rebuild(config simulator.SimConfig, writeSets [][]uint64) error {
	sim, err := simulator.NewSimulator(config, writeSets)
	if err != nil {
		return err
	}
	sim.LogEvent = func(msg string) {
		s.log.Debug(msg)
	}
	sim.AddObserver(s)
	if s.metrics != nil {
		sim.AddObserver(s.metrics)
	}

	s.sim = sim
	s.config = config
	s.writeSets = writeSets
	s.last = simulator.EpochSample{}
	return nil
}

// start begins the simulation (sets running flag)
func (s *simState) start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim == nil {
		return errNotConfigured
	}
	s.running = true
	s.paused = false
	return nil
}

// pause pauses the simulation
func (s *simState) pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// reset restarts the current configuration from fresh memories
func (s *simState) reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.paused = false
	if s.sim == nil {
		return nil
	}
	return s.rebuild(s.config, s.writeSets)
}

// isRunning returns true if simulation is running and not paused
func (s *simState) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && !s.paused
}

// getConfig returns the current simulator configuration
func (s *simState) getConfig() simulator.SimConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// step runs up to n epochs and returns the latest progress. done is set once
// the run wears out, which also stops the session.
func (s *simState) step(n uint64) (clock simulator.Clock, sample simulator.EpochSample, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim == nil || !s.running || s.paused {
		return simulator.Clock{}, simulator.EpochSample{}, false
	}

	s.sim.StepN(n)
	if s.metrics != nil {
		s.metrics.update(s.last)
	}
	if s.sim.IsTerminated() {
		s.running = false
		done = true
	}
	return s.sim.Clock(), s.last, done
}

// stats returns the derived stats of a finished run
func (s *simState) stats() *simulator.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim == nil {
		return nil
	}
	return s.sim.Stats()
}

// state returns current state
func (s *simState) state() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sim == nil {
		return nil
	}
	return s.sim.State()
}

// stop signals the UI loop to stop
func (s *simState) stop() {
	close(s.stopCh)
}
