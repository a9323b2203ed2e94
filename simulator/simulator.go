package simulator

import (
	"fmt"
)

// Clock counts simulation progress
type Clock struct {
	Iterations uint64 `json:"iterations"` // Completed, non-terminating epochs
	Remaps     uint64 `json:"remaps"`
	Terminated bool   `json:"terminated"`
}

// node is one memory of the cluster
type node struct {
	memory  []Page
	offset  uint64  // Current logical-to-physical page shift
	runtime float64 // Input time units applied to this node so far
}

// LifetimeResult is the outcome of lifetime-estimate mode
type LifetimeResult struct {
	MaxWriteCount uint64  `json:"maxWriteCount"` // Most-written page in the histogram
	SumWriteCount uint64  `json:"sumWriteCount"` // Total writes in the histogram
	TimeUnscaled  float64 `json:"timeUnscaled"`  // endurance / max * input time units
}

// Simulator is a pure, single-threaded remapping simulator.
// All state is mutated only through Step(); callers handle pacing and threading.
type Simulator struct {
	config       SimConfig
	policy       Policy
	writeSets    []*WriteSet
	nodes        []*node
	memoryNPages uint64
	offsets      OffsetSource

	clusterNodeShift uint32  // Round-robin rotation of write sets over nodes
	clock            Clock   // Iteration and remap counters
	remapTimer       float64 // Elapsed input time since the last remap (time mode)
	peakTotalWrites  uint64  // Highest TotalWrites of any page so far
	lifetime         *LifetimeResult
	stats            *Stats // Cached once computed
	observers        []Observer

	// Event logging callback (optional, for CLI/UI)
	LogEvent func(msg string)
}

// NewSimulator creates a simulator for config over the given write-set
// histograms, one per config input, in the same order.
func NewSimulator(config SimConfig, writeSets [][]uint64) (*Simulator, error) {
	return NewSimulatorWithOffsetSource(config, writeSets, nil)
}

// NewSimulatorWithOffsetSource is NewSimulator with a caller-provided offset
// source. A nil source selects the seeded RemapScheduler.
func NewSimulatorWithOffsetSource(config SimConfig, writeSets [][]uint64, offsets OffsetSource) (*Simulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(writeSets) != len(config.Inputs) {
		return nil, ErrInvalidConfig(fmt.Sprintf("got %d write sets for %d inputs", len(writeSets), len(config.Inputs)))
	}
	policy, err := config.Policy()
	if err != nil {
		return nil, err
	}

	lengths := make([]uint64, len(writeSets))
	sets := make([]*WriteSet, len(writeSets))
	for i, counts := range writeSets {
		lengths[i] = uint64(len(counts))
		sets[i] = NewWriteSet(counts)
	}

	// Every node gets the size needed by the largest write set
	memoryNPages, err := SizeMemory(lengths...)
	if err != nil {
		return nil, err
	}

	nodes := make([]*node, len(sets))
	for i := range nodes {
		nodes[i] = &node{memory: newMemory(memoryNPages)}
	}

	if offsets == nil {
		offsets = NewRemapScheduler(config.RandomSeed, memoryNPages)
	}

	config.Inputs = append([]InputConfig(nil), config.Inputs...)

	return &Simulator{
		config:       config,
		policy:       policy,
		writeSets:    sets,
		nodes:        nodes,
		memoryNPages: memoryNPages,
		offsets:      offsets,
	}, nil
}

// AddObserver registers an observer notified after every epoch and remap
func (s *Simulator) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Step runs one epoch and reports whether the simulation is still running.
// This is the ONLY method that advances the simulation.
func (s *Simulator) Step() bool {
	if s.clock.Terminated {
		return false
	}

	switch p := s.policy.(type) {
	case WriteTriggered:
		s.stepWrite(p)
	case TimeTriggered:
		s.stepTime(p)
	case LifetimeEstimate:
		s.estimateLifetime()
	}

	return !s.clock.Terminated
}

// Run steps until a page wears out. Inputs whose writes never reach the
// endurance make this loop forever.
func (s *Simulator) Run() {
	for s.Step() {
	}
}

// StepN runs at most n epochs and returns how many ran
func (s *Simulator) StepN(n uint64) uint64 {
	var ran uint64
	for ran < n && !s.clock.Terminated {
		s.Step()
		ran++
	}
	return ran
}

// stepWrite is one write-triggered epoch. Termination stops the epoch after
// the node that reached the endurance; a remap is applied only once every
// node has had its pass.
func (s *Simulator) stepWrite(p WriteTriggered) {
	endurance := uint64(s.config.CellWriteEndurance)
	shouldRemap := false
	shouldTerminate := false

	for idx, n := range s.nodes {
		wsIdx := s.AssignedWriteSet(idx)
		ws := s.writeSets[wsIdx]

		for page := 0; page < ws.Len(); page++ {
			newWrites := ws.At(page)
			pg := &n.memory[(uint64(page)+n.offset)%s.memoryNPages]

			pg.PeriodWrites += newWrites
			pg.TotalWrites += newWrites

			if float64(pg.PeriodWrites) >= p.RemapPeriod {
				shouldRemap = true
			}
			if pg.TotalWrites >= endurance {
				shouldTerminate = true
			}
			s.peakTotalWrites = max(s.peakTotalWrites, pg.TotalWrites)
		}

		n.runtime += s.config.Inputs[wsIdx].TimeUnits

		if shouldTerminate {
			break
		}
	}

	if shouldTerminate {
		s.terminate()
		return
	}
	if shouldRemap {
		s.remap(true)
	}
	s.clock.Iterations++
	s.endEpoch(shouldRemap)
}

// stepTime is one time-triggered epoch on the single node
func (s *Simulator) stepTime(p TimeTriggered) {
	endurance := uint64(s.config.CellWriteEndurance)
	n := s.nodes[0]
	ws := s.writeSets[0]
	timeUnits := s.config.Inputs[0].TimeUnits

	shouldTerminate := false
	for page := 0; page < ws.Len(); page++ {
		pg := &n.memory[(uint64(page)+n.offset)%s.memoryNPages]

		// period writes are not tracked in this mode
		pg.TotalWrites += ws.At(page)

		if pg.TotalWrites >= endurance {
			shouldTerminate = true
		}
		s.peakTotalWrites = max(s.peakTotalWrites, pg.TotalWrites)
	}
	n.runtime += timeUnits

	if shouldTerminate {
		s.terminate()
		return
	}

	s.clock.Iterations++

	remapped := false
	s.remapTimer += timeUnits
	if s.remapTimer >= p.RemapPeriod {
		s.remap(false)
		s.remapTimer = 0
		remapped = true
	}
	s.endEpoch(remapped)
}

// estimateLifetime scans the histogram once; no epochs are simulated
func (s *Simulator) estimateLifetime() {
	ws := s.writeSets[0]
	res := &LifetimeResult{
		MaxWriteCount: ws.Max(),
		SumWriteCount: ws.Sum(),
	}
	multipleOfInputTime := float64(s.config.CellWriteEndurance) / float64(res.MaxWriteCount)
	res.TimeUnscaled = multipleOfInputTime * s.config.Inputs[0].TimeUnits
	s.lifetime = res

	s.logEvent("most-written page in histogram had this many writes: %d", res.MaxWriteCount)
	s.logEvent("total number of writes in histogram (sum): %d", res.SumWriteCount)

	s.clock.Terminated = true
	for _, o := range s.observers {
		o.ObserveEpoch(s.sample(false))
	}
}

// remap charges the relocation cost to every page of every node, resets the
// period counters and draws a fresh offset per node. rotate advances the
// cluster-wide write-set assignment.
func (s *Simulator) remap(rotate bool) {
	extra := s.config.ExtraWritesPerRemap
	for _, n := range s.nodes {
		for j := range n.memory {
			n.memory[j].TotalWrites += extra
			n.memory[j].PeriodWrites = 0
		}
	}
	s.peakTotalWrites += extra

	for _, n := range s.nodes {
		n.offset = s.offsets.NextOffset()
	}
	if rotate {
		s.clusterNodeShift = (s.clusterNodeShift + 1) % uint32(len(s.nodes))
	}
	s.clock.Remaps++

	if len(s.observers) == 0 {
		return
	}
	sample := RemapSample{
		Remap:            s.clock.Remaps,
		Iteration:        s.clock.Iterations,
		ClusterNodeShift: s.clusterNodeShift,
		Offsets:          make([]uint64, len(s.nodes)),
	}
	for i, n := range s.nodes {
		sample.Offsets[i] = n.offset
	}
	for _, o := range s.observers {
		o.ObserveRemap(sample)
	}
}

func (s *Simulator) terminate() {
	s.clock.Terminated = true
	s.logEvent("Terminated after %d iterations: %d remaps; peak page writes %d",
		s.clock.Iterations, s.clock.Remaps, s.peakTotalWrites)
	for _, o := range s.observers {
		o.ObserveEpoch(s.sample(false))
	}
}

func (s *Simulator) endEpoch(remapped bool) {
	if s.config.ProgressInterval > 0 && s.clock.Iterations%s.config.ProgressInterval == 0 {
		s.logEvent("At %d iterations: %d remaps; avg. runtime %f",
			s.clock.Iterations, s.clock.Remaps, s.avgRuntime())
	}
	for _, o := range s.observers {
		o.ObserveEpoch(s.sample(remapped))
	}
}

func (s *Simulator) sample(remapped bool) EpochSample {
	return EpochSample{
		Iteration:       s.clock.Iterations,
		Remaps:          s.clock.Remaps,
		Remapped:        remapped,
		Terminated:      s.clock.Terminated,
		PeakTotalWrites: s.peakTotalWrites,
		MinRuntime:      s.minRuntime(),
		AvgRuntime:      s.avgRuntime(),
	}
}

func (s *Simulator) avgRuntime() float64 {
	total := 0.0
	for _, n := range s.nodes {
		total += n.runtime
	}
	return total / float64(len(s.nodes))
}

func (s *Simulator) minRuntime() float64 {
	m := s.nodes[0].runtime
	for _, n := range s.nodes[1:] {
		m = min(m, n.runtime)
	}
	return m
}

func (s *Simulator) logEvent(format string, args ...interface{}) {
	if s.LogEvent != nil {
		s.LogEvent(fmt.Sprintf(format, args...))
	}
}

// AssignedWriteSet returns the write set the node consumes in the current epoch
func (s *Simulator) AssignedWriteSet(nodeIdx int) int {
	return int((uint32(nodeIdx) + s.clusterNodeShift) % uint32(len(s.nodes)))
}

// Config returns the simulator configuration
func (s *Simulator) Config() SimConfig {
	return s.config
}

// Policy returns the mode variant driving the simulation
func (s *Simulator) Policy() Policy {
	return s.policy
}

// Clock returns the iteration/remap counters
func (s *Simulator) Clock() Clock {
	return s.clock
}

// IsTerminated returns true once a page reached the cell write endurance
func (s *Simulator) IsTerminated() bool {
	return s.clock.Terminated
}

// MemoryNPages returns the per-node memory size in pages
func (s *Simulator) MemoryNPages() uint64 {
	return s.memoryNPages
}

// NumNodes returns the number of nodes in the cluster
func (s *Simulator) NumNodes() int {
	return len(s.nodes)
}

// ClusterNodeShift returns the current write-set rotation
func (s *Simulator) ClusterNodeShift() uint32 {
	return s.clusterNodeShift
}

// Offset returns the node's current page offset
func (s *Simulator) Offset(nodeIdx int) uint64 {
	return s.nodes[nodeIdx].offset
}

// Runtime returns the input time applied to the node so far
func (s *Simulator) Runtime(nodeIdx int) float64 {
	return s.nodes[nodeIdx].runtime
}

// Pages returns a copy of the node's memory
func (s *Simulator) Pages(nodeIdx int) []Page {
	pages := make([]Page, len(s.nodes[nodeIdx].memory))
	copy(pages, s.nodes[nodeIdx].memory)
	return pages
}

// PeakTotalWrites returns the highest TotalWrites of any page
func (s *Simulator) PeakTotalWrites() uint64 {
	return s.peakTotalWrites
}

// WriteSet returns the i-th input histogram
func (s *Simulator) WriteSet(i int) *WriteSet {
	return s.writeSets[i]
}

// Lifetime returns the lifetime estimate, or nil before it ran or in other modes
func (s *Simulator) Lifetime() *LifetimeResult {
	return s.lifetime
}

// State returns a JSON-friendly snapshot for the UI
func (s *Simulator) State() map[string]interface{} {
	nodes := make([]map[string]interface{}, len(s.nodes))
	for i, n := range s.nodes {
		nodes[i] = map[string]interface{}{
			"offset":           n.offset,
			"runtime":          n.runtime,
			"assignedWriteSet": s.AssignedWriteSet(i),
		}
	}

	state := map[string]interface{}{
		"mode":             s.config.Mode.String(),
		"clock":            s.clock,
		"memoryNPages":     s.memoryNPages,
		"clusterNodeShift": s.clusterNodeShift,
		"peakTotalWrites":  s.peakTotalWrites,
		"endurance":        s.config.CellWriteEndurance,
		"nodes":            nodes,
	}
	if s.lifetime != nil {
		state["lifetime"] = s.lifetime
	}
	return state
}
