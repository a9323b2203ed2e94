package simulator

import "math"

const gib = 1 << 30

// Stats are the derived, normalized results of a run
type Stats struct {
	Mode Mode `json:"mode"`

	// Working-set size per input
	WSSPages []uint64  `json:"wssPages"`
	WSSBytes []uint64  `json:"wssBytes"`
	WSSGiB   []float64 `json:"wssGiB"`

	MemoryNPages uint64  `json:"memoryNPages"`
	MemsPerGiB   float64 `json:"memsPerGiB"` // Memories of this size that tile one GiB

	Remaps           uint64  `json:"remaps"`
	Iterations       uint64  `json:"iterations"`
	IterationsPerGiB float64 `json:"iterationsPerGiB"`
	ReferenceRuntime float64 `json:"referenceRuntime"` // Single node: time units * iterations; cluster: min node runtime
	TimePerGiB       float64 `json:"timePerGiB"`

	// Lifetime mode only
	TimeUnscaled  float64 `json:"timeUnscaled,omitempty"`
	MaxWriteCount uint64  `json:"maxWriteCount,omitempty"`
	SumWriteCount uint64  `json:"sumWriteCount,omitempty"`
}

// Stats computes the derived stats once and returns the cached value afterwards.
// Call it after the run terminated; earlier calls freeze the numbers at that point.
func (s *Simulator) Stats() *Stats {
	if s.stats != nil {
		return s.stats
	}
	s.stats = s.computeStats()
	return s.stats
}

func (s *Simulator) computeStats() *Stats {
	pageSize := uint64(s.config.PageSizeBytes)
	st := &Stats{
		Mode:         s.config.Mode,
		WSSPages:     make([]uint64, len(s.writeSets)),
		WSSBytes:     make([]uint64, len(s.writeSets)),
		WSSGiB:       make([]float64, len(s.writeSets)),
		MemoryNPages: s.memoryNPages,
		Remaps:       s.clock.Remaps,
		Iterations:   s.clock.Iterations,
	}

	for i, ws := range s.writeSets {
		st.WSSPages[i] = uint64(ws.Len())
		st.WSSBytes[i] = st.WSSPages[i] * pageSize
		st.WSSGiB[i] = float64(st.WSSBytes[i]) / float64(gib)
	}

	st.MemsPerGiB = float64(gib) / float64(s.memoryNPages*pageSize)
	st.IterationsPerGiB = float64(st.Iterations) * st.MemsPerGiB

	switch s.policy.(type) {
	case LifetimeEstimate:
		if s.lifetime != nil {
			st.TimeUnscaled = s.lifetime.TimeUnscaled
			st.MaxWriteCount = s.lifetime.MaxWriteCount
			st.SumWriteCount = s.lifetime.SumWriteCount
		}
	default:
		if len(s.nodes) == 1 {
			st.ReferenceRuntime = s.config.Inputs[0].TimeUnits * float64(st.Iterations)
		} else {
			// nodes finish within one epoch of each other; the minimum is representative
			st.ReferenceRuntime = math.MaxFloat64
			for _, n := range s.nodes {
				st.ReferenceRuntime = min(st.ReferenceRuntime, n.runtime)
			}
		}
		st.TimePerGiB = st.ReferenceRuntime * st.MemsPerGiB
	}

	return st
}
