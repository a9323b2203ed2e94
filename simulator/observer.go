package simulator

// EpochSample describes the engine right after an epoch
type EpochSample struct {
	Iteration       uint64  `json:"iteration"` // Completed iterations (a terminating epoch is not counted)
	Remaps          uint64  `json:"remaps"`
	Remapped        bool    `json:"remapped"` // A remap closed this epoch
	Terminated      bool    `json:"terminated"`
	PeakTotalWrites uint64  `json:"peakTotalWrites"`
	MinRuntime      float64 `json:"minRuntime"`
	AvgRuntime      float64 `json:"avgRuntime"`
}

// RemapSample describes one remap event
type RemapSample struct {
	Remap            uint64   `json:"remap"`     // 1-based remap number
	Iteration        uint64   `json:"iteration"` // Iterations completed before the remap
	ClusterNodeShift uint32   `json:"clusterNodeShift"`
	Offsets          []uint64 `json:"offsets"` // New offset of every node
}

// Observer is notified as the simulation advances. Observers must not call
// back into the Simulator's Step.
type Observer interface {
	ObserveEpoch(sample EpochSample)
	ObserveRemap(sample RemapSample)
}
