package simulator

//go:generate mockgen -destination "mock_simulator_test.go" -package $GOPACKAGE -write_package_comment=false github.com/miretskiy/endurer/simulator OffsetSource,Observer

// OffsetSource produces the page-mapping offset a node uses after a remap
type OffsetSource interface {
	NextOffset() uint64
}

// RemapScheduler draws offsets uniformly from [0, memoryNPages) with a fixed
// seed, so identical configurations reproduce identical remap sequences.
type RemapScheduler struct {
	rng          *mt19937
	memoryNPages uint64
}

// NewRemapScheduler creates a scheduler for memories of memoryNPages pages
func NewRemapScheduler(seed uint32, memoryNPages uint64) *RemapScheduler {
	return &RemapScheduler{
		rng:          newMT19937(seed),
		memoryNPages: memoryNPages,
	}
}

// NextOffset returns the next offset
func (r *RemapScheduler) NextOffset() uint64 {
	if r.memoryNPages == 0 {
		return 0
	}
	return r.rng.uniformUint64(r.memoryNPages - 1)
}

// MemoryNPages returns the range the scheduler draws from
func (r *RemapScheduler) MemoryNPages() uint64 {
	return r.memoryNPages
}
