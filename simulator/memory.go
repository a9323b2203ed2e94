package simulator

import (
	"fmt"
	"math/bits"
)

// Page is the wear state of one physical page
type Page struct {
	TotalWrites  uint64 `json:"totalWrites"`  // Never decreases during a run
	PeriodWrites uint64 `json:"periodWrites"` // Writes since the last remap of the owning memory
}

// WriteSet is an immutable per-logical-page write histogram
type WriteSet struct {
	counts []uint64
}

// NewWriteSet copies counts into a WriteSet
func NewWriteSet(counts []uint64) *WriteSet {
	ws := &WriteSet{counts: make([]uint64, len(counts))}
	copy(ws.counts, counts)
	return ws
}

// Len returns the number of logical pages
func (ws *WriteSet) Len() int {
	return len(ws.counts)
}

// At returns the write count of logical page i
func (ws *WriteSet) At(i int) uint64 {
	return ws.counts[i]
}

// Max returns the largest per-page write count
func (ws *WriteSet) Max() uint64 {
	var m uint64
	for _, c := range ws.counts {
		if c > m {
			m = c
		}
	}
	return m
}

// Sum returns the total writes in the histogram
func (ws *WriteSet) Sum() uint64 {
	var s uint64
	for _, c := range ws.counts {
		s += c
	}
	return s
}

// SizeMemory returns the page count of a memory able to hold the largest of
// the given write sets: the next power of two, or the length itself when it
// already is one.
func SizeMemory(writeSetLengths ...uint64) (uint64, error) {
	if len(writeSetLengths) == 0 {
		return 0, ErrInvalidInput("no write sets to size memory for")
	}

	var memoryNPages uint64
	for i, n := range writeSetLengths {
		if n == 0 {
			return 0, ErrInvalidInput(fmt.Sprintf("write set %d is empty", i))
		}
		msb := bits.Len64(n) - 1
		log2 := msb
		if bits.OnesCount64(n) != 1 {
			log2 = msb + 1
		}
		if log2 > 63 {
			return 0, ErrInvalidInput(fmt.Sprintf("write set %d is too large (%d pages)", i, n))
		}
		memoryNPages = max(memoryNPages, uint64(1)<<log2)
	}
	return memoryNPages, nil
}

// newMemory allocates a zeroed memory array
func newMemory(nPages uint64) []Page {
	return make([]Page, nPages)
}

// HasWrites reports whether any write set records at least one write. A run
// over write sets without writes never wears out in write mode.
func HasWrites(writeSets [][]uint64) bool {
	for _, ws := range writeSets {
		for _, c := range ws {
			if c > 0 {
				return true
			}
		}
	}
	return false
}
