package trace

import (
	"fmt"
	"math/rand"
)

// GenerateConfig describes a synthetic write histogram
type GenerateConfig struct {
	Pages        uint64           `json:"pages"`        // Logical pages in the trace
	MinWrites    uint64           `json:"minWrites"`    // Smallest per-page count
	MaxWrites    uint64           `json:"maxWrites"`    // Largest per-page count
	Distribution DistributionType `json:"distribution"` // Shape of the per-page counts
	Seed         int64            `json:"seed"`         // Random seed for reproducibility (0 = use time-based seed)
}

// Generate samples one write count per page
func Generate(cfg GenerateConfig) ([]uint64, error) {
	if cfg.Pages == 0 {
		return nil, fmt.Errorf("pages must be > 0")
	}
	if cfg.MinWrites > cfg.MaxWrites {
		return nil, fmt.Errorf("minWrites (%d) must be <= maxWrites (%d)", cfg.MinWrites, cfg.MaxWrites)
	}

	var rng *rand.Rand
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	} else {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	dist := NewDistribution(cfg.Distribution)
	counts := make([]uint64, cfg.Pages)
	for i := range counts {
		counts[i] = dist.Sample(rng, cfg.MinWrites, cfg.MaxWrites)
	}
	return counts, nil
}
