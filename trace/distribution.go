package trace

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
)

// DistributionType represents different probability distributions
type DistributionType int

const (
	DistUniform DistributionType = iota
	DistExponential
	DistGeometric
	DistFixed
)

// String returns the string representation of DistributionType
func (dt DistributionType) String() string {
	switch dt {
	case DistUniform:
		return "uniform"
	case DistExponential:
		return "exponential"
	case DistGeometric:
		return "geometric"
	case DistFixed:
		return "fixed"
	default:
		return fmt.Sprintf("unknown(%d)", int(dt))
	}
}

// ParseDistributionType parses a string into a DistributionType
func ParseDistributionType(s string) (DistributionType, error) {
	switch s {
	case "uniform":
		return DistUniform, nil
	case "exponential":
		return DistExponential, nil
	case "geometric":
		return DistGeometric, nil
	case "fixed":
		return DistFixed, nil
	default:
		return DistUniform, fmt.Errorf("invalid DistributionType: %s (must be 'uniform', 'exponential', 'geometric', or 'fixed')", s)
	}
}

// MarshalJSON implements json.Marshaler for DistributionType
func (dt DistributionType) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

// UnmarshalJSON implements json.Unmarshaler for DistributionType
func (dt *DistributionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDistributionType(s)
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// Distribution samples a per-page write count in [lo, hi]
type Distribution interface {
	Sample(rng *rand.Rand, lo, hi uint64) uint64
}

// UniformDistribution samples uniformly between lo and hi
type UniformDistribution struct{}

func (d *UniformDistribution) Sample(rng *rand.Rand, lo, hi uint64) uint64 {
	if lo >= hi {
		return lo
	}
	span := hi - lo
	if span == math.MaxUint64 {
		return rng.Uint64()
	}
	return lo + uint64(rng.Int63n(int64(min(span, math.MaxInt64-1))+1))
}

// ExponentialDistribution samples with exponential bias toward lo, giving a
// few hot pages over a cold majority
type ExponentialDistribution struct {
	Lambda float64 // Rate parameter (higher = more skewed toward lo)
}

func (d *ExponentialDistribution) Sample(rng *rand.Rand, lo, hi uint64) uint64 {
	if lo >= hi {
		return lo
	}

	// Inverse transform sampling: X = -ln(U) / lambda
	u := rng.Float64()
	if u == 0 {
		u = 1e-10 // Avoid log(0)
	}
	x := -math.Log(u) / d.Lambda

	// For lambda=0.5, 95% of values are < 6
	maxVal := 6.0 / d.Lambda
	normalized := x / maxVal
	if normalized > 1.0 {
		normalized = 1.0
	}

	return lo + uint64(normalized*float64(hi-lo))
}

// GeometricDistribution samples the number of failures before the first success
type GeometricDistribution struct {
	P float64 // Success probability (higher = more skewed toward lo)
}

func (d *GeometricDistribution) Sample(rng *rand.Rand, lo, hi uint64) uint64 {
	if lo >= hi {
		return lo
	}

	u := rng.Float64()
	if u == 0 {
		u = 1e-10
	}
	if u >= 1.0 {
		u = 0.999999 // Avoid log(1-u) = log(0)
	}

	var trials uint64
	if d.P > 0 && d.P < 1 {
		k := math.Log(1-u) / math.Log(1-d.P)
		if k > 0 {
			trials = uint64(k)
		}
	}

	if trials > hi-lo {
		trials = hi - lo
	}
	return lo + trials
}

// FixedDistribution always returns the same point of the range
type FixedDistribution struct {
	Percentage float64 // Position in the range (0.0 to 1.0)
}

func (d *FixedDistribution) Sample(_ *rand.Rand, lo, hi uint64) uint64 {
	if lo >= hi {
		return lo
	}

	percentage := math.Max(0.0, math.Min(1.0, d.Percentage))
	if percentage == 1.0 {
		return hi
	}

	result := lo + uint64(percentage*float64(hi-lo))
	if result > hi {
		return hi
	}
	return result
}

// NewDistribution creates a distribution based on type
func NewDistribution(distType DistributionType) Distribution {
	switch distType {
	case DistUniform:
		return &UniformDistribution{}
	case DistExponential:
		return &ExponentialDistribution{Lambda: 0.5}
	case DistGeometric:
		return &GeometricDistribution{P: 0.3}
	case DistFixed:
		return &FixedDistribution{Percentage: 0.5}
	default:
		return &UniformDistribution{}
	}
}
