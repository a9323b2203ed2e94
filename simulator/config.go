package simulator

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultExtraWritesPerRemap is the relocation cost charged to every page on a remap
	DefaultExtraWritesPerRemap uint64 = 1
	// DefaultRandomSeed seeds the remap scheduler
	DefaultRandomSeed uint32 = 8
	// DefaultProgressInterval is the number of iterations between progress messages
	DefaultProgressInterval uint64 = 5
)

// Mode selects the simulation policy
type Mode int

const (
	ModeWrite    Mode = iota // Remap when any page's period writes reach the remap period
	ModeTime                 // Remap every remap period of elapsed input time
	ModeLifetime             // Closed-form lifetime estimate with no remapping
)

// String returns the string representation of Mode
func (m Mode) String() string {
	switch m {
	case ModeWrite:
		return "write"
	case ModeTime:
		return "time"
	case ModeLifetime:
		return "lifetime"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMode parses a string into Mode (case-insensitive)
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "write":
		return ModeWrite, nil
	case "time":
		return ModeTime, nil
	case "lifetime":
		return ModeLifetime, nil
	default:
		return ModeWrite, ErrArgument(fmt.Sprintf("invalid mode: %q (must be 'time', 'write', or 'lifetime')", s))
	}
}

// MarshalJSON implements json.Marshaler for Mode
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON implements json.Unmarshaler for Mode
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// InputConfig is one trace and the input time it represents. Each input drives one node.
type InputConfig struct {
	Path      string  `json:"path"`      // Binary write histogram
	TimeUnits float64 `json:"timeUnits"` // Instructions, cycles or seconds covered by one pass of the trace
}

// SimConfig holds all simulation parameters
type SimConfig struct {
	Mode               Mode          `json:"mode"`
	PageSizeBytes      int64         `json:"pageSize"`           // Bytes per page
	CellWriteEndurance int64         `json:"cellWriteEndurance"` // Writes a cell sustains before wear-out
	RemapPeriod        float64       `json:"remapPeriod"`        // Write count (write mode) or time units (time mode); unused for lifetime
	Inputs             []InputConfig `json:"inputs"`             // One per node

	ExtraWritesPerRemap uint64 `json:"extraWritesPerRemap"` // Relocation writes added to every page per remap
	RandomSeed          uint32 `json:"randomSeed"`          // Remap scheduler seed
	ProgressInterval    uint64 `json:"progressInterval"`    // Iterations between progress messages (0 = off)
}

// DefaultConfig returns the knobs the reference tool hard-codes. Callers fill in
// page size, endurance, remap period and inputs.
func DefaultConfig() SimConfig {
	return SimConfig{
		Mode:                ModeWrite,
		ExtraWritesPerRemap: DefaultExtraWritesPerRemap,
		RandomSeed:          DefaultRandomSeed,
		ProgressInterval:    DefaultProgressInterval,
	}
}

// NumNodes returns the number of nodes the configuration describes
func (c *SimConfig) NumNodes() int {
	return len(c.Inputs)
}

// Validate checks if configuration values are reasonable
func (c *SimConfig) Validate() error {
	switch c.Mode {
	case ModeWrite, ModeTime, ModeLifetime:
	default:
		return ErrInvalidConfig(fmt.Sprintf("unknown mode %d", int(c.Mode)))
	}
	if c.PageSizeBytes <= 0 {
		return ErrInvalidConfig("pageSize must be > 0")
	}
	if c.CellWriteEndurance <= 0 {
		return ErrInvalidConfig("cellWriteEndurance must be > 0")
	}
	if c.Mode != ModeLifetime {
		if math.IsNaN(c.RemapPeriod) || c.RemapPeriod <= 0 {
			return ErrInvalidConfig("remapPeriod must be > 0 in write and time modes")
		}
	}
	if len(c.Inputs) == 0 {
		return ErrInvalidConfig("at least one input is required")
	}
	for i, in := range c.Inputs {
		if in.Path == "" {
			return ErrInvalidConfig(fmt.Sprintf("input %d has no path", i))
		}
		if math.IsNaN(in.TimeUnits) || math.IsInf(in.TimeUnits, 0) || in.TimeUnits <= 0 {
			return ErrInvalidConfig(fmt.Sprintf("input %d: timeUnits must be a finite value > 0", i))
		}
	}
	// Only write mode generalizes to a cluster.
	if c.Mode != ModeWrite && len(c.Inputs) != 1 {
		return ErrInvalidConfig(fmt.Sprintf("%s mode supports exactly one input (got %d); multi-node runs require write mode",
			c.Mode, len(c.Inputs)))
	}
	return nil
}

// Policy returns the tagged mode variant for this configuration
func (c *SimConfig) Policy() (Policy, error) {
	switch c.Mode {
	case ModeWrite:
		return WriteTriggered{RemapPeriod: c.RemapPeriod}, nil
	case ModeTime:
		return TimeTriggered{RemapPeriod: c.RemapPeriod}, nil
	case ModeLifetime:
		return LifetimeEstimate{}, nil
	default:
		return nil, ErrInvalidConfig(fmt.Sprintf("unknown mode %d", int(c.Mode)))
	}
}

// Policy is the mode-specific part of a configuration. Implementations are
// WriteTriggered, TimeTriggered and LifetimeEstimate.
type Policy interface {
	Mode() Mode
	isPolicy()
}

// WriteTriggered remaps at the end of an epoch in which any page's period writes reached RemapPeriod
type WriteTriggered struct {
	RemapPeriod float64
}

// TimeTriggered remaps each time RemapPeriod input time units have elapsed
type TimeTriggered struct {
	RemapPeriod float64
}

// LifetimeEstimate computes time to wear-out under identity mapping
type LifetimeEstimate struct{}

func (WriteTriggered) Mode() Mode   { return ModeWrite }
func (TimeTriggered) Mode() Mode    { return ModeTime }
func (LifetimeEstimate) Mode() Mode { return ModeLifetime }

func (WriteTriggered) isPolicy()   {}
func (TimeTriggered) isPolicy()    {}
func (LifetimeEstimate) isPolicy() {}
