package integration

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/miretskiy/endurer/simulator"
)

// MemoryDeviceConfig defines configuration for the wear-limited memory component model
type MemoryDeviceConfig struct {
	// Device Configuration
	PageSize           string  `yaml:"page_size" json:"page_size"` // Bytes, or a size string such as "4kb"
	CellWriteEndurance int64   `yaml:"cell_write_endurance" json:"cell_write_endurance"`
	RemapPeriod        float64 `yaml:"remap_period" json:"remap_period"`

	// Remapping Configuration
	ExtraWritesPerRemap *uint64 `yaml:"extra_writes_per_remap,omitempty" json:"extra_writes_per_remap,omitempty"`
	RandomSeed          uint32  `yaml:"random_seed" json:"random_seed"`

	// Latency Configuration
	EpochLatencyMs float64 `yaml:"epoch_latency_ms" json:"epoch_latency_ms"` // Cost of one pass over the write set
	RemapLatencyMs float64 `yaml:"remap_latency_ms" json:"remap_latency_ms"` // Added when the pass ends in a remap

	// Health Configuration
	WearWarnFraction float64 `yaml:"wear_warn_fraction" json:"wear_warn_fraction"` // Peak wear (of endurance) that reports "warn"
}

// GensimRequestContext contains information about the incoming request
type GensimRequestContext struct {
	Component   string
	CurrentTime float64
}

// GensimLogEntry represents a log emitted by the model
type GensimLogEntry struct {
	OffsetMs float64
	Status   string
	Message  string
}

// GensimMetricSample represents a custom metric emitted by the model
type GensimMetricSample struct {
	Name  string
	Type  string
	Value float64
	Tags  map[string]string
}

// GensimParameterDescriptor describes a mutable configuration field
type GensimParameterDescriptor struct {
	Name         string      `json:"name"`
	Type         string      `json:"type"`
	CurrentValue interface{} `json:"current_value"`
	Min          *float64    `json:"min,omitempty"`
	Max          *float64    `json:"max,omitempty"`
	Description  string      `json:"description,omitempty"`
}

// GensimResult represents the outcome of the model simulation for a request
type GensimResult struct {
	DurationMs float64
	WaitTimeMs float64
	Status     string
	ErrorType  *string
	ErrorMsg   *string
	Logs       []GensimLogEntry
	Metrics    []GensimMetricSample
}

// MemoryModel implements a wear-limited memory component: every request is
// one pass of the write histogram over the device
type MemoryModel struct {
	component string
	cfg       *MemoryDeviceConfig
	writeSet  []uint64
	mu        sync.Mutex
	sim       *simulator.Simulator
	pageSize  int64

	// Tracking for metrics
	totalRequests int64
	totalRemaps   uint64
	pendingLogs   []string // LogEvent messages of the request being handled
}

// NewMemoryModel creates a memory component that replays writeSet
func NewMemoryModel(component string, cfg *MemoryDeviceConfig, writeSet []uint64) (*MemoryModel, error) {
	if cfg == nil {
		return nil, fmt.Errorf("memory device config is required")
	}

	pageSize, err := parseSizeString(cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("page_size: %w", err)
	}
	if cfg.WearWarnFraction <= 0 || cfg.WearWarnFraction > 1 {
		cfg.WearWarnFraction = 0.9
	}
	if cfg.EpochLatencyMs < 0 || cfg.RemapLatencyMs < 0 {
		return nil, fmt.Errorf("latencies must be >= 0")
	}
	if !simulator.HasWrites([][]uint64{writeSet}) {
		return nil, fmt.Errorf("write set contains no writes")
	}

	model := &MemoryModel{
		component: component,
		cfg:       cfg,
		writeSet:  append([]uint64(nil), writeSet...),
		pageSize:  pageSize,
	}
	if err := model.rebuildLocked(); err != nil {
		return nil, err
	}
	return model, nil
}

// rebuildLocked starts a fresh device from cfg
func (r *MemoryModel) rebuildLocked() error {
	simCfg := simulator.DefaultConfig()
	simCfg.Mode = simulator.ModeWrite
	simCfg.PageSizeBytes = r.pageSize
	simCfg.CellWriteEndurance = r.cfg.CellWriteEndurance
	simCfg.RemapPeriod = r.cfg.RemapPeriod
	simCfg.RandomSeed = r.cfg.RandomSeed
	simCfg.ProgressInterval = 0
	if r.cfg.ExtraWritesPerRemap != nil {
		simCfg.ExtraWritesPerRemap = *r.cfg.ExtraWritesPerRemap
	}
	// one pass costs one unit of input time
	simCfg.Inputs = []simulator.InputConfig{{Path: r.component, TimeUnits: 1}}

	sim, err := simulator.NewSimulator(simCfg, [][]uint64{r.writeSet})
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}
	sim.LogEvent = func(msg string) {
		r.pendingLogs = append(r.pendingLogs, msg)
	}
	r.sim = sim
	return nil
}

// Name returns the component name
func (r *MemoryModel) Name() string {
	return r.component
}

// currentHealthLocked reports ("ok", "normal"), ("warn", "wearing") or ("error", "worn_out")
func (r *MemoryModel) currentHealthLocked() (string, string) {
	if r.sim.IsTerminated() {
		return "error", "worn_out"
	}
	if float64(r.sim.PeakTotalWrites()) >= r.cfg.WearWarnFraction*float64(r.cfg.CellWriteEndurance) {
		return "warn", "wearing"
	}
	return "ok", "normal"
}

// Health returns the generic health status of the memory model
func (r *MemoryModel) Health() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	generic, _ := r.currentHealthLocked()
	return generic
}

// HealthStatus returns the detailed health status of the memory model
func (r *MemoryModel) HealthStatus() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, detailed := r.currentHealthLocked()
	return detailed
}

// HandleRequest runs one pass of the write set. Requests to a worn-out device fail.
func (r *MemoryModel) HandleRequest(ctx *GensimRequestContext) (*GensimResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sim.IsTerminated() {
		errType := "worn_out"
		errMsg := fmt.Sprintf("%s is worn out - writes are failing", r.component)
		return &GensimResult{
			Status:    "error",
			ErrorType: &errType,
			ErrorMsg:  &errMsg,
			Logs:      []GensimLogEntry{{Status: "error", Message: errMsg}},
			Metrics:   r.buildMetricsLocked(0),
		}, nil
	}

	r.totalRequests++
	r.pendingLogs = r.pendingLogs[:0]
	before := r.sim.Clock()
	r.sim.Step()
	after := r.sim.Clock()

	remapped := after.Remaps > before.Remaps
	durationMs := r.cfg.EpochLatencyMs
	if remapped {
		r.totalRemaps++
		durationMs += r.cfg.RemapLatencyMs
	}

	result := &GensimResult{
		DurationMs: durationMs,
		Status:     "ok",
	}
	for _, msg := range r.pendingLogs {
		result.Logs = append(result.Logs, GensimLogEntry{OffsetMs: durationMs, Status: "info", Message: msg})
	}

	if after.Terminated {
		errType := "worn_out"
		errMsg := fmt.Sprintf("%s wore out after %d passes and %d remaps", r.component, after.Iterations, after.Remaps)
		result.Status = "error"
		result.ErrorType = &errType
		result.ErrorMsg = &errMsg
		result.Logs = append(result.Logs, GensimLogEntry{OffsetMs: durationMs, Status: "error", Message: errMsg})
	} else if remapped {
		result.Logs = append(result.Logs, GensimLogEntry{
			OffsetMs: r.cfg.EpochLatencyMs,
			Status:   "info",
			Message:  fmt.Sprintf("%s remapped (remap %d)", r.component, after.Remaps),
		})
	}

	result.Metrics = r.buildMetricsLocked(durationMs)
	if ctx != nil && ctx.Component != "" {
		for i := range result.Metrics {
			result.Metrics[i].Tags["caller"] = ctx.Component
		}
	}
	return result, nil
}

func (r *MemoryModel) buildMetricsLocked(durationMs float64) []GensimMetricSample {
	tags := func() map[string]string {
		return map[string]string{"component": r.component}
	}
	clock := r.sim.Clock()
	wear := float64(r.sim.PeakTotalWrites()) / float64(r.cfg.CellWriteEndurance)

	return []GensimMetricSample{
		{Name: "memory.request.duration_ms", Type: "histogram", Value: durationMs, Tags: tags()},
		{Name: "memory.requests", Type: "counter", Value: float64(r.totalRequests), Tags: tags()},
		{Name: "memory.iterations", Type: "gauge", Value: float64(clock.Iterations), Tags: tags()},
		{Name: "memory.remaps", Type: "counter", Value: float64(r.totalRemaps), Tags: tags()},
		{Name: "memory.peak_wear_ratio", Type: "gauge", Value: math.Min(wear, 1), Tags: tags()},
	}
}

// Config returns the current model configuration
func (r *MemoryModel) Config() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	config := map[string]interface{}{
		"page_size_bytes":      r.pageSize,
		"cell_write_endurance": r.cfg.CellWriteEndurance,
		"remap_period":         r.cfg.RemapPeriod,
		"random_seed":          r.cfg.RandomSeed,
		"epoch_latency_ms":     r.cfg.EpochLatencyMs,
		"remap_latency_ms":     r.cfg.RemapLatencyMs,
		"wear_warn_fraction":   r.cfg.WearWarnFraction,
		"memory_n_pages":       r.sim.MemoryNPages(),
	}
	if r.cfg.ExtraWritesPerRemap != nil {
		config["extra_writes_per_remap"] = *r.cfg.ExtraWritesPerRemap
	}
	return config
}

// MutableParameters returns descriptors for runtime-adjustable parameters
func (r *MemoryModel) MutableParameters() []GensimParameterDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	params := make([]GensimParameterDescriptor, 0)

	minPeriod := 1.0
	maxPeriod := float64(r.cfg.CellWriteEndurance)
	params = append(params, GensimParameterDescriptor{
		Name:         "remap_period",
		Type:         "float",
		CurrentValue: r.cfg.RemapPeriod,
		Min:          &minPeriod,
		Max:          &maxPeriod,
		Description:  "Writes any single page may take between remaps. Shorter periods spread hot pages across the device more often but charge the relocation writes more often.",
	})

	minExtra := 0.0
	maxExtra := 1000.0
	extra := uint64(simulator.DefaultExtraWritesPerRemap)
	if r.cfg.ExtraWritesPerRemap != nil {
		extra = *r.cfg.ExtraWritesPerRemap
	}
	params = append(params, GensimParameterDescriptor{
		Name:         "extra_writes_per_remap",
		Type:         "int",
		CurrentValue: extra,
		Min:          &minExtra,
		Max:          &maxExtra,
		Description:  "Writes charged to every page of the device by one remap, modelling the cost of moving data.",
	})

	return params
}

// UpdateParameters applies configuration changes. The device restarts with
// fresh memories.
func (r *MemoryModel) UpdateParameters(params map[string]interface{}) error {
	if len(params) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := *r.cfg
	if raw, ok := params["remap_period"]; ok {
		val, err := parseFloatParam(raw)
		if err != nil {
			return fmt.Errorf("remap_period: %w", err)
		}
		if val <= 0 {
			return fmt.Errorf("remap_period must be > 0")
		}
		next.RemapPeriod = val
	}

	if raw, ok := params["extra_writes_per_remap"]; ok {
		val, err := parseIntParam(raw)
		if err != nil {
			return fmt.Errorf("extra_writes_per_remap: %w", err)
		}
		if val < 0 {
			return fmt.Errorf("extra_writes_per_remap must be >= 0")
		}
		extra := uint64(val)
		next.ExtraWritesPerRemap = &extra
	}

	prev := r.cfg
	r.cfg = &next
	if err := r.rebuildLocked(); err != nil {
		r.cfg = prev
		return err
	}
	r.totalRemaps = 0
	return nil
}

// Helper functions for parameter parsing
func parseIntParam(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	case float32:
		return int(v), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

func parseFloatParam(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

// parseSizeString parses a byte count with an optional unit (b, kb, mb, gb;
// binary multiples). A plain number is bytes.
func parseSizeString(value string) (int64, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return 0, fmt.Errorf("empty value")
	}

	multiplier := 1.0
	for _, u := range []struct {
		suffix string
		scale  float64
	}{
		{"kb", 1 << 10},
		{"mb", 1 << 20},
		{"gb", 1 << 30},
		{"b", 1},
	} {
		if strings.HasSuffix(value, u.suffix) {
			multiplier = u.scale
			value = strings.TrimSuffix(value, u.suffix)
			break
		}
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse size value: %s", value)
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return 0, fmt.Errorf("invalid numeric value")
	}

	bytes := num * multiplier
	if bytes < 1 || bytes != math.Trunc(bytes) {
		return 0, fmt.Errorf("size must be a positive whole number of bytes, got %v", bytes)
	}
	return int64(bytes), nil
}
