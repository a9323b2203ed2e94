package integration

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func twoPageDevice() *MemoryDeviceConfig {
	extra := uint64(0)
	return &MemoryDeviceConfig{
		PageSize:            "1",
		CellWriteEndurance:  10,
		RemapPeriod:         6,
		ExtraWritesPerRemap: &extra,
		EpochLatencyMs:      2,
		RemapLatencyMs:      5,
		WearWarnFraction:    0.5,
	}
}

func metricValue(t *testing.T, metrics []GensimMetricSample, name string) float64 {
	t.Helper()
	for _, m := range metrics {
		if m.Name == name {
			return m.Value
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// Given: the two-page write set [3, 5] with endurance 10
// When: requests arrive
// Then: the first pass succeeds with "warn" health and the second wears the device out
func TestMemoryModel_WearsOut(t *testing.T) {
	model, err := NewMemoryModel("nvm-0", twoPageDevice(), []uint64{3, 5})
	require.NoError(t, err)
	require.Equal(t, "nvm-0", model.Name())
	require.Equal(t, "ok", model.Health())

	res, err := model.HandleRequest(&GensimRequestContext{Component: "app"})
	require.NoError(t, err)
	require.Equal(t, "ok", res.Status)
	require.Equal(t, 2.0, res.DurationMs)
	require.Equal(t, 1.0, metricValue(t, res.Metrics, "memory.iterations"))
	require.Equal(t, "app", res.Metrics[0].Tags["caller"])
	// peak 5 of 10
	require.Equal(t, "warn", model.Health())
	require.Equal(t, "wearing", model.HealthStatus())

	res, err = model.HandleRequest(nil)
	require.NoError(t, err)
	require.Equal(t, "error", res.Status)
	require.Equal(t, "worn_out", *res.ErrorType)
	require.Equal(t, 1.0, metricValue(t, res.Metrics, "memory.peak_wear_ratio"))
	require.Equal(t, "error", model.Health())

	res, err = model.HandleRequest(nil)
	require.NoError(t, err)
	require.Equal(t, "error", res.Status)
	require.Contains(t, *res.ErrorMsg, "writes are failing")
	require.Equal(t, 2.0, metricValue(t, res.Metrics, "memory.requests"), "rejected requests are not counted")
}

func TestMemoryModel_RemapAddsLatency(t *testing.T) {
	cfg := twoPageDevice()
	cfg.CellWriteEndurance = 100
	cfg.RemapPeriod = 1
	model, err := NewMemoryModel("nvm-0", cfg, []uint64{1, 1})
	require.NoError(t, err)

	res, err := model.HandleRequest(nil)
	require.NoError(t, err)
	require.Equal(t, 7.0, res.DurationMs)
	require.Equal(t, 1.0, metricValue(t, res.Metrics, "memory.remaps"))
	require.NotEmpty(t, res.Logs)
}

func TestMemoryModel_UpdateParameters(t *testing.T) {
	model, err := NewMemoryModel("nvm-0", twoPageDevice(), []uint64{3, 5})
	require.NoError(t, err)

	_, err = model.HandleRequest(nil)
	require.NoError(t, err)

	require.NoError(t, model.UpdateParameters(map[string]interface{}{
		"remap_period":           2.0,
		"extra_writes_per_remap": 3,
	}))
	cfg := model.Config()
	require.Equal(t, 2.0, cfg["remap_period"])
	require.Equal(t, uint64(3), cfg["extra_writes_per_remap"])
	require.Equal(t, "ok", model.Health(), "the device restarts fresh")

	require.Error(t, model.UpdateParameters(map[string]interface{}{"remap_period": -1.0}))
	require.Error(t, model.UpdateParameters(map[string]interface{}{"remap_period": "often"}))
	require.Equal(t, 2.0, model.Config()["remap_period"], "failed updates keep the config")

	params := model.MutableParameters()
	require.Len(t, params, 2)
	require.Equal(t, "remap_period", params[0].Name)
	require.Equal(t, uint64(3), params[1].CurrentValue)
}

func TestNewMemoryModel_Errors(t *testing.T) {
	_, err := NewMemoryModel("x", nil, []uint64{1})
	require.Error(t, err)

	cfg := twoPageDevice()
	cfg.PageSize = "four"
	_, err = NewMemoryModel("x", cfg, []uint64{1})
	require.Error(t, err)

	_, err = NewMemoryModel("x", twoPageDevice(), []uint64{0, 0})
	require.Error(t, err)

	cfg = twoPageDevice()
	cfg.CellWriteEndurance = 0
	_, err = NewMemoryModel("x", cfg, []uint64{1})
	require.Error(t, err)
}

func TestParseSizeString(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"4096", 4096},
		{"4kb", 4096},
		{" 2 MB ", 2 << 20},
		{"1gb", 1 << 30},
		{"512b", 512},
		{"0.5kb", 512},
	}
	for _, tt := range tests {
		got, err := parseSizeString(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "kb", "-1", "0.3b", "tenmb"} {
		_, err := parseSizeString(bad)
		require.Error(t, err, bad)
	}
}
