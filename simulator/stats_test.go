package simulator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStats_SingleNodeWriteMode(t *testing.T) {
	config := writeConfig(10, 6, 3.0)
	sim, err := NewSimulator(config, [][]uint64{{3, 5}})
	require.NoError(t, err)
	sim.Run()

	st := sim.Stats()
	require.Equal(t, []uint64{2}, st.WSSPages)
	require.Equal(t, []uint64{2}, st.WSSBytes)
	require.Equal(t, uint64(2), st.MemoryNPages)
	require.Equal(t, float64(1<<29), st.MemsPerGiB)
	require.Equal(t, uint64(1), st.Iterations)
	require.Equal(t, uint64(0), st.Remaps)
	require.Equal(t, float64(1<<29), st.IterationsPerGiB)
	// single node: time units * iterations, not the node runtime (which includes the last epoch)
	require.Equal(t, 3.0, st.ReferenceRuntime)
	require.Equal(t, 3.0*float64(1<<29), st.TimePerGiB)
}

// Given: two nodes with different time units and no remaps
// When: node 0 wears out in the third epoch
// Then: the reference runtime is the smaller node runtime
func TestStats_ClusterUsesMinRuntime(t *testing.T) {
	config := writeConfig(3, 1e9, 1.0, 3.0)
	config.PageSizeBytes = 1024
	sim, err := NewSimulator(config, [][]uint64{{1}, {1}})
	require.NoError(t, err)
	sim.Run()

	require.Equal(t, uint64(2), sim.Clock().Iterations)
	require.Equal(t, 3.0, sim.Runtime(0))
	require.Equal(t, 6.0, sim.Runtime(1))

	st := sim.Stats()
	require.Equal(t, []uint64{1024, 1024}, st.WSSBytes)
	require.Equal(t, []float64{1024.0 / (1 << 30), 1024.0 / (1 << 30)}, st.WSSGiB)
	require.Equal(t, float64(1<<20), st.MemsPerGiB)
	require.Equal(t, 3.0, st.ReferenceRuntime)
	require.Equal(t, 3.0*float64(1<<20), st.TimePerGiB)
	require.Equal(t, 2.0*float64(1<<20), st.IterationsPerGiB)
}

func TestStats_TimeMode(t *testing.T) {
	config := writeConfig(10, 2.0, 1.0)
	config.Mode = ModeTime
	config.PageSizeBytes = 1 << 20
	sim, err := NewSimulatorWithOffsetSource(config, [][]uint64{{1, 1}}, zeroOffsets(t))
	require.NoError(t, err)
	sim.Run()

	st := sim.Stats()
	require.Equal(t, ModeTime, st.Mode)
	require.Equal(t, uint64(6), st.Iterations)
	require.Equal(t, uint64(3), st.Remaps)
	require.Equal(t, 512.0, st.MemsPerGiB)
	require.Equal(t, 6.0, st.ReferenceRuntime)
	require.Equal(t, 3072.0, st.TimePerGiB)
	require.Equal(t, 3072.0, st.IterationsPerGiB)
}

func TestStats_LifetimeMode(t *testing.T) {
	config := writeConfig(100, 0, 1.0)
	config.Mode = ModeLifetime
	sim, err := NewSimulator(config, [][]uint64{{2, 4, 4}})
	require.NoError(t, err)
	sim.Run()

	st := sim.Stats()
	require.Equal(t, 25.0, st.TimeUnscaled)
	require.Equal(t, uint64(4), st.MaxWriteCount)
	require.Equal(t, uint64(10), st.SumWriteCount)
	require.Equal(t, uint64(4), st.MemoryNPages)
	require.Equal(t, float64(1<<28), st.MemsPerGiB)
	require.Zero(t, st.TimePerGiB)
}

func TestStats_Idempotent(t *testing.T) {
	sim, err := NewSimulator(writeConfig(50, 7, 1.0, 2.0), [][]uint64{{3, 5, 1}, {2, 2}})
	require.NoError(t, err)
	sim.Run()

	first := sim.Stats()
	second := sim.Stats()
	require.Same(t, first, second)

	// a fresh computation from the same terminal state is identical
	require.Equal(t, *first, *sim.computeStats())
}
