package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/miretskiy/endurer/recording"
	"github.com/miretskiy/endurer/simulator"
	"github.com/miretskiy/endurer/trace"
)

func writeTrace(t *testing.T, counts ...uint64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trace.bin")
	require.NoError(t, trace.Save(path, counts))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&out)
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// Given: the two-page trace [3, 5], endurance 10, remap period 6
// When: sim_runner runs in write mode
// Then: the text report shows one iteration and no remaps
func TestRun_WriteModeTextReport(t *testing.T) {
	path := writeTrace(t, 3, 5)

	out, err := execute(t, "-m", "write", "-p", "1", "-c", "10", "-r", "6", "-i", path, "-t", "1")
	require.NoError(t, err)

	require.Equal(t, strings.Join([]string{
		"WSS stats:",
		"WSS 0: 2 pages (2 bytes; 0.000000 GiB)",
		"mems. per GiB: 536870912.000000",
		"n. remaps: 0",
		"n. iterations: 1",
		"n. iterations per GiB: 536870912.000000",
		"time (in instructions, cycles, or s) per GiB: 536870912.000000",
	}, "\n")+"\n", out)
}

func TestRun_JSONReport(t *testing.T) {
	path := writeTrace(t, 3, 5)
	outFile := filepath.Join(t.TempDir(), "report.json")

	out, err := execute(t, "-m", "write", "-p", "1", "-c", "10", "-r", "6", "-i", path, "-t", "1",
		"--json", "--output", outFile)
	require.NoError(t, err)
	require.Empty(t, out, "report goes to the output file")

	var got struct {
		Config simulator.SimConfig `json:"config"`
		Stats  simulator.Stats     `json:"stats"`
		Clock  simulator.Clock     `json:"clock"`
	}
	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))

	require.Equal(t, simulator.ModeWrite, got.Config.Mode)
	require.Equal(t, simulator.Clock{Iterations: 1, Terminated: true}, got.Clock)
	require.Equal(t, uint64(2), got.Stats.MemoryNPages)
	require.Equal(t, 1.0, got.Stats.ReferenceRuntime)
}

func TestRun_LifetimeReport(t *testing.T) {
	path := writeTrace(t, 2, 4, 4)

	out, err := execute(t, "-m", "lifetime", "-p", "1", "-c", "100", "-i", path, "-t", "1.0")
	require.NoError(t, err)
	require.Contains(t, out, "most-written word in histogram had this many writes: 4\n")
	require.Contains(t, out, "total number of writes in histogram (sum): 10\n")
	require.Contains(t, out, "WSS 0: 3 pages (3 bytes; 0.000000 GiB)\n")
	require.Contains(t, out, "mems. per GiB: 268435456.000000\n")
	require.Contains(t, out, "time (in instructions, cycles, or s): 25.000000\n")
	require.NotContains(t, out, "n. remaps")
}

func TestRun_Record(t *testing.T) {
	path := writeTrace(t, 1, 2, 3, 4)
	dbPath := filepath.Join(t.TempDir(), "run")

	_, err := execute(t, "-m", "write", "-p", "4096", "-c", "40", "-r", "1", "-i", path, "-t", "2",
		"--record="+dbPath)
	require.NoError(t, err)

	db, err := recording.Open(dbPath + ".sqlite3")
	require.NoError(t, err)
	defer db.Close()

	var runs int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&runs))
	require.Equal(t, 1, runs)

	remaps, err := recording.ReadRemaps(db)
	require.NoError(t, err)
	require.NotEmpty(t, remaps)
	for _, r := range remaps {
		require.Len(t, r.Offsets, 1)
		require.Less(t, r.Offsets[0], uint64(4))
	}
}

func TestRun_Errors(t *testing.T) {
	t.Run("missing trace", func(t *testing.T) {
		_, err := execute(t, "-m", "write", "-p", "1", "-c", "10", "-r", "6",
			"-i", filepath.Join(t.TempDir(), "missing.bin"), "-t", "1")
		requireKind(t, err, simulator.KindIO)
	})

	t.Run("malformed trace", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "odd.bin")
		require.NoError(t, os.WriteFile(path, make([]byte, 9), 0644))
		_, err := execute(t, "-m", "write", "-p", "1", "-c", "10", "-r", "6", "-i", path, "-t", "1")
		requireKind(t, err, simulator.KindMalformedInput)
	})

	t.Run("cluster in time mode", func(t *testing.T) {
		a, b := writeTrace(t, 1), writeTrace(t, 2)
		_, err := execute(t, "-m", "time", "-p", "1", "-c", "10", "-r", "6", "-i", a, "-t", "1", "-i", b, "-t", "1")
		requireKind(t, err, simulator.KindValidation)
	})

	t.Run("no writes", func(t *testing.T) {
		path := writeTrace(t, 0, 0)
		_, err := execute(t, "-m", "write", "-p", "1", "-c", "10", "-r", "6", "-i", path, "-t", "1")
		requireKind(t, err, simulator.KindInvalidInput)

		_, err = execute(t, "-m", "lifetime", "-p", "1", "-c", "10", "-i", path, "-t", "1")
		requireKind(t, err, simulator.KindInvalidInput)
	})

	t.Run("bad log level", func(t *testing.T) {
		path := writeTrace(t, 1)
		_, err := execute(t, "-m", "write", "-p", "1", "-c", "10", "-r", "6", "-i", path, "-t", "1", "--log-level", "loud")
		require.Error(t, err)
	})
}

func TestRun_Help(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	require.Contains(t, out, "--page-size")
	require.Contains(t, out, "gentrace")
}

func TestGenTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synthetic.bin")

	_, err := execute(t, "gentrace", "--pages", "16", "--min-writes", "1", "--max-writes", "9",
		"--distribution", "uniform", "--seed", "3", "-o", path)
	require.NoError(t, err)

	counts, err := trace.Load(path)
	require.NoError(t, err)
	require.Len(t, counts, 16)
	for _, c := range counts {
		require.GreaterOrEqual(t, c, uint64(1))
		require.LessOrEqual(t, c, uint64(9))
	}

	_, err = execute(t, "gentrace", "--distribution", "zipf", "-o", path)
	require.Error(t, err)
}
