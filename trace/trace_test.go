package trace

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/miretskiy/endurer/simulator"
)

func TestDecode_LittleEndianRecords(t *testing.T) {
	data := []byte{
		3, 0, 0, 0, 0, 0, 0, 0,
		5, 0, 0, 0, 0, 0, 0, 0,
		0, 1, 0, 0, 0, 0, 0, 1,
	}
	counts, err := Decode(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 5, 1<<56 | 1<<8}, counts)
}

func TestDecode_RejectsPartialRecord(t *testing.T) {
	data := make([]byte, 12)
	_, err := Decode(bytes.NewReader(data), int64(len(data)))
	require.Error(t, err)
	require.True(t, errors.Is(err, simulator.ErrKind(simulator.KindMalformedInput)))
}

func TestDecode_ShortReader(t *testing.T) {
	_, err := Decode(bytes.NewReader(make([]byte, 8)), 16)
	require.True(t, errors.Is(err, simulator.ErrKind(simulator.KindIO)))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.bin")
	counts := []uint64{2, 4, 4, 0, 1 << 40}

	require.NoError(t, Save(path, counts))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(len(counts)*RecordSize), info.Size())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, counts, loaded)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
	kind, ok := simulator.KindOf(err)
	require.True(t, ok)
	require.Equal(t, simulator.KindIO, kind)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 15), 0644))

	_, err := Load(path)
	require.True(t, errors.Is(err, simulator.ErrKind(simulator.KindMalformedInput)))
	require.Contains(t, err.Error(), path)
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	require.NoError(t, Save(a, []uint64{1, 2}))
	require.NoError(t, Save(b, []uint64{3}))

	config := simulator.DefaultConfig()
	config.Inputs = []simulator.InputConfig{{Path: a, TimeUnits: 1}, {Path: b, TimeUnits: 1}}

	sets, err := LoadAll(config)
	require.NoError(t, err)
	require.Equal(t, [][]uint64{{1, 2}, {3}}, sets)
}

func TestGenerate(t *testing.T) {
	cfg := GenerateConfig{Pages: 500, MinWrites: 10, MaxWrites: 100, Distribution: DistExponential, Seed: 42}

	a, err := Generate(cfg)
	require.NoError(t, err)
	require.Len(t, a, 500)
	for _, c := range a {
		require.GreaterOrEqual(t, c, uint64(10))
		require.LessOrEqual(t, c, uint64(100))
	}

	b, err := Generate(cfg)
	require.NoError(t, err)
	require.Equal(t, a, b, "same seed, same histogram")

	_, err = Generate(GenerateConfig{Pages: 0})
	require.Error(t, err)
	_, err = Generate(GenerateConfig{Pages: 1, MinWrites: 5, MaxWrites: 1})
	require.Error(t, err)
}
