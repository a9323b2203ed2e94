// Package trace reads and writes binary write-histogram traces: a flat
// sequence of little-endian uint64 write counts, one per logical page.
package trace

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/miretskiy/endurer/simulator"
)

// RecordSize is the width of one per-page record in bytes
const RecordSize = 8

// Load reads the trace at path
func Load(path string) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, simulator.ErrIO(fmt.Sprintf("could not open input file %s", path), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, simulator.ErrIO(fmt.Sprintf("could not stat input file %s", path), err)
	}

	counts, err := Decode(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return counts, nil
}

// Decode reads size bytes of records from r
func Decode(r io.Reader, size int64) ([]uint64, error) {
	if size%RecordSize != 0 {
		return nil, simulator.ErrMalformedInput(
			fmt.Sprintf("input size %d should be a multiple of %d", size, RecordSize))
	}

	counts := make([]uint64, size/RecordSize)
	if err := binary.Read(bufio.NewReader(r), binary.LittleEndian, counts); err != nil {
		return nil, simulator.ErrIO("short read", err)
	}
	return counts, nil
}

// Encode writes counts to w in trace format
func Encode(w io.Writer, counts []uint64) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, counts); err != nil {
		return err
	}
	return bw.Flush()
}

// Save writes counts to a new trace file at path
func Save(path string, counts []uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return simulator.ErrIO(fmt.Sprintf("could not create trace file %s", path), err)
	}
	if err := Encode(f, counts); err != nil {
		f.Close()
		return simulator.ErrIO(fmt.Sprintf("could not write trace file %s", path), err)
	}
	if err := f.Close(); err != nil {
		return simulator.ErrIO(fmt.Sprintf("could not close trace file %s", path), err)
	}
	return nil
}

// LoadAll loads the trace of every input of config, in order
func LoadAll(config simulator.SimConfig) ([][]uint64, error) {
	sets := make([][]uint64, len(config.Inputs))
	for i, in := range config.Inputs {
		counts, err := Load(in.Path)
		if err != nil {
			return nil, err
		}
		sets[i] = counts
	}
	return sets, nil
}
