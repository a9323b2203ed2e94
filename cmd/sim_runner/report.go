package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/miretskiy/endurer/simulator"
)

// report is the JSON form of a finished run
type report struct {
	Config   simulator.SimConfig `json:"config"`
	Stats    *simulator.Stats    `json:"stats"`
	Clock    simulator.Clock     `json:"clock"`
	RealTime float64             `json:"realTime"` // Wall-clock seconds
}

// writeTextReport prints the stats in the reference tool's line format
func writeTextReport(w io.Writer, st *simulator.Stats) error {
	var err error
	printf := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	if st.Mode == simulator.ModeLifetime {
		printf("most-written word in histogram had this many writes: %d\n", st.MaxWriteCount)
		printf("total number of writes in histogram (sum): %d\n", st.SumWriteCount)
	}

	printf("WSS stats:\n")
	for i := range st.WSSPages {
		printf("WSS %d: %d pages (%d bytes; %f GiB)\n", i, st.WSSPages[i], st.WSSBytes[i], st.WSSGiB[i])
	}
	printf("mems. per GiB: %f\n", st.MemsPerGiB)

	if st.Mode == simulator.ModeLifetime {
		printf("time (in instructions, cycles, or s): %f\n", st.TimeUnscaled)
	} else {
		printf("n. remaps: %d\n", st.Remaps)
		printf("n. iterations: %d\n", st.Iterations)
		printf("n. iterations per GiB: %f\n", st.IterationsPerGiB)
		printf("time (in instructions, cycles, or s) per GiB: %f\n", st.TimePerGiB)
	}
	return err
}

// writeJSONReport prints r as indented JSON
func writeJSONReport(w io.Writer, r report) error {
	output, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}
