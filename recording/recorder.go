// Package recording stores a simulation run in a SQLite database: sampled
// epochs, every remap, and the final statistics.
package recording

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/miretskiy/endurer/simulator"
)

const (
	EpochTable = "epochs"
	RemapTable = "remaps"
	RunTable   = "runs"

	defaultBatchSize = 100000
)

type epochRow struct {
	Iteration       uint64
	Remaps          uint64
	Remapped        bool
	Terminated      bool
	PeakTotalWrites uint64
	MinRuntime      float64
	AvgRuntime      float64
}

type remapRow struct {
	Remap            uint64
	Iteration        uint64
	ClusterNodeShift uint32
	Offsets          string // comma separated, one per node
}

type runRow struct {
	RunID            string
	Mode             string
	Nodes            int
	PageSizeBytes    int64
	Endurance        int64
	RemapPeriod      float64
	MemoryNPages     uint64
	Remaps           uint64
	Iterations       uint64
	ReferenceRuntime float64
	MemsPerGiB       float64
	IterationsPerGiB float64
	TimePerGiB       float64
}

type table struct {
	structType reflect.Type
	entries    []any
}

// Recorder is a simulator.Observer that writes what it observes to SQLite.
// Rows are buffered and written in batches; Close flushes what is left.
type Recorder struct {
	*sql.DB

	RunID string

	filename      string
	tables        map[string]*table
	batchSize     int
	entryCount    int
	epochInterval uint64
	err           error
}

var _ simulator.Observer = (*Recorder)(nil)

// New creates the database <path>.sqlite3. An empty path picks a unique name.
// It refuses to overwrite an existing file.
func New(path string) (*Recorder, error) {
	runID := xid.New().String()
	if path == "" {
		path = "endurer_run_" + runID
	}
	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	r := &Recorder{
		DB:            db,
		RunID:         runID,
		filename:      filename,
		tables:        make(map[string]*table),
		batchSize:     defaultBatchSize,
		epochInterval: 1,
	}

	for name, sample := range map[string]any{
		EpochTable: epochRow{},
		RemapTable: remapRow{},
		RunTable:   runRow{},
	} {
		if err := r.createTable(name, sample); err != nil {
			db.Close()
			return nil, err
		}
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	atexit.Register(func() { r.Flush() })

	return r, nil
}

// Filename returns the database file name
func (r *Recorder) Filename() string {
	return r.filename
}

// SetEpochInterval records only every n-th epoch. Epochs that remap or
// terminate are always recorded.
func (r *Recorder) SetEpochInterval(n uint64) {
	if n == 0 {
		n = 1
	}
	r.epochInterval = n
}

// SetBatchSize sets how many buffered rows trigger a flush
func (r *Recorder) SetBatchSize(n int) {
	if n <= 0 {
		n = 1
	}
	r.batchSize = n
}

// ObserveEpoch implements simulator.Observer
func (r *Recorder) ObserveEpoch(s simulator.EpochSample) {
	if !s.Remapped && !s.Terminated && s.Iteration%r.epochInterval != 0 {
		return
	}
	r.insert(EpochTable, epochRow{
		Iteration:       s.Iteration,
		Remaps:          s.Remaps,
		Remapped:        s.Remapped,
		Terminated:      s.Terminated,
		PeakTotalWrites: s.PeakTotalWrites,
		MinRuntime:      s.MinRuntime,
		AvgRuntime:      s.AvgRuntime,
	})
}

// ObserveRemap implements simulator.Observer
func (r *Recorder) ObserveRemap(s simulator.RemapSample) {
	offsets := make([]string, len(s.Offsets))
	for i, o := range s.Offsets {
		offsets[i] = strconv.FormatUint(o, 10)
	}
	r.insert(RemapTable, remapRow{
		Remap:            s.Remap,
		Iteration:        s.Iteration,
		ClusterNodeShift: s.ClusterNodeShift,
		Offsets:          strings.Join(offsets, ","),
	})
}

// RecordRun stores the configuration and final statistics of a run
func (r *Recorder) RecordRun(config simulator.SimConfig, stats *simulator.Stats) {
	r.insert(RunTable, runRow{
		RunID:            r.RunID,
		Mode:             config.Mode.String(),
		Nodes:            config.NumNodes(),
		PageSizeBytes:    config.PageSizeBytes,
		Endurance:        config.CellWriteEndurance,
		RemapPeriod:      config.RemapPeriod,
		MemoryNPages:     stats.MemoryNPages,
		Remaps:           stats.Remaps,
		Iterations:       stats.Iterations,
		ReferenceRuntime: stats.ReferenceRuntime,
		MemsPerGiB:       stats.MemsPerGiB,
		IterationsPerGiB: stats.IterationsPerGiB,
		TimePerGiB:       stats.TimePerGiB,
	})
}

// Err returns the first error hit while recording
func (r *Recorder) Err() error {
	return r.err
}

// Close flushes buffered rows and closes the database
func (r *Recorder) Close() error {
	err := r.Flush()
	return errors.Join(err, r.DB.Close())
}

func (r *Recorder) insert(tableName string, entry any) {
	if r.err != nil {
		return
	}

	t, exists := r.tables[tableName]
	if !exists {
		r.err = fmt.Errorf("table %s does not exist", tableName)
		return
	}
	t.entries = append(t.entries, entry)

	r.entryCount++
	if r.entryCount >= r.batchSize {
		r.Flush()
	}
}

// Flush writes all buffered rows in one transaction
func (r *Recorder) Flush() error {
	if r.err != nil || r.entryCount == 0 {
		return r.err
	}

	tx, err := r.Begin()
	if err != nil {
		r.err = err
		return err
	}

	for name, t := range r.tables {
		if len(t.entries) == 0 {
			continue
		}
		if err := insertAll(tx, name, t); err != nil {
			tx.Rollback()
			r.err = err
			return err
		}
		t.entries = nil
	}

	if err := tx.Commit(); err != nil {
		r.err = err
		return err
	}
	r.entryCount = 0
	return nil
}

func insertAll(tx *sql.Tx, tableName string, t *table) error {
	placeholders := make([]string, t.structType.NumField())
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmt, err := tx.Prepare("INSERT INTO " + tableName + " VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		v := reflect.ValueOf(entry)
		args := make([]any, v.NumField())
		for i := range args {
			args[i] = v.Field(i).Interface()
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert into %s: %w", tableName, err)
		}
	}
	return nil
}

func (r *Recorder) createTable(tableName string, sampleEntry any) error {
	st := reflect.TypeOf(sampleEntry)
	names := make([]string, st.NumField())
	for i := range names {
		names[i] = st.Field(i).Name
	}

	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + strings.Join(names, ", \n\t") + "\n" + `);`
	if _, err := r.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to execute: %s: %w", createTableSQL, err)
	}

	r.tables[tableName] = &table{structType: st}
	return nil
}
