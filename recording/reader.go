package recording

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/miretskiy/endurer/simulator"
)

// Open opens an existing recording for reading
func Open(filename string) (*sql.DB, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("recording %s: %w", filename, err)
	}
	return sql.Open("sqlite3", filename)
}

// ReadRemaps returns the recorded remaps in order
func ReadRemaps(db *sql.DB) ([]simulator.RemapSample, error) {
	rows, err := db.Query("SELECT Remap, Iteration, ClusterNodeShift, Offsets FROM " + RemapTable + " ORDER BY Remap")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []simulator.RemapSample
	for rows.Next() {
		var s simulator.RemapSample
		var offsets string
		if err := rows.Scan(&s.Remap, &s.Iteration, &s.ClusterNodeShift, &offsets); err != nil {
			return nil, err
		}
		if offsets != "" {
			for _, f := range strings.Split(offsets, ",") {
				o, err := strconv.ParseUint(f, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("remap %d: bad offset %q: %w", s.Remap, f, err)
				}
				s.Offsets = append(s.Offsets, o)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
