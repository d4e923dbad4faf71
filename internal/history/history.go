// Package history loads historical lottery draws for frequency analysis.
//
// Draws are read fresh on every Load call from either a CSV file or a SQLite
// table. Rows are expected newest first. Cells are coerced to integers with
// ParseNumber; a cell that cannot be coerced is treated as absent and counted
// in Result.Dropped rather than failing the load.
package history

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rewired-gh/powerpick/internal/config"
	"github.com/rewired-gh/powerpick/internal/models"
)

// Source provides the full draw history, newest draw first.
type Source interface {
	Load(ctx context.Context) (*Result, error)
}

// Result is the outcome of a successful load.
type Result struct {
	Draws   []models.DrawRecord
	Dropped int // malformed cells treated as absent
}

// DataLoadError reports that the history could not be read at all: the file or
// database is missing or unreadable, or a required column does not exist.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load draw history from %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// Draws is a static Source, handy for callers that already hold the history in memory.
type Draws []models.DrawRecord

// Load returns the draws, with invalid ball numbers removed and counted as dropped.
func (d Draws) Load(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &Result{Draws: make([]models.DrawRecord, 0, len(d))}
	for _, rec := range d {
		rec, dropped := sanitize(rec)
		res.Draws = append(res.Draws, rec)
		res.Dropped += dropped
	}
	return res, nil
}

// NewSource builds the Source selected by cfg.Source.
func NewSource(cfg config.HistoryConfig) (Source, error) {
	switch cfg.Source {
	case "csv":
		return &CSVSource{
			Path:          cfg.FilePath,
			MainColumns:   cfg.MainColumns,
			SpecialColumn: cfg.SpecialColumn,
		}, nil
	case "sqlite":
		return &SQLiteSource{
			DBPath:        cfg.DBPath,
			Table:         cfg.Table,
			MainColumns:   cfg.MainColumns,
			SpecialColumn: cfg.SpecialColumn,
			OrderBy:       cfg.OrderBy,
		}, nil
	default:
		return nil, fmt.Errorf("unknown history source %q", cfg.Source)
	}
}

// ParseNumber coerces a raw cell to an integer. Surrounding whitespace is
// ignored and integral floats such as "12.0" are accepted; empty, non-numeric,
// fractional, non-finite and out-of-int32-range values are reported as absent.
func ParseNumber(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// buildRecord turns the raw cells of one row into a DrawRecord and reports
// how many of them were malformed. Missing cells (short rows) and numbers that
// cannot be on a ball (zero, negative) count as malformed.
func buildRecord(main []string, special string) (models.DrawRecord, int) {
	dropped := 0
	rec := models.DrawRecord{Main: make([]int, 0, len(main))}
	for _, cell := range main {
		n, ok := ParseNumber(cell)
		if !ok {
			dropped++
			continue
		}
		rec.Main = append(rec.Main, n)
	}
	if n, ok := ParseNumber(special); ok {
		rec.Special = &n
	} else {
		dropped++
	}
	rec, invalid := sanitize(rec)
	return rec, dropped + invalid
}

func sanitize(rec models.DrawRecord) (models.DrawRecord, int) {
	if err := rec.Validate(); err == nil {
		return rec, 0
	}
	return rec.Sanitized()
}
