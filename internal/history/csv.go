package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVSource reads draws from a comma-separated file with a header row.
// Column names are matched ignoring case and surrounding whitespace.
type CSVSource struct {
	Path          string
	MainColumns   []string
	SpecialColumn string
}

// Load reads the whole file. Ragged rows are allowed; cells past the end of a
// short row count as malformed.
func (s *CSVSource) Load(ctx context.Context) (*Result, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &DataLoadError{Source: s.Path, Err: err}
	}
	defer f.Close()

	res, err := s.read(ctx, f)
	if err != nil {
		return nil, &DataLoadError{Source: s.Path, Err: err}
	}
	return res, nil
}

func (s *CSVSource) read(ctx context.Context, r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("file is empty, header row required")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	mainIdx := make([]int, len(s.MainColumns))
	for i, name := range s.MainColumns {
		idx, err := columnIndex(header, name)
		if err != nil {
			return nil, err
		}
		mainIdx[i] = idx
	}
	specialIdx, err := columnIndex(header, s.SpecialColumn)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	cells := make([]string, len(mainIdx))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(res.Draws)+1, err)
		}

		for i, idx := range mainIdx {
			cells[i] = cell(row, idx)
		}
		rec, dropped := buildRecord(cells, cell(row, specialIdx))
		res.Draws = append(res.Draws, rec)
		res.Dropped += dropped
	}

	return res, nil
}

func columnIndex(header []string, name string) (int, error) {
	want := strings.TrimSpace(name)
	for i, h := range header {
		// Spreadsheet exports often prefix the first header with a BOM.
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		if strings.EqualFold(h, want) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("required column %q not found", name)
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

var _ Source = (*CSVSource)(nil)
