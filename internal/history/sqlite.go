package history

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteSource reads draws from a table of a SQLite database, opened read-only.
// Columns may hold integers, reals or text; everything goes through ParseNumber.
type SQLiteSource struct {
	DBPath        string
	Table         string
	MainColumns   []string
	SpecialColumn string
	OrderBy       string // column the newest-first order follows; defaults to rowid
}

// Load runs one SELECT over the whole table.
func (s *SQLiteSource) Load(ctx context.Context) (*Result, error) {
	// mode=ro would surface a missing file as a vague "unable to open" error.
	if _, err := os.Stat(s.DBPath); err != nil {
		return nil, &DataLoadError{Source: s.DBPath, Err: err}
	}

	db, err := sql.Open("sqlite", s.dsn())
	if err != nil {
		return nil, &DataLoadError{Source: s.DBPath, Err: err}
	}
	defer db.Close()

	res, err := s.query(ctx, db)
	if err != nil {
		return nil, &DataLoadError{Source: s.DBPath, Err: err}
	}
	return res, nil
}

func (s *SQLiteSource) dsn() string {
	u := url.URL{Scheme: "file", Opaque: s.DBPath}
	q := url.Values{}
	q.Set("mode", "ro")
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *SQLiteSource) query(ctx context.Context, db *sql.DB) (*Result, error) {
	cols := make([]string, 0, len(s.MainColumns)+1)
	for _, c := range s.MainColumns {
		cols = append(cols, quoteIdent(c))
	}
	cols = append(cols, quoteIdent(s.SpecialColumn))

	orderBy := s.OrderBy
	if orderBy == "" {
		orderBy = "rowid"
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), quoteIdent(s.Table), quoteIdent(orderBy))

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query draws: %w", err)
	}
	defer rows.Close()

	res := &Result{}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	cells := make([]string, len(s.MainColumns))

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan draw row: %w", err)
		}
		for i := range cells {
			cells[i] = cellString(raw[i])
		}
		rec, dropped := buildRecord(cells, cellString(raw[len(raw)-1]))
		res.Draws = append(res.Draws, rec)
		res.Dropped += dropped
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draws: %w", err)
	}

	return res, nil
}

// cellString renders a dynamically typed SQLite value for ParseNumber. NULL becomes "".
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// quoteIdent quotes a table or column name for SQLite. rowid is left bare so
// it keeps referring to the implicit row id.
func quoteIdent(name string) string {
	if strings.EqualFold(name, "rowid") {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ Source = (*SQLiteSource)(nil)
