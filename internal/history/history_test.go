package history

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/powerpick/internal/config"
)

var (
	mainCols   = []string{"Num1", "Num2", "Num3", "Num4", "Num5"}
	specialCol = "Powerball"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "draws.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"12", 12, true},
		{" 7 ", 7, true},
		{"12.0", 12, true},
		{"-3", -3, true},
		{"", 0, false},
		{"abc", 0, false},
		{"12.5", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1e30", 0, false},
		{"2147483647", 2147483647, true},
		{"99999999999", 0, false},
		{"99999999999.0", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.wantOK, ok, "ParseNumber(%q) ok", tt.in)
		assert.Equal(t, tt.want, got, "ParseNumber(%q)", tt.in)
	}
}

func TestCSVSource_Load(t *testing.T) {
	path := writeCSV(t, "Draw Date,Num1,Num2,Num3,Num4,Num5,Powerball\n"+
		"2025-08-27,3,16,29,61,69,22\n"+
		"2025-08-25,8,23,25,40,53,5\n")

	src := &CSVSource{Path: path, MainColumns: mainCols, SpecialColumn: specialCol}
	res, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Draws, 2)
	assert.Equal(t, []int{3, 16, 29, 61, 69}, res.Draws[0].Main)
	require.True(t, res.Draws[0].HasSpecial())
	assert.Equal(t, 22, *res.Draws[0].Special)
	assert.Equal(t, []int{8, 23, 25, 40, 53}, res.Draws[1].Main)
	assert.Zero(t, res.Dropped)
}

func TestCSVSource_MalformedCells(t *testing.T) {
	path := writeCSV(t, "num1, NUM2 ,Num3,Num4,Num5,powerball\n"+
		"1,x,3,4.0,,n/a\n"+
		"10,20\n")

	src := &CSVSource{Path: path, MainColumns: mainCols, SpecialColumn: specialCol}
	res, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Draws, 2)
	assert.Equal(t, []int{1, 3, 4}, res.Draws[0].Main)
	assert.False(t, res.Draws[0].HasSpecial())
	assert.Equal(t, []int{10, 20}, res.Draws[1].Main)
	assert.False(t, res.Draws[1].HasSpecial())
	// row 1: x, empty, n/a; row 2: three missing mains plus the special
	assert.Equal(t, 7, res.Dropped)
}

func TestCSVSource_NonPositiveCellsDropped(t *testing.T) {
	path := writeCSV(t, "Num1,Num2,Num3,Num4,Num5,Powerball\n"+
		"-9,-7,-5,-3,-1,-2\n"+
		"0,12,24,36,48,0\n"+
		"3,16,29,61,69,22\n")

	src := &CSVSource{Path: path, MainColumns: mainCols, SpecialColumn: specialCol}
	res, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Draws, 3)
	assert.Empty(t, res.Draws[0].Main)
	assert.False(t, res.Draws[0].HasSpecial())
	assert.Equal(t, []int{12, 24, 36, 48}, res.Draws[1].Main)
	assert.False(t, res.Draws[1].HasSpecial())
	assert.Equal(t, []int{3, 16, 29, 61, 69}, res.Draws[2].Main)
	for _, d := range res.Draws {
		assert.NoError(t, d.Validate())
	}
	assert.Equal(t, 8, res.Dropped)
}

func TestCSVSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.csv") }},
		{"empty file", func(t *testing.T) string { return writeCSV(t, "") }},
		{"missing column", func(t *testing.T) string { return writeCSV(t, "Num1,Num2,Num3,Num4,Num5\n1,2,3,4,5\n") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &CSVSource{Path: tt.path(t), MainColumns: mainCols, SpecialColumn: specialCol}
			_, err := src.Load(context.Background())
			require.Error(t, err)

			var loadErr *DataLoadError
			assert.True(t, errors.As(err, &loadErr), "expected DataLoadError, got %T", err)
		})
	}
}

func TestCSVSource_MissingFileUnwraps(t *testing.T) {
	src := &CSVSource{Path: filepath.Join(t.TempDir(), "nope.csv"), MainColumns: mainCols, SpecialColumn: specialCol}
	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSQLiteSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draws.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	_, err = db.Exec(`CREATE TABLE draws (Num1, Num2, Num3, Num4, Num5, Powerball)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO draws VALUES (1, 2, 3, 4, 5, 10), ('6', 7.0, 'bad', NULL, 9, 'x')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src := &SQLiteSource{DBPath: path, Table: "draws", MainColumns: mainCols, SpecialColumn: specialCol}
	res, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Draws, 2)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, res.Draws[0].Main)
	assert.Equal(t, 10, *res.Draws[0].Special)
	assert.Equal(t, []int{6, 7, 9}, res.Draws[1].Main)
	assert.Nil(t, res.Draws[1].Special)
	assert.Equal(t, 3, res.Dropped)
}

func TestSQLiteSource_Errors(t *testing.T) {
	src := &SQLiteSource{DBPath: filepath.Join(t.TempDir(), "missing.db"), Table: "draws", MainColumns: mainCols, SpecialColumn: specialCol}
	_, err := src.Load(context.Background())
	var loadErr *DataLoadError
	require.True(t, errors.As(err, &loadErr))

	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE other (x)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src = &SQLiteSource{DBPath: path, Table: "draws", MainColumns: mainCols, SpecialColumn: specialCol}
	_, err = src.Load(context.Background())
	assert.True(t, errors.As(err, &loadErr), "missing table should be a DataLoadError")
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(config.HistoryConfig{Source: "csv", FilePath: "a.csv", MainColumns: mainCols, SpecialColumn: specialCol})
	require.NoError(t, err)
	assert.IsType(t, &CSVSource{}, src)

	src, err = NewSource(config.HistoryConfig{Source: "sqlite", DBPath: "a.db", Table: "draws"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteSource{}, src)

	_, err = NewSource(config.HistoryConfig{Source: "xlsx"})
	assert.Error(t, err)
}

func TestDrawsSource(t *testing.T) {
	special := -4
	res, err := Draws{{Main: []int{5, -1, 9}, Special: &special}}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{5, 9}, res.Draws[0].Main)
	assert.Nil(t, res.Draws[0].Special)
	assert.Equal(t, 2, res.Dropped)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Draws{}.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
