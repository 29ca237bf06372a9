// Package dataset turns uploaded tabular files into in-memory raw datasets.
//
// A Raw dataset is the untyped input of the analytics core: named columns whose
// dtypes are detected at load time but never validated here.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column kinds reported for raw columns, mirroring the detected series type.
const (
	KindString = string(series.String)
	KindInt    = string(series.Int)
	KindFloat  = string(series.Float)
	KindBool   = string(series.Bool)
)

var (
	// ErrEmptyDataset is returned when the input has no header or no data rows.
	ErrEmptyDataset = errors.New("dataset has no data rows")
	// ErrUnsupportedFormat is returned for uploads that are neither CSV/TSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format (use .csv, .tsv or .xlsx)")
)

// Cell values treated as missing.
var nanValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "<nil>"}

// Options controls how an uploaded file is read.
type Options struct {
	// Delimiter for CSV. If 0, '\t' is used for .tsv files and ',' otherwise.
	Delimiter rune
	// XLSX sheet selection. SheetName wins; SheetIndex is 1-based (0 means first sheet).
	SheetName  string
	SheetIndex int
}

// ColumnInfo describes one raw column.
type ColumnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Raw is an uploaded table with detected, unvalidated column types.
// It is read-only: Frame hands out copies.
type Raw struct {
	name string
	df   dataframe.DataFrame
}

// LoadFile reads a CSV/TSV/XLSX file from disk.
func LoadFile(path string, opt Options) (*Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Load(filepath.Base(path), f, opt)
}

// Load reads an uploaded file; the format is chosen from the file name extension.
func Load(name string, r io.Reader, opt Options) (*Raw, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".xlsx"):
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read xlsx: %w", err)
		}
		records, err := readXLSXRecords(name, data, opt.SheetName, opt.SheetIndex)
		if err != nil {
			return nil, err
		}
		return FromRecords(name, records)
	case strings.HasSuffix(lower, ".csv"), strings.HasSuffix(lower, ".tsv"), strings.HasSuffix(lower, ".txt"):
		delim := opt.Delimiter
		if delim == 0 {
			delim = sniffDelimiter(lower)
		}
		records, err := readCSVRecords(r, delim)
		if err != nil {
			return nil, err
		}
		return FromRecords(name, records)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
}

func readCSVRecords(r io.Reader, delim rune) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim
	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func sniffDelimiter(name string) rune {
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}

// FromRecords builds a Raw dataset from a header row followed by data rows.
// Ragged rows are padded or truncated to the header width and fully blank
// trailing rows are ignored.
func FromRecords(name string, records [][]string) (*Raw, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmptyDataset
	}
	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(header))
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate column name %q in header", h)
		}
		seen[h] = true
		header[i] = h
	}

	rows := make([][]string, 0, len(records))
	rows = append(rows, header)
	for _, rec := range records[1:] {
		row := make([]string, len(header))
		for j := range row {
			if j < len(rec) {
				row[j] = strings.TrimSpace(rec[j])
			}
		}
		rows = append(rows, row)
	}
	for len(rows) > 1 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	if len(rows) < 2 {
		return nil, ErrEmptyDataset
	}

	df := dataframe.LoadRecords(rows,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(nanValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("load records: %w", df.Err)
	}
	return &Raw{name: name, df: df}, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// Name returns the source name (usually the uploaded file name).
func (r *Raw) Name() string { return r.name }

// Format returns the lowercased file extension of the source ("csv", "xlsx", ...),
// or "" for in-memory tables.
func (r *Raw) Format() string {
	ext := strings.ToLower(filepath.Ext(r.name))
	return strings.TrimPrefix(ext, ".")
}

// Len returns the number of data rows.
func (r *Raw) Len() int { return r.df.Nrow() }

// Columns returns column names in source order.
func (r *Raw) Columns() []string { return r.df.Names() }

// HasColumn reports whether a column with exactly this name exists.
func (r *Raw) HasColumn(name string) bool {
	for _, n := range r.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Schema returns each column with its detected kind.
func (r *Raw) Schema() []ColumnInfo {
	names := r.df.Names()
	types := r.df.Types()
	out := make([]ColumnInfo, len(names))
	for i, n := range names {
		out[i] = ColumnInfo{Name: n, Kind: string(types[i])}
	}
	return out
}

// Head returns up to n data rows rendered as strings.
func (r *Raw) Head(n int) [][]string {
	if n <= 0 {
		return nil
	}
	if n > r.df.Nrow() {
		n = r.df.Nrow()
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	recs := r.df.Subset(idx).Records()
	if len(recs) <= 1 {
		return nil
	}
	return recs[1:]
}

// Rows returns every data row rendered as strings.
func (r *Raw) Rows() [][]string {
	recs := r.df.Records()
	if len(recs) <= 1 {
		return nil
	}
	return recs[1:]
}

// Frame returns a copy of the underlying dataframe.
func (r *Raw) Frame() dataframe.DataFrame { return r.df.Copy() }
