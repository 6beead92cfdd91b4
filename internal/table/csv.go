package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Options controls CSV parsing.
type Options struct {
	// Delimiter for CSV. If 0, ',' is used.
	Delimiter rune
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Numeric parsing locale. DecimalSeparator defaults to '.'; ThousandsSeparator is
	// stripped before parsing when set.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultOptions returns reasonable defaults for dataset loading.
func DefaultOptions() Options {
	return Options{Delimiter: ',', DecimalSeparator: '.'}
}

// nullTokens are the cell values read as missing, in addition to the empty string.
var nullTokens = map[string]struct{}{
	"NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "-nan": {}, "null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

// IsNullToken reports whether a trimmed raw value denotes a missing cell.
func IsNullToken(v string) bool {
	if v == "" {
		return true
	}
	_, ok := nullTokens[v]
	return ok
}

// CheckFormat fails with a FormatError unless name has a .csv extension.
func CheckFormat(name string) error {
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, ".csv") {
		return &FormatError{Name: filepath.Base(name), Ext: ext}
	}
	return nil
}

// LoadFile validates the extension and parses the CSV file at path.
func LoadFile(path string, opt Options) (*Table, error) {
	if err := CheckFormat(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Name: filepath.Base(path), Err: fmt.Errorf("open csv: %w", err)}
	}
	defer f.Close()
	return Load(f, filepath.Base(path), opt)
}

// Load parses CSV content from r. The first record is the header.
func Load(r io.Reader, name string, opt Options) (*Table, error) {
	delim := opt.Delimiter
	if delim == 0 {
		delim = ','
	}
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Name: name, Err: errors.New("no columns to parse from file")}
		}
		return nil, csvParseError(name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	names, err := headerNames(header)
	if err != nil {
		return nil, &ParseError{Name: name, Line: 1, Err: err}
	}
	ncol := len(names)

	raw := make([][]string, ncol)
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	rows, processed := 0, 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, csvParseError(name, err)
		}
		rows++
		if len(rec) > ncol {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{Name: name, Line: line, Err: fmt.Errorf("expected %d fields, saw %d", ncol, len(rec))}
		}
		if processed >= maxRows {
			continue
		}
		processed++
		for j := 0; j < ncol; j++ {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			if !utf8.ValidString(v) {
				line, _ := cr.FieldPos(j)
				return nil, &ParseError{Name: name, Line: line, Err: fmt.Errorf("invalid UTF-8 in column %q", names[j])}
			}
			raw[j] = append(raw[j], v)
		}
	}

	t := &Table{Name: name, Columns: make([]*Column, ncol)}
	for j := range names {
		t.Columns[j] = buildColumn(names[j], raw[j], processed, opt)
	}
	if processed < rows {
		t.Warnings = append(t.Warnings, fmt.Sprintf("processed only %d/%d rows due to MaxRows", processed, rows))
	}
	return t, nil
}

func csvParseError(name string, err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return &ParseError{Name: name, Line: perr.Line, Err: perr.Err}
	}
	return &ParseError{Name: name, Err: err}
}

// headerNames trims header cells, names empty ones "Unnamed: <i>" and suffixes
// duplicates with ".1", ".2", ...
func headerNames(header []string) ([]string, error) {
	if len(header) == 0 {
		return nil, errors.New("empty header")
	}
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if !utf8.ValidString(h) {
			return nil, fmt.Errorf("invalid UTF-8 in header column %d", i+1)
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		base := h
		for {
			if _, dup := seen[h]; !dup {
				break
			}
			seen[base]++
			h = fmt.Sprintf("%s.%d", base, seen[base])
		}
		seen[h] = 0
		out[i] = h
	}
	return out, nil
}

// buildColumn infers the column kind and materializes its cells. A column is
// numeric when every non-null value parses as a number; a column with no
// non-null values is numeric as well.
func buildColumn(name string, vals []string, rows int, opt Options) *Column {
	cells := make([]Cell, rows)
	numeric := true
	for i := 0; i < rows; i++ {
		v := ""
		if i < len(vals) {
			v = vals[i]
		}
		if IsNullToken(v) {
			cells[i] = Cell{Null: true}
			continue
		}
		cells[i] = Cell{Str: v}
		if numeric {
			x, ok := parseNumeric(v, opt)
			if !ok {
				numeric = false
				continue
			}
			cells[i].Num = x
		}
	}
	kind := KindNumeric
	if !numeric {
		kind = KindCategorical
		for i := range cells {
			cells[i].Num = 0
		}
	}
	return &Column{Name: name, Kind: kind, Cells: cells}
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
