package table

import "fmt"

// FormatError indicates the input is not a supported tabular file.
type FormatError struct {
	Name string
	Ext  string
}

func (e *FormatError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("unsupported file %q: only .csv files are accepted", e.Name)
	}
	return fmt.Sprintf("unsupported file format %q for %s: only .csv files are accepted", e.Ext, e.Name)
}

// ParseError indicates malformed tabular content. Line is 1-based and 0 when unknown.
type ParseError struct {
	Name string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.Name, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
