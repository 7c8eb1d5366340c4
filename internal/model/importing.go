package model

import "fmt"

// ImportError describes one rejected input row
type ImportError struct {
	// Line is the 1-based input line or array element position
	Line    int
	Rule    string
	Message string
}

func (e ImportError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// ImportResult summarizes a bulk import
type ImportResult struct {
	Added   int
	Updated int
	Skipped int
	Errors  []ImportError
}

// HasErrors reports whether the batch was rejected
func (r *ImportResult) HasErrors() bool {
	return len(r.Errors) > 0
}
