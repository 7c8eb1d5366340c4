// Package parser turns pasted or uploaded player lists into raw field rows.
// It does not validate field contents; see the validator package.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies an input encoding
type Format string

const (
	FormatTab  Format = "tab"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

var (
	ErrEmptyInput    = errors.New("input is empty")
	ErrInvalidJSON   = errors.New("input must be a JSON array of player objects")
	ErrUnknownFormat = errors.New("unknown import format")
	ErrInvalidXLSX   = errors.New("invalid spreadsheet")
)

// Row is one record's raw fields
type Row struct {
	// Position is the 1-based input line, sheet row or array element
	Position int
	Name     string
	Dota2ID  string
	MMR      string
	Notes    string
}

// RowError is a row that could not be turned into fields
type RowError struct {
	Position int
	Message  string
}

// Result holds the rows and row-level errors of one parse
type Result struct {
	Rows   []Row
	Errors []RowError
}

func (r *Result) addError(position int, format string, args ...any) {
	r.Errors = append(r.Errors, RowError{Position: position, Message: fmt.Sprintf(format, args...)})
}

// ParseFormat resolves a user-supplied format name. An empty name yields "".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return "", nil
	case "tab", "tsv", "txt":
		return FormatTab, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromFilename picks a format from a file extension
func FormatFromFilename(filename string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension", ErrUnknownFormat, filename)
	}
	return ParseFormat(ext)
}

// DetectFormat guesses the format of pasted text
func DetectFormat(raw string) Format {
	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{"):
		return FormatJSON
	case strings.Contains(trimmed, "\t"):
		return FormatTab
	default:
		return FormatCSV
	}
}

// Parse splits raw text into rows. An empty format is detected from the content.
// Parse-level failures are returned as errors; per-row problems are collected in the result.
func Parse(raw string, format Format) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyInput
	}
	if format == "" {
		format = DetectFormat(raw)
	}

	switch format {
	case FormatTab:
		return parseDelimited(raw, splitTab), nil
	case FormatCSV:
		return parseDelimited(raw, splitCSV), nil
	case FormatJSON:
		return parseJSON(raw)
	case FormatXLSX:
		return nil, fmt.Errorf("%w: spreadsheets must be uploaded as files", ErrUnknownFormat)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ParseBytes parses raw file contents, including xlsx
func ParseBytes(data []byte, format Format) (*Result, error) {
	if format == FormatXLSX {
		return ParseXLSX(data)
	}
	return Parse(string(data), format)
}
