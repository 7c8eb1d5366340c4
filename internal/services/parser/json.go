package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Scalar is a JSON value accepted as either a string or a number
type Scalar string

// UnmarshalJSON keeps the literal text of numbers and the contents of strings
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Scalar(str)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected a string or number, got %s", data)
		}
		*s = Scalar(n.String())
		return nil
	}
}

// Record is the object shape of a JSON import element
type Record struct {
	Name    *Scalar `json:"name"`
	Dota2ID *Scalar `json:"dota2id"`
	MMR     *Scalar `json:"mmr"`
	PeakMMR *Scalar `json:"peakmmr"`
	Notes   *Scalar `json:"notes"`
}

// RecordsToRows converts decoded records, numbering them from 1
func RecordsToRows(records []Record) *Result {
	res := &Result{}
	for i, rec := range records {
		res.addRecord(i+1, rec)
	}
	return res
}

func parseJSON(raw string) (*Result, error) {
	data := []byte(strings.TrimSpace(raw))
	// null would decode into a nil slice
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: top level must be an array", ErrInvalidJSON)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	res := &Result{}
	for i, el := range elements {
		position := i + 1
		trimmed := bytes.TrimSpace(el)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			res.addError(position, "element is not an object")
			continue
		}
		var rec Record
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			res.addError(position, "malformed element: %v", err)
			continue
		}
		res.addRecord(position, rec)
	}
	return res, nil
}

func (r *Result) addRecord(position int, rec Record) {
	mmr := rec.MMR
	if mmr == nil {
		mmr = rec.PeakMMR
	}

	var missing []string
	if rec.Name == nil {
		missing = append(missing, "name")
	}
	if rec.Dota2ID == nil {
		missing = append(missing, "dota2id")
	}
	if mmr == nil {
		missing = append(missing, "mmr")
	}
	if len(missing) > 0 {
		r.addError(position, "missing required field(s): %s", strings.Join(missing, ", "))
		return
	}

	row := Row{
		Position: position,
		Name:     string(*rec.Name),
		Dota2ID:  string(*rec.Dota2ID),
		MMR:      string(*mmr),
	}
	if rec.Notes != nil {
		row.Notes = string(*rec.Notes)
	}
	r.Rows = append(r.Rows, row)
}
