package parser

import (
	"strings"
)

func parseDelimited(raw string, split func(string) []string) *Result {
	res := &Result{}
	first := true
	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := split(line)
		if first {
			first = false
			if isHeader(fields) {
				continue
			}
		}
		res.addFields(i+1, fields)
	}
	return res
}

func (r *Result) addFields(position int, fields []string) {
	if len(fields) < 3 {
		r.addError(position, "expected at least 3 fields (name, dota2id, mmr), got %d", len(fields))
		return
	}
	row := Row{
		Position: position,
		Name:     fields[0],
		Dota2ID:  fields[1],
		MMR:      fields[2],
	}
	if len(fields) > 3 {
		row.Notes = fields[3]
	}
	r.Rows = append(r.Rows, row)
}

// isHeader recognises a leading "name, dota2id, ..." row
func isHeader(fields []string) bool {
	if len(fields) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(fields[0]))
	second := strings.ToLower(strings.TrimSpace(fields[1]))
	return (first == "name" || first == "player") && strings.Contains(second, "id")
}

func splitTab(line string) []string {
	return strings.Split(line, "\t")
}

// splitCSV splits on commas outside double quotes. Quotes only toggle the
// in-field state and are dropped; "" is not an escaped quote.
func splitCSV(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, current.String())
}
