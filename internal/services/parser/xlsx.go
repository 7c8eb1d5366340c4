package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads the first sheet of a workbook with the same row rules as
// delimited text. Positions are 1-based sheet rows.
func ParseXLSX(data []byte) (*Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidXLSX, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidXLSX)
	}

	// raw values keep long numeric ids out of scientific notation
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %q: %v", ErrInvalidXLSX, sheets[0], err)
	}

	res := &Result{}
	first := true
	for i, cells := range rows {
		if blankRow(cells) {
			continue
		}
		if first {
			first = false
			if isHeader(cells) {
				continue
			}
		}
		res.addFields(i+1, cells)
	}
	if first {
		return nil, ErrEmptyInput
	}
	return res, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
