// Package sheet converts spreadsheet workbooks into schemaless documents.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/adfharrison1/sheetstore/pkg/domain"
)

const emptyHeader = "__EMPTY"

// ErrNoSheets is returned for a workbook without any worksheet
var ErrNoSheets = errors.New("workbook has no sheets")

// DecodeBytes decodes an in-memory workbook
func DecodeBytes(data []byte) ([]domain.Document, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a workbook and converts the rows of its first sheet to documents.
// The first non-empty row holds the field names; every following non-blank row
// becomes one document. Empty cells are omitted.
func Decode(r io.Reader) ([]domain.Document, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	return decodeSheet(f, sheets[0])
}

func decodeSheet(f *excelize.File, sheetName string) ([]domain.Document, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of sheet %q: %w", sheetName, err)
	}

	first, startCol, endCol := usedRange(rows)
	docs := []domain.Document{}
	if first < 0 {
		return docs, nil
	}

	headerRow, err := headerText(f, sheetName, rows[first], first)
	if err != nil {
		return nil, err
	}
	headers := headerNames(headerRow, startCol, endCol)

	for r := first + 1; r < len(rows); r++ {
		doc := domain.Document{}
		for c := startCol; c < endCol && c < len(rows[r]); c++ {
			raw := rows[r][c]
			if raw == "" {
				continue
			}
			value, err := cellValue(f, sheetName, c, r, raw)
			if err != nil {
				return nil, err
			}
			doc[headers[c-startCol]] = value
		}
		if len(doc) > 0 {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// usedRange finds the first non-empty row and the column span holding data
func usedRange(rows [][]string) (first, startCol, endCol int) {
	first, startCol = -1, -1
	for r, row := range rows {
		for c, cell := range row {
			if cell == "" {
				continue
			}
			if first < 0 {
				first = r
			}
			if startCol < 0 || c < startCol {
				startCol = c
			}
			if c+1 > endCol {
				endCol = c + 1
			}
		}
	}
	return first, startCol, endCol
}

// headerText returns the header cells as displayed text. Raw values already
// read that way except booleans, which are stored as 1/0 and shown as TRUE/FALSE.
func headerText(f *excelize.File, sheetName string, row []string, r int) ([]string, error) {
	text := make([]string, len(row))
	for c, raw := range row {
		text[c] = raw
		if raw == "" {
			continue
		}
		value, err := cellValue(f, sheetName, c, r, raw)
		if err != nil {
			return nil, err
		}
		if b, ok := value.(bool); ok {
			text[c] = "FALSE"
			if b {
				text[c] = "TRUE"
			}
		}
	}
	return text, nil
}

// headerNames names every column of the range. Blank headers become __EMPTY
// and repeated names get a numeric suffix, so each column keeps its own field.
func headerNames(row []string, startCol, endCol int) []string {
	names := make([]string, 0, endCol-startCol)
	counts := make(map[string]int)

	for c := startCol; c < endCol; c++ {
		name := emptyHeader
		if c < len(row) && row[c] != "" {
			name = row[c]
		}

		unique := name
		if counter, seen := counts[name]; !seen {
			counts[name] = 1
		} else {
			for {
				unique = name + "_" + strconv.Itoa(counter)
				counter++
				if _, taken := counts[unique]; !taken {
					break
				}
			}
			counts[name] = counter
			counts[unique] = 1
		}
		names = append(names, unique)
	}
	return names
}

// cellValue types a raw cell: numbers become float64, booleans bool, and
// everything else stays a string
func cellValue(f *excelize.File, sheetName string, col, row int, raw string) (interface{}, error) {
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return nil, err
	}
	cellType, err := f.GetCellType(sheetName, cell)
	if err != nil {
		return nil, fmt.Errorf("failed to get type of cell %s: %w", cell, err)
	}

	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || raw == "TRUE" || raw == "true", nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if num, err := strconv.ParseFloat(raw, 64); err == nil {
			return num, nil
		}
		return raw, nil
	default:
		return raw, nil
	}
}
