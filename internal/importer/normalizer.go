// Package importer ingests roster spreadsheets exported from assorted
// school systems. Sheets usually carry a few banner/metadata rows before
// the real header, and numeric-looking LRNs pick up trailing dots from
// spreadsheet auto-formatting; normalization undoes both.
package importer

import (
	"errors"
	"strings"
)

// ErrHeaderNotFound is returned when no row in the sheet carries an LRN
// column. Imports fail explicitly rather than guessing a header.
var ErrHeaderNotFound = errors.New("could not find header row")

const headerMarker = "LRN"

// Sheet is a normalized spreadsheet: the detected header row and the data
// rows after it, with the LRN column cleaned.
type Sheet struct {
	Headers []string
	Rows    [][]string
	// LRNColumn is the index of the column whose header contains "LRN".
	LRNColumn int
}

// Normalize locates the header row, filters blank rows, and strips trailing
// '.' characters from the LRN column only. rawRows are cell strings already
// materialized by a reader.
func Normalize(rawRows [][]string) (*Sheet, error) {
	headerIdx := -1
	for i, row := range rawRows {
		if rowHasMarker(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrHeaderNotFound
	}

	headers := make([]string, len(rawRows[headerIdx]))
	lrnCol := -1
	for i, cell := range rawRows[headerIdx] {
		headers[i] = strings.TrimSpace(cell)
		if lrnCol < 0 && strings.Contains(strings.ToUpper(headers[i]), headerMarker) {
			lrnCol = i
		}
	}

	rows := make([][]string, 0, len(rawRows)-headerIdx-1)
	for _, raw := range rawRows[headerIdx+1:] {
		if rowBlank(raw) {
			continue
		}
		row := make([]string, len(headers))
		for i := range headers {
			if i < len(raw) {
				row[i] = raw[i]
			}
		}
		if lrnCol >= 0 && lrnCol < len(row) {
			row[lrnCol] = strings.TrimRight(row[lrnCol], ".")
		}
		rows = append(rows, row)
	}

	return &Sheet{Headers: headers, Rows: rows, LRNColumn: lrnCol}, nil
}

func rowHasMarker(row []string) bool {
	for _, cell := range row {
		if strings.Contains(strings.ToUpper(strings.TrimSpace(cell)), headerMarker) {
			return true
		}
	}
	return false
}

func rowBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
