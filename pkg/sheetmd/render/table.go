// Package render turns raw delimited worksheet text into Markdown table
// documents.
package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// NoData is emitted in place of a table when a worksheet contains no rows.
// Empty worksheets are a defined outcome, not an error.
const NoData = "_No data in this sheet._"

// ParseCSV parses delimited text into rows of fields. Quoted fields may
// contain the delimiter and embedded newlines. Records may be ragged; rows
// are padded to a rectangle by Normalize.
func ParseCSV(text string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// Normalize pads every row with empty fields on the right so all rows share
// the maximum observed column count.
func Normalize(rows [][]string) [][]string {
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}

	grid := make([][]string, len(rows))
	for i, row := range rows {
		padded := make([]string, cols)
		copy(padded, row)
		grid[i] = padded
	}
	return grid
}

var (
	lineBreaks  = strings.NewReplacer("\r\n", "<br>", "\r", "<br>", "\n", "<br>")
	pipePattern = regexp.MustCompile(`\\?\|`)
)

// SanitizeCell makes a cell value safe inside a Markdown table row: line
// breaks become literal <br> tokens, unescaped pipes are escaped, and the
// result is trimmed. Sanitizing an already-sanitized cell is a no-op.
func SanitizeCell(s string) string {
	s = lineBreaks.Replace(s)
	s = pipePattern.ReplaceAllString(s, `\|`)
	return strings.TrimSpace(s)
}

// Table renders rows as a Markdown table. Rows are normalized to a rectangle
// and every cell sanitized. When the first row is entirely blank, generic
// "Column N" headers are synthesized and all rows render as body rows, so a
// table never has blank headers or zero columns while any row has content.
func Table(rows [][]string) string {
	grid := Normalize(rows)
	if len(grid) == 0 || len(grid[0]) == 0 {
		return NoData
	}

	for _, row := range grid {
		for i, cell := range row {
			row[i] = SanitizeCell(cell)
		}
	}

	cols := len(grid[0])
	header := grid[0]
	body := grid[1:]
	if isBlankRow(header) {
		header = make([]string, cols)
		for i := range header {
			header[i] = fmt.Sprintf("Column %d", i+1)
		}
		body = grid
	}

	var b strings.Builder
	writeRow(&b, header)
	sep := make([]string, cols)
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&b, sep)
	for _, row := range body {
		writeRow(&b, row)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
