// Package formatter renders partition rows for terminal inspection and export.
package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/bashoori/sustainable-energy-data-platform/internal/models"
)

// NullText is shown in place of a null cell.
const NullText = "null"

// Table renders header and rows as a pipe table whose columns are padded to
// the widest cell, measured in display width.
func Table(header []string, rows [][]string) string {
	colCount := len(header)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	if colCount == 0 {
		return ""
	}

	colWidths := make([]int, colCount)

	measure := func(row []string) {
		for i := 0; i < len(row) && i < colCount; i++ {
			if w := runewidth.StringWidth(row[i]); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	measure(header)

	for _, row := range rows {
		measure(row)
	}

	// Minimum width for the "---" separator
	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, renderRow(header, colWidths))

	separator := make([]string, colCount)
	for i, w := range colWidths {
		separator[i] = strings.Repeat("-", w)
	}

	lines = append(lines, renderRow(separator, colWidths))

	for _, row := range rows {
		lines = append(lines, renderRow(row, colWidths))
	}

	return strings.Join(lines, "\n")
}

func renderRow(cells []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		content := ""
		if j < len(cells) {
			content = cells[j]
		}

		sb.WriteString(" ")
		sb.WriteString(content)

		if padding := width - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

// RowCells renders raw rows as cells in column order.
func RowCells(rows []models.Row, columns []string) [][]string {
	out := make([][]string, len(rows))

	for i, row := range rows {
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = cellText(row[col])
		}

		out[i] = cells
	}

	return out
}

// ProcessedCells renders processed rows as cells in processed column order.
func ProcessedCells(rows []models.ProcessedRow) [][]string {
	out := make([][]string, len(rows))

	for i := range rows {
		r := &rows[i]

		out[i] = []string{
			stringCell(r.Source),
			stringCell(r.Region),
			dateCell(r.MetricDate),
			stringCell(r.MetricName),
			floatCell(r.MetricValue),
			stringCell(r.Unit),
			r.ProcessedAtUTC,
		}
	}

	return out
}

func cellText(v any) string {
	if v == nil {
		return NullText
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}

func stringCell(s *string) string {
	if s == nil {
		return NullText
	}

	return *s
}

func dateCell(d *time.Time) string {
	if d == nil {
		return NullText
	}

	return d.Format(time.DateOnly)
}

func floatCell(f *float64) string {
	if f == nil {
		return NullText
	}

	return strconv.FormatFloat(*f, 'f', -1, 64)
}
