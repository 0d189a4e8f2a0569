package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/bashoori/sustainable-energy-data-platform/internal/models"
)

// rawCSV is the CSV shape of a raw zone row. Empty cells are nulls.
type rawCSV struct {
	Source      string `csv:"source"`
	Region      string `csv:"region"`
	MetricDate  string `csv:"metric_date"`
	MetricName  string `csv:"metric_name"`
	MetricValue string `csv:"metric_value"`
	Unit        string `csv:"unit"`
}

// processedCSV is the CSV shape of a processed zone row.
type processedCSV struct {
	Source         *string  `csv:"source"`
	Region         *string  `csv:"region"`
	MetricDate     string   `csv:"metric_date"`
	MetricName     *string  `csv:"metric_name"`
	MetricValue    *float64 `csv:"metric_value"`
	Unit           *string  `csv:"unit"`
	ProcessedAtUTC string   `csv:"processed_at_utc"`
}

// WriteRawCSV writes raw rows with a header line.
func WriteRawCSV(w io.Writer, rows []models.Row) error {
	records := make([]rawCSV, len(rows))

	for i, row := range rows {
		records[i] = rawCSV{
			Source:      csvText(row[models.ColumnSource]),
			Region:      csvText(row[models.ColumnRegion]),
			MetricDate:  csvText(row[models.ColumnMetricDate]),
			MetricName:  csvText(row[models.ColumnMetricName]),
			MetricValue: csvText(row[models.ColumnMetricValue]),
			Unit:        csvText(row[models.ColumnUnit]),
		}
	}

	return encode(w, records, rawCSV{})
}

// WriteProcessedCSV writes processed rows with a header line.
func WriteProcessedCSV(w io.Writer, rows []models.ProcessedRow) error {
	records := make([]processedCSV, len(rows))

	for i := range rows {
		r := &rows[i]

		rec := processedCSV{
			Source:         r.Source,
			Region:         r.Region,
			MetricName:     r.MetricName,
			MetricValue:    r.MetricValue,
			Unit:           r.Unit,
			ProcessedAtUTC: r.ProcessedAtUTC,
		}

		if r.MetricDate != nil {
			rec.MetricDate = r.MetricDate.Format(time.DateOnly)
		}

		records[i] = rec
	}

	return encode(w, records, processedCSV{})
}

func encode[T any](w io.Writer, records []T, zero T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	var err error
	if len(records) == 0 {
		err = enc.EncodeHeader(zero)
	} else {
		err = enc.Encode(records)
	}

	if err != nil {
		return fmt.Errorf("failed to encode CSV: %w", err)
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	return nil
}

func csvText(v any) string {
	if v == nil {
		return ""
	}

	return cellText(v)
}
