// Package models defines the record and row shapes that flow through the pipeline.
package models

import "time"

// Required column names, in schema order.
const (
	ColumnSource      = "source"
	ColumnRegion      = "region"
	ColumnMetricDate  = "metric_date"
	ColumnMetricName  = "metric_name"
	ColumnMetricValue = "metric_value"
	ColumnUnit        = "unit"

	// ColumnProcessedAt is appended to the schema by the transformer.
	ColumnProcessedAt = "processed_at_utc"
)

// RequiredColumns returns the raw schema columns in their fixed order.
func RequiredColumns() []string {
	return []string{
		ColumnSource,
		ColumnRegion,
		ColumnMetricDate,
		ColumnMetricName,
		ColumnMetricValue,
		ColumnUnit,
	}
}

// ProcessedColumns returns the processed schema columns in their fixed order.
func ProcessedColumns() []string {
	return append(RequiredColumns(), ColumnProcessedAt)
}

// Record is a single record as delivered by the source API.
type Record map[string]any

// Row is a record projected onto a column set. A nil value is a null.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}

	return out
}

// ProcessedRow is a cleaned, typed metric row.
type ProcessedRow struct {
	Source      *string
	Region      *string
	MetricDate  *time.Time
	MetricName  *string
	MetricValue *float64
	Unit        *string
	// ProcessedAtUTC is shared by every row of one transform run.
	ProcessedAtUTC string
}

// DedupKey identifies a metric observation: region, metric name and date.
type DedupKey struct {
	Region     string
	MetricName string
	MetricDate string
	// Null flags keep a null distinct from an empty string.
	RegionNull     bool
	MetricNameNull bool
	MetricDateNull bool
}

// Key returns the deduplication key of the row.
func (r *ProcessedRow) Key() DedupKey {
	var k DedupKey

	if r.Region != nil {
		k.Region = *r.Region
	} else {
		k.RegionNull = true
	}

	if r.MetricName != nil {
		k.MetricName = *r.MetricName
	} else {
		k.MetricNameNull = true
	}

	if r.MetricDate != nil {
		k.MetricDate = r.MetricDate.Format(time.DateOnly)
	} else {
		k.MetricDateNull = true
	}

	return k
}
