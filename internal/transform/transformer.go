// Package transform turns the latest raw partition of a dataset into a
// cleaned, deduplicated processed partition.
package transform

import (
	"fmt"
	"time"

	"github.com/bashoori/sustainable-energy-data-platform/internal/logger"
	"github.com/bashoori/sustainable-energy-data-platform/internal/models"
	"github.com/bashoori/sustainable-energy-data-platform/internal/normalizer"
	"github.com/bashoori/sustainable-energy-data-platform/internal/partition"
)

// Stage is a step of a transform run, in execution order.
type Stage string

// Stages.
const (
	StageLoaded         Stage = "loaded"
	StageSchemaEnforced Stage = "schema_enforced"
	StageTypeCast       Stage = "type_cast"
	StageDeduplicated   Stage = "deduplicated"
	StageStamped        Stage = "stamped"
	StageWritten        Stage = "written"
)

// Stats counts what the in-memory stages did to a batch.
type Stats struct {
	RowsIn     int
	RowsOut    int
	Duplicates int
	NullDates  int
	NullValues int
}

// Result summarizes one transform run.
type Result struct {
	Dataset     string
	InputPath   string
	OutputPath  string
	ProcessedAt string
	Stats
	Duration time.Duration
}

// Transformer runs Loaded → SchemaEnforced → TypeCast → Deduplicated →
// Stamped → Written for one dataset. Any failure aborts the run before the
// processed partition is committed.
type Transformer struct {
	writer   *partition.Writer
	selector *partition.Selector
	log      logger.Sink
	now      func() time.Time
}

// NewTransformer creates a transformer reading from and writing to the
// writer's data directory.
func NewTransformer(writer *partition.Writer, selector *partition.Selector, log logger.Sink) *Transformer {
	return NewTransformerWithClock(writer, selector, log, time.Now)
}

// NewTransformerWithClock creates a transformer with an injected clock.
func NewTransformerWithClock(writer *partition.Writer, selector *partition.Selector, log logger.Sink, now func() time.Time) *Transformer {
	return &Transformer{
		writer:   writer,
		selector: selector,
		log:      log,
		now:      now,
	}
}

// TransformDataset processes the latest raw partition of dataset. Earlier
// raw partitions are never read.
func (t *Transformer) TransformDataset(dataset string) (*Result, error) {
	startTime := time.Now()

	rawDir := partition.DatasetDir(t.writer.BaseDir(), partition.ZoneRaw, dataset)

	inputPath, err := t.selector.SelectLatest(rawDir, partition.ZoneRaw)
	if err != nil {
		return nil, fmt.Errorf("failed to select raw partition: %w", err)
	}

	rows, err := partition.ReadRaw(inputPath)
	if err != nil {
		return nil, err
	}

	t.stage(StageLoaded, len(rows), "path", inputPath)

	processed, stats := t.Transform(rows)

	outputPath, err := t.writer.WriteProcessed(dataset, processed)
	if err != nil {
		return nil, fmt.Errorf("failed to write processed partition: %w", err)
	}

	t.stage(StageWritten, len(processed), "path", outputPath)

	result := &Result{
		Dataset:    dataset,
		InputPath:  inputPath,
		OutputPath: outputPath,
		Stats:      stats,
		Duration:   time.Since(startTime),
	}

	if len(processed) > 0 {
		result.ProcessedAt = processed[0].ProcessedAtUTC
	}

	return result, nil
}

// Transform applies the in-memory stages to a loaded batch.
func (t *Transformer) Transform(rows []models.Row) ([]models.ProcessedRow, Stats) {
	stats := Stats{RowsIn: len(rows)}

	enforced := normalizer.EnforceSchema(rows, models.RequiredColumns())
	t.stage(StageSchemaEnforced, len(enforced))

	typed := make([]models.ProcessedRow, 0, len(enforced))

	for _, row := range enforced {
		pr, nullDate, nullValue := CastRow(row)
		if nullDate {
			stats.NullDates++
		}

		if nullValue {
			stats.NullValues++
		}

		typed = append(typed, pr)
	}

	t.stage(StageTypeCast, len(typed), "null_dates", stats.NullDates, "null_values", stats.NullValues)

	deduped := Deduplicate(typed)
	stats.Duplicates = len(typed) - len(deduped)
	t.stage(StageDeduplicated, len(deduped), "duplicates", stats.Duplicates)

	stamp := t.now().UTC().Format(time.RFC3339Nano)
	Stamp(deduped, stamp)
	t.stage(StageStamped, len(deduped), "processed_at", stamp)

	stats.RowsOut = len(deduped)

	return deduped, stats
}

func (t *Transformer) stage(s Stage, rows int, args ...any) {
	t.log.Debug("transform stage complete", append([]any{"stage", string(s), "rows", rows}, args...)...)
}

// CastRow types a schema-conforming row. The flags report a present
// metric_date or metric_value that could not be parsed and became null.
func CastRow(row models.Row) (models.ProcessedRow, bool, bool) {
	date, dateErr := ParseDate(row[models.ColumnMetricDate])
	value, valueErr := ParseNumber(row[models.ColumnMetricValue])

	return models.ProcessedRow{
		Source:      textOf(row[models.ColumnSource]),
		Region:      textOf(row[models.ColumnRegion]),
		MetricDate:  date,
		MetricName:  textOf(row[models.ColumnMetricName]),
		MetricValue: value,
		Unit:        textOf(row[models.ColumnUnit]),
	}, dateErr != nil, valueErr != nil
}

// Deduplicate keeps, for each (region, metric_name, metric_date) key, only
// the last row of the batch. Survivors stay in input order. Nulls compare
// equal to each other.
func Deduplicate(rows []models.ProcessedRow) []models.ProcessedRow {
	last := make(map[models.DedupKey]int, len(rows))
	for i := range rows {
		last[rows[i].Key()] = i
	}

	out := make([]models.ProcessedRow, 0, len(last))

	for i := range rows {
		if last[rows[i].Key()] == i {
			out = append(out, rows[i])
		}
	}

	return out
}

// Stamp sets the same processed-at value on every row.
func Stamp(rows []models.ProcessedRow, processedAt string) {
	for i := range rows {
		rows[i].ProcessedAtUTC = processedAt
	}
}
