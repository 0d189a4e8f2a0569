package partition

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/bashoori/sustainable-energy-data-platform/internal/models"
)

const secondsPerDay = 24 * 60 * 60

// rawRecord is the raw zone file schema. Values keep their source text.
type rawRecord struct {
	Source      *string `parquet:"source,optional"`
	Region      *string `parquet:"region,optional"`
	MetricDate  *string `parquet:"metric_date,optional"`
	MetricName  *string `parquet:"metric_name,optional"`
	MetricValue *string `parquet:"metric_value,optional"`
	Unit        *string `parquet:"unit,optional"`
}

// processedRecord declares the processed zone file schema. metric_date is a
// DATE column (days since the Unix epoch). Rows are written as parquet.Row
// values so that day 0 stays distinct from null.
type processedRecord struct {
	Source         *string  `parquet:"source,optional"`
	Region         *string  `parquet:"region,optional"`
	MetricDate     int32    `parquet:"metric_date,optional,date"`
	MetricName     *string  `parquet:"metric_name,optional"`
	MetricValue    *float64 `parquet:"metric_value,optional"`
	Unit           *string  `parquet:"unit,optional"`
	ProcessedAtUTC string   `parquet:"processed_at_utc"`
}

var processedSchema = parquet.SchemaOf(processedRecord{})

func toRawRecord(row models.Row) (rawRecord, error) {
	var rec rawRecord

	fields := []struct {
		col string
		dst **string
	}{
		{models.ColumnSource, &rec.Source},
		{models.ColumnRegion, &rec.Region},
		{models.ColumnMetricDate, &rec.MetricDate},
		{models.ColumnMetricName, &rec.MetricName},
		{models.ColumnMetricValue, &rec.MetricValue},
		{models.ColumnUnit, &rec.Unit},
	}

	for _, f := range fields {
		s, err := textValue(row[f.col])
		if err != nil {
			return rawRecord{}, fmt.Errorf("column %s: %w", f.col, err)
		}

		*f.dst = s
	}

	return rec, nil
}

// toProcessedRow encodes r against processedSchema.
func toProcessedRow(r *models.ProcessedRow) parquet.Row {
	row := make(parquet.Row, len(processedSchema.Columns()))

	set := func(col string, v parquet.Value, present bool) {
		leaf, _ := processedSchema.Lookup(col)

		def := 0
		if present {
			def = leaf.MaxDefinitionLevel
		}

		row[leaf.ColumnIndex] = v.Level(0, def, leaf.ColumnIndex)
	}

	setText := func(col string, s *string) {
		if s == nil {
			set(col, parquet.NullValue(), false)

			return
		}

		set(col, parquet.ByteArrayValue([]byte(*s)), true)
	}

	setText(models.ColumnSource, r.Source)
	setText(models.ColumnRegion, r.Region)
	setText(models.ColumnMetricName, r.MetricName)
	setText(models.ColumnUnit, r.Unit)

	if r.MetricDate != nil {
		set(models.ColumnMetricDate, parquet.Int32Value(epochDays(*r.MetricDate)), true)
	} else {
		set(models.ColumnMetricDate, parquet.NullValue(), false)
	}

	if r.MetricValue != nil {
		set(models.ColumnMetricValue, parquet.DoubleValue(*r.MetricValue), true)
	} else {
		set(models.ColumnMetricValue, parquet.NullValue(), false)
	}

	set(models.ColumnProcessedAt, parquet.ByteArrayValue([]byte(r.ProcessedAtUTC)), true)

	return row
}

func epochDays(t time.Time) int32 {
	return int32(calendarDate(t).Unix() / secondsPerDay)
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func writeRawFile(path string, records []rawRecord) error {
	return parquet.WriteFile(path, records, parquet.Compression(&parquet.Snappy))
}

func writeProcessedFile(path string, rows []models.ProcessedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	pw := parquet.NewWriter(f, processedSchema, parquet.Compression(&parquet.Snappy))

	prows := make([]parquet.Row, len(rows))
	for i := range rows {
		prows[i] = toProcessedRow(&rows[i])
	}

	if _, err := pw.WriteRows(prows); err != nil {
		_ = f.Close()

		return err
	}

	if err := pw.Close(); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}

// textValue renders a decoded value as the text stored in the raw zone.
func textValue(v any) (*string, error) {
	var s string

	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = x
	case json.Number:
		s = x.String()
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case uint64:
		s = strconv.FormatUint(x, 10)
	case bool:
		s = strconv.FormatBool(x)
	case time.Time:
		s = x.UTC().Format(time.RFC3339Nano)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}

		s = string(b)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}

	return &s, nil
}

func deref(s *string) any {
	if s == nil {
		return nil
	}

	return *s
}

// fileColumn is a wanted column found in a file's schema.
type fileColumn struct {
	typ  parquet.Type
	name string
}

// scanFile calls visit with one map per row of the parquet file at path,
// holding the values of the wanted columns that the file has. Columns the
// file lacks are absent from the map. The file's own schema decides how
// values are decoded, so files written by other tools can be read too.
func scanFile(path string, wanted []string, visit func(map[string]any) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnreadablePartition, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreadablePartition, err)
	}

	columns, err := resolveColumns(pf.Schema(), wanted)
	if err != nil {
		return err
	}

	buf := make([]parquet.Row, 128)

	for _, rg := range pf.RowGroups() {
		if err := scanRowGroup(rg, columns, buf, visit); err != nil {
			return err
		}
	}

	return nil
}

func resolveColumns(schema *parquet.Schema, wanted []string) (map[int]fileColumn, error) {
	columns := make(map[int]fileColumn, len(wanted))

	for _, name := range wanted {
		leaf, ok := schema.Lookup(name)
		if !ok {
			continue
		}

		if leaf.MaxRepetitionLevel > 0 {
			return nil, fmt.Errorf("%w: column %s is repeated", ErrUnsupportedType, name)
		}

		columns[leaf.ColumnIndex] = fileColumn{typ: leaf.Node.Type(), name: name}
	}

	return columns, nil
}

func scanRowGroup(rg parquet.RowGroup, columns map[int]fileColumn, buf []parquet.Row, visit func(map[string]any) error) error {
	rows := rg.Rows()

	defer func() {
		_ = rows.Close()
	}()

	for {
		n, err := rows.ReadRows(buf)

		for _, row := range buf[:n] {
			out := make(map[string]any, len(columns))

			for _, v := range row {
				col, ok := columns[v.Column()]
				if !ok {
					continue
				}

				x, convErr := decodeValue(v, col.typ)
				if convErr != nil {
					return fmt.Errorf("column %s: %w", col.name, convErr)
				}

				out[col.name] = x
			}

			if visitErr := visit(out); visitErr != nil {
				return visitErr
			}
		}

		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnreadablePartition, err)
		}
	}
}

// decodeValue converts a parquet value to nil, string, bool, int64, uint64,
// float32, float64 or time.Time. DATE values become "YYYY-MM-DD" text.
func decodeValue(v parquet.Value, typ parquet.Type) (any, error) {
	if v.IsNull() {
		return nil, nil
	}

	lt := typ.LogicalType()

	switch {
	case lt != nil && lt.Date != nil:
		return time.Unix(int64(v.Int32())*secondsPerDay, 0).UTC().Format(time.DateOnly), nil
	case lt != nil && lt.Timestamp != nil:
		return timestampOf(v.Int64(), lt.Timestamp.Unit), nil
	case lt != nil && (lt.Decimal != nil || lt.Time != nil):
		return nil, fmt.Errorf("%w: parquet %s", ErrUnsupportedType, typ)
	}

	unsigned := lt != nil && lt.Integer != nil && !lt.Integer.IsSigned

	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean(), nil
	case parquet.Int32:
		if unsigned {
			return uint64(uint32(v.Int32())), nil
		}

		return int64(v.Int32()), nil
	case parquet.Int64:
		if unsigned {
			return uint64(v.Int64()), nil
		}

		return v.Int64(), nil
	case parquet.Float:
		return v.Float(), nil
	case parquet.Double:
		return v.Double(), nil
	case parquet.ByteArray:
		return string(v.ByteArray()), nil
	default:
		return nil, fmt.Errorf("%w: parquet %s", ErrUnsupportedType, v.Kind())
	}
}

func timestampOf(n int64, unit format.TimeUnit) time.Time {
	switch {
	case unit.Millis != nil:
		return time.UnixMilli(n).UTC()
	case unit.Micros != nil:
		return time.UnixMicro(n).UTC()
	default:
		return time.Unix(0, n).UTC()
	}
}

// ReadRaw loads every row of a raw zone data file as text. Required columns
// missing from the file are null; numbers, booleans, dates and timestamps
// stored by other writers are rendered as text.
func ReadRaw(path string) ([]models.Row, error) {
	var rows []models.Row

	err := scanFile(path, models.RequiredColumns(), func(values map[string]any) error {
		row := make(models.Row, len(models.RequiredColumns()))

		for _, col := range models.RequiredColumns() {
			s, err := textValue(values[col])
			if err != nil {
				return fmt.Errorf("column %s: %w", col, err)
			}

			row[col] = deref(s)
		}

		rows = append(rows, row)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read raw partition %s: %w", path, err)
	}

	return rows, nil
}

// ReadProcessed loads every row of a processed zone data file.
func ReadProcessed(path string) ([]models.ProcessedRow, error) {
	var rows []models.ProcessedRow

	err := scanFile(path, models.ProcessedColumns(), func(values map[string]any) error {
		row, err := processedRowOf(values)
		if err != nil {
			return fmt.Errorf("row %d: %w", len(rows), err)
		}

		rows = append(rows, row)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read processed partition %s: %w", path, err)
	}

	return rows, nil
}

func processedRowOf(values map[string]any) (models.ProcessedRow, error) {
	var (
		row models.ProcessedRow
		err error
	)

	texts := []struct {
		col string
		dst **string
	}{
		{models.ColumnSource, &row.Source},
		{models.ColumnRegion, &row.Region},
		{models.ColumnMetricName, &row.MetricName},
		{models.ColumnUnit, &row.Unit},
	}

	for _, t := range texts {
		if *t.dst, err = textValue(values[t.col]); err != nil {
			return row, fmt.Errorf("column %s: %w", t.col, err)
		}
	}

	switch x := values[models.ColumnMetricDate].(type) {
	case nil:
	case string:
		d, parseErr := time.Parse(time.DateOnly, x)
		if parseErr != nil {
			return row, fmt.Errorf("metric_date %q: %w", x, parseErr)
		}

		row.MetricDate = &d
	case time.Time:
		d := calendarDate(x)
		row.MetricDate = &d
	default:
		return row, fmt.Errorf("%w: metric_date %T", ErrUnsupportedType, x)
	}

	var value float64

	switch x := values[models.ColumnMetricValue].(type) {
	case nil:
	case float64:
		value = x
		row.MetricValue = &value
	case float32:
		value = float64(x)
		row.MetricValue = &value
	case int64:
		value = float64(x)
		row.MetricValue = &value
	case uint64:
		value = float64(x)
		row.MetricValue = &value
	default:
		return row, fmt.Errorf("%w: metric_value %T", ErrUnsupportedType, x)
	}

	if s, ok := values[models.ColumnProcessedAt].(string); ok {
		row.ProcessedAtUTC = s
	}

	return row, nil
}
