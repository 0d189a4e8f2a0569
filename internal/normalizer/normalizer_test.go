package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashoori/sustainable-energy-data-platform/internal/models"
)

func TestExtractor_Extract(t *testing.T) {
	e := NewExtractor()

	list := []any{
		map[string]any{"region": "BC"},
		map[string]any{"region": "AB"},
	}

	tests := []struct {
		name    string
		payload any
		path    string
		want    int
		wantErr bool
	}{
		{"no path", list, "", 2, false},
		{"nested path", map[string]any{"data": map[string]any{"records": list}}, "data.records", 2, false},
		{"empty list", map[string]any{"data": []any{}}, "data", 0, false},
		{"missing key degrades to object", map[string]any{"data": list}, "results", 0, true},
		{"step into scalar degrades to object", map[string]any{"data": "oops"}, "data.records", 0, true},
		{"payload object without path", map[string]any{"data": list}, "", 0, true},
		{"null payload", nil, "", 0, true},
		{"list of scalars", []any{"a", "b"}, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := e.Extract(tt.payload, tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrSchema)

				return
			}

			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}
}

func TestFlatten(t *testing.T) {
	rec := models.Record{
		"region": "BC",
		"metric": map[string]any{
			"name":  "energy_mwh",
			"value": map[string]any{"amount": json.Number("10")},
		},
		"tags": []any{"a"},
	}

	flat := Flatten(rec)

	assert.Equal(t, map[string]any{
		"region":              "BC",
		"metric.name":         "energy_mwh",
		"metric.value.amount": json.Number("10"),
		"tags":                []any{"a"},
	}, flat)
}

func TestFlatten_LiteralDottedKeyWins(t *testing.T) {
	flat := Flatten(models.Record{
		"a.b": "literal",
		"a":   map[string]any{"b": "nested"},
	})

	assert.Equal(t, "literal", flat["a.b"])
}

func TestNormalizer_SchemaCompleteness(t *testing.T) {
	n := NewNormalizer()
	columns := models.RequiredColumns()

	batches := [][]models.Record{
		{{}},
		{{"region": "BC"}},
		{{"region": "BC", "extra": 1, "nested": map[string]any{"x": 1}}},
		{
			{"source": "s", "region": "BC", "metric_date": "2025-01-01", "metric_name": "m", "metric_value": 1.5, "unit": "MWh"},
			{"metric_value": "abc"},
		},
	}

	for _, batch := range batches {
		rows := n.Normalize(batch, columns)
		require.Len(t, rows, len(batch))

		for _, row := range rows {
			assert.Len(t, row, len(columns))

			for _, col := range columns {
				_, ok := row[col]
				assert.True(t, ok, "missing column %s", col)
			}
		}
	}
}

func TestNormalizer_TrimsStringsOnly(t *testing.T) {
	rows := NewNormalizer().Normalize([]models.Record{
		{"region": "  BC \n", "metric_value": json.Number("10"), "unit": true},
	}, models.RequiredColumns())

	require.Len(t, rows, 1)
	assert.Equal(t, "BC", rows[0]["region"])
	assert.Equal(t, json.Number("10"), rows[0]["metric_value"])
	assert.Equal(t, true, rows[0]["unit"])
	assert.Nil(t, rows[0]["source"])
}

func TestNormalizer_FlattenedColumnSelected(t *testing.T) {
	rows := NewNormalizer().Normalize([]models.Record{
		{"metric": map[string]any{"name": "co2_t"}},
	}, []string{"metric.name"})

	assert.Equal(t, "co2_t", rows[0]["metric.name"])
}

func TestNormalizer_PreservesOrder(t *testing.T) {
	rows := NewNormalizer().Normalize([]models.Record{
		{"region": "A"}, {"region": "B"}, {"region": "C"},
	}, models.RequiredColumns())

	got := []any{rows[0]["region"], rows[1]["region"], rows[2]["region"]}
	assert.Equal(t, []any{"A", "B", "C"}, got)
}

func TestEnforceSchema_Idempotent(t *testing.T) {
	columns := models.RequiredColumns()
	rows := []models.Row{
		{"region": "BC", "junk": 1},
		{},
		{"source": "s", "region": "AB", "metric_date": "2025-01-01", "metric_name": "m", "metric_value": "1", "unit": "t"},
	}

	once := EnforceSchema(rows, columns)
	twice := EnforceSchema(once, columns)

	assert.Equal(t, once, twice)
	assert.Len(t, twice, 3)
	assert.NotContains(t, twice[0], "junk")
	assert.Len(t, twice[1], len(columns))
}

func TestProcessor_Process(t *testing.T) {
	payload := map[string]any{
		"data": map[string]any{
			"records": []any{
				map[string]any{"region": " BC ", "metric_name": "energy_mwh", "metric_value": json.Number("10")},
			},
		},
	}

	rows, err := NewProcessor().Process(payload, "data.records")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "BC", rows[0]["region"])

	_, err = NewProcessor().Process(payload, "data")
	assert.ErrorIs(t, err, ErrSchema)
}
