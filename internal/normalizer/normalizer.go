package normalizer

import (
	"github.com/bashoori/sustainable-energy-data-platform/internal/models"
	"github.com/bashoori/sustainable-energy-data-platform/pkg/utils"
)

// Normalizer maps free-form records onto a fixed column set.
type Normalizer struct {
	strings *utils.StringHelper
}

// NewNormalizer creates a new normalizer instance.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		strings: utils.NewStringHelper(),
	}
}

// Normalize flattens each record, trims string values and projects it onto
// columns. Absent columns become null. Output order follows input order.
// Values are not coerced; numbers stay as decoded.
func (n *Normalizer) Normalize(records []models.Record, columns []string) []models.Row {
	rows := make([]models.Row, 0, len(records))

	for _, rec := range records {
		flat := Flatten(rec)

		row := make(models.Row, len(columns))

		for _, col := range columns {
			v, ok := flat[col]
			if !ok {
				row[col] = nil

				continue
			}

			if s, isString := v.(string); isString {
				v = n.strings.TrimWhitespace(s)
			}

			row[col] = v
		}

		rows = append(rows, row)
	}

	return rows
}

// Flatten joins nested object keys with dots: {"a":{"b":1}} becomes {"a.b":1}.
// Arrays are kept as values. A literal dotted key wins over a nested path
// that flattens to the same name.
func Flatten(rec models.Record) map[string]any {
	out := make(map[string]any, len(rec))
	flattenInto(out, "", rec)

	return out
}

func flattenInto(out map[string]any, prefix string, obj map[string]any) {
	for k, v := range obj {
		if nested, ok := v.(map[string]any); ok {
			flattenInto(out, prefix+k+".", nested)
		}
	}

	for k, v := range obj {
		if _, ok := v.(map[string]any); !ok {
			out[prefix+k] = v
		}
	}
}

// EnforceSchema returns rows holding exactly columns: missing ones are added
// as null and unknown ones are dropped. Applying it twice changes nothing.
func EnforceSchema(rows []models.Row, columns []string) []models.Row {
	out := make([]models.Row, 0, len(rows))

	for _, r := range rows {
		row := make(models.Row, len(columns))

		for _, col := range columns {
			row[col] = r[col]
		}

		out = append(out, row)
	}

	return out
}
