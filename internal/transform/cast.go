package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrParse reports a value that cannot be cast. The transformer turns it into
// a null; it never aborts a run.
var ErrParse = errors.New("unparseable value")

// dateLayouts are tried in order; times of day are dropped.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.DateTime,
	"2006/01/02",
	"20060102",
	"01/02/2006",
	"2006-01",
}

// ParseDate casts v to a calendar date at UTC midnight. A nil v gives nil.
func ParseDate(v any) (*time.Time, error) {
	var s string

	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		d := dateOf(x)

		return &d, nil
	case string:
		s = strings.TrimSpace(x)
	default:
		return nil, fmt.Errorf("%w: date from %T", ErrParse, v)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := dateOf(t)

			return &d, nil
		}
	}

	return nil, fmt.Errorf("%w: date %q", ErrParse, s)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseNumber casts v to a finite float. A nil v gives nil.
func ParseNumber(v any) (*float64, error) {
	var f float64

	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrParse, x.String())
		}

		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: number %q", ErrParse, x)
		}

		f = parsed
	default:
		return nil, fmt.Errorf("%w: number from %T", ErrParse, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: non-finite number", ErrParse)
	}

	return &f, nil
}

// textOf renders a non-null value as text.
func textOf(v any) *string {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return &x
	default:
		s := fmt.Sprint(x)

		return &s
	}
}
