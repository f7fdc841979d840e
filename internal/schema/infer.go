package schema

import (
	"math"
	"strconv"
	"strings"
	"time"

	"sheetload/internal/storage"
)

// maxSafeInteger bounds integral-float promotion: beyond 2^53 a float64 can
// no longer represent every integer exactly, so such values stay float.
const maxSafeInteger = 1 << 53

// InferColumnType picks the narrowest category that every non-empty value in
// the column satisfies, in priority order:
//
//	boolean -> integer -> float -> datetime -> text
//
// Text is the universal fallback; a column with no non-empty values is text.
// Inference never fails: unparseable values simply disqualify a category.
func InferColumnType(values []string) string {
	var seen bool
	allBool := true
	allInt := true
	allFloat := true
	allTime := true

	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		seen = true

		if allBool {
			if _, ok := parseBoolLoose(v); !ok {
				allBool = false
			}
		}
		if allInt {
			if _, ok := parseIntegral(v); !ok {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allFloat = false
			}
		}
		if allTime {
			if _, ok := parseTimeLoose(v); !ok {
				allTime = false
			}
		}

		if !allBool && !allInt && !allFloat && !allTime {
			return storage.TypeText
		}
	}

	if !seen {
		return storage.TypeText
	}
	switch {
	case allBool:
		return storage.TypeBoolean
	case allInt:
		return storage.TypeInteger
	case allFloat:
		return storage.TypeFloat
	case allTime:
		return storage.TypeDateTime
	default:
		return storage.TypeText
	}
}

// InferColumns sanitizes headers and infers a type for every retained column.
// rows are raw cell values aligned with labels; short rows are tolerated.
// The returned specs are in source column order with placeholder columns
// removed, paired with the Header mapping used to build them.
func InferColumns(labels []string, rows [][]string) ([]storage.ColumnSpec, []Header) {
	headers := SanitizeHeaders(labels)

	specs := make([]storage.ColumnSpec, 0, len(headers))
	for col, h := range headers {
		if h.Drop {
			continue
		}
		values := make([]string, 0, len(rows))
		for _, r := range rows {
			if col < len(r) {
				values = append(values, r[col])
			}
		}
		specs = append(specs, storage.ColumnSpec{
			Name:     h.Name,
			Type:     InferColumnType(values),
			Nullable: true,
		})
	}
	return specs, headers
}

// ConvertCell converts raw cell text to a driver-bindable value for the
// column's inferred type. An empty cell is nil (SQL NULL). A value that does
// not parse for the given type falls back to the raw string rather than
// erroring; with column-wide inference this only happens when the destination
// column predates the load and its type drifted.
func ConvertCell(raw, colType string) any {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}

	switch colType {
	case storage.TypeBoolean:
		if b, ok := parseBoolLoose(v); ok {
			return b
		}
	case storage.TypeInteger:
		if n, ok := parseIntegral(v); ok {
			return n
		}
	case storage.TypeFloat:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	case storage.TypeDateTime:
		if t, ok := parseTimeLoose(v); ok {
			return t
		}
	}
	return v
}

// parseIntegral accepts plain integers and integral floats ("42", "42.0").
// Spreadsheet exports routinely render whole numbers with a trailing ".0".
func parseIntegral(s string) (int64, bool) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > maxSafeInteger {
		return 0, false
	}
	return int64(f), true
}

func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y":
		return true, true
	case "false", "f", "no", "n":
		return false, true
	default:
		return false, false
	}
}

// timeLayouts covers ISO dates and the timestamp shapes spreadsheet exports
// commonly produce. Order matters only for which layout wins, not whether a
// value is accepted.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"01-02-06",
	"1/2/06 15:04",
}

func parseTimeLoose(s string) (time.Time, bool) {
	for _, lay := range timeLayouts {
		if t, err := time.Parse(lay, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
