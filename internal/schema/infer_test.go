package schema

import (
	"testing"
	"time"

	"sheetload/internal/storage"
)

func TestInferColumnType_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{name: "integers", values: []string{"1", "42", "-7"}, want: storage.TypeInteger},
		{name: "integral_floats", values: []string{"1.0", "42.0"}, want: storage.TypeInteger},
		{name: "floats", values: []string{"1.5", "2"}, want: storage.TypeFloat},
		{name: "booleans", values: []string{"true", "FALSE", "yes", "n"}, want: storage.TypeBoolean},
		{name: "dates", values: []string{"2024-01-15", "2024-02-20"}, want: storage.TypeDateTime},
		{name: "timestamps", values: []string{"2024-01-15 10:30:00"}, want: storage.TypeDateTime},
		{name: "text", values: []string{"hello", "world"}, want: storage.TypeText},
		{name: "mixed_numbers_and_text", values: []string{"1", "oops"}, want: storage.TypeText},
		{name: "all_empty", values: []string{"", "  ", ""}, want: storage.TypeText},
		{name: "no_values", values: nil, want: storage.TypeText},
		{name: "empties_ignored", values: []string{"", "3", ""}, want: storage.TypeInteger},
		{name: "huge_integer_stays_float", values: []string{"9007199254740993.0"}, want: storage.TypeFloat},
		{name: "zero_one_are_integers_not_bools", values: []string{"0", "1"}, want: storage.TypeInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferColumnType(tt.values); got != tt.want {
				t.Fatalf("InferColumnType(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

// One non-conforming value must demote the whole column, one category at a
// time: integer -> float -> text.
func TestInferColumnType_Demotion(t *testing.T) {
	t.Parallel()

	base := []string{"1", "2", "3"}
	if got := InferColumnType(base); got != storage.TypeInteger {
		t.Fatalf("base = %q, want integer", got)
	}
	if got := InferColumnType(append(base[:len(base):len(base)], "2.5")); got != storage.TypeFloat {
		t.Fatalf("with 2.5 = %q, want float", got)
	}
	if got := InferColumnType(append(base[:len(base):len(base)], "2.5", "abc")); got != storage.TypeText {
		t.Fatalf("with abc = %q, want text", got)
	}
}

func TestInferColumnType_Deterministic(t *testing.T) {
	t.Parallel()

	values := []string{"2024-01-01", "17", "true", "x"}
	first := InferColumnType(values)
	for i := 0; i < 10; i++ {
		if got := InferColumnType(values); got != first {
			t.Fatalf("inference not deterministic: %q then %q", first, got)
		}
	}
}

func TestInferColumns(t *testing.T) {
	t.Parallel()

	labels := []string{"Name", "Age", "Unnamed: 0"}
	rows := [][]string{
		{"alice", "30", "junk"},
		{"bob", "25", "junk"},
	}

	specs, headers := InferColumns(labels, rows)
	if len(specs) != 2 {
		t.Fatalf("expected 2 specs, got %d: %#v", len(specs), specs)
	}
	if specs[0].Name != "name" || specs[0].Type != storage.TypeText {
		t.Fatalf("unexpected spec[0]: %#v", specs[0])
	}
	if specs[1].Name != "age" || specs[1].Type != storage.TypeInteger {
		t.Fatalf("unexpected spec[1]: %#v", specs[1])
	}
	if !specs[0].Nullable || !specs[1].Nullable {
		t.Fatal("inferred columns must be nullable")
	}
	if len(headers) != 3 || !headers[2].Drop {
		t.Fatalf("expected 3 headers with the placeholder dropped: %#v", headers)
	}
}

func TestInferColumns_ShortRows(t *testing.T) {
	t.Parallel()

	specs, _ := InferColumns([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}})
	if specs[1].Type != storage.TypeInteger {
		t.Fatalf("column B = %q, want integer (missing cells ignored)", specs[1].Type)
	}
}

func TestConvertCell(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     string
		colType string
		want    any
	}{
		{name: "empty_is_null", raw: "", colType: storage.TypeText, want: nil},
		{name: "blank_is_null", raw: "   ", colType: storage.TypeInteger, want: nil},
		{name: "integer", raw: "42", colType: storage.TypeInteger, want: int64(42)},
		{name: "integral_float", raw: "42.0", colType: storage.TypeInteger, want: int64(42)},
		{name: "float", raw: "2.5", colType: storage.TypeFloat, want: 2.5},
		{name: "bool", raw: "Yes", colType: storage.TypeBoolean, want: true},
		{name: "datetime", raw: "2024-01-15 10:30:00", colType: storage.TypeDateTime, want: ts},
		{name: "text", raw: "hello", colType: storage.TypeText, want: "hello"},
		{name: "unparseable_falls_back_to_text", raw: "oops", colType: storage.TypeInteger, want: "oops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertCell(tt.raw, tt.colType)
			if tm, ok := tt.want.(time.Time); ok {
				gt, ok := got.(time.Time)
				if !ok || !gt.Equal(tm) {
					t.Fatalf("ConvertCell(%q, %s) = %#v, want %v", tt.raw, tt.colType, got, tm)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("ConvertCell(%q, %s) = %#v, want %#v", tt.raw, tt.colType, got, tt.want)
			}
		})
	}
}
