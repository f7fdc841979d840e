package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReadMapping(t *testing.T) {
	p := writeFile(t, "map.json", `{"people": "people.xlsx", "orders": "data/orders.xlsx"}`)

	got, err := readMapping(p)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"people": "people.xlsx", "orders": "data/orders.xlsx"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("mapping = %v", got)
	}
}

func TestReadMappingErrors(t *testing.T) {
	if _, err := readMapping(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("missing file must error")
	}
	if _, err := readMapping(writeFile(t, "bad.json", `{"people": 1}`)); err == nil {
		t.Fatal("non-string value must error")
	}
	if _, err := readMapping(writeFile(t, "empty.json", `{}`)); err == nil {
		t.Fatal("empty mapping must error")
	}
}
