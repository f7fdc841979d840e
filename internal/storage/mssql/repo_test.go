package mssql

import (
	"strings"
	"testing"

	"sheetload/internal/storage"
)

func TestBuildCreateSQL(t *testing.T) {
	spec := storage.TableSpec{
		Name: "people",
		Columns: []storage.ColumnSpec{
			{Name: "name", Type: storage.TypeText, Nullable: true},
			{Name: "age", Type: storage.TypeInteger, Nullable: true},
			{Name: "active", Type: storage.TypeBoolean, Nullable: true},
		},
	}

	got, err := buildCreateSQL(spec)
	if err != nil {
		t.Fatal(err)
	}
	want := "IF OBJECT_ID(N'people', N'U') IS NULL BEGIN CREATE TABLE [people] (" +
		"[id] BIGINT IDENTITY(1,1) PRIMARY KEY, " +
		"[name] NVARCHAR(MAX) NULL, " +
		"[age] BIGINT NULL, " +
		"[active] BIT NULL, " +
		"[created_at] DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()); END;"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildCreateSQLStripsQuotesFromGuard(t *testing.T) {
	got, err := buildCreateSQL(storage.TableSpec{Name: "o'brien"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "o'brien") {
		t.Fatalf("OBJECT_ID guard must not carry embedded quotes: %s", got)
	}
}

func TestBuildInsertSQLPlaceholderNumbering(t *testing.T) {
	rows := [][]any{
		{"ada", int64(36)},
		{"grace", int64(45)},
	}
	q, args, err := buildInsertSQL("people", []string{"name", "age"}, rows)
	if err != nil {
		t.Fatal(err)
	}
	want := "INSERT INTO [people] ([name], [age]) VALUES (@p1, @p2), (@p3, @p4)"
	if q != want {
		t.Fatalf("sql = %s", q)
	}
	if len(args) != 4 || args[2] != "grace" {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildInsertSQLRaggedRow(t *testing.T) {
	if _, _, err := buildInsertSQL("t", []string{"a"}, [][]any{{1, 2}}); err == nil {
		t.Fatal("ragged row must error")
	}
}

// A default-size chunk of a three-column sheet binds 3000 parameters; it
// must be split so each statement stays under the 2100-parameter request
// limit, with no row lost or reordered.
func TestSplitRowsRespectsParamBudget(t *testing.T) {
	const cols = 3
	rows := make([][]any, 1000)
	for i := range rows {
		rows[i] = []any{int64(i), "x", "y"}
	}

	parts := splitRows(rows, cols)
	if len(parts) < 2 {
		t.Fatalf("parts = %d, a 3000-parameter chunk must be split", len(parts))
	}

	total := 0
	for _, p := range parts {
		if len(p)*cols > paramBudget {
			t.Fatalf("statement binds %d parameters, budget is %d", len(p)*cols, paramBudget)
		}
		total += len(p)
	}
	if total != len(rows) {
		t.Fatalf("split covers %d rows, want %d", total, len(rows))
	}
	if parts[0][0][0] != int64(0) || parts[len(parts)-1][len(parts[len(parts)-1])-1][0] != int64(999) {
		t.Fatal("split reordered rows")
	}
}

func TestSplitRowsWiderThanBudget(t *testing.T) {
	rows := [][]any{make([]any, paramBudget+1), make([]any, paramBudget+1)}
	parts := splitRows(rows, paramBudget+1)
	if len(parts) != 2 || len(parts[0]) != 1 {
		t.Fatalf("parts = %v, want one row per statement", len(parts))
	}
}

func TestColumnTypeUnknown(t *testing.T) {
	if _, err := columnType("money"); err == nil {
		t.Fatal("unknown canonical type must error")
	}
}

func TestIdentStripsBrackets(t *testing.T) {
	if got := ident("we]ird"); got != "[weird]" {
		t.Fatalf("ident = %s", got)
	}
}
