package sqlite

import (
	"testing"
	"time"

	"sheetload/internal/storage"
)

func TestBuildCreateSQL(t *testing.T) {
	spec := storage.TableSpec{
		Name: "people",
		Columns: []storage.ColumnSpec{
			{Name: "name", Type: storage.TypeText, Nullable: true},
			{Name: "age", Type: storage.TypeInteger, Nullable: true},
			{Name: "score", Type: storage.TypeFloat, Nullable: true},
			{Name: "active", Type: storage.TypeBoolean, Nullable: true},
			{Name: "joined", Type: storage.TypeDateTime, Nullable: true},
		},
	}

	got, err := buildCreateSQL(spec)
	if err != nil {
		t.Fatal(err)
	}
	want := `CREATE TABLE IF NOT EXISTS "people" (` +
		`"id" INTEGER PRIMARY KEY AUTOINCREMENT, ` +
		`"name" TEXT, ` +
		`"age" INTEGER, ` +
		`"score" REAL, ` +
		`"active" INTEGER, ` +
		`"joined" TEXT, ` +
		`"created_at" TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP)`
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildInsertSQL(t *testing.T) {
	rows := [][]any{
		{"ada", int64(36)},
		{"grace", int64(45)},
	}
	q, args, err := buildInsertSQL("people", []string{"name", "age"}, rows)
	if err != nil {
		t.Fatal(err)
	}
	want := `INSERT INTO "people" ("name", "age") VALUES (?, ?), (?, ?)`
	if q != want {
		t.Fatalf("sql = %s", q)
	}
	if len(args) != 4 {
		t.Fatalf("args = %v", args)
	}
}

func TestBindValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))
	if got := bindValue(ts); got != "2024-03-01T11:30:00Z" {
		t.Fatalf("time bind = %v", got)
	}
	if got := bindValue(true); got != int64(1) {
		t.Fatalf("true bind = %v", got)
	}
	if got := bindValue(false); got != int64(0) {
		t.Fatalf("false bind = %v", got)
	}
	if got := bindValue(int64(7)); got != int64(7) {
		t.Fatalf("passthrough bind = %v", got)
	}
	if got := bindValue(nil); got != nil {
		t.Fatalf("nil bind = %v", got)
	}
}

func TestBuildInsertSQLAppliesBindValue(t *testing.T) {
	_, args, err := buildInsertSQL("t", []string{"active"}, [][]any{{true}})
	if err != nil {
		t.Fatal(err)
	}
	if args[0] != int64(1) {
		t.Fatalf("bool arg = %v, want normalized 1", args[0])
	}
}

func TestSplitRowsRespectsParamBudget(t *testing.T) {
	const cols = 40 // 1000 rows x 40 columns exceeds the 32766 variable cap
	rows := make([][]any, 1000)
	for i := range rows {
		rows[i] = make([]any, cols)
	}

	parts := splitRows(rows, cols)
	if len(parts) < 2 {
		t.Fatalf("parts = %d, chunk over the variable cap must be split", len(parts))
	}

	total := 0
	for _, p := range parts {
		if len(p)*cols > paramBudget {
			t.Fatalf("statement binds %d variables, budget is %d", len(p)*cols, paramBudget)
		}
		total += len(p)
	}
	if total != len(rows) {
		t.Fatalf("split covers %d rows, want %d", total, len(rows))
	}
}

func TestColumnTypeUnknown(t *testing.T) {
	if _, err := columnType("blob"); err == nil {
		t.Fatal("unknown canonical type must error")
	}
}
