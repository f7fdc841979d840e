package mysql

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
			{Name: "score", Type: storage.TypeFloat, Nullable: true},
			{Name: "active", Type: storage.TypeBoolean, Nullable: true},
			{Name: "joined", Type: storage.TypeDateTime, Nullable: true},
		},
	}

	got, err := buildCreateSQL(spec)
	if err != nil {
		t.Fatal(err)
	}
	want := "CREATE TABLE IF NOT EXISTS `people` (" +
		"`id` BIGINT AUTO_INCREMENT PRIMARY KEY, " +
		"`name` TEXT NULL, " +
		"`age` BIGINT NULL, " +
		"`score` DOUBLE NULL, " +
		"`active` TINYINT(1) NULL, " +
		"`joined` DATETIME NULL, " +
		"`created_at` TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildCreateSQLErrors(t *testing.T) {
	if _, err := buildCreateSQL(storage.TableSpec{Name: "  "}); err == nil {
		t.Fatal("empty table name must error")
	}
	spec := storage.TableSpec{
		Name:    "t",
		Columns: []storage.ColumnSpec{{Name: "x", Type: "jsonb"}},
	}
	if _, err := buildCreateSQL(spec); err == nil {
		t.Fatal("unknown canonical type must error")
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
	want := "INSERT INTO `people` (`name`, `age`) VALUES (?, ?), (?, ?)"
	if q != want {
		t.Fatalf("sql = %s", q)
	}
	if len(args) != 4 || args[0] != "ada" || args[3] != int64(45) {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildInsertSQLErrors(t *testing.T) {
	if _, _, err := buildInsertSQL("t", nil, [][]any{{1}}); err == nil {
		t.Fatal("no columns must error")
	}
	_, _, err := buildInsertSQL("t", []string{"a", "b"}, [][]any{{1}})
	if err == nil || !strings.Contains(err.Error(), "row 0") {
		t.Fatalf("ragged row err = %v", err)
	}
}

func TestSplitRowsRespectsParamBudget(t *testing.T) {
	const cols = 66 // 1000 rows x 66 columns exceeds the 65535 placeholder cap
	rows := make([][]any, 1000)
	for i := range rows {
		rows[i] = make([]any, cols)
	}

	parts := splitRows(rows, cols)
	if len(parts) < 2 {
		t.Fatalf("parts = %d, chunk over the placeholder cap must be split", len(parts))
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
}

func TestIdentStripsBackticks(t *testing.T) {
	if got := ident("we`ird"); got != "`weird`" {
		t.Fatalf("ident = %s", got)
	}
}
