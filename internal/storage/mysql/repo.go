// Package mysql implements storage.Repository for MySQL/MariaDB.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"sheetload/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mysql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// TableColumns lists the table's columns in ordinal order from
// information_schema, scoped to the connection's current database.
func (r *Repo) TableColumns(ctx context.Context, table string) ([]string, bool, error) {
	const q = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`

	rows, err := r.db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, false, fmt.Errorf("describe %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, false, err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return cols, len(cols) > 0, nil
}

func (r *Repo) CreateTable(ctx context.Context, spec storage.TableSpec) error {
	ddl, err := buildCreateSQL(spec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

func (r *Repo) AddColumn(ctx context.Context, table string, col storage.ColumnSpec) error {
	def, err := columnDef(col)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", ident(table), def)
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("alter table %s: %w", table, err)
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var total int64
	for _, part := range splitRows(rows, len(columns)) {
		q, args, err := buildInsertSQL(table, columns, part)
		if err != nil {
			return total, err
		}
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Prepared statements carry the placeholder count as uint16, capping one
// statement at 65535 parameters. Wide chunks get split across statements.
const paramBudget = 65535

func splitRows(rows [][]any, columns int) [][][]any {
	per := paramBudget / max(1, columns)
	if per < 1 {
		per = 1
	}
	out := make([][][]any, 0, (len(rows)+per-1)/per)
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

// buildCreateSQL builds the CREATE TABLE statement, bracketing the inferred
// columns with the server-assigned id and created_at system columns exactly
// as the destination schema contract requires.
//
// It is pure so placeholder-free DDL can be unit tested without a server.
func buildCreateSQL(spec storage.TableSpec) (string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return "", fmt.Errorf("mysql: table name is empty")
	}

	parts := make([]string, 0, len(spec.Columns)+2)
	parts = append(parts, fmt.Sprintf("%s BIGINT AUTO_INCREMENT PRIMARY KEY", ident(storage.IDColumn)))
	for _, c := range spec.Columns {
		def, err := columnDef(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, def)
	}
	parts = append(parts, fmt.Sprintf("%s TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP", ident(storage.CreatedAtColumn)))

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident(spec.Name), strings.Join(parts, ", ")), nil
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any, error) {
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("mysql: no columns to insert")
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(ident(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(ident(c))
	}
	b.WriteString(") VALUES ")

	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("mysql: row %d has %d values, want %d", i, len(row), len(columns))
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
		args = append(args, row...)
	}

	return b.String(), args, nil
}

func columnDef(c storage.ColumnSpec) (string, error) {
	t, err := columnType(c.Type)
	if err != nil {
		return "", err
	}
	null := " NULL"
	if !c.Nullable {
		null = " NOT NULL"
	}
	return ident(c.Name) + " " + t + null, nil
}

func columnType(canonical string) (string, error) {
	switch canonical {
	case storage.TypeInteger:
		return "BIGINT", nil
	case storage.TypeFloat:
		return "DOUBLE", nil
	case storage.TypeBoolean:
		return "TINYINT(1)", nil
	case storage.TypeDateTime:
		return "DATETIME", nil
	case storage.TypeText:
		return "TEXT", nil
	default:
		return "", fmt.Errorf("mysql: unsupported column type %q", canonical)
	}
}

// ident backtick-quotes an identifier, stripping any embedded backticks.
func ident(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "") + "`"
}
