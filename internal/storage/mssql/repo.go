// Package mssql implements storage.Repository for SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"sheetload/internal/storage"
)

type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
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

func (r *Repo) TableColumns(ctx context.Context, table string) ([]string, bool, error) {
	const q = `SELECT COLUMN_NAME FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @p1
		ORDER BY ORDINAL_POSITION`

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
	q := fmt.Sprintf("ALTER TABLE %s ADD %s", ident(table), def)
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

// SQL Server rejects any request binding more than 2100 parameters. Each row
// uses len(columns) parameters, so a wide chunk must span several statements.
// paramBudget stays conservatively below the hard limit.
const paramBudget = 2000

// splitRows partitions a chunk so no single INSERT exceeds paramBudget.
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

// buildCreateSQL wraps the CREATE TABLE in an OBJECT_ID guard. SQL Server
// has no CREATE TABLE IF NOT EXISTS; the guard keeps creation idempotent.
func buildCreateSQL(spec storage.TableSpec) (string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return "", fmt.Errorf("mssql: table name is empty")
	}

	parts := make([]string, 0, len(spec.Columns)+2)
	parts = append(parts, fmt.Sprintf("%s BIGINT IDENTITY(1,1) PRIMARY KEY", ident(storage.IDColumn)))
	for _, c := range spec.Columns {
		def, err := columnDef(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, def)
	}
	parts = append(parts, fmt.Sprintf("%s DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME()", ident(storage.CreatedAtColumn)))

	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL BEGIN CREATE TABLE %s (%s); END;",
		strings.ReplaceAll(spec.Name, "'", ""),
		ident(spec.Name),
		strings.Join(parts, ", "),
	), nil
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any, error) {
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("mssql: no columns to insert")
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

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("mssql: row %d has %d values, want %d", i, len(row), len(columns))
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
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
		return "FLOAT", nil
	case storage.TypeBoolean:
		return "BIT", nil
	case storage.TypeDateTime:
		return "DATETIME2", nil
	case storage.TypeText:
		return "NVARCHAR(MAX)", nil
	default:
		return "", fmt.Errorf("mssql: unsupported column type %q", canonical)
	}
}

func ident(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "") + "]"
}
