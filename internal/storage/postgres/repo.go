// Package postgres implements storage.Repository on a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"sheetload/internal/storage"
)

type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) TableColumns(ctx context.Context, table string) ([]string, bool, error) {
	const q = `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`

	rows, err := r.pool.Query(ctx, q, table)
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
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

func (r *Repo) AddColumn(ctx context.Context, table string, col storage.ColumnSpec) error {
	def, err := columnDef(col)
	if err != nil {
		return err
	}
	q := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s", ident(table), def)
	if _, err := r.pool.Exec(ctx, q); err != nil {
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
		cmd, err := r.pool.Exec(ctx, q, args...)
		if err != nil {
			return total, err
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

// The extended query protocol encodes the parameter count as uint16, so a
// single statement can bind at most 65535 values. Wide chunks get split
// across statements.
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

func buildCreateSQL(spec storage.TableSpec) (string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return "", fmt.Errorf("postgres: table name is empty")
	}

	parts := make([]string, 0, len(spec.Columns)+2)
	parts = append(parts, fmt.Sprintf("%s BIGSERIAL PRIMARY KEY", ident(storage.IDColumn)))
	for _, c := range spec.Columns {
		def, err := columnDef(c)
		if err != nil {
			return "", err
		}
		parts = append(parts, def)
	}
	parts = append(parts, fmt.Sprintf("%s TIMESTAMPTZ NOT NULL DEFAULT now()", ident(storage.CreatedAtColumn)))

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident(spec.Name), strings.Join(parts, ", ")), nil
}

// buildInsertSQL constructs one multi-row INSERT with numbered placeholders.
// Pure, so placeholder numbering is unit-testable without a database.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any, error) {
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("postgres: no columns to insert")
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
			return "", nil, fmt.Errorf("postgres: row %d has %d values, want %d", i, len(row), len(columns))
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", p)
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
	null := ""
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
		return "DOUBLE PRECISION", nil
	case storage.TypeBoolean:
		return "BOOLEAN", nil
	case storage.TypeDateTime:
		return "TIMESTAMPTZ", nil
	case storage.TypeText:
		return "TEXT", nil
	default:
		return "", fmt.Errorf("postgres: unsupported column type %q", canonical)
	}
}

func ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, "") + `"`
}
