// Package uploader sequences one spreadsheet load end to end:
// read sheet -> sanitize headers -> infer types -> reconcile destination
// schema -> batch insert. It owns nothing long-lived; the destination
// Repository is acquired by the caller and passed in.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sheetload/internal/loader"
	"sheetload/internal/metrics"
	"sheetload/internal/parser/xlsx"
	"sheetload/internal/schema"
	"sheetload/internal/storage"
)

// Logger is the minimal logging interface used by the uploader.
// *log.Logger satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// Uploader drives loads against a single destination. All fields but Repo
// are optional; zero values mean quiet logging, no metrics, default batch
// size, and continue-past-failed-chunks.
type Uploader struct {
	Repo    storage.Repository
	Logger  Logger
	Metrics metrics.Backend

	BatchSize   int
	StopOnError bool

	// ReadSheet is a seam for tests; nil means xlsx.ReadSheet.
	ReadSheet func(path string, sheet xlsx.Sheet) ([]string, [][]string, error)
}

// Outcome is the per-triple result surfaced to the caller.
//
// Err carries the fatal cause when the triple aborted before or during
// reconciliation. Chunk-level insert failures are not fatal by default; they
// show up in RowsFailed and ChunkErrors instead.
type Outcome struct {
	Table string
	File  string
	Sheet string

	RowsAttempted int64
	RowsSucceeded int64
	RowsFailed    int64

	ColumnsAdded int
	TableCreated bool

	ChunkErrors []loader.ChunkError
	Elapsed     time.Duration
	Err         error
}

// UploadSingle loads the first sheet of the workbook at path. When table is
// empty it is derived from the file's base name, sanitized the same way as a
// column label.
func (u *Uploader) UploadSingle(ctx context.Context, path, table string) Outcome {
	return u.UploadSheet(ctx, path, table, xlsx.Sheet{})
}

// UploadMany runs one load per table->file entry, sequentially, in sorted
// table order for determinism. One triple's failure does not abort the rest.
//
// Two mapping keys that sanitize to the same destination table are a
// schema conflict: the first (in sorted order) wins, later ones fail with
// ErrSchemaConflict rather than silently sharing a table.
func (u *Uploader) UploadMany(ctx context.Context, mapping map[string]string) []Outcome {
	tables := make([]string, 0, len(mapping))
	for t := range mapping {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	seen := make(map[string]string, len(tables))
	out := make([]Outcome, 0, len(tables))
	for _, t := range tables {
		path := mapping[t]

		name := schema.SanitizeTableName(t)
		if prev, dup := seen[name]; dup {
			out = append(out, Outcome{
				Table: name,
				File:  path,
				Err:   fmt.Errorf("%w: tables %q and %q both sanitize to %q", ErrSchemaConflict, prev, t, name),
			})
			continue
		}
		seen[name] = t

		out = append(out, u.UploadSingle(ctx, path, t))
	}
	return out
}

// UploadDir loads every .xlsx file in dir, one table per file, named after
// the file's base name. Files are processed in lexical order. Two file names
// that sanitize to the same destination table conflict the same way mapping
// keys do in UploadMany: the first wins, later ones fail.
func (u *Uploader) UploadDir(ctx context.Context, dir string) ([]Outcome, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no .xlsx files in %s", dir)
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	out := make([]Outcome, 0, len(paths))
	for _, p := range paths {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if name := schema.SanitizeTableName(base); name != "" {
			if prev, dup := seen[name]; dup {
				out = append(out, Outcome{
					Table: name,
					File:  p,
					Err:   fmt.Errorf("%w: files %q and %q both sanitize to table %q", ErrSchemaConflict, prev, filepath.Base(p), name),
				})
				continue
			}
			seen[name] = filepath.Base(p)
		}
		out = append(out, u.UploadSingle(ctx, p, ""))
	}
	return out, nil
}

// UploadSheet loads one (file, sheet, table) triple.
func (u *Uploader) UploadSheet(ctx context.Context, path, table string, sheet xlsx.Sheet) Outcome {
	start := time.Now()
	o := Outcome{File: path, Sheet: sheet.String()}

	finish := func() Outcome {
		o.Elapsed = time.Since(start)
		u.emitOutcome(o)
		return o
	}

	if table == "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		table = schema.SanitizeTableName(base)
	} else {
		table = schema.SanitizeTableName(table)
	}
	if table == "" {
		o.Err = fmt.Errorf("%w: cannot derive a table name from %q", ErrSchemaConflict, path)
		return finish()
	}
	o.Table = table

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			o.Err = fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		} else {
			o.Err = fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
		}
		return finish()
	}

	readSheet := u.ReadSheet
	if readSheet == nil {
		readSheet = xlsx.ReadSheet
	}
	labels, rows, err := readSheet(path, sheet)
	if err != nil {
		o.Err = fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
		return finish()
	}

	specs, headers := schema.InferColumns(labels, rows)
	if len(specs) == 0 {
		// Every column was a placeholder (or the sheet was empty). Nothing to
		// create, nothing to insert; that is a clean zero-row load.
		u.logf("table=%s file=%s no loadable columns, skipping", table, path)
		return finish()
	}

	existing, exists, err := u.Repo.TableColumns(ctx, table)
	if err != nil {
		o.Err = classifyDBErr(fmt.Sprintf("inspect table %s", table), err)
		return finish()
	}

	plan := schema.Reconcile(table, specs, existing, exists)
	if plan.Create {
		if err := u.Repo.CreateTable(ctx, plan.Table); err != nil {
			o.Err = classifyDBErr(fmt.Sprintf("create table %s", table), err)
			return finish()
		}
		o.TableCreated = true
		u.logf("table=%s created columns=%d", table, len(plan.Table.Columns))
	}
	for _, col := range plan.AddColumns {
		if err := u.Repo.AddColumn(ctx, table, col); err != nil {
			o.Err = classifyDBErr(fmt.Sprintf("add column %s.%s", table, col.Name), err)
			return finish()
		}
		o.ColumnsAdded++
	}
	if o.ColumnsAdded > 0 {
		u.logf("table=%s added %d column(s)", table, o.ColumnsAdded)
	}

	values := convertRows(headers, specs, rows)
	res := loader.Load(ctx, u.Repo, table, plan.InsertColumns, values, loader.Options{
		BatchSize:   u.BatchSize,
		StopOnError: u.StopOnError,
	})

	o.RowsAttempted = res.RowsAttempted
	o.RowsSucceeded = res.RowsSucceeded
	o.RowsFailed = res.RowsFailed
	o.ChunkErrors = res.ChunkErrors
	for _, ce := range res.ChunkErrors {
		u.logf("table=%s %v", table, ce)
	}
	u.emitChunks(table, res.ChunksAttempted, len(res.ChunkErrors))

	u.logf("table=%s rows=%d succeeded=%d failed=%d elapsed=%s",
		table, res.RowsAttempted, res.RowsSucceeded, res.RowsFailed, res.Elapsed.Round(time.Millisecond))
	return finish()
}

// convertRows maps raw sheet rows onto the retained columns, converting each
// cell per its column's inferred type. Missing trailing cells become NULL.
func convertRows(headers []schema.Header, specs []storage.ColumnSpec, rows [][]string) [][]any {
	srcIdx := make([]int, 0, len(specs))
	for i, h := range headers {
		if !h.Drop {
			srcIdx = append(srcIdx, i)
		}
	}

	out := make([][]any, len(rows))
	for r, row := range rows {
		vals := make([]any, len(specs))
		for c, si := range srcIdx {
			if si < len(row) {
				vals[c] = schema.ConvertCell(row[si], specs[c].Type)
			}
		}
		out[r] = vals
	}
	return out
}

func (u *Uploader) logf(format string, v ...any) {
	if u.Logger != nil {
		u.Logger.Printf(format, v...)
	}
}

func (u *Uploader) emitOutcome(o Outcome) {
	if u.Metrics == nil {
		return
	}

	status := "ok"
	if o.Err != nil {
		status = "error"
	}
	u.Metrics.ObserveHistogram(metrics.MetricRunSeconds, o.Elapsed.Seconds(),
		metrics.Labels{"table": o.Table, "status": status})

	if o.RowsSucceeded > 0 {
		u.Metrics.IncCounter(metrics.MetricRowsTotal, float64(o.RowsSucceeded),
			metrics.Labels{"table": o.Table, "status": "succeeded"})
	}
	if o.RowsFailed > 0 {
		u.Metrics.IncCounter(metrics.MetricRowsTotal, float64(o.RowsFailed),
			metrics.Labels{"table": o.Table, "status": "failed"})
	}
	if o.TableCreated {
		u.Metrics.IncCounter(metrics.MetricTablesTotal, 1,
			metrics.Labels{"table": o.Table, "op": "created"})
	}
	if o.ColumnsAdded > 0 {
		u.Metrics.IncCounter(metrics.MetricTablesTotal, 1,
			metrics.Labels{"table": o.Table, "op": "extended"})
	}
}

func (u *Uploader) emitChunks(table string, total, failed int) {
	if u.Metrics == nil || total == 0 {
		return
	}
	if ok := total - failed; ok > 0 {
		u.Metrics.IncCounter(metrics.MetricChunksTotal, float64(ok),
			metrics.Labels{"table": table, "status": "ok"})
	}
	if failed > 0 {
		u.Metrics.IncCounter(metrics.MetricChunksTotal, float64(failed),
			metrics.Labels{"table": table, "status": "failed"})
	}
}
