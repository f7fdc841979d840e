package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"sheetload/internal/config"
	"sheetload/internal/metrics"
	"sheetload/internal/metrics/datadog"
	"sheetload/internal/parser/xlsx"
	"sheetload/internal/storage"
	"sheetload/internal/uploader"

	// register all backends with the storage factory.
	_ "sheetload/internal/storage/all"
)

// main is the entry point for the sheetload binary. It resolves the
// destination from the environment (.env supported), acquires one connection
// for the whole run, and executes the requested upload mode.
func main() {
	var (
		filePath    string
		tableName   string
		sheetArg    string
		mappingPath string
		dirPath     string

		kind        string
		batchSize   int
		stopOnError bool

		metricsBackendFlg string
		metricsTags       string
	)

	flag.StringVar(&filePath, "file", "", "path to a .xlsx file to upload")
	flag.StringVar(&tableName, "table", "", "destination table name (default: derived from file name)")
	flag.StringVar(&sheetArg, "sheet", "", "sheet to load: name or zero-based index (default: first sheet)")
	flag.StringVar(&mappingPath, "mapping", "", `path to a JSON mapping of {"table": "file.xlsx", ...}`)
	flag.StringVar(&dirPath, "dir", "", "upload every .xlsx file in this directory, one table per file")
	flag.StringVar(&kind, "kind", "", "destination kind: mysql, postgres, mssql, sqlite (default: env DB_KIND)")
	flag.IntVar(&batchSize, "batch-size", 0, "rows per insert chunk (default 1000)")
	flag.BoolVar(&stopOnError, "stop-on-error", false, "abort a file's remaining chunks after the first failed chunk")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (datadog, none)")
	flag.StringVar(&metricsTags, "metrics-tags", "", `extra metric tags, e.g. "env:prod,team:data"`)
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if !*verbose {
		logger.SetFlags(0)
	}

	modes := 0
	for _, set := range []bool{filePath != "", mappingPath != "", dirPath != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		fatalf("exactly one of -file, -mapping, -dir is required")
	}
	if sheetArg != "" && filePath == "" {
		fatalf("-sheet requires -file")
	}

	// .env is optional; real environment variables win when both exist.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fatalf("config: %v", err)
	}
	if kind != "" {
		cfg.Kind = kind
	}
	if err := cfg.Validate(); err != nil {
		fatalf("config: %v", err)
	}

	ctx := context.Background()

	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Kind, DSN: cfg.ConnString()})
	if err != nil {
		fatalf("connect %s: %v", cfg.Kind, err)
	}
	defer repo.Close()

	backend := newMetricsBackend(ctx, metricsBackendFlg, metricsTags, logger)
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Printf("metrics close: %v", err)
		}
	}()

	u := &uploader.Uploader{
		Repo:        repo,
		Logger:      logger,
		Metrics:     backend,
		BatchSize:   batchSize,
		StopOnError: stopOnError,
	}

	var outcomes []uploader.Outcome
	switch {
	case filePath != "":
		outcomes = append(outcomes, u.UploadSheet(ctx, filePath, tableName, xlsx.SheetArg(sheetArg)))
	case mappingPath != "":
		mapping, err := readMapping(mappingPath)
		if err != nil {
			fatalf("mapping: %v", err)
		}
		outcomes = u.UploadMany(ctx, mapping)
	case dirPath != "":
		outcomes, err = u.UploadDir(ctx, dirPath)
		if err != nil {
			fatalf("dir: %v", err)
		}
	}

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL  %-24s %s: %v\n", o.Table, o.File, o.Err)
			continue
		}
		status := "ok"
		if o.RowsFailed > 0 {
			status = "partial"
		}
		fmt.Printf("%-7s %-24s rows=%d/%d created=%t columns_added=%d elapsed=%s\n",
			status, o.Table, o.RowsSucceeded, o.RowsAttempted, o.TableCreated,
			o.ColumnsAdded, o.Elapsed.Round(time.Millisecond))
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// newMetricsBackend resolves the backend name from the flag, then the
// METRICS_BACKEND env var, then defaults to no metrics.
func newMetricsBackend(ctx context.Context, name, tags string, logger *log.Logger) metrics.Backend {
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}
	switch name {
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			Tags: datadog.ParseTagsCSV(tags),
		})
		if err != nil {
			logger.Printf("datadog metrics disabled: %v", err)
			return metrics.Nop{}
		}
		return b
	case "", "none":
		return metrics.Nop{}
	default:
		fatalf("unknown metrics backend %q", name)
		return nil
	}
}

func readMapping(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m map[string]string
	if err := json.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("%s maps no tables", path)
	}
	return m, nil
}

func fatalf(format string, v ...any) {
	fmt.Fprintf(os.Stderr, "sheetload: "+format+"\n", v...)
	os.Exit(1)
}
