package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config is the minimal configuration needed to create a Repository.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Repository is a backend-agnostic interface for schema-inferred table loads.
//
// IMPORTANT: This interface is intentionally minimal and focused on what the
// uploader needs: introspect, create, extend, insert. Each backend implements
// these semantics in its own dialect (MySQL AUTO_INCREMENT, Postgres
// BIGSERIAL, SQL Server IDENTITY, etc).
type Repository interface {
	// Close releases any backend resources (connections, pools, statements).
	// Callers should treat Close as "call once".
	Close()

	// TableColumns returns the destination table's column names in ordinal
	// order, plus whether the table exists at all. A missing table is not an
	// error; (nil, false, nil) is the expected result for it.
	TableColumns(ctx context.Context, table string) ([]string, bool, error)

	// CreateTable creates the table described by spec, including the
	// server-assigned id primary key and created_at columns.
	CreateTable(ctx context.Context, spec TableSpec) error

	// AddColumn appends a nullable column to an existing table.
	AddColumn(ctx context.Context, table string, col ColumnSpec) error

	// InsertRows inserts all rows in a single statement. Every row must have
	// len(columns) values. Returns the number of rows inserted.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "mysql", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//   - The kind string becomes the lookup key used by New.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. This is intentional to fail fast and
//     avoid ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
