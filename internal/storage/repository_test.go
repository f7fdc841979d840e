package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type nopRepo struct{}

func (nopRepo) Close() {}

func (nopRepo) TableColumns(ctx context.Context, table string) ([]string, bool, error) {
	return nil, false, nil
}

func (nopRepo) CreateTable(ctx context.Context, spec TableSpec) error { return nil }

func (nopRepo) AddColumn(ctx context.Context, table string, col ColumnSpec) error { return nil }

func (nopRepo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	return 0, nil
}

func TestNewDispatchesToRegisteredFactory(t *testing.T) {
	var gotCfg Config
	Register("test-fake", func(ctx context.Context, cfg Config) (Repository, error) {
		gotCfg = cfg
		return nopRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "test-fake", DSN: "dsn://x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if repo == nil {
		t.Fatal("New returned nil Repository")
	}
	if gotCfg.DSN != "dsn://x" {
		t.Fatalf("factory got cfg = %+v", gotCfg)
	}
}

func TestNewPropagatesFactoryError(t *testing.T) {
	boom := errors.New("ping failed")
	Register("test-failing", func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, boom
	})

	if _, err := New(context.Background(), Config{Kind: "test-failing"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want factory error", err)
	}
}

func TestNewRejectsMissingKind(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected an error for empty Kind")
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "no-such-backend"})
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("err = %v", err)
	}
}

func TestRegisterPanics(t *testing.T) {
	mustPanic := func(name string, fn func()) {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}

	ok := func(ctx context.Context, cfg Config) (Repository, error) { return nopRepo{}, nil }

	mustPanic("empty_kind", func() { Register("", ok) })
	mustPanic("nil_factory", func() { Register("test-nil", nil) })

	Register("test-dup", ok)
	mustPanic("duplicate_kind", func() { Register("test-dup", ok) })
}
