// Package loader inserts prepared rows into a destination table in
// bounded-size chunks.
package loader

import (
	"context"
	"fmt"
	"time"

	"sheetload/internal/storage"
)

// DefaultBatchSize bounds how many rows go into a single INSERT statement.
const DefaultBatchSize = 1000

// Options control chunking and failure policy.
type Options struct {
	// BatchSize caps rows per chunk. <= 0 means DefaultBatchSize.
	BatchSize int

	// StopOnError aborts the remaining chunks of this load after the first
	// chunk failure. The default is to keep going: a failed chunk is counted
	// and reported, later chunks still get their chance.
	StopOnError bool
}

// ChunkError records one failed chunk with enough context to diagnose
// without re-running: which chunk, which source rows, and why.
type ChunkError struct {
	Chunk int // zero-based chunk index
	Start int // first source row (zero-based, inclusive)
	End   int // last source row (exclusive)
	Err   error
}

func (e ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (rows %d-%d): %v", e.Chunk, e.Start, e.End, e.Err)
}

func (e ChunkError) Unwrap() error { return e.Err }

// Result reports cumulative counts for one load. Rows are never silently
// dropped: RowsAttempted == RowsSucceeded + RowsFailed, and rows skipped by
// StopOnError count as failed.
type Result struct {
	RowsAttempted int64
	RowsSucceeded int64
	RowsFailed    int64

	// ChunksAttempted counts chunks actually submitted; with StopOnError the
	// aborted tail is not attempted. len(ChunkErrors) of them failed.
	ChunksAttempted int
	ChunkErrors     []ChunkError

	Elapsed time.Duration
}

// Chunks partitions n items into consecutive [start, end) ranges of at most
// size items. Pure, so the 2500/1000 -> 1000,1000,500 contract is testable
// without a repository.
func Chunks(n, size int) [][2]int {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][2]int, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// Load inserts rows into table chunk by chunk. Each chunk is submitted as a
// single InsertRows call, preserving source order within the chunk. There is
// no automatic retry; failures are recorded and, per Options, the loader
// either continues or writes off the rest.
func Load(ctx context.Context, repo storage.Repository, table string, columns []string, rows [][]any, opts Options) Result {
	start := time.Now()

	res := Result{RowsAttempted: int64(len(rows))}
	chunks := Chunks(len(rows), opts.BatchSize)

	for i, c := range chunks {
		res.ChunksAttempted++
		// A chunk is all-or-nothing from the loader's perspective: on success
		// every row in it counts as succeeded, on failure every row as failed.
		if _, err := repo.InsertRows(ctx, table, columns, rows[c[0]:c[1]]); err != nil {
			res.RowsFailed += int64(c[1] - c[0])
			res.ChunkErrors = append(res.ChunkErrors, ChunkError{Chunk: i, Start: c[0], End: c[1], Err: err})
			if opts.StopOnError {
				for _, rest := range chunks[i+1:] {
					res.RowsFailed += int64(rest[1] - rest[0])
				}
				break
			}
			continue
		}
		res.RowsSucceeded += int64(c[1] - c[0])
	}

	res.Elapsed = time.Since(start)
	return res
}
