// Package metrics defines the minimal metrics surface the loader emits to.
//
// The core code depends only on Backend; concrete backends (Datadog, or
// nothing at all) live in subpackages and are selected at startup.
package metrics

// Labels are free-form key/value tags attached to a metric sample.
type Labels map[string]string

// Backend receives counters and histogram samples from a run.
//
// Implementations must be safe for use from the single orchestration
// goroutine plus their own flush loop; they must never block the load path
// on network submission.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)

	// Flush submits whatever is buffered. Close flushes once more and
	// releases resources; call it exactly once at the end of the run.
	Flush() error
	Close() error
}

// Metric names emitted by the uploader.
const (
	MetricRowsTotal   = "sheetload_rows_total"    // labels: table, status (succeeded|failed)
	MetricChunksTotal = "sheetload_chunks_total"  // labels: table, status (ok|failed)
	MetricTablesTotal = "sheetload_tables_total"  // labels: table, op (created|extended)
	MetricRunSeconds  = "sheetload_run_seconds"   // labels: table, status (ok|error)
)

// Nop is a Backend that discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}
