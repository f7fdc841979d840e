// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// Loads are usually short-lived, but a directory upload can run for a while,
// so the backend buffers samples in memory, flushes on a ticker, and flushes
// one final time on Close(). Counter/histogram calls never touch the network.
//
// Concurrency model:
//   - the orchestrator calls IncCounter/ObserveHistogram at any time
//   - Flush snapshots+resets buffers under a mutex, then submits out-of-lock
//   - the flush loop calls Flush() periodically; Close() stops the loop
package datadog

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"sheetload/internal/metrics"
)

// Options controls backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "sheetload".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls submission cadence. <= 0 defaults to 60s.
	FlushEvery time.Duration

	// Unexported test seams. Production never sets these; tests use them to
	// avoid real clocks, tickers, and HTTP.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter submitter
}

// submitter is the minimal slice of the Datadog SDK the backend needs.
// The SDK exposes a concrete *datadogV2.MetricsApi; depending on this
// interface instead lets tests submit to a fake.
type submitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// sampleKey identifies one buffered series: metric name plus its tag set in
// canonical (sorted, comma-joined) form.
type sampleKey struct {
	name string
	tags string
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api submitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu         sync.Mutex
	counters   map[sampleKey]float64
	histograms map[sampleKey][]float64
}

// NewBackend constructs a Datadog backend using the official client.
// Credentials come from the standard DD_API_KEY/DD_APP_KEY environment, via
// dd.NewDefaultContext.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "sheetload"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 1+len(opts.Tags))
	baseTags = append(baseTags, "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	sub := opts.submitter
	if sub == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		sub = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        sub,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		counters:   make(map[sampleKey]float64),
		histograms: make(map[sampleKey][]float64),
	}

	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	k := sampleKey{name: name, tags: canonicalTags(labels)}

	b.mu.Lock()
	b.counters[k] += delta
	b.mu.Unlock()
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	k := sampleKey{name: name, tags: canonicalTags(labels)}

	b.mu.Lock()
	b.histograms[k] = append(b.histograms[k], value)
	b.mu.Unlock()
}

// Flush submits buffered metrics and resets local buffers. Buffers are reset
// even when submission fails, so a dead intake cannot grow memory without
// bound over a long directory load.
func (b *Backend) Flush() error {
	counters, histograms := b.snapshotAndReset()
	if len(counters) == 0 && len(histograms) == 0 {
		return nil
	}

	series := buildSeries(b.baseTags, counters, histograms, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// Close stops the flush loop and performs one final Flush. Call once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

func (b *Backend) snapshotAndReset() (map[sampleKey]float64, map[sampleKey][]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	counters := b.counters
	histograms := b.histograms
	b.counters = make(map[sampleKey]float64)
	b.histograms = make(map[sampleKey][]float64)
	return counters, histograms
}

// buildSeries is pure: no locks, no network, no clocks. Counter buffers
// become COUNT series; histogram buffers become max/avg/samples gauges,
// which is enough shape for single-shot load durations.
func buildSeries(baseTags []string, counters map[sampleKey]float64, histograms map[sampleKey][]float64, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(counters)+3*len(histograms))

	for k, v := range counters {
		if v == 0 {
			continue
		}
		series = append(series, makeSeries(metricName(k.name), datadogV2.METRICINTAKETYPE_COUNT, v, mergeTags(baseTags, k.tags), nowUnix))
	}

	for k, samples := range histograms {
		if len(samples) == 0 {
			continue
		}
		var sum, max float64
		for _, s := range samples {
			sum += s
			if s > max {
				max = s
			}
		}
		tags := mergeTags(baseTags, k.tags)
		name := metricName(k.name)
		series = append(series,
			makeSeries(name+".max", datadogV2.METRICINTAKETYPE_GAUGE, max, tags, nowUnix),
			makeSeries(name+".avg", datadogV2.METRICINTAKETYPE_GAUGE, sum/float64(len(samples)), tags, nowUnix),
			makeSeries(name+".samples", datadogV2.METRICINTAKETYPE_GAUGE, float64(len(samples)), tags, nowUnix),
		)
	}

	return series
}

func makeSeries(metric string, typ datadogV2.MetricIntakeType, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

// metricName converts the internal snake_case name to Datadog dot notation
// ("sheetload_rows_total" -> "sheetload.rows.total").
func metricName(name string) string {
	return strings.ReplaceAll(name, "_", ".")
}

func canonicalTags(labels metrics.Labels) string {
	if len(labels) == 0 {
		return ""
	}
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return strings.Join(tags, ",")
}

func mergeTags(base []string, canonical string) []string {
	out := make([]string, 0, len(base)+4)
	out = append(out, base...)
	if canonical != "" {
		out = append(out, strings.Split(canonical, ",")...)
	}
	return out
}

// ParseTagsCSV parses comma-separated tags like "env:prod,service:loader".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ metrics.Backend = (*Backend)(nil)
