package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Record describes one task execution.
type Record struct {
	Selected string // entry drawn from the user's top-level task set
	Task     string // path of the leaf that ran, e.g. "checkout/pay"; equals Selected unless sets are nested
	Latency  time.Duration
	Err      error

	// Interrupted marks an execution cut short by the end of the run. Only
	// its selection is counted.
	Interrupted bool
}

// Collector records per-task metrics in a thread-safe manner.
type Collector struct {
	mu           sync.Mutex
	overall      *latencyTracker
	tasks        map[string]*latencyTracker
	selections   map[string]int64
	errorsByType map[string]int64
	interrupted  int64
	start        time.Time
}

// Stats represents aggregated metrics.
type Stats struct {
	Total            int64         `json:"total"`
	Successes        int64         `json:"successes"`
	Failures         int64         `json:"failures"`
	Interrupted      int64         `json:"interrupted,omitempty"`
	MinLatency       time.Duration `json:"-"`
	MaxLatency       time.Duration `json:"-"`
	MeanLatency      time.Duration `json:"-"`
	P50Latency       time.Duration `json:"-"`
	P90Latency       time.Duration `json:"-"`
	P99Latency       time.Duration `json:"-"`
	Duration         time.Duration `json:"-"`
	IterationsPerSec float64       `json:"iterations_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	Tasks      map[string]TaskStats `json:"tasks,omitempty"`
	Selections map[string]int64     `json:"selections,omitempty"`
	Errors     map[string]int       `json:"errors,omitempty"`
}

// TaskStats is the per-task breakdown of Stats.
type TaskStats struct {
	Total            int64         `json:"total"`
	Successes        int64         `json:"successes"`
	Failures         int64         `json:"failures"`
	Share            float64       `json:"share"` // fraction of all executions
	MeanLatency      time.Duration `json:"-"`
	P50Latency       time.Duration `json:"-"`
	P99Latency       time.Duration `json:"-"`
	IterationsPerSec float64       `json:"iterations_per_sec"`
	MeanLatencyMs    float64       `json:"mean_latency_ms"`
	P50LatencyMs     float64       `json:"p50_latency_ms"`
	P99LatencyMs     float64       `json:"p99_latency_ms"`
}

func NewCollector() *Collector {
	return &Collector{
		overall:      newLatencyTracker(),
		tasks:        make(map[string]*latencyTracker),
		selections:   make(map[string]int64),
		errorsByType: make(map[string]int64),
		start:        time.Now(),
	}
}

// Start marks the beginning of the run for rate calculations.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Elapsed returns the time since Start.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// RecordTask records a single task execution.
func (c *Collector) RecordTask(rec Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec.Selected != "" {
		c.selections[rec.Selected]++
	}
	if rec.Interrupted {
		c.interrupted++
		return
	}

	c.overall.record(rec.Latency, rec.Err)

	task := rec.Task
	if task == "" {
		task = rec.Selected
	}
	tracker, ok := c.tasks[task]
	if !ok {
		tracker = newLatencyTracker()
		c.tasks[task] = tracker
	}
	tracker.record(rec.Latency, rec.Err)

	if rec.Err != nil {
		c.errorsByType[errorKey(rec.Err)]++
	}
}

// Selections returns how often each top-level entry was drawn, including
// draws whose execution was interrupted.
func (c *Collector) Selections() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.selections))
	for k, v := range c.selections {
		out[k] = v
	}
	return out
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	overall := c.overall.snapshot(elapsed)
	stats := Stats{
		Total:            overall.total,
		Successes:        overall.successes,
		Failures:         overall.failures,
		Interrupted:      c.interrupted,
		MinLatency:       overall.min,
		MaxLatency:       overall.max,
		MeanLatency:      overall.mean,
		P50Latency:       overall.p50,
		P90Latency:       overall.p90,
		P99Latency:       overall.p99,
		Duration:         elapsed,
		IterationsPerSec: overall.rate,
	}

	stats.MinLatencyMs = toMillis(stats.MinLatency)
	stats.MaxLatencyMs = toMillis(stats.MaxLatency)
	stats.MeanLatencyMs = toMillis(stats.MeanLatency)
	stats.P50LatencyMs = toMillis(stats.P50Latency)
	stats.P90LatencyMs = toMillis(stats.P90Latency)
	stats.P99LatencyMs = toMillis(stats.P99Latency)
	stats.DurationMs = toMillis(elapsed)

	if len(c.tasks) > 0 {
		stats.Tasks = make(map[string]TaskStats, len(c.tasks))
		for name, tracker := range c.tasks {
			snap := tracker.snapshot(elapsed)
			ts := TaskStats{
				Total:            snap.total,
				Successes:        snap.successes,
				Failures:         snap.failures,
				MeanLatency:      snap.mean,
				P50Latency:       snap.p50,
				P99Latency:       snap.p99,
				IterationsPerSec: snap.rate,
				MeanLatencyMs:    toMillis(snap.mean),
				P50LatencyMs:     toMillis(snap.p50),
				P99LatencyMs:     toMillis(snap.p99),
			}
			if stats.Total > 0 {
				ts.Share = float64(snap.total) / float64(stats.Total)
			}
			stats.Tasks[name] = ts
		}
	}

	if len(c.selections) > 0 {
		stats.Selections = make(map[string]int64, len(c.selections))
		for k, v := range c.selections {
			stats.Selections[k] = v
		}
	}

	if len(c.errorsByType) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			stats.Errors[k] = int(v)
		}
	}

	return stats
}

// GetErrorBreakdown returns a map of error types to their counts.
func (c *Collector) GetErrorBreakdown() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]int)
	for k, v := range c.errorsByType {
		result[k] = int(v)
	}
	return result
}

// errorKey names the innermost cause of err by its Go type.
func errorKey(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "context.Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context.DeadlineExceeded"
	}
	root := err
	for {
		next := errors.Unwrap(root)
		if next == nil {
			break
		}
		root = next
	}
	return fmt.Sprintf("%T", root)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type latencyTracker struct {
	hist      *hdrhistogram.Histogram
	successes int64
	failures  int64
	min       time.Duration
	max       time.Duration
	sum       time.Duration
}

type latencySnapshot struct {
	total, successes, failures int64
	min, max, mean             time.Duration
	p50, p90, p99              time.Duration
	rate                       float64
}

func newLatencyTracker() *latencyTracker {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &latencyTracker{hist: hdrhistogram.New(1, 60_000_000, 3)}
}

func (t *latencyTracker) record(latency time.Duration, err error) {
	if latency > 0 {
		us := latency.Microseconds()
		if us < t.hist.LowestTrackableValue() {
			us = t.hist.LowestTrackableValue()
		}
		if us > t.hist.HighestTrackableValue() {
			us = t.hist.HighestTrackableValue()
		}
		_ = t.hist.RecordValue(us)
	}
	t.sum += latency

	if t.successes+t.failures == 0 || latency < t.min {
		t.min = latency
	}
	if latency > t.max {
		t.max = latency
	}

	if err == nil {
		t.successes++
	} else {
		t.failures++
	}
}

func (t *latencyTracker) snapshot(elapsed time.Duration) latencySnapshot {
	snap := latencySnapshot{
		total:     t.successes + t.failures,
		successes: t.successes,
		failures:  t.failures,
		min:       t.min,
		max:       t.max,
	}
	if snap.total > 0 {
		snap.mean = time.Duration(int64(t.sum) / snap.total)
	}
	if t.hist.TotalCount() > 0 {
		snap.p50 = time.Duration(t.hist.ValueAtQuantile(50)) * time.Microsecond
		snap.p90 = time.Duration(t.hist.ValueAtQuantile(90)) * time.Microsecond
		snap.p99 = time.Duration(t.hist.ValueAtQuantile(99)) * time.Microsecond
	}
	if elapsed > 0 && snap.total > 0 {
		snap.rate = float64(snap.total) / elapsed.Seconds()
	}
	return snap
}
