package output

import (
	"fmt"
	"io"
	"sort"
	"sync/atomic"
	"time"

	"github.com/torosent/crankset/internal/metrics"
)

// ProgressReporter rewrites a single progress line at a fixed interval.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		start:     time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		return
	}
	p.ticker.Stop()
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			elapsed := time.Since(p.start)
			stats := p.collector.Stats(elapsed)
			line := fmt.Sprintf("\rIterations: %d | Successes: %d | Failures: %d | Iter/s: %.1f",
				stats.Total, stats.Successes, stats.Failures, stats.IterationsPerSec)
			if name, task, ok := topTaskSnapshot(stats); ok {
				line += fmt.Sprintf(" | Top Task: %s (%.0f%%, P99 %.1fms)", name, task.Share*100, task.P99LatencyMs)
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}

func topTaskSnapshot(stats metrics.Stats) (string, metrics.TaskStats, bool) {
	if len(stats.Tasks) == 0 || stats.Total == 0 {
		return "", metrics.TaskStats{}, false
	}
	names := make([]string, 0, len(stats.Tasks))
	for name := range stats.Tasks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := stats.Tasks[names[i]], stats.Tasks[names[j]]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return names[i] < names[j]
	})
	name := names[0]
	return name, stats.Tasks[name], true
}
