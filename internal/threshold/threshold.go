// Package threshold evaluates pass/fail assertions against run statistics.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/crankset/internal/metrics"
)

// Supported metrics.
const (
	MetricDuration   = "task_duration" // latency in milliseconds
	MetricFailed     = "task_failed"   // failed executions
	MetricIterations = "iterations"    // executed iterations
)

// Threshold is one assertion, optionally scoped to a single task.
type Threshold struct {
	Metric    string  // task_duration, task_failed or iterations
	Task      string  // empty for the whole run
	Aggregate string  // e.g., "p99", "avg", "rate", "count"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against collected metrics.
type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against the provided stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := extractMetricValue(t, stats)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("✗ %s: %v", t.Raw, err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+)(?:\[([^\]]+)\])?:([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string. Examples:
//   - "task_duration:p99 < 50"        (run-wide latency percentile in ms)
//   - "task_duration[hello]:avg < 5"  (one task's mean latency in ms)
//   - "task_failed:rate < 0.01"       (failure rate as decimal)
//   - "task_failed[checkout]:count < 3"
//   - "iterations:rate > 100"         (iterations per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected metric[task]:aggregate operator value, e.g. 'task_duration:p99 < 50')", s)
	}

	metric, task, aggregate, operator := matches[1], strings.TrimSpace(matches[2]), matches[3], matches[4]
	value, err := strconv.ParseFloat(matches[5], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", matches[5], err)
	}

	if !contains(aggregatesFor(metric, task != ""), aggregate) {
		if len(aggregatesFor(metric, false)) == 0 {
			return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s, %s, %s)", metric, MetricDuration, MetricFailed, MetricIterations)
		}
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(aggregatesFor(metric, task != ""), ", "))
	}
	if !contains([]string{"<", "<=", ">", ">=", "=="}, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Task:      task,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings and reports every bad one.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var problems []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}
	return result, nil
}

// aggregatesFor lists the aggregates a metric supports. Per-task stats keep
// fewer latency quantiles than the run-wide ones.
func aggregatesFor(metric string, scoped bool) []string {
	switch metric {
	case MetricDuration:
		if scoped {
			return []string{"p50", "p99", "avg"}
		}
		return []string{"p50", "p90", "p99", "avg", "min", "max"}
	case MetricFailed, MetricIterations:
		return []string{"count", "rate"}
	default:
		return nil
	}
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func extractMetricValue(t Threshold, stats metrics.Stats) (float64, error) {
	if t.Task != "" {
		task, ok := stats.Tasks[t.Task]
		if !ok {
			return 0, fmt.Errorf("task %q was never executed", t.Task)
		}
		return extractTaskMetric(t, task)
	}

	switch t.Metric {
	case MetricDuration:
		switch t.Aggregate {
		case "p50":
			return stats.P50LatencyMs, nil
		case "p90":
			return stats.P90LatencyMs, nil
		case "p99":
			return stats.P99LatencyMs, nil
		case "avg":
			return stats.MeanLatencyMs, nil
		case "min":
			return stats.MinLatencyMs, nil
		case "max":
			return stats.MaxLatencyMs, nil
		}
	case MetricFailed:
		return failureValue(t, stats.Failures, stats.Total)
	case MetricIterations:
		switch t.Aggregate {
		case "count":
			return float64(stats.Total), nil
		case "rate":
			return stats.IterationsPerSec, nil
		}
	}
	return 0, fmt.Errorf("unsupported aggregate %q for %s", t.Aggregate, t.Metric)
}

func extractTaskMetric(t Threshold, task metrics.TaskStats) (float64, error) {
	switch t.Metric {
	case MetricDuration:
		switch t.Aggregate {
		case "p50":
			return task.P50LatencyMs, nil
		case "p99":
			return task.P99LatencyMs, nil
		case "avg":
			return task.MeanLatencyMs, nil
		}
	case MetricFailed:
		return failureValue(t, task.Failures, task.Total)
	case MetricIterations:
		switch t.Aggregate {
		case "count":
			return float64(task.Total), nil
		case "rate":
			return task.IterationsPerSec, nil
		}
	}
	return 0, fmt.Errorf("unsupported aggregate %q for %s[%s]", t.Aggregate, t.Metric, t.Task)
}

func failureValue(t Threshold, failures, total int64) (float64, error) {
	switch t.Aggregate {
	case "count":
		return float64(failures), nil
	case "rate":
		if total == 0 {
			return 0, nil
		}
		return float64(failures) / float64(total), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for %s (use 'count' or 'rate')", t.Aggregate, t.Metric)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
