package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/torosent/crankset/internal/metrics"
	"github.com/torosent/crankset/internal/threshold"
)

func sampleStats() metrics.Stats {
	c := metrics.NewCollector()
	for i := 0; i < 30; i++ {
		c.RecordTask(metrics.Record{Selected: "browse", Task: "browse", Latency: 2 * time.Millisecond})
	}
	for i := 0; i < 10; i++ {
		c.RecordTask(metrics.Record{Selected: "checkout", Task: "checkout", Latency: 4 * time.Millisecond})
	}
	c.RecordTask(metrics.Record{Selected: "checkout", Task: "checkout", Latency: time.Millisecond, Err: &metricsTestError{}})
	return c.Stats(2 * time.Second)
}

type metricsTestError struct{}

func (*metricsTestError) Error() string { return "declined" }

func TestPrintReportBasic(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintReport(&buf, sampleStats(), nil); err != nil {
		t.Fatalf("PrintReport: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Total Iterations:  41", "Failed:            1", "Task Breakdown", "BROWSE", "checkout", "Errors:", "Metrics Test Error (output)"} {
		if !strings.Contains(strings.ToUpper(output), strings.ToUpper(want)) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Task Distribution") {
		t.Errorf("distribution section must be omitted without a fit")
	}
}

func TestPrintReportDistributionVerdict(t *testing.T) {
	declared := []metrics.Weighted{{Name: "browse", Weight: 3}, {Name: "checkout", Weight: 1}}

	pass, err := metrics.CheckDistribution(declared, map[string]int64{"browse": 300, "checkout": 100}, 0.001)
	if err != nil {
		t.Fatalf("CheckDistribution: %v", err)
	}
	var buf bytes.Buffer
	if err := PrintReport(&buf, sampleStats(), &pass); err != nil {
		t.Fatalf("PrintReport: %v", err)
	}
	if !strings.Contains(buf.String(), "PASS") || !strings.Contains(buf.String(), "df=1") {
		t.Errorf("expected passing verdict, got:\n%s", buf.String())
	}

	fail, err := metrics.CheckDistribution(declared, map[string]int64{"browse": 100, "checkout": 300}, 0.001)
	if err != nil {
		t.Fatalf("CheckDistribution: %v", err)
	}
	buf.Reset()
	if err := PrintReport(&buf, sampleStats(), &fail); err != nil {
		t.Fatalf("PrintReport: %v", err)
	}
	if !strings.Contains(buf.String(), "FAIL") {
		t.Errorf("expected failing verdict, got:\n%s", buf.String())
	}
}

func TestPrintReportSingleTaskVerdict(t *testing.T) {
	fit, err := metrics.CheckDistribution([]metrics.Weighted{{Name: "hello", Weight: 20}}, map[string]int64{"hello": 12}, 0.001)
	if err != nil {
		t.Fatalf("CheckDistribution: %v", err)
	}
	var buf bytes.Buffer
	if err := PrintReport(&buf, metrics.Stats{}, &fit); err != nil {
		t.Fatalf("PrintReport: %v", err)
	}
	if !strings.Contains(buf.String(), "single task, 12 draws") {
		t.Errorf("unexpected verdict:\n%s", buf.String())
	}
}

func TestPrintJSONReport(t *testing.T) {
	fit, err := metrics.CheckDistribution([]metrics.Weighted{{Name: "browse", Weight: 3}, {Name: "checkout", Weight: 1}},
		map[string]int64{"browse": 30, "checkout": 11}, 0.001)
	if err != nil {
		t.Fatalf("CheckDistribution: %v", err)
	}

	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, sampleStats(), &fit, nil); err != nil {
		t.Fatalf("PrintJSONReport: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed["total"] != float64(41) {
		t.Errorf("expected total 41 at the top level, got %v", parsed["total"])
	}
	dist, ok := parsed["distribution"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected distribution object, got %v", parsed["distribution"])
	}
	if dist["pass"] != true {
		t.Errorf("expected pass=true, got %v", dist["pass"])
	}

	buf.Reset()
	if err := PrintJSONReport(&buf, sampleStats(), nil, nil); err != nil {
		t.Fatalf("PrintJSONReport: %v", err)
	}
	if strings.Contains(buf.String(), "distribution") {
		t.Errorf("distribution must be omitted without a fit")
	}
}

func TestFormatLatency(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0"},
		{250 * time.Microsecond, "250µs"},
		{12345 * time.Microsecond, "12.35ms"},
	}
	for _, tt := range tests {
		if got := formatLatency(tt.in); got != tt.want {
			t.Errorf("formatLatency(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestThresholdResultsInReports(t *testing.T) {
	stats := sampleStats()
	parsed, err := threshold.ParseMultiple([]string{"iterations:count == 41", "task_failed:count < 1"})
	if err != nil {
		t.Fatalf("ParseMultiple: %v", err)
	}
	results := threshold.NewEvaluator(parsed).Evaluate(stats)

	var buf bytes.Buffer
	PrintThresholds(&buf, results)
	out := buf.String()
	if !strings.Contains(out, "Thresholds:") || !strings.Contains(out, "✓ iterations:count == 41") || !strings.Contains(out, "✗ task_failed:count < 1") {
		t.Errorf("unexpected threshold output:\n%s", out)
	}

	buf.Reset()
	PrintThresholds(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output without thresholds, got %q", buf.String())
	}

	if err := PrintJSONReport(&buf, stats, nil, results); err != nil {
		t.Fatalf("PrintJSONReport: %v", err)
	}
	var parsedJSON struct {
		Thresholds []struct {
			Threshold string  `json:"threshold"`
			Actual    float64 `json:"actual"`
			Pass      bool    `json:"pass"`
		} `json:"thresholds"`
	}
	if err := json.Unmarshal(buf.Bytes(), &parsedJSON); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(parsedJSON.Thresholds) != 2 || !parsedJSON.Thresholds[0].Pass || parsedJSON.Thresholds[1].Pass {
		t.Fatalf("unexpected thresholds: %+v", parsedJSON.Thresholds)
	}
	if parsedJSON.Thresholds[1].Actual != 1 {
		t.Fatalf("expected 1 failure, got %v", parsedJSON.Thresholds[1].Actual)
	}
}

func TestPrintReportShowsInterrupted(t *testing.T) {
	stats := sampleStats()
	var buf bytes.Buffer
	if err := PrintReport(&buf, stats, nil); err != nil {
		t.Fatalf("PrintReport: %v", err)
	}
	if strings.Contains(buf.String(), "Interrupted:") {
		t.Errorf("no interrupted line expected for a clean run:\n%s", buf.String())
	}

	stats.Interrupted = 2
	buf.Reset()
	if err := PrintReport(&buf, stats, nil); err != nil {
		t.Fatalf("PrintReport: %v", err)
	}
	if !strings.Contains(buf.String(), "Interrupted:       2") {
		t.Errorf("expected interrupted count in output:\n%s", buf.String())
	}
}
