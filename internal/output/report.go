package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/torosent/crankset/internal/metrics"
	"github.com/torosent/crankset/internal/threshold"
)

var (
	bold  = color.New(color.Bold)
	green = color.New(color.FgGreen, color.Bold)
	red   = color.New(color.FgRed, color.Bold)
)

// PrintReport outputs a human-readable summary report. fit may be nil when
// no distribution check was run.
func PrintReport(w io.Writer, stats metrics.Stats, fit *metrics.Fit) error {
	_, _ = bold.Fprintln(w, "\n--- Run Results ---")
	fmt.Fprintf(w, "Total Iterations:  %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	if stats.Interrupted > 0 {
		fmt.Fprintf(w, "Interrupted:       %d\n", stats.Interrupted)
	}
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Iterations/sec:    %.2f\n", stats.IterationsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.Tasks) > 0 {
		fmt.Fprintln(w, "\nTask Breakdown:")
		if err := writeTaskTable(w, stats); err != nil {
			return err
		}
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		kinds := make([]string, 0, len(stats.Errors))
		for kind := range stats.Errors {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(w, "  - %s: %d\n", metrics.FriendlyErrorName(kind), stats.Errors[kind])
		}
	}

	if fit != nil {
		fmt.Fprintln(w, "\nTask Distribution:")
		if err := writeFitTable(w, fit); err != nil {
			return err
		}
		writeVerdict(w, fit)
	}
	return nil
}

// PrintThresholds outputs one line per threshold result.
func PrintThresholds(w io.Writer, results []threshold.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		c := green
		if !r.Pass {
			c = red
		}
		fmt.Fprint(w, "  ")
		_, _ = c.Fprintln(w, r.Message)
	}
}

type jsonThreshold struct {
	Threshold string  `json:"threshold"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
	Message   string  `json:"message,omitempty"`
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats, fit *metrics.Fit, results []threshold.Result) error {
	report := struct {
		metrics.Stats
		Distribution *metrics.Fit    `json:"distribution,omitempty"`
		Thresholds   []jsonThreshold `json:"thresholds,omitempty"`
	}{Stats: stats, Distribution: fit}

	for _, r := range results {
		report.Thresholds = append(report.Thresholds, jsonThreshold{
			Threshold: r.Threshold.Raw,
			Actual:    r.Actual,
			Pass:      r.Pass,
			Message:   r.Message,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeTaskTable(w io.Writer, stats metrics.Stats) error {
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

	table := tablewriter.NewWriter(w)
	table.Header("Task", "Runs", "Share", "Failures", "Mean", "P50", "P99", "Iter/s")
	for _, name := range names {
		task := stats.Tasks[name]
		_ = table.Append(
			name,
			fmt.Sprintf("%d", task.Total),
			formatShare(task.Share),
			fmt.Sprintf("%d", task.Failures),
			formatLatency(task.MeanLatency),
			formatLatency(task.P50Latency),
			formatLatency(task.P99Latency),
			fmt.Sprintf("%.2f", task.IterationsPerSec),
		)
	}
	return table.Render()
}

func writeFitTable(w io.Writer, fit *metrics.Fit) error {
	table := tablewriter.NewWriter(w)
	table.Header("Task", "Weight", "Expected", "Observed", "Expected Share", "Observed Share")
	for _, row := range fit.Rows {
		_ = table.Append(
			row.Task,
			fmt.Sprintf("%d", row.Weight),
			fmt.Sprintf("%.1f", row.Expected),
			fmt.Sprintf("%d", row.Observed),
			formatShare(row.ExpectedShare),
			formatShare(row.ObservedShare),
		)
	}
	return table.Render()
}

func writeVerdict(w io.Writer, fit *metrics.Fit) {
	verdict, c := "PASS", green
	if !fit.Pass {
		verdict, c = "FAIL", red
	}
	fmt.Fprint(w, "Distribution:      ")
	_, _ = c.Fprint(w, verdict)
	if fit.DegreesOfFreedom == 0 {
		fmt.Fprintf(w, " (single task, %d draws)\n", fit.Draws)
		return
	}
	fmt.Fprintf(w, " (chi2=%.3f, df=%d, critical=%.3f, p=%.4f at alpha=%g, %d draws)\n",
		fit.ChiSquare, fit.DegreesOfFreedom, fit.Critical, fit.PValue, fit.Alpha, fit.Draws)
}

func formatShare(share float64) string {
	return fmt.Sprintf("%.1f%%", share*100)
}

func formatLatency(d time.Duration) string {
	switch {
	case d == 0:
		return "0"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	default:
		return d.Round(10 * time.Microsecond).String()
	}
}
