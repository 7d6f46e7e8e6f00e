// Package inspect renders summaries, per-session breakdowns, and backend
// comparisons as terminal tables. Formatting only; all statistics come from
// the aggregate and compare packages.
package inspect

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"

	"github.com/starford/naudiz/internal/aggregate"
	"github.com/starford/naudiz/internal/compare"
)

const barWidth = 30

var (
	upTrend     = color.New(color.FgGreen)
	downTrend   = color.New(color.FgRed)
	significant = color.New(color.FgYellow, color.Bold)
)

// RenderSummary prints the workspace summary as a metric table.
func RenderSummary(w io.Writer, s aggregate.Summary) {
	fmt.Fprintf(w, "Backend: %s  Device: %s\n", s.Backend, s.DeviceName)
	fmt.Fprintln(w, "+----------------+-------------+")
	fmt.Fprintln(w, "| Metric         | Value       |")
	fmt.Fprintln(w, "+----------------+-------------+")
	printRow := func(label string, value float64) {
		fmt.Fprintf(w, "| %-14s | %11.4f |\n", label, value)
	}
	printRow("Mean", s.MeanStability)
	printRow("Variance", s.Variance)
	printRow("Drift p95", s.DriftPercentile)
	fmt.Fprintln(w, "+----------------+-------------+")
	fmt.Fprintf(w, "| %-14s | %11d |\n", "Sessions", s.SessionCount)
	if s.ExcludedFiles > 0 {
		fmt.Fprintf(w, "| %-14s | %11d |\n", "Excluded", s.ExcludedFiles)
	}
	fmt.Fprintln(w, "+----------------+-------------+")
}

// RenderSessions prints a per-session breakdown with mean and drift bars
// scaled against the batch maxima.
func RenderSessions(w io.Writer, sessions []aggregate.SessionDetail) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No per-session telemetry detected.")
		return
	}

	var maxMean, maxDrift float64
	for _, session := range sessions {
		maxMean = math.Max(maxMean, session.Metrics.MeanStability)
		maxDrift = math.Max(maxDrift, session.Metrics.DriftPercentile)
	}

	fmt.Fprintln(w, "Session breakdown:")
	for _, session := range sessions {
		fmt.Fprintf(w, "%s [%s | %s] mean=%.4f count=%d\n",
			session.Source, session.Metrics.Backend, session.Metrics.DeviceName,
			session.Metrics.MeanStability, session.Metrics.SessionCount)
		fmt.Fprintf(w, "  mean  %s\n", bar(session.Metrics.MeanStability, maxMean))
		fmt.Fprintf(w, "  drift %s (p95=%.2f)\n",
			bar(session.Metrics.DriftPercentile, maxDrift), session.Metrics.DriftPercentile)
	}
}

// RenderComparison prints the backend comparison table. The best mean gets
// an up arrow; drift deltas beyond the significance threshold are marked.
func RenderComparison(w io.Writer, result compare.Result) {
	if len(result.Entries) == 0 {
		fmt.Fprintln(w, "No comparison entries loaded.")
		return
	}

	var bestMean float64
	for _, entry := range result.Entries {
		bestMean = math.Max(bestMean, entry.Summary.MeanStability)
	}

	divider := "+----------------+---------+---------+-----------+---------+---------+---------+-------+"
	fmt.Fprintf(w, "Comparison (baseline: %s)\n", result.BaselineBackend)
	fmt.Fprintln(w, divider)
	fmt.Fprintln(w, "| Backend        | Mean    | ΔMean   | Drift p95 | Drift Δ | Var     | Var x   | Trend |")
	fmt.Fprintln(w, divider)

	for _, entry := range result.Entries {
		isBest := entry.Summary.MeanStability >= bestMean-1e-9
		trend := downTrend.Sprint("↓")
		if isBest {
			trend = upTrend.Sprint("↑")
		}

		driftDelta := formatValue(entry.DriftSkew, 4)
		if entry.DriftSignificant {
			driftDelta = significant.Sprint(driftDelta + "*")
		}

		label := entry.Summary.Backend + "/" + entry.Summary.DeviceName
		if len(label) > 14 {
			label = label[:14]
		}

		fmt.Fprintf(w, "| %-14s | %7s | %7s | %9s | %7s | %7s | %7s | %5s |\n",
			label,
			formatValue(entry.Summary.MeanStability, 4),
			formatValue(entry.MeanDelta, 4),
			formatValue(entry.Summary.DriftPercentile, 4),
			driftDelta,
			formatValue(entry.Summary.Variance, 4),
			formatValue(entry.VarianceRatio, 2),
			trend)
	}
	fmt.Fprintln(w, divider)
	fmt.Fprintln(w, "(*) drift delta exceeds ±5 ms threshold")
}

func bar(value, maxValue float64) string {
	if maxValue <= 0 {
		return strings.Repeat(".", barWidth)
	}
	ratio := value / maxValue
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * barWidth)
	return strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
}

func formatValue(value float64, precision int) string {
	if math.IsInf(value, 0) {
		return "inf"
	}
	return fmt.Sprintf("%.*f", precision, value)
}
