package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"geotrace/internal/models"
	"geotrace/internal/trace"
)

func (g *Generator) generateTextReport(outputDir string, summary models.TraceSummary, hops []models.HopRecord) error {
	file, err := os.Create(filepath.Join(outputDir, "summary.txt"))
	if err != nil {
		return err
	}
	defer file.Close()

	return writeSummary(file, summary, hops, time.Now())
}

func writeSummary(w io.Writer, summary models.TraceSummary, hops []models.HopRecord, now time.Time) error {
	fmt.Fprintf(w, "Traceroute Report\n")
	fmt.Fprintf(w, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nTarget: %s\n", summary.Target)
	fmt.Fprintf(w, "Started: %s (%s)\n", summary.StartedAt.Format("2006-01-02 15:04:05"),
		humanize.RelTime(summary.StartedAt, now, "ago", "from now"))
	fmt.Fprintf(w, "Duration: %s\n", summary.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Status: %s\n", summary.Status)
	if summary.Message != "" {
		fmt.Fprintf(w, "  %s\n", summary.Message)
	}
	fmt.Fprintf(w, "Hops: %d\n", summary.HopCount)
	if summary.AvgLatencyMs != nil {
		fmt.Fprintf(w, "Average Latency: %.2f ms\n", *summary.AvgLatencyMs)
	}
	if summary.PathDistanceKm > 0 {
		fmt.Fprintf(w, "Path Distance: %s km\n", humanize.CommafWithDigits(summary.PathDistanceKm, 1))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "\nHOPS")

	if len(hops) == 0 {
		fmt.Fprintln(w, "No hops recorded.")
	}
	for _, h := range hops {
		fmt.Fprintln(w, trace.FormatLine(h, true))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	_, err := fmt.Fprintln(w, "\nThe latency chart and route are available in the accompanying files.")
	return err
}
