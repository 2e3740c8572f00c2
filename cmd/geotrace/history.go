package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"geotrace/internal/config"
	"geotrace/internal/report"
)

func runHistory(cfg config.Config, logger *zap.Logger) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	traces, err := db.GetTraces(cfg.Limit)
	if err != nil {
		return fmt.Errorf("list traces: %w", err)
	}
	if len(traces) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Started", "Target", "Status", "Hops", "Avg latency", "Distance")
	for _, tr := range traces {
		latency := "-"
		if tr.AvgLatencyMs != nil {
			latency = fmt.Sprintf("%.2f ms", *tr.AvgLatencyMs)
		}
		t.Row(
			strconv.FormatInt(tr.ID, 10),
			humanize.Time(tr.StartedAt),
			tr.Target,
			string(tr.Status),
			strconv.Itoa(tr.HopCount),
			latency,
			humanize.CommafWithDigits(tr.PathDistanceKm, 0)+" km",
		)
	}
	fmt.Println(t.Render())
	return nil
}

func runReport(cfg config.Config, logger *zap.Logger) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	id := cfg.TraceID
	if id == 0 {
		latest, err := db.GetTraces(1)
		if err != nil {
			return fmt.Errorf("find latest trace: %w", err)
		}
		if len(latest) == 0 {
			return fmt.Errorf("no recorded runs")
		}
		id = latest[0].ID
	}

	dir, err := report.NewGenerator(db, logger).GenerateReport(cfg.OutputDir, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Report written to %s\n", dir)
	return nil
}
