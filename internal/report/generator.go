package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"geotrace/internal/models"
	"geotrace/internal/sink"
	"geotrace/internal/trace"
)

// Generator creates static charts and summaries for stored runs
type Generator struct {
	db     models.Database
	logger *zap.Logger
}

// NewGenerator creates a new report generator
func NewGenerator(db models.Database, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{db: db, logger: logger}
}

// GenerateReport writes the chart, text summary and route of one run
// into a fresh directory under outputDir and returns that directory.
func (g *Generator) GenerateReport(outputDir string, traceID int64) (string, error) {
	summary, err := g.db.GetTrace(traceID)
	if err != nil {
		return "", fmt.Errorf("load trace: %w", err)
	}
	hops, err := g.db.GetHops(traceID)
	if err != nil {
		return "", fmt.Errorf("load hops: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	reportDir := filepath.Join(outputDir,
		fmt.Sprintf("trace_%d_%s_%s", summary.ID, sanitizeFilename(summary.Target), timestamp))
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	if err := g.generateLatencyChart(reportDir, summary, hops); err != nil {
		g.logger.Warn("failed to generate latency chart", zap.Error(err))
	}

	if err := g.generateTextReport(reportDir, summary, hops); err != nil {
		g.logger.Warn("failed to generate text report", zap.Error(err))
	}

	route := sink.NewGeoJSON(filepath.Join(reportDir, "route.geojson"), g.logger)
	trace.Replay(summary.Target, summary.StartedAt, hops, trace.Options{IncludeReputation: true}, route)

	g.logger.Info("report generated", zap.String("dir", reportDir))
	return reportDir, nil
}
