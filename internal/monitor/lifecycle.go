package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"geotrace/internal/models"
)

// Maintenance prunes stored runs older than the retention period
type Maintenance struct {
	db       models.Database
	days     int
	interval time.Duration
	logger   *zap.Logger
}

// NewMaintenance creates a pruning worker running every interval
func NewMaintenance(db models.Database, days int, interval time.Duration, logger *zap.Logger) *Maintenance {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Maintenance{db: db, days: days, interval: interval, logger: logger}
}

// Run prunes immediately and then on every tick until ctx is done
func (w *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run immediately on start
	w.Perform()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Perform()
		}
	}
}

// Perform runs one maintenance pass
func (w *Maintenance) Perform() {
	removed, err := w.db.PruneTraces(w.days)
	if err != nil {
		w.logger.Error("failed to prune traces", zap.Error(err))
		return
	}
	if removed > 0 {
		w.logger.Info("pruned old traces", zap.Int64("removed", removed), zap.Int("retention_days", w.days))
	}
}

// Watch traces every target once per interval until ctx is done. Runs
// are sequential since a Monitor performs one run at a time.
func (m *Monitor) Watch(ctx context.Context, targets []string, interval time.Duration) {
	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()

	m.traceAll(ctx, targets)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.traceAll(ctx, targets)
		}
	}
}

func (m *Monitor) traceAll(ctx context.Context, targets []string) {
	for _, target := range targets {
		if ctx.Err() != nil {
			return
		}
		req := m.config.Request()
		req.Target = target
		if _, err := m.Run(ctx, req); err != nil {
			m.logger.Warn("watched trace skipped", zap.String("target", target), zap.Error(err))
		}
	}
}
