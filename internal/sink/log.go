package sink

import (
	"go.uber.org/zap"

	"geotrace/internal/models"
)

// Log reports runs through a structured logger, for unattended runs
type Log struct {
	logger *zap.Logger
}

// NewLog creates a Log sink
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Render logs hop lines at debug level
func (l *Log) Render(inst models.RenderInstruction) {
	if inst.Kind == models.KindFinished {
		return
	}
	l.logger.Debug("hop", zap.String("line", inst.Line), zap.String("severity", string(inst.Severity)))
}

// Progress is ignored
func (l *Log) Progress(float64) {}

// Finish logs the outcome, as a warning when the run failed
func (l *Log) Finish(o models.Outcome) {
	fields := []zap.Field{
		zap.String("status", string(o.Status)),
		zap.Int("hops", o.Stats.HopCount),
		zap.String("average_latency", o.Stats.AverageLatencyText),
		zap.Float64("path_distance_km", o.Stats.PathDistanceKm),
	}
	if o.Status == models.OutcomeFailed {
		l.logger.Warn(o.Message, fields...)
		return
	}
	l.logger.Info(o.Message, fields...)
}

var _ models.Sink = (*Log)(nil)
