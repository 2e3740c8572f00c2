package monitor

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"geotrace/internal/config"
	"geotrace/internal/metrics"
	"geotrace/internal/models"
	"geotrace/internal/progress"
	"geotrace/internal/stream"
	"geotrace/internal/trace"
)

// ErrRunning is returned when Run is called while a run is in progress
var ErrRunning = errors.New("a traceroute is already running")

// Monitor coordinates traceroute runs against the service
type Monitor struct {
	config    config.Config
	transport models.Transport
	db        models.Database
	sink      models.Sink
	metrics   *metrics.Metrics
	clock     clock.Clock
	logger    *zap.Logger

	mu      sync.Mutex
	session *trace.Session
	cancel  context.CancelFunc
}

// Option customises a Monitor
type Option func(*Monitor)

// WithClock replaces the wall clock driving the progress ticker
func WithClock(clk clock.Clock) Option {
	return func(m *Monitor) { m.clock = clk }
}

// WithMetrics records pipeline metrics
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

// New creates a new Monitor. db may be nil, in which case runs are not recorded.
func New(cfg config.Config, transport models.Transport, db models.Database, sink models.Sink, logger *zap.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		config:    cfg,
		transport: transport,
		db:        db,
		sink:      sink,
		clock:     clock.New(),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run performs one traceroute and blocks until it ends. The outcome is
// also delivered to the sink exactly once. An error is only returned
// when the run could not begin.
func (m *Monitor) Run(ctx context.Context, req models.TraceRequest) (models.Outcome, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	session := trace.NewSession(req.Target, m.clock.Now())

	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return models.Outcome{}, ErrRunning
	}
	m.session, m.cancel = session, cancel
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.session, m.cancel = nil, nil
		m.mu.Unlock()
	}()

	agg := trace.NewAggregator(session, trace.Options{IncludeReputation: req.IncludeReputation}, m.logger)
	est := progress.New(m.clock, progress.Config{
		Period:  m.config.Progress.Interval,
		Step:    m.config.Progress.Step,
		TickCap: m.config.Progress.Cap,
		MaxHops: req.MaxHops,
	}, func(p float64) {
		m.metrics.SetProgress(p)
		m.sink.Progress(p)
	})

	m.logger.Info("starting traceroute",
		zap.String("target", req.Target),
		zap.Int("max_hops", req.MaxHops),
		zap.Bool("reputation", req.IncludeReputation),
	)

	body, err := m.transport.Start(runCtx, req)
	if err == nil {
		err = m.stream(runCtx, body, agg, est)
	}
	if err != nil && !errors.Is(err, trace.ErrCancelled) && !session.Cancelled() {
		m.logger.Error("traceroute failed", zap.String("target", req.Target), zap.Error(err))
	}

	outcome := agg.Outcome(err)
	m.finish(session, outcome)
	return outcome, nil
}

// Cancel stops the current run, if any. The service is asked to stop
// and any blocked read is released.
func (m *Monitor) Cancel() {
	m.mu.Lock()
	session, cancel := m.session, m.cancel
	m.mu.Unlock()
	if session == nil {
		return
	}

	session.Cancel()
	m.logger.Info("stopping traceroute", zap.String("target", session.Target))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := m.transport.Stop(stopCtx); err != nil {
		m.logger.Warn("service stop request failed", zap.Error(err))
	}
	cancel()
}

// Running reports whether a run is in progress
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// stream runs the pipeline and tick goroutines until the event stream
// ends, fails or is cancelled.
func (m *Monitor) stream(ctx context.Context, body io.ReadCloser, agg *trace.Aggregator, est *progress.Estimator) error {
	defer body.Close()

	g, gctx := errgroup.WithContext(ctx)
	tickCtx, stopTicks := context.WithCancel(gctx)
	defer stopTicks()

	g.Go(func() error {
		return est.Run(tickCtx, agg.Session().Cancelled)
	})
	g.Go(func() error {
		defer stopTicks()
		return m.consume(ctx, stream.NewReader(body), agg, est)
	})
	return g.Wait()
}

func (m *Monitor) finish(session *trace.Session, outcome models.Outcome) {
	m.sink.Finish(outcome)
	m.metrics.RunFinished(string(outcome.Status))

	m.logger.Info("traceroute finished",
		zap.String("target", session.Target),
		zap.String("status", string(outcome.Status)),
		zap.Int("hops", outcome.Stats.HopCount),
	)

	if m.db == nil || !m.config.Record {
		return
	}
	summary := models.TraceSummary{
		Target:         session.Target,
		StartedAt:      session.StartedAt,
		FinishedAt:     m.clock.Now(),
		Status:         outcome.Status,
		Message:        outcome.Message,
		HopCount:       outcome.Stats.HopCount,
		AvgLatencyMs:   outcome.Stats.AverageLatencyMs,
		PathDistanceKm: outcome.Stats.PathDistanceKm,
	}
	id, err := m.db.SaveTrace(summary, session.History)
	if err != nil {
		m.logger.Error("failed to save trace", zap.Error(err))
		return
	}
	m.logger.Debug("trace saved", zap.Int64("id", id))
}
