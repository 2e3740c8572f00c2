package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"geotrace/internal/hop"
	"geotrace/internal/models"
	"geotrace/internal/progress"
	"geotrace/internal/stream"
	"geotrace/internal/trace"
)

const stopTimeout = 5 * time.Second

// consume reads the event stream and renders every accepted payload in
// arrival order. It is the only goroutine touching the session.
func (m *Monitor) consume(ctx context.Context, r *stream.Reader, agg *trace.Aggregator, est *progress.Estimator) error {
	session := agg.Session()

	for {
		if session.Cancelled() {
			return trace.ErrCancelled
		}

		payloads, err := r.Next()
		for _, payload := range payloads {
			if session.Cancelled() {
				return trace.ErrCancelled
			}
			m.process(payload, agg, est)
		}

		switch {
		case err == nil:
		case session.Cancelled() || ctx.Err() != nil:
			return trace.ErrCancelled
		case errors.Is(err, io.EOF):
			est.Complete()
			return nil
		default:
			return fmt.Errorf("read event stream: %w", err)
		}
	}
}

// process decodes one payload and hands its render instruction to the sink
func (m *Monitor) process(payload string, agg *trace.Aggregator, est *progress.Estimator) {
	m.metrics.EventFramed()

	res := hop.Decode(payload)
	m.metrics.PayloadDecoded(res)
	if res.Repaired {
		m.logger.Debug("payload parsed after quote repair")
	}

	inst := agg.Apply(res)
	if inst == nil {
		return
	}

	switch inst.Kind {
	case models.KindFinished:
		est.Complete()
	case models.KindHop:
		est.ObserveHops(len(agg.Session().History))
		m.logger.Debug("hop rendered", zap.Int("hop", inst.Hop.HopNumber), zap.Bool("marker", inst.Marker != nil))
	}
	m.sink.Render(*inst)
}
