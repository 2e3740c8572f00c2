// Package trace accumulates decoded hops into a run session and derives
// the render instructions and terminal outcome of the run.
package trace

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"

	"geotrace/internal/hop"
	"geotrace/internal/models"
)

const noDataMessage = "Traceroute completed, but no data was received. " +
	"The server may be experiencing issues or the target may not be reachable."

// ErrCancelled marks a run stopped by the caller
var ErrCancelled = errors.New("traceroute stopped")

// Options tune how hops are presented
type Options struct {
	IncludeReputation bool
}

// Aggregator applies decoded payloads to a Session
type Aggregator struct {
	session *Session
	opts    Options
	logger  *zap.Logger
}

// NewAggregator creates an Aggregator owning session for the run
func NewAggregator(session *Session, opts Options, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{session: session, opts: opts, logger: logger}
}

// Session returns the session being aggregated
func (a *Aggregator) Session() *Session {
	return a.session
}

// Apply folds one decoded payload into the session and returns the
// render instruction it produces, if any.
func (a *Aggregator) Apply(res hop.Result) *models.RenderInstruction {
	switch res.Kind {
	case hop.Completion:
		if a.session.completed {
			a.logger.Debug("repeated completion signal ignored")
			return nil
		}
		a.session.completed = true
		a.logger.Debug("traceroute completed", zap.Int("hops", len(a.session.History)))
		return &models.RenderInstruction{
			Kind:     models.KindFinished,
			Line:     "Traceroute completed.",
			Severity: models.SeverityInfo,
			Stats:    a.session.Stats(),
		}

	case hop.Data:
		return a.applyHop(res.Record)

	case hop.Unrecognized:
		a.logger.Debug("payload without hop number dropped")
		return nil

	default:
		a.logger.Warn("malformed payload dropped", zap.Error(res.Err))
		return nil
	}
}

func (a *Aggregator) applyHop(rec models.HopRecord) *models.RenderInstruction {
	s := a.session
	s.History = append(s.History, rec)
	if avg, ok := rec.AverageRTT(); ok {
		s.LatencySamples = append(s.LatencySamples, avg)
	}
	s.ReceivedAnyValid = true

	a.logger.Debug("hop accepted",
		zap.Int("hop", rec.HopNumber),
		zap.String("ip", rec.Address),
	)

	severity := models.SeveritySuccess
	if rec.Error != "" {
		severity = models.SeverityError
	}

	h := rec
	inst := &models.RenderInstruction{
		Kind:     models.KindHop,
		Line:     FormatLine(rec, a.opts.IncludeReputation),
		Severity: severity,
		Hop:      &h,
	}

	if point, ok := rec.Location.Coordinates(); ok {
		s.markers++
		inst.Marker = &models.Marker{
			ID:        s.markers,
			HopNumber: rec.HopNumber,
			Point:     point,
			Popup:     PopupFields(rec, a.opts.IncludeReputation),
		}
		if s.markers > 1 {
			dist := geo.DistanceHaversine(s.lastPoint, point) / 1000
			s.pathDistance += dist
			inst.Segment = &models.Segment{
				FromMarker: s.markers - 1,
				ToMarker:   s.markers,
				From:       s.lastPoint,
				To:         point,
				DistanceKm: dist,
			}
		}
		s.lastPoint = point
	}

	inst.Stats = s.Stats()
	return inst
}

// Outcome derives the single terminal message of the run. err is the
// transport error that ended the pipeline, nil for a clean end of stream.
func (a *Aggregator) Outcome(err error) models.Outcome {
	s := a.session
	stats := s.Stats()

	if errors.Is(err, ErrCancelled) || (err != nil && s.Cancelled()) {
		return models.Outcome{
			Status:  models.OutcomeCancelled,
			Message: fmt.Sprintf("Traceroute stopped after %d hops.", len(s.History)),
			Stats:   stats,
		}
	}
	if err != nil {
		return models.Outcome{
			Status:  models.OutcomeFailed,
			Message: "Error: " + err.Error(),
			Stats:   stats,
			Err:     err,
		}
	}

	// A non-empty history counts even if the validity flag was missed.
	if s.ReceivedAnyValid || len(s.History) > 0 {
		return models.Outcome{
			Status:  models.OutcomeSuccess,
			Message: fmt.Sprintf("Traceroute completed: %d hops, average latency %s.", stats.HopCount, stats.AverageLatencyText),
			Stats:   stats,
		}
	}
	return models.Outcome{
		Status:  models.OutcomeNoData,
		Message: noDataMessage,
		Stats:   stats,
	}
}
