package trace

import (
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/atomic"

	"geotrace/internal/models"
)

// Session holds the mutable state of one run. Only the Aggregator
// mutates it; Cancel may be called from any goroutine.
type Session struct {
	Target           string
	StartedAt        time.Time
	History          []models.HopRecord
	LatencySamples   []float64
	ReceivedAnyValid bool

	cancelled atomic.Bool
	completed bool

	markers      int
	lastPoint    orb.Point
	pathDistance float64
}

// NewSession creates an empty session for a run against target
func NewSession(target string, startedAt time.Time) *Session {
	return &Session{
		Target:    target,
		StartedAt: startedAt,
	}
}

// Cancel requests cooperative cancellation of the run
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called
func (s *Session) Cancelled() bool {
	return s.cancelled.Load()
}

// Completed reports whether the service signalled completion
func (s *Session) Completed() bool {
	return s.completed
}

// Reset clears the session for reuse
func (s *Session) Reset() {
	s.History = nil
	s.LatencySamples = nil
	s.ReceivedAnyValid = false
	s.cancelled.Store(false)
	s.completed = false
	s.markers = 0
	s.lastPoint = orb.Point{}
	s.pathDistance = 0
}

// Stats computes the aggregate figures for the current history
func (s *Session) Stats() models.Stats {
	st := models.Stats{
		HopCount:           len(s.History),
		AverageLatencyText: "0 ms",
		PathDistanceKm:     s.pathDistance,
	}
	if len(s.LatencySamples) > 0 {
		var sum float64
		for _, l := range s.LatencySamples {
			sum += l
		}
		avg := sum / float64(len(s.LatencySamples))
		st.AverageLatencyMs = &avg
		st.AverageLatencyText = formatMs(avg)
	}
	return st
}
