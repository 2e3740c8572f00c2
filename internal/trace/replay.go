package trace

import (
	"time"

	"geotrace/internal/hop"
	"geotrace/internal/models"
)

// Replay renders stored hops to sink as if they had just arrived and
// returns the outcome a clean end of stream would have produced.
func Replay(target string, startedAt time.Time, hops []models.HopRecord, opts Options, sink models.Sink) models.Outcome {
	agg := NewAggregator(NewSession(target, startedAt), opts, nil)
	for _, h := range hops {
		if inst := agg.Apply(hop.Result{Kind: hop.Data, Record: h}); inst != nil {
			sink.Render(*inst)
		}
	}
	outcome := agg.Outcome(nil)
	sink.Finish(outcome)
	return outcome
}
