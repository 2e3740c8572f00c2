package trace

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geotrace/internal/hop"
	"geotrace/internal/models"
)

func newTestAggregator(opts Options) *Aggregator {
	return NewAggregator(NewSession("example.com", time.Unix(0, 0)), opts, nil)
}

func TestApplyHopWithoutCoordinates(t *testing.T) {
	agg := newTestAggregator(Options{})

	inst := agg.Apply(hop.Decode(`{"hop_number":1,"ip":"10.0.0.1","rtt_ms":[5,7]}`))
	require.NotNil(t, inst)

	assert.Equal(t, models.KindHop, inst.Kind)
	assert.Equal(t, "1. 10.0.0.1 6.00 ms", inst.Line)
	assert.Nil(t, inst.Marker)
	assert.Nil(t, inst.Segment)
	assert.Equal(t, 1, inst.Stats.HopCount)
	require.NotNil(t, inst.Stats.AverageLatencyMs)
	assert.Equal(t, 6.0, *inst.Stats.AverageLatencyMs)

	s := agg.Session()
	assert.Len(t, s.History, 1)
	assert.Equal(t, []float64{6}, s.LatencySamples)
	assert.True(t, s.ReceivedAnyValid)
}

func TestApplyTimeoutHopKeepsLatencyUndefined(t *testing.T) {
	agg := newTestAggregator(Options{})

	inst := agg.Apply(hop.Decode(`{"hop_number":2,"ip":"*"}`))
	require.NotNil(t, inst)

	assert.Equal(t, "2. No response", inst.Line)
	assert.Nil(t, inst.Stats.AverageLatencyMs)
	assert.Equal(t, "0 ms", inst.Stats.AverageLatencyText)
	assert.Empty(t, agg.Session().LatencySamples)
}

func TestApplyMarkersAndSegments(t *testing.T) {
	agg := newTestAggregator(Options{IncludeReputation: true})

	first := agg.Apply(hop.Decode(`{"hop_number":1,"ip":"192.168.1.1","latitude":52.52,"longitude":13.405,"city":"Berlin","country":"Germany"}`))
	require.NotNil(t, first.Marker)
	assert.Equal(t, 1, first.Marker.ID)
	assert.Nil(t, first.Segment, "first marker has nothing to connect to")

	silent := agg.Apply(hop.Decode(`{"hop_number":2,"ip":"*"}`))
	assert.Nil(t, silent.Marker)

	third := agg.Apply(hop.Decode(`{"hop_number":3,"ip":"8.8.8.8","rtt_ms":[20],"latitude":48.8566,"longitude":2.3522,"city":"Paris","country":"France","organization":"Google LLC","reputation_score":0.8}`))
	require.NotNil(t, third.Marker)
	require.NotNil(t, third.Segment)
	assert.Equal(t, 2, third.Marker.ID)
	assert.Equal(t, 1, third.Segment.FromMarker)
	assert.Equal(t, 2, third.Segment.ToMarker)
	assert.InDelta(t, 878, third.Segment.DistanceKm, 10)
	assert.InDelta(t, third.Segment.DistanceKm, third.Stats.PathDistanceKm, 1e-9)
	assert.Equal(t, "3. 8.8.8.8 20.00 ms [Paris, France] {Google LLC} Safety: 80/100", third.Line)
	assert.Contains(t, third.Marker.Popup, models.PopupField{Label: "Safety Score", Value: "80/100"})
}

func TestApplyZeroCoordinatesPlaceNoMarker(t *testing.T) {
	agg := newTestAggregator(Options{})

	inst := agg.Apply(hop.Decode(`{"hop_number":1,"ip":"10.0.0.1","latitude":0.0,"longitude":0.0,"city":"Unknown","country":"Local Area"}`))
	require.NotNil(t, inst)
	assert.Nil(t, inst.Marker)
	assert.Equal(t, "1. 10.0.0.1 [Unknown, Local Area]", inst.Line)
}

func TestApplyDuplicateHopNumbersAreKept(t *testing.T) {
	agg := newTestAggregator(Options{})

	payload := `{"hop_number":4,"ip":"1.2.3.4","rtt_ms":[10],"latitude":40.7,"longitude":-74.0}`
	a := agg.Apply(hop.Decode(payload))
	b := agg.Apply(hop.Decode(payload))
	require.NotNil(t, a)
	require.NotNil(t, b)

	assert.Equal(t, 1, a.Stats.HopCount)
	assert.Equal(t, 2, b.Stats.HopCount)
	require.NotNil(t, a.Marker)
	require.NotNil(t, b.Marker)
	assert.Equal(t, 2, b.Marker.ID)
	assert.Len(t, agg.Session().History, 2)
	for _, h := range agg.Session().History {
		assert.Equal(t, 4, h.HopNumber)
	}
}

func TestApplyCompletionOnce(t *testing.T) {
	agg := newTestAggregator(Options{})

	first := agg.Apply(hop.Decode(`{"status":"completed"}`))
	require.NotNil(t, first)
	assert.Equal(t, models.KindFinished, first.Kind)
	assert.True(t, agg.Session().Completed())

	assert.Nil(t, agg.Apply(hop.Decode(`{"done": true}`)), "completion must not fire twice")
	assert.Empty(t, agg.Session().History)

	// Events after completion are still processed.
	assert.NotNil(t, agg.Apply(hop.Decode(`{"hop_number":1,"ip":"10.0.0.1"}`)))
}

func TestApplyDropsNoise(t *testing.T) {
	agg := newTestAggregator(Options{})

	assert.Nil(t, agg.Apply(hop.Decode(`not json`)))
	assert.Nil(t, agg.Apply(hop.Decode(`{"error":"server exploded"}`)))
	assert.Empty(t, agg.Session().History)
	assert.False(t, agg.Session().ReceivedAnyValid)
}

func TestOutcome(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		agg := newTestAggregator(Options{})
		agg.Apply(hop.Decode(`{"hop_number":1,"ip":"10.0.0.1","rtt_ms":[5,7]}`))
		agg.Apply(hop.Decode(`{"status":"completed"}`))

		out := agg.Outcome(nil)
		assert.Equal(t, models.OutcomeSuccess, out.Status)
		assert.Equal(t, "Traceroute completed: 1 hops, average latency 6.00 ms.", out.Message)
	})

	t.Run("completion without hops is no data", func(t *testing.T) {
		agg := newTestAggregator(Options{})
		agg.Apply(hop.Decode(`{"status":"completed"}`))

		out := agg.Outcome(nil)
		assert.Equal(t, models.OutcomeNoData, out.Status)
		assert.Equal(t, noDataMessage, out.Message)
	})

	t.Run("history wins over a missed validity flag", func(t *testing.T) {
		agg := newTestAggregator(Options{})
		agg.Apply(hop.Decode(`{"hop_number":1,"ip":"10.0.0.1"}`))
		agg.Session().ReceivedAnyValid = false

		assert.Equal(t, models.OutcomeSuccess, agg.Outcome(nil).Status)
	})

	t.Run("transport failure", func(t *testing.T) {
		agg := newTestAggregator(Options{})
		boom := errors.New("HTTP error 500")

		out := agg.Outcome(boom)
		assert.Equal(t, models.OutcomeFailed, out.Status)
		assert.Equal(t, "Error: HTTP error 500", out.Message)
		assert.ErrorIs(t, out.Err, boom)
	})

	t.Run("cancelled", func(t *testing.T) {
		agg := newTestAggregator(Options{})
		agg.Apply(hop.Decode(`{"hop_number":1,"ip":"10.0.0.1"}`))
		agg.Session().Cancel()

		out := agg.Outcome(ErrCancelled)
		assert.Equal(t, models.OutcomeCancelled, out.Status)
		assert.Equal(t, "Traceroute stopped after 1 hops.", out.Message)
	})
}

func TestSessionReset(t *testing.T) {
	agg := newTestAggregator(Options{})
	agg.Apply(hop.Decode(`{"hop_number":1,"ip":"10.0.0.1","rtt_ms":[1],"latitude":1,"longitude":1}`))
	agg.Apply(hop.Decode(`{"status":"completed"}`))
	agg.Session().Cancel()

	s := agg.Session()
	s.Reset()
	assert.Empty(t, s.History)
	assert.Empty(t, s.LatencySamples)
	assert.False(t, s.ReceivedAnyValid)
	assert.False(t, s.Cancelled())
	assert.False(t, s.Completed())
	assert.Equal(t, 0, s.Stats().HopCount)
}
