package models

import "time"

// TraceSummary is the stored record of one finished run
type TraceSummary struct {
	ID             int64         `json:"id"`
	Target         string        `json:"target"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Status         OutcomeStatus `json:"status"`
	Message        string        `json:"message"`
	HopCount       int           `json:"hop_count"`
	AvgLatencyMs   *float64      `json:"avg_latency_ms"`
	PathDistanceKm float64       `json:"path_distance_km"`
}

// Duration returns how long the run took
func (t TraceSummary) Duration() time.Duration {
	return t.FinishedAt.Sub(t.StartedAt)
}
