package models

import "github.com/paulmach/orb"

// RenderKind distinguishes the instructions a Sink receives
type RenderKind int

const (
	// KindHop carries one accepted hop.
	KindHop RenderKind = iota
	// KindFinished is emitted once when the service signals completion.
	KindFinished
)

// Severity classifies a formatted result line
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// RenderInstruction is the data-only update the pipeline hands to a Sink
type RenderInstruction struct {
	Kind     RenderKind `json:"kind"`
	Line     string     `json:"line"`
	Severity Severity   `json:"severity"`
	Hop      *HopRecord `json:"hop,omitempty"`
	Marker   *Marker    `json:"marker,omitempty"`
	Segment  *Segment   `json:"segment,omitempty"`
	Stats    Stats      `json:"stats"`
}

// Marker is a map marker placed for a hop with coordinates
type Marker struct {
	ID        int          `json:"id"` // 1-based, in placement order
	HopNumber int          `json:"hop_number"`
	Point     orb.Point    `json:"point"`
	Popup     []PopupField `json:"popup"`
}

// PopupField is one labelled line of a marker popup
type PopupField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Segment connects the previously placed marker to the new one
type Segment struct {
	FromMarker int       `json:"from_marker"`
	ToMarker   int       `json:"to_marker"`
	From       orb.Point `json:"from"`
	To         orb.Point `json:"to"`
	DistanceKm float64   `json:"distance_km"`
}

// Stats are the aggregate figures recomputed after every accepted hop
type Stats struct {
	HopCount           int      `json:"hop_count"`
	AverageLatencyMs   *float64 `json:"average_latency_ms"` // nil when no hop had samples
	AverageLatencyText string   `json:"average_latency"`
	PathDistanceKm     float64  `json:"path_distance_km"`
}

// OutcomeStatus is the terminal state of a run
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeNoData    OutcomeStatus = "no_data"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// Outcome is the single terminal message of a run
type Outcome struct {
	Status  OutcomeStatus `json:"status"`
	Message string        `json:"message"`
	Stats   Stats         `json:"stats"`
	Err     error         `json:"-"`
}
