package models

import (
	"math"

	"github.com/paulmach/orb"
)

// NoResponse is the address recorded for a hop that did not answer.
const NoResponse = "*"

// HopRecord represents one hop reported by the traceroute service
type HopRecord struct {
	HopNumber       int       `json:"hop_number"`
	Address         string    `json:"ip"`
	Hostname        string    `json:"hostname,omitempty"`
	RTTSamples      []float64 `json:"rtt_ms"` // milliseconds
	Location        *Location `json:"location,omitempty"`
	Organization    string    `json:"organization,omitempty"`
	ASN             int       `json:"asn,omitempty"`
	ReputationScore *float64  `json:"reputation_score,omitempty"` // 0..1
	Error           string    `json:"error,omitempty"`
}

// Location is the geographic position reported for a hop
type Location struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	City      string   `json:"city,omitempty"`
	Country   string   `json:"country,omitempty"`
}

// Responded reports whether the hop answered any probe with an address.
func (h HopRecord) Responded() bool {
	return h.Address != "" && h.Address != NoResponse
}

// AverageRTT returns the mean of the RTT samples. ok is false when the
// hop has no samples; the zero value must not be read as a latency then.
func (h HopRecord) AverageRTT() (avg float64, ok bool) {
	if len(h.RTTSamples) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range h.RTTSamples {
		sum += s
	}
	return sum / float64(len(h.RTTSamples)), true
}

// Coordinates returns the hop position as an orb point (lon, lat).
// Missing, zero, non-finite or out-of-range coordinates yield ok=false.
func (l *Location) Coordinates() (orb.Point, bool) {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return orb.Point{}, false
	}
	lat, lon := *l.Latitude, *l.Longitude
	if lat == 0 || lon == 0 {
		return orb.Point{}, false
	}
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return orb.Point{}, false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

// Place returns "City, Country", the country alone, or an empty string.
func (l *Location) Place() string {
	if l == nil {
		return ""
	}
	switch {
	case l.City != "" && l.Country != "":
		return l.City + ", " + l.Country
	case l.Country != "":
		return l.Country
	}
	return ""
}
