package models

import "fmt"

// MaxHopsLimit is the largest hop budget the service accepts.
const MaxHopsLimit = 64

// TraceRequest describes one run against the traceroute service
type TraceRequest struct {
	Target            string          `json:"target"`
	MaxHops           int             `json:"max_hops"`
	IncludeReputation bool            `json:"include_reputation"`
	APIKey            string          `json:"-"`
	ClientLocation    *ClientLocation `json:"-"`
}

// ClientLocation is where the caller sits; the service uses it for hop 1
type ClientLocation struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	City      string  `yaml:"city"`
	Country   string  `yaml:"country"`
}

// Validate checks if the request can be sent
func (r TraceRequest) Validate() error {
	if r.Target == "" {
		return fmt.Errorf("target must be specified")
	}
	if r.MaxHops < 1 || r.MaxHops > MaxHopsLimit {
		return fmt.Errorf("max hops must be between 1 and %d", MaxHopsLimit)
	}
	if loc := r.ClientLocation; loc != nil {
		if loc.Latitude < -90 || loc.Latitude > 90 {
			return fmt.Errorf("client latitude out of range: %v", loc.Latitude)
		}
		if loc.Longitude < -180 || loc.Longitude > 180 {
			return fmt.Errorf("client longitude out of range: %v", loc.Longitude)
		}
	}
	return nil
}
