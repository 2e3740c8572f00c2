package trace

import (
	"fmt"
	"strings"

	"geotrace/internal/models"
)

func formatMs(v float64) string {
	return fmt.Sprintf("%.2f ms", v)
}

func safetyScore(score float64) string {
	return fmt.Sprintf("%.0f/100", score*100)
}

// FormatLine renders a hop as one line of the result list
func FormatLine(h models.HopRecord, includeReputation bool) string {
	if h.Error != "" {
		return "Error: " + h.Error
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d.", h.HopNumber)

	informative := false
	if h.Responded() {
		b.WriteString(" " + h.Address)
		if h.Hostname != "" {
			fmt.Fprintf(&b, " (%s)", h.Hostname)
		}
		informative = true
	} else {
		b.WriteString(" * * *")
	}

	if avg, ok := h.AverageRTT(); ok {
		b.WriteString(" " + formatMs(avg))
		informative = true
	}
	if place := h.Location.Place(); place != "" {
		fmt.Fprintf(&b, " [%s]", place)
		informative = true
	}
	if h.Organization != "" {
		fmt.Fprintf(&b, " {%s}", h.Organization)
		informative = true
	}
	if includeReputation && h.ReputationScore != nil {
		b.WriteString(" Safety: " + safetyScore(*h.ReputationScore))
		informative = true
	}

	if !informative {
		return fmt.Sprintf("%d. No response", h.HopNumber)
	}
	return b.String()
}

// PopupFields lists the labelled details shown for a hop marker
func PopupFields(h models.HopRecord, includeReputation bool) []models.PopupField {
	fields := []models.PopupField{
		{Label: "Hop", Value: fmt.Sprintf("%d: %s", h.HopNumber, h.Address)},
	}
	add := func(label, value string) {
		if value != "" {
			fields = append(fields, models.PopupField{Label: label, Value: value})
		}
	}
	add("Hostname", h.Hostname)
	if avg, ok := h.AverageRTT(); ok {
		add("Latency", formatMs(avg))
	}
	if h.Location != nil {
		add("City", h.Location.City)
		add("Country", h.Location.Country)
	}
	add("Organization", h.Organization)
	if includeReputation && h.ReputationScore != nil {
		add("Safety Score", safetyScore(*h.ReputationScore))
	}
	return fields
}
