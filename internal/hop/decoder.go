// Package hop decodes event payloads from the traceroute service into
// hop records.
package hop

import (
	"fmt"
	"math"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"geotrace/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind classifies a decoded payload
type Kind int

const (
	// Malformed payloads could not be parsed even after repair.
	Malformed Kind = iota
	// Unrecognized payloads parsed but carry no usable hop number.
	Unrecognized
	// Completion marks the end of the trace.
	Completion
	// Data carries one hop record.
	Data
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case Unrecognized:
		return "unrecognized"
	case Completion:
		return "completion"
	case Data:
		return "data"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Result is the classification of one payload
type Result struct {
	Kind     Kind
	Record   models.HopRecord // set for Data
	Repaired bool             // the quote repair was needed to parse
	Err      error            // parse error for Malformed
}

// Decode parses one payload (label already stripped). A strict parse is
// tried first; on failure single quotes are replaced by double quotes
// and the parse retried once.
func Decode(payload string) Result {
	var raw interface{}
	repaired := false
	if err := json.UnmarshalFromString(payload, &raw); err != nil {
		fixed := strings.ReplaceAll(payload, "'", `"`)
		if err2 := json.UnmarshalFromString(fixed, &raw); err2 != nil {
			return Result{Kind: Malformed, Err: fmt.Errorf("parse payload: %w", err2)}
		}
		repaired = true
	}

	obj, ok := raw.(map[string]interface{})
	if !ok {
		return Result{Kind: Unrecognized, Repaired: repaired}
	}

	// Completion signals take priority over hop data.
	if s, _ := obj["status"].(string); s == "completed" {
		return Result{Kind: Completion, Repaired: repaired}
	}
	if done, _ := obj["done"].(bool); done {
		return Result{Kind: Completion, Repaired: repaired}
	}

	n, ok := hopNumber(obj["hop_number"])
	if !ok {
		return Result{Kind: Unrecognized, Repaired: repaired}
	}

	return Result{Kind: Data, Record: extract(n, obj), Repaired: repaired}
}

func hopNumber(v interface{}) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func extract(n int, obj map[string]interface{}) models.HopRecord {
	rec := models.HopRecord{
		HopNumber:    n,
		Address:      models.NoResponse,
		Hostname:     stringField(obj, "hostname"),
		RTTSamples:   samples(obj["rtt_ms"]),
		Organization: stringField(obj, "organization"),
		Error:        stringField(obj, "error"),
	}

	if ip := stringField(obj, "ip"); ip != "" && !strings.HasPrefix(ip, "*") {
		rec.Address = ip
	}
	if asn, ok := numberField(obj, "asn"); ok && asn > 0 {
		rec.ASN = int(asn)
	}
	if score, ok := numberField(obj, "reputation_score"); ok && score >= 0 && score <= 1 {
		rec.ReputationScore = &score
	}

	loc := models.Location{
		City:    stringField(obj, "city"),
		Country: stringField(obj, "country"),
	}
	if lat, ok := numberField(obj, "latitude"); ok {
		loc.Latitude = &lat
	}
	if lon, ok := numberField(obj, "longitude"); ok {
		loc.Longitude = &lon
	}
	if loc.Latitude != nil || loc.Longitude != nil || loc.City != "" || loc.Country != "" {
		rec.Location = &loc
	}

	return rec
}

// samples returns the non-negative numbers of a list; anything that is
// not a list yields an empty slice.
func samples(v interface{}) []float64 {
	list, ok := v.([]interface{})
	if !ok {
		return []float64{}
	}
	out := make([]float64, 0, len(list))
	for _, item := range list {
		if f, ok := item.(float64); ok && f >= 0 && !math.IsInf(f, 0) {
			out = append(out, f)
		}
	}
	return out
}

func stringField(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

func numberField(obj map[string]interface{}, key string) (float64, bool) {
	f, ok := obj[key].(float64)
	return f, ok
}
