package web

import (
	"bytes"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"geotrace/internal/models"
	"geotrace/internal/report"
	"geotrace/internal/sink"
	"geotrace/internal/trace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// traceID reads the required trace query parameter
func traceID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("trace")
	if raw == "" {
		return 0, errors.New("trace parameter required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("trace must be a positive integer")
	}
	return id, nil
}

// handleTraces handles /api/traces requests
func (s *Server) handleTraces(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	traces, err := s.db.GetTraces(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if traces == nil {
		traces = []models.TraceSummary{}
	}
	s.writeJSON(w, traces)
}

// handleHops handles /api/hops requests
func (s *Server) handleHops(w http.ResponseWriter, r *http.Request) {
	id, err := traceID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hops, err := s.db.GetHops(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if hops == nil {
		hops = []models.HopRecord{}
	}
	s.writeJSON(w, hops)
}

// loadRun fetches a stored run, writing the error response on failure
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (models.TraceSummary, []models.HopRecord, bool) {
	id, err := traceID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return models.TraceSummary{}, nil, false
	}
	summary, err := s.db.GetTrace(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return summary, nil, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return summary, nil, false
	}
	hops, err := s.db.GetHops(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return summary, nil, false
	}
	return summary, hops, true
}

// handleRoute handles /api/route requests with the GeoJSON path of a run
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	summary, hops, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	route := sink.NewGeoJSON("", s.logger)
	trace.Replay(summary.Target, summary.StartedAt, hops, trace.Options{IncludeReputation: true}, route)

	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := route.WriteTo(w); err != nil {
		s.logger.Warn("failed to write route", zap.Error(err))
	}
}

// handleChart handles /api/chart requests with the latency chart of a run
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	summary, hops, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.RenderLatencyChart(&buf, summary, hops); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, report.ErrNoLatency) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
