package web

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geotrace/internal/metrics"
	"geotrace/internal/models"
)

func ptr(v float64) *float64 { return &v }

type fakeDB struct {
	traces   []models.TraceSummary
	hops     map[int64][]models.HopRecord
	err      error
	traceErr error
}

func (f *fakeDB) SaveTrace(models.TraceSummary, []models.HopRecord) (int64, error) { return 0, nil }
func (f *fakeDB) GetTraces(limit int) ([]models.TraceSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.traces) {
		return f.traces[:limit], nil
	}
	return f.traces, nil
}
func (f *fakeDB) GetTrace(id int64) (models.TraceSummary, error) {
	if f.traceErr != nil {
		return models.TraceSummary{}, f.traceErr
	}
	for _, t := range f.traces {
		if t.ID == id {
			return t, nil
		}
	}
	return models.TraceSummary{}, fmt.Errorf("trace %d not found: %w", id, sql.ErrNoRows)
}
func (f *fakeDB) GetHops(id int64) ([]models.HopRecord, error) { return f.hops[id], nil }
func (f *fakeDB) PruneTraces(int) (int64, error)               { return 0, nil }
func (f *fakeDB) Close() error                                 { return nil }

func newFakeDB() *fakeDB {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &fakeDB{
		traces: []models.TraceSummary{
			{ID: 2, Target: "example.org", StartedAt: started, Status: models.OutcomeSuccess, HopCount: 2},
			{ID: 1, Target: "example.net", StartedAt: started.Add(-time.Hour), Status: models.OutcomeNoData},
		},
		hops: map[int64][]models.HopRecord{
			2: {
				{HopNumber: 1, Address: "10.0.0.1", RTTSamples: []float64{4},
					Location: &models.Location{Latitude: ptr(52.52), Longitude: ptr(13.405)}},
				{HopNumber: 2, Address: "8.8.8.8", RTTSamples: []float64{18},
					Location: &models.Location{Latitude: ptr(48.8566), Longitude: ptr(2.3522)}},
			},
		},
	}
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestHandleTraces(t *testing.T) {
	h := New(newFakeDB(), 0, nil, nil).Handler()

	rec := get(t, h, "/api/traces?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var traces []models.TraceSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &traces))
	require.Len(t, traces, 1)
	assert.Equal(t, "example.org", traces[0].Target)
}

func TestHandleTracesEmpty(t *testing.T) {
	h := New(&fakeDB{}, 0, nil, nil).Handler()

	rec := get(t, h, "/api/traces")
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestHandleTracesDatabaseError(t *testing.T) {
	h := New(&fakeDB{err: errors.New("disk I/O error")}, 0, nil, nil).Handler()

	rec := get(t, h, "/api/traces")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleHops(t *testing.T) {
	h := New(newFakeDB(), 0, nil, nil).Handler()

	tests := []struct {
		name string
		url  string
		code int
		hops int
	}{
		{"stored run", "/api/hops?trace=2", http.StatusOK, 2},
		{"run without hops", "/api/hops?trace=1", http.StatusOK, 0},
		{"missing parameter", "/api/hops", http.StatusBadRequest, 0},
		{"invalid parameter", "/api/hops?trace=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.url)
			require.Equal(t, tt.code, rec.Code)
			if tt.code != http.StatusOK {
				return
			}
			var hops []models.HopRecord
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hops))
			assert.Len(t, hops, tt.hops)
		})
	}
}

func TestHandleRoute(t *testing.T) {
	h := New(newFakeDB(), 0, nil, nil).Handler()

	rec := get(t, h, "/api/route?trace=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	fc, err := geojson.UnmarshalFeatureCollection(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 3)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/route?trace=42").Code)
}

func TestHandleChart(t *testing.T) {
	h := New(newFakeDB(), 0, nil, nil).Handler()

	rec := get(t, h, "/api/chart?trace=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/chart?trace=1").Code, "run without latency")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.RunFinished("success")

	h := New(newFakeDB(), 0, reg, nil).Handler()
	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `geotrace_runs_total{status="success"} 1`))

	assert.Equal(t, http.StatusNotFound, get(t, New(newFakeDB(), 0, nil, nil).Handler(), "/metrics").Code)
}

func TestLoadRunStatusCodes(t *testing.T) {
	broken := newFakeDB()
	broken.traceErr = errors.New("database is locked")

	tests := []struct {
		name string
		db   *fakeDB
		url  string
		code int
	}{
		{"unknown run", newFakeDB(), "/api/route?trace=42", http.StatusNotFound},
		{"database failure on route", broken, "/api/route?trace=2", http.StatusInternalServerError},
		{"database failure on chart", broken, "/api/chart?trace=2", http.StatusInternalServerError},
		{"invalid trace", newFakeDB(), "/api/chart?trace=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, New(tt.db, 0, nil, nil).Handler(), tt.url)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
