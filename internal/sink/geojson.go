package sink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"geotrace/internal/models"
)

// GeoJSON collects markers and segments into a feature collection.
// When a path is set the collection is written there on Finish.
type GeoJSON struct {
	mu     sync.Mutex
	fc     *geojson.FeatureCollection
	path   string
	logger *zap.Logger
}

// NewGeoJSON creates a GeoJSON sink. path may be empty.
func NewGeoJSON(path string, logger *zap.Logger) *GeoJSON {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeoJSON{fc: geojson.NewFeatureCollection(), path: path, logger: logger}
}

// Render adds the marker and segment carried by inst, if any
func (g *GeoJSON) Render(inst models.RenderInstruction) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if m := inst.Marker; m != nil {
		f := geojson.NewFeature(m.Point)
		f.ID = m.ID
		f.Properties["kind"] = "hop"
		f.Properties["hop_number"] = m.HopNumber
		if inst.Hop != nil {
			f.Properties["ip"] = inst.Hop.Address
		}
		popup := make(map[string]string, len(m.Popup))
		for _, p := range m.Popup {
			popup[p.Label] = p.Value
		}
		f.Properties["popup"] = popup
		g.fc.Append(f)
	}

	if s := inst.Segment; s != nil {
		f := geojson.NewFeature(orb.LineString{s.From, s.To})
		f.Properties["kind"] = "segment"
		f.Properties["from_marker"] = s.FromMarker
		f.Properties["to_marker"] = s.ToMarker
		f.Properties["distance_km"] = s.DistanceKm
		g.fc.Append(f)
	}
}

// Progress is ignored
func (g *GeoJSON) Progress(float64) {}

// Finish records the outcome on the collection and writes it out
func (g *GeoJSON) Finish(o models.Outcome) {
	g.mu.Lock()
	g.fc.ExtraMembers = geojson.Properties{
		"status":           string(o.Status),
		"message":          o.Message,
		"hop_count":        o.Stats.HopCount,
		"path_distance_km": o.Stats.PathDistanceKm,
	}
	g.mu.Unlock()

	if g.path == "" {
		return
	}
	if err := g.writeFile(g.path); err != nil {
		g.logger.Error("failed to write route", zap.String("path", g.path), zap.Error(err))
		return
	}
	g.logger.Info("route written", zap.String("path", g.path))
}

// Collection returns the features gathered so far
func (g *GeoJSON) Collection() *geojson.FeatureCollection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fc
}

// WriteTo encodes the collection to w
func (g *GeoJSON) WriteTo(w io.Writer) (int64, error) {
	g.mu.Lock()
	raw, err := g.fc.MarshalJSON()
	g.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("encode route: %w", err)
	}
	n, err := w.Write(raw)
	return int64(n), err
}

func (g *GeoJSON) writeFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := g.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
