package sink

import "geotrace/internal/models"

// Multi fans every call out to each sink in order
type Multi []models.Sink

// Render passes inst to every sink
func (m Multi) Render(inst models.RenderInstruction) {
	for _, s := range m {
		s.Render(inst)
	}
}

// Progress passes percent to every sink
func (m Multi) Progress(percent float64) {
	for _, s := range m {
		s.Progress(percent)
	}
}

// Finish passes the outcome to every sink
func (m Multi) Finish(o models.Outcome) {
	for _, s := range m {
		s.Finish(o)
	}
}

var (
	_ models.Sink = Multi(nil)
	_ models.Sink = (*Terminal)(nil)
	_ models.Sink = (*GeoJSON)(nil)
)
