// Package progress estimates how far a run has come without knowing
// when the service will finish.
package progress

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
)

// Config controls the ticking and hop-driven sources
type Config struct {
	Period  time.Duration // tick interval
	Step    float64       // percent added per tick
	TickCap float64       // ticking never passes this value
	MaxHops int           // hop budget of the run
}

// DefaultConfig ticks 1% every 500ms up to 90% for a 30 hop run.
func DefaultConfig() Config {
	return Config{
		Period:  500 * time.Millisecond,
		Step:    1,
		TickCap: 90,
		MaxHops: 30,
	}
}

// Estimator holds a percentage in [0,100] that only grows within a run.
// Tick and hop updates may arrive from different goroutines.
type Estimator struct {
	clock    clock.Clock
	cfg      Config
	mu       sync.Mutex // orders raises with their onChange calls
	value    atomic.Float64
	stopped  atomic.Bool
	onChange func(percent float64)
}

// New creates an Estimator. onChange, if set, is called with every new value.
func New(clk clock.Clock, cfg Config, onChange func(percent float64)) *Estimator {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = DefaultConfig().MaxHops
	}
	return &Estimator{clock: clk, cfg: cfg, onChange: onChange}
}

// Value returns the current percentage
func (e *Estimator) Value() float64 {
	return e.value.Load()
}

// Run drives the ticking source until ctx is done, Stop or Complete is
// called, or cancelled reports true at the top of a tick.
func (e *Estimator) Run(ctx context.Context, cancelled func() bool) error {
	ticker := e.clock.Ticker(e.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if e.stopped.Load() {
				return nil
			}
			if cancelled != nil && cancelled() {
				e.Stop()
				return nil
			}
			e.Tick()
		}
	}
}

// Tick applies one step of the ticking source
func (e *Estimator) Tick() {
	e.raise(func(cur float64) float64 {
		if cur >= e.cfg.TickCap {
			return cur
		}
		return math.Min(e.cfg.TickCap, cur+e.cfg.Step)
	})
}

// ObserveHops applies the hop-count source; it only wins when larger.
func (e *Estimator) ObserveHops(hops int) {
	target := math.Min(100, 100*float64(hops)/float64(e.cfg.MaxHops))
	e.raise(func(float64) float64 { return target })
}

// Complete forces the value to 100 and stops ticking
func (e *Estimator) Complete() {
	e.stopped.Store(true)
	e.raise(func(float64) float64 { return 100 })
}

// Stop halts ticking and leaves the value where it is
func (e *Estimator) Stop() {
	e.stopped.Store(true)
}

// Reset starts a new run from zero
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped.Store(false)
	e.value.Store(0)
}

func (e *Estimator) raise(next func(cur float64) float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.value.Load()
	n := next(cur)
	if n <= cur {
		return
	}
	e.value.Store(n)
	if e.onChange != nil {
		e.onChange(n)
	}
}
