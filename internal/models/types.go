package models

import (
	"context"
	"io"
)

// Database interface defines operations for trace history persistence
type Database interface {
	SaveTrace(summary TraceSummary, hops []HopRecord) (int64, error)
	GetTraces(limit int) ([]TraceSummary, error)
	GetTrace(id int64) (TraceSummary, error)
	GetHops(traceID int64) ([]HopRecord, error)
	PruneTraces(days int) (int64, error)
	Close() error
}

// Transport opens the event stream of a run on the traceroute service
type Transport interface {
	Start(ctx context.Context, req TraceRequest) (io.ReadCloser, error)
	Stop(ctx context.Context) error
}

// Sink receives the pipeline output; Progress may be called from the
// tick goroutine concurrently with Render.
type Sink interface {
	Render(inst RenderInstruction)
	Progress(percent float64)
	Finish(outcome Outcome)
}
