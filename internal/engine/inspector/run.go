package inspector

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"sync"
)

// DrainSummary counts what one drain did.
type DrainSummary struct {
	Allowed  int `json:"allowed"`
	Blocked  int `json:"blocked"`
	Analyzed int `json:"analyzed"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// Run is one queued AnalyzeConnections call.
type Run struct {
	ID     string
	Config model.ProcessingConfig

	ctx  context.Context
	done chan struct{}

	mu      sync.Mutex
	summary DrainSummary
	results model.ResultBatch
	err     error
}

func newRun(ctx context.Context, id string, cfg model.ProcessingConfig) *Run {
	return &Run{ID: id, Config: cfg, ctx: ctx, done: make(chan struct{})}
}

// Done is closed once the drain and the scoring phase have finished.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Summary returns the drain counters. They are final once Done is closed.
func (r *Run) Summary() DrainSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Results returns the scoring batch, empty until Done is closed.
func (r *Run) Results() model.ResultBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results
}

// Err reports why a run never started.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Run) record(fn func(s *DrainSummary)) {
	r.mu.Lock()
	fn(&r.summary)
	r.mu.Unlock()
}

func (r *Run) finish(results model.ResultBatch, err error) {
	r.mu.Lock()
	r.results = results
	r.err = err
	r.mu.Unlock()
	close(r.done)
}
