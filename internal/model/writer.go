package model

import (
	"context"
	"time"
)

// ResultBatch is everything one scoring phase published.
type ResultBatch struct {
	RunID           string           `json:"run_id"`
	Mode            string           `json:"mode"`
	ModelGroup      string           `json:"model_group"`
	Timestamp       time.Time        `json:"timestamp"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Writer defines a generic interface for persisting scoring results.
type Writer interface {
	// Name identifies the writer in logs.
	Name() string
	Write(ctx context.Context, batch ResultBatch) error
}
