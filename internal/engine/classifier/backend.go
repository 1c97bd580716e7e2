package classifier

import (
	"Go2AdversaryLab/internal/engine/dataset"
	"Go2AdversaryLab/internal/model"
	"context"
	"errors"
	"math/rand/v2"
	"sync"
)

var ErrEmptyDataset = errors.New("empty dataset")

// Report carries the errors measured while training. A negative
// ValidationError means no validation split was held out.
type Report struct {
	TrainingError   float64
	ValidationError float64
}

// Backend trains and applies classifiers.
type Backend interface {
	Train(ctx context.Context, rows []dataset.Row) (*Model, Report, error)
	// Evaluate returns the classification error of m on rows.
	Evaluate(ctx context.Context, m *Model, rows []dataset.Row) (float64, error)
	Predict(ctx context.Context, m *Model, values []string) ([]model.Class, error)
}

// LookupBackend trains nearest-value majority-vote models.
type LookupBackend struct {
	validationFraction float64
	minValidationRows  int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewLookupBackend creates a backend. Training sets with at least
// minValidationRows rows hold out validationFraction of them for validation.
func NewLookupBackend(validationFraction float64, minValidationRows int, rng *rand.Rand) *LookupBackend {
	return &LookupBackend{
		validationFraction: validationFraction,
		minValidationRows:  minValidationRows,
		rng:                rng,
	}
}

func (b *LookupBackend) Train(ctx context.Context, rows []dataset.Row) (*Model, Report, error) {
	if len(rows) == 0 {
		return nil, Report{}, ErrEmptyDataset
	}

	report := Report{ValidationError: -1}
	fitRows := rows
	var validation []dataset.Row
	if b.validationFraction > 0 && len(rows) >= b.minValidationRows && len(rows) > 1 {
		b.mu.Lock()
		fitRows, validation = dataset.Split(rows, b.validationFraction, b.rng)
		b.mu.Unlock()
	}

	m := fit(fitRows)
	report.TrainingError = m.errorRate(fitRows)
	if len(validation) > 0 {
		report.ValidationError = m.errorRate(validation)
	}
	return m, report, nil
}

func (b *LookupBackend) Evaluate(ctx context.Context, m *Model, rows []dataset.Row) (float64, error) {
	if len(rows) == 0 {
		return 0, ErrEmptyDataset
	}
	return m.errorRate(rows), nil
}

func (b *LookupBackend) Predict(ctx context.Context, m *Model, values []string) ([]model.Class, error) {
	return m.Predict(values), nil
}
