package dataset

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
)

// Row is one labelled sample of a classification dataset.
type Row struct {
	Value string
	Label model.Class
}

// Expand turns a frequency table into rows, repeating each value score times.
// A table with a single distinct value and a total below two yields two rows.
func Expand(entries []model.Entry, label model.Class) []Row {
	var rows []Row
	for _, e := range entries {
		n := int(math.Round(e.Score))
		for i := 0; i < n; i++ {
			rows = append(rows, Row{Value: e.Value, Label: label})
		}
	}
	if len(entries) == 1 && len(rows) < 2 {
		rows = []Row{{Value: entries[0].Value, Label: label}, {Value: entries[0].Value, Label: label}}
	}
	return rows
}

// Build reads the allowed and blocked tables of a dimension and expands them,
// allowed rows first.
func Build(ctx context.Context, store model.FrequencyStore, dim model.Dimension) ([]Row, error) {
	var rows []Row
	for _, class := range model.Classes {
		entries, err := store.Scan(ctx, dim.Table(class))
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", dim.Table(class), err)
		}
		rows = append(rows, Expand(entries, class)...)
	}
	return rows, nil
}

// EvalSize returns how many of n rows Split holds out. At least one row is
// held out and one kept for training whenever n > 1.
func EvalSize(n int, fraction float64) int {
	if n < 2 {
		return 0
	}
	k := int(math.Round(fraction * float64(n)))
	return min(max(k, 1), n-1)
}

// Split shuffles a copy of rows and partitions it into training and evaluation
// parts without overlap.
func Split(rows []Row, fraction float64, rng *rand.Rand) (train, eval []Row) {
	shuffled := append([]Row(nil), rows...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	k := EvalSize(len(shuffled), fraction)
	return shuffled[k:], shuffled[:k]
}

// Values returns the feature values of rows.
func Values(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}
	return out
}

// Labels returns the labels of rows.
func Labels(rows []Row) []model.Class {
	out := make([]model.Class, len(rows))
	for i, r := range rows {
		out[i] = r.Label
	}
	return out
}
