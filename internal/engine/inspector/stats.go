package inspector

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"fmt"
	"strconv"
)

// ClassStats are the counters of one class.
type ClassStats struct {
	Seen     float64 `json:"seen"`
	Analyzed float64 `json:"analyzed"`
	Pending  int     `json:"pending"`
}

// Stats is a snapshot of the lab counters.
type Stats struct {
	Allowed ClassStats `json:"allowed"`
	Blocked ClassStats `json:"blocked"`
}

// Stats reads the seen/analyzed counters and queue lengths.
func (i *Inspector) Stats(ctx context.Context) (Stats, error) {
	return ReadStats(ctx, i.store)
}

func ReadStats(ctx context.Context, store model.Store) (Stats, error) {
	fields, err := store.Fields(ctx, model.StatsKey)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read stats: %w", err)
	}

	read := func(class model.Class) (ClassStats, error) {
		var cs ClassStats
		cs.Seen, _ = strconv.ParseFloat(string(fields[model.SeenField(class)]), 64)
		cs.Analyzed, _ = strconv.ParseFloat(string(fields[model.AnalyzedField(class)]), 64)
		n, err := store.QueueLen(ctx, model.QueueKey(class))
		if err != nil {
			return cs, fmt.Errorf("failed to read queue length: %w", err)
		}
		cs.Pending = n
		return cs, nil
	}

	var stats Stats
	if stats.Allowed, err = read(model.Allowed); err != nil {
		return Stats{}, err
	}
	if stats.Blocked, err = read(model.Blocked); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
