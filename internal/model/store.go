package model

import "context"

// FrequencyStore holds the per-class ranked sets of feature values.
type FrequencyStore interface {
	// IncrementScore adds by to the score of value and returns the new score.
	IncrementScore(ctx context.Context, key TableKey, value string, by float64) (float64, error)
	// Score returns the score of value, or false when the value was never seen.
	Score(ctx context.Context, key TableKey, value string) (float64, bool, error)
	// Count returns the number of distinct values in the table.
	Count(ctx context.Context, key TableKey) (int, error)
	// Best returns the first entry of the table in Scan order.
	Best(ctx context.Context, key TableKey) (Entry, bool, error)
	// Scan returns every entry ordered by ascending value.
	Scan(ctx context.Context, key TableKey) ([]Entry, error)
}

// QueueStore holds the ordered lists of pending connection ids.
type QueueStore interface {
	QueueLen(ctx context.Context, key string) (int, error)
	// PopFront removes the first id. ok is false when the list was empty.
	PopFront(ctx context.Context, key string) (id string, ok bool, err error)
	// QueueAt returns the id at index without removing it.
	QueueAt(ctx context.Context, key string, index int) (id string, ok bool, err error)
	PushBack(ctx context.Context, key string, ids ...string) error
}

// FieldStore holds flat field maps (raw packets, stats counters, results).
type FieldStore interface {
	GetField(ctx context.Context, key, field string) ([]byte, bool, error)
	SetField(ctx context.Context, key, field string, value []byte) error
	IncrField(ctx context.Context, key, field string, by float64) (float64, error)
	Fields(ctx context.Context, key string) (map[string][]byte, error)
}

// Store is the external key/value store backing the lab.
type Store interface {
	FrequencyStore
	QueueStore
	FieldStore

	Ping(ctx context.Context) error
	// Reset removes every table, queue and field map.
	Reset(ctx context.Context) error
	Close() error
}
