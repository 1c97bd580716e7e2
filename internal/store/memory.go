package store

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"sync"
)

const defaultShardCount = 64

// shard is a part of the sharded store, containing its own maps and a mutex.
// A whole set, list or field map always lives in a single shard.
type shard struct {
	sets   map[string]map[string]float64
	lists  map[string][]string
	fields map[string]map[string][]byte
	mu     sync.RWMutex
}

func newShard() *shard {
	return &shard{
		sets:   make(map[string]map[string]float64),
		lists:  make(map[string][]string),
		fields: make(map[string]map[string][]byte),
	}
}

// MemoryStore is an in-process model.Store backed by a sharded map.
type MemoryStore struct {
	shards     []*shard
	shardCount uint32
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(numShards uint32) *MemoryStore {
	if numShards == 0 || numShards >= 32768 {
		numShards = defaultShardCount
	}
	s := &MemoryStore{
		shards:     make([]*shard, numShards),
		shardCount: numShards,
	}
	for i := range s.shards {
		s.shards[i] = newShard()
	}
	return s
}

// getShard returns the appropriate shard for a given key.
func (s *MemoryStore) getShard(key string) *shard {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))
	return s.shards[hasher.Sum32()%s.shardCount]
}

// IncrementScore adds by to the score of value in the table.
func (s *MemoryStore) IncrementScore(ctx context.Context, key model.TableKey, value string, by float64) (float64, error) {
	if math.IsNaN(by) || math.IsInf(by, 0) {
		return 0, fmt.Errorf("invalid increment %v for %s", by, key)
	}
	name := key.String()
	sh := s.getShard(name)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	set, ok := sh.sets[name]
	if !ok {
		set = make(map[string]float64)
		sh.sets[name] = set
	}
	set[value] += by
	return set[value], nil
}

// Score returns the score of value in the table.
func (s *MemoryStore) Score(ctx context.Context, key model.TableKey, value string) (float64, bool, error) {
	name := key.String()
	sh := s.getShard(name)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	score, ok := sh.sets[name][value]
	return score, ok, nil
}

// Count returns the number of distinct values in the table.
func (s *MemoryStore) Count(ctx context.Context, key model.TableKey) (int, error) {
	name := key.String()
	sh := s.getShard(name)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return len(sh.sets[name]), nil
}

// Best returns the lowest-valued entry of the table.
func (s *MemoryStore) Best(ctx context.Context, key model.TableKey) (model.Entry, bool, error) {
	entries, err := s.Scan(ctx, key)
	if err != nil || len(entries) == 0 {
		return model.Entry{}, false, err
	}
	return entries[0], true, nil
}

// Scan returns a copy of the table in ascending value order.
func (s *MemoryStore) Scan(ctx context.Context, key model.TableKey) ([]model.Entry, error) {
	name := key.String()
	sh := s.getShard(name)
	sh.mu.RLock()
	entries := make([]model.Entry, 0, len(sh.sets[name]))
	for value, score := range sh.sets[name] {
		entries = append(entries, model.Entry{Value: value, Score: score})
	}
	sh.mu.RUnlock()

	SortEntries(key.Feature, entries)
	return entries, nil
}

// QueueLen returns the length of a list.
func (s *MemoryStore) QueueLen(ctx context.Context, key string) (int, error) {
	sh := s.getShard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	return len(sh.lists[key]), nil
}

// PopFront removes and returns the first id of a list.
func (s *MemoryStore) PopFront(ctx context.Context, key string) (string, bool, error) {
	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	list := sh.lists[key]
	if len(list) == 0 {
		return "", false, nil
	}
	id := list[0]
	sh.lists[key] = list[1:]
	return id, true, nil
}

// QueueAt returns the id at index without removing it.
func (s *MemoryStore) QueueAt(ctx context.Context, key string, index int) (string, bool, error) {
	sh := s.getShard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	list := sh.lists[key]
	if index < 0 || index >= len(list) {
		return "", false, nil
	}
	return list[index], true, nil
}

// PushBack appends ids to a list.
func (s *MemoryStore) PushBack(ctx context.Context, key string, ids ...string) error {
	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.lists[key] = append(sh.lists[key], ids...)
	return nil
}

// GetField returns a copy of a field value.
func (s *MemoryStore) GetField(ctx context.Context, key, field string) ([]byte, bool, error) {
	sh := s.getShard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	value, ok := sh.fields[key][field]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// SetField stores a copy of value.
func (s *MemoryStore) SetField(ctx context.Context, key, field string, value []byte) error {
	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.fieldMap(key)[field] = append([]byte(nil), value...)
	return nil
}

// IncrField treats the field as a decimal number and adds by to it.
func (s *MemoryStore) IncrField(ctx context.Context, key, field string, by float64) (float64, error) {
	sh := s.getShard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	m := sh.fieldMap(key)
	current := 0.0
	if raw, ok := m[field]; ok {
		parsed, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return 0, fmt.Errorf("field %s of %s is not a number: %w", field, key, err)
		}
		current = parsed
	}
	current += by
	m[field] = []byte(strconv.FormatFloat(current, 'f', -1, 64))
	return current, nil
}

// Fields returns a copy of a whole field map.
func (s *MemoryStore) Fields(ctx context.Context, key string) (map[string][]byte, error) {
	sh := s.getShard(key)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	out := make(map[string][]byte, len(sh.fields[key]))
	for field, value := range sh.fields[key] {
		out[field] = append([]byte(nil), value...)
	}
	return out, nil
}

// fieldMap returns the field map for key, creating it. Caller holds the write lock.
func (sh *shard) fieldMap(key string) map[string][]byte {
	m, ok := sh.fields[key]
	if !ok {
		m = make(map[string][]byte)
		sh.fields[key] = m
	}
	return m
}

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Reset clears the internal state of every shard.
func (s *MemoryStore) Reset(ctx context.Context) error {
	var wait sync.WaitGroup
	wait.Add(len(s.shards))

	for _, sh := range s.shards {
		go func(sh *shard) {
			defer wait.Done()
			sh.mu.Lock()
			sh.sets = make(map[string]map[string]float64)
			sh.lists = make(map[string][]string)
			sh.fields = make(map[string]map[string][]byte)
			sh.mu.Unlock()
		}(sh)
	}

	wait.Wait()
	return nil
}

// Close is a no-op for the in-process store.
func (s *MemoryStore) Close() error {
	return nil
}
