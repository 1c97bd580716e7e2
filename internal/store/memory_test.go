package store

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var outLengths = model.TableKey{Class: model.Allowed, Direction: model.Outgoing, Feature: model.FeatureLength}

func TestMemoryStore_IncrementScore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(4)

	score, err := s.IncrementScore(ctx, outLengths, "500", 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, score)

	score, err = s.IncrementScore(ctx, outLengths, "500", 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, score)

	got, ok, err := s.Score(ctx, outLengths, "500")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.0, got)

	_, ok, err = s.Score(ctx, outLengths, "1500")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.IncrementScore(ctx, outLengths, "500", math.NaN())
	assert.Error(t, err)
}

func TestMemoryStore_ScanOrderAndBest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(4)

	for _, v := range []string{"1500", "90", "500", "1500", "1500"} {
		_, err := s.IncrementScore(ctx, outLengths, v, 1)
		require.NoError(t, err)
	}

	entries, err := s.Scan(ctx, outLengths)
	require.NoError(t, err)
	assert.Equal(t, []model.Entry{{Value: "90", Score: 1}, {Value: "500", Score: 1}, {Value: "1500", Score: 3}}, entries)

	best, ok, err := s.Best(ctx, outLengths)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "90", best.Value)

	n, err := s.Count(ctx, outLengths)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	empty := model.TableKey{Class: model.Blocked, Direction: model.Outgoing, Feature: model.FeatureLength}
	_, ok, err = s.Best(ctx, empty)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore_Queue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(4)
	key := model.QueueKey(model.Allowed)

	require.NoError(t, s.PushBack(ctx, key, "c1", "c2"))

	n, err := s.QueueLen(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	id, ok, err := s.QueueAt(ctx, key, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c2", id)

	_, ok, err = s.QueueAt(ctx, key, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	id, ok, err = s.PopFront(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c1", id)

	_, _, _ = s.PopFront(ctx, key)
	_, ok, err = s.PopFront(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "empty pop is not an error")
}

func TestMemoryStore_Fields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(4)

	payload := []byte{1, 2, 3}
	require.NoError(t, s.SetField(ctx, "Allowed:Outgoing:Packets", "c1", payload))
	payload[0] = 9

	got, ok, err := s.GetField(ctx, "Allowed:Outgoing:Packets", "c1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got)

	v, err := s.IncrField(ctx, model.StatsKey, model.AnalyzedField(model.Allowed), 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	v, err = s.IncrField(ctx, model.StatsKey, model.AnalyzedField(model.Allowed), 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	fields, err := s.Fields(ctx, model.StatsKey)
	require.NoError(t, err)
	assert.Equal(t, "3", string(fields["Allowed:Connections:Analyzed"]))

	require.NoError(t, s.SetField(ctx, model.StatsKey, "bad", []byte("x")))
	_, err = s.IncrField(ctx, model.StatsKey, "bad", 1)
	assert.Error(t, err)
}

func TestMemoryStore_ConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(8)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = s.IncrementScore(ctx, outLengths, "64", 1)
			}
		}()
	}
	wg.Wait()

	score, _, err := s.Score(ctx, outLengths, "64")
	require.NoError(t, err)
	assert.Equal(t, 1600.0, score)
}

func TestMemoryStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(4)
	_, _ = s.IncrementScore(ctx, outLengths, "1", 1)
	_ = s.PushBack(ctx, "q", "a")
	_ = s.SetField(ctx, "h", "f", []byte("v"))

	require.NoError(t, s.Reset(ctx))

	n, _ := s.Count(ctx, outLengths)
	assert.Zero(t, n)
	n, _ = s.QueueLen(ctx, "q")
	assert.Zero(t, n)
	fields, _ := s.Fields(ctx, "h")
	assert.Empty(t, fields)
}

func TestMemoryStore_ScanTextTable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(4)
	sni := model.TableKey{Class: model.Allowed, Direction: model.Outgoing, Feature: model.FeatureTLSServerName}

	for _, v := range []string{"example.com", "inf", "nan", "1e5"} {
		_, err := s.IncrementScore(ctx, sni, v, 1)
		require.NoError(t, err)
	}

	entries, err := s.Scan(ctx, sni)
	require.NoError(t, err)
	var values []string
	for _, e := range entries {
		values = append(values, e.Value)
	}
	assert.Equal(t, []string{"1e5", "example.com", "inf", "nan"}, values)
}
