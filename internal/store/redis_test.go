package store

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/model"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore_FrequencyTable(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	for _, v := range []string{"1500", "500", "1500"} {
		_, err := s.IncrementScore(ctx, outLengths, v, 1)
		require.NoError(t, err)
	}

	score, err := mr.ZScore("Allowed:Outgoing:Lengths", "1500")
	require.NoError(t, err)
	assert.Equal(t, 2.0, score)

	got, ok, err := s.Score(ctx, outLengths, "500")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.0, got)

	_, ok, err = s.Score(ctx, outLengths, "42")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := s.Scan(ctx, outLengths)
	require.NoError(t, err)
	assert.Equal(t, []model.Entry{{Value: "500", Score: 1}, {Value: "1500", Score: 2}}, entries)

	best, ok, err := s.Best(ctx, outLengths)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "500", best.Value)

	n, err := s.Count(ctx, outLengths)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRedisStore_QueueAndFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t)
	key := model.QueueKey(model.Blocked)

	require.NoError(t, s.PushBack(ctx, key, "c1", "c2"))
	n, err := s.QueueLen(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	id, ok, err := s.QueueAt(ctx, key, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c2", id)

	id, ok, err = s.PopFront(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c1", id)
	_, _, _ = s.PopFront(ctx, key)
	_, ok, err = s.PopFront(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetField(ctx, "Blocked:Outgoing:Packets", "c1", []byte{0x16, 0x03}))
	raw, ok, err := s.GetField(ctx, "Blocked:Outgoing:Packets", "c1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{0x16, 0x03}, raw)

	_, ok, err = s.GetField(ctx, "Blocked:Outgoing:Packets", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := s.IncrField(ctx, model.StatsKey, model.SeenField(model.Blocked), 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	fields, err := s.Fields(ctx, model.StatsKey)
	require.NoError(t, err)
	assert.Equal(t, "1", string(fields["Blocked:Connections:Seen"]))

	require.NoError(t, s.Reset(ctx))
	n, err = s.QueueLen(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNew(t *testing.T) {
	s, err := New(context.Background(), config.StoreConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = New(context.Background(), config.StoreConfig{Type: "cassandra"})
	assert.Error(t, err)
}
