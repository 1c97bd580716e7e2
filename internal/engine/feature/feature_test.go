package feature

import (
	"Go2AdversaryLab/internal/model"
	"Go2AdversaryLab/internal/store"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putPacket(t *testing.T, s model.Store, conn model.ObservedConnection, dir model.Direction, payload []byte, ts string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SetField(ctx, model.PacketsKey(conn.Class, dir), conn.ID, payload))
	if ts != "" {
		require.NoError(t, s.SetField(ctx, model.DatesKey(conn.Class, dir), conn.ID, []byte(ts)))
	}
}

func score(t *testing.T, s model.Store, key model.TableKey, value string) float64 {
	t.Helper()
	v, _, err := s.Score(context.Background(), key, value)
	require.NoError(t, err)
	return v
}

func TestLengthExtractor_CountsBothSides(t *testing.T) {
	s := store.NewMemoryStore(4)
	conn := model.ObservedConnection{ID: "c1", Class: model.Allowed}
	putPacket(t, s, conn, model.Outgoing, make([]byte, 500), "")
	putPacket(t, s, conn, model.Incoming, make([]byte, 1500), "")

	require.NoError(t, NewLengthExtractor(s).Extract(context.Background(), conn))

	assert.Equal(t, 1.0, score(t, s, conn.Table(model.Outgoing, model.FeatureLength), "500"))
	assert.Equal(t, 1.0, score(t, s, conn.Table(model.Incoming, model.FeatureLength), "1500"))
}

func TestLengthExtractor_MissingOutgoing(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(4)
	conn := model.ObservedConnection{ID: "c2", Class: model.Blocked}
	putPacket(t, s, conn, model.Incoming, make([]byte, 40), "")

	err := NewLengthExtractor(s).Extract(ctx, conn)

	var ferr *Error
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, NoOutPacket, ferr.Kind)
	assert.Equal(t, "c2", ferr.ConnectionID)

	for _, dir := range model.Directions {
		n, err := s.Count(ctx, conn.Table(dir, model.FeatureLength))
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}

func TestLengthExtractor_MissingIncomingStillCountsOutgoing(t *testing.T) {
	s := store.NewMemoryStore(4)
	conn := model.ObservedConnection{ID: "c3", Class: model.Allowed}
	putPacket(t, s, conn, model.Outgoing, make([]byte, 10), "")

	err := NewLengthExtractor(s).Extract(context.Background(), conn)

	var ferr *Error
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, NoInPacket, ferr.Kind)
	assert.Equal(t, 1.0, score(t, s, conn.Table(model.Outgoing, model.FeatureLength), "10"))
}

func TestTimingExtractor(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(4)
	conn := model.ObservedConnection{ID: "c1", Class: model.Allowed}
	putPacket(t, s, conn, model.Outgoing, []byte{1}, "1700000000.000000")
	putPacket(t, s, conn, model.Incoming, []byte{2}, "1700000000.123400")

	require.NoError(t, NewTimingExtractor(s, 1).Extract(ctx, conn))
	assert.Equal(t, 1.0, score(t, s, conn.Table(model.DirectionNone, model.FeatureTiming), "123"))

	other := model.ObservedConnection{ID: "c2", Class: model.Allowed}
	putPacket(t, s, other, model.Outgoing, []byte{1}, "1700000000.000000")
	putPacket(t, s, other, model.Incoming, []byte{2}, "1700000000.128000")
	require.NoError(t, NewTimingExtractor(s, 10).Extract(ctx, other))
	assert.Equal(t, 1.0, score(t, s, other.Table(model.DirectionNone, model.FeatureTiming), "120"))
}

func TestTimingExtractor_MissingDates(t *testing.T) {
	s := store.NewMemoryStore(4)
	conn := model.ObservedConnection{ID: "c1", Class: model.Blocked}
	putPacket(t, s, conn, model.Outgoing, []byte{1}, "1700000000.0")

	err := NewTimingExtractor(s, 1).Extract(context.Background(), conn)
	var ferr *Error
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, NoInPacket, ferr.Kind)
	assert.Equal(t, model.FeatureTiming, ferr.Feature)
}

func TestEntropy(t *testing.T) {
	assert.Equal(t, 0.0, Entropy(nil))
	assert.Equal(t, 0.0, Entropy([]byte("aaaa")))
	assert.InDelta(t, 1.0, Entropy([]byte("abab")), 1e-9)

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	assert.InDelta(t, 8.0, Entropy(all), 1e-9)
}

func TestEntropyExtractor(t *testing.T) {
	s := store.NewMemoryStore(4)
	conn := model.ObservedConnection{ID: "c1", Class: model.Allowed}
	putPacket(t, s, conn, model.Outgoing, []byte("abab"), "")
	putPacket(t, s, conn, model.Incoming, []byte("abcd"), "")

	require.NoError(t, NewEntropyExtractor(s, 1).Extract(context.Background(), conn))
	assert.Equal(t, 1.0, score(t, s, conn.Table(model.Outgoing, model.FeatureEntropy), "1"))
	assert.Equal(t, 1.0, score(t, s, conn.Table(model.Incoming, model.FeatureEntropy), "2"))
}

func TestSequenceDescriptor(t *testing.T) {
	payload := []byte{0x16, 0x03, 0x01, 0x02}
	assert.Equal(t, "0:1603", SequenceDescriptor(payload, 0, 2))
	assert.Equal(t, "3:02", SequenceDescriptor(payload, 3, 4))
	assert.Equal(t, "9:", SequenceDescriptor(payload, 9, 2))
}

func TestSequenceExtractor(t *testing.T) {
	s := store.NewMemoryStore(4)
	conn := model.ObservedConnection{ID: "c1", Class: model.Blocked}
	putPacket(t, s, conn, model.Outgoing, []byte{0x16, 0x03, 0x01}, "")
	putPacket(t, s, conn, model.Incoming, []byte{0x15}, "")

	require.NoError(t, NewSequenceExtractor(s, 0, 2).Extract(context.Background(), conn))
	assert.Equal(t, 1.0, score(t, s, conn.Table(model.Outgoing, model.FeatureOffsetSequence), "0:1603"))
	assert.Equal(t, 1.0, score(t, s, conn.Table(model.Incoming, model.FeatureOffsetSequence), "0:15"))
}

func TestBucketAndFormat(t *testing.T) {
	assert.Equal(t, 120.0, Bucket(128, 10))
	assert.Equal(t, -10.0, Bucket(-2, 10))
	assert.Equal(t, "0", FormatNumber(Round(-0.01, 1)))
	assert.Equal(t, "3.2", FormatNumber(Round(3.24, 1)))
}
