package dataset

import (
	"Go2AdversaryLab/internal/model"
	"Go2AdversaryLab/internal/store"
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_SizeInvariant(t *testing.T) {
	tests := []struct {
		name    string
		entries []model.Entry
		want    int
	}{
		{"empty", nil, 0},
		{"single value, single count", []model.Entry{{Value: "500", Score: 1}}, 2},
		{"single value, many counts", []model.Entry{{Value: "500", Score: 3}}, 3},
		{"many values", []model.Entry{{Value: "500", Score: 3}, {Value: "1500", Score: 1}}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Expand(tt.entries, model.Allowed)
			assert.Len(t, rows, tt.want)
			for _, r := range rows {
				assert.Equal(t, model.Allowed, r.Label)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(4)
	dim := model.Dimension{Direction: model.Outgoing, Feature: model.FeatureLength}

	_, _ = s.IncrementScore(ctx, dim.Table(model.Allowed), "500", 2)
	_, _ = s.IncrementScore(ctx, dim.Table(model.Blocked), "1500", 1)

	rows, err := Build(ctx, s, dim)
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{Value: "500", Label: model.Allowed},
		{Value: "500", Label: model.Allowed},
		{Value: "1500", Label: model.Blocked},
		{Value: "1500", Label: model.Blocked},
	}, rows)
}

func TestSplit_Ratio(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, n := range []int{2, 5, 10, 37, 100} {
		rows := make([]Row, n)
		for i := range rows {
			rows[i] = Row{Value: string(rune('a' + i%26)), Label: model.Allowed}
		}

		train, eval := Split(rows, 0.2, rng)

		assert.Equal(t, n, len(train)+len(eval))
		assert.InDelta(t, 0.2*float64(n), float64(len(eval)), 1.0)
		assert.NotEmpty(t, train)
		assert.NotEmpty(t, eval)
	}
}

func TestSplit_NoOverlap(t *testing.T) {
	rows := make([]Row, 50)
	for i := range rows {
		rows[i] = Row{Value: string(rune(0x100 + i)), Label: model.Blocked}
	}
	train, eval := Split(rows, 0.2, rand.New(rand.NewPCG(7, 7)))

	seen := make(map[string]bool)
	for _, r := range append(append([]Row(nil), train...), eval...) {
		assert.False(t, seen[r.Value], "value %q appears twice", r.Value)
		seen[r.Value] = true
	}
	assert.Len(t, seen, 50)
	assert.Len(t, eval, 10)
}

func TestEvalSize(t *testing.T) {
	assert.Equal(t, 0, EvalSize(0, 0.2))
	assert.Equal(t, 0, EvalSize(1, 0.2))
	assert.Equal(t, 1, EvalSize(2, 0.2))
	assert.Equal(t, 1, EvalSize(4, 0.2))
	assert.Equal(t, 2, EvalSize(10, 0.2))
	assert.Equal(t, 1, EvalSize(2, 0.9))
}
