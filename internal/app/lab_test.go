package app

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/model"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Artifacts.RootPath = t.TempDir()
	cfg.Scoring.Seed = 7
	cfg.Writers = []config.WriterDef{{Type: "json", Enabled: true, RootPath: t.TempDir()}}
	return cfg
}

func TestNewLab_WiresPipeline(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	ctx := context.Background()

	lab, err := NewLab(ctx, testConfig(t), logger)
	require.NoError(t, err)
	defer lab.Close()

	require.NotNil(t, lab.Inspector)
	require.NoError(t, lab.Store.Ping(ctx))
	_, err = lab.Store.IncrField(ctx, model.StatsKey, model.SeenField(model.Allowed), 2)
	require.NoError(t, err)

	families, err := lab.Metrics.Registry().Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "adversarylab_connections_seen")

	lab.Inspector.Start()
	defer lab.Inspector.Stop()
	run := lab.Inspector.AnalyzeConnections(ctx, lab.Config.Processing)
	<-run.Done()
	assert.NoError(t, run.Err())
}

func TestNewLab_UnknownWriter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Writers = []config.WriterDef{{Type: "parquet", Enabled: true}}

	_, err := NewLab(context.Background(), cfg, logrus.New())
	assert.ErrorContains(t, err, "unknown writer type")
}

func TestNewRand_SeedIsDeterministic(t *testing.T) {
	assert.Equal(t, newRand(42, 1).Uint64(), newRand(42, 1).Uint64())
	assert.NotEqual(t, newRand(42, 1).Uint64(), newRand(42, 2).Uint64())
}
