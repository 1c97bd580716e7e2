package app

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/engine/classifier"
	"Go2AdversaryLab/internal/engine/inspector"
	"Go2AdversaryLab/internal/engine/scoring"
	"Go2AdversaryLab/internal/factory"
	"Go2AdversaryLab/internal/metrics"
	"Go2AdversaryLab/internal/model"
	"Go2AdversaryLab/internal/notify"
	"Go2AdversaryLab/internal/store"
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/sirupsen/logrus"

	// Result writers register themselves with the factory.
	_ "Go2AdversaryLab/internal/writer"
)

// Lab holds the wired components of one process.
type Lab struct {
	Config      *config.Config
	Store       model.Store
	Metrics     *metrics.Metrics
	Broadcaster *notify.Broadcaster
	// Notifier posts to the broadcaster and, when enabled, to NATS.
	Notifier  model.Notifier
	Scorer    *scoring.Scorer
	Inspector *inspector.Inspector

	nats    *notify.NATSNotifier
	writers []model.Writer
	logger  *logrus.Logger
}

// NewLab connects the store and the notification channels and builds the
// scoring pipeline. The inspector is created but not started.
func NewLab(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Lab, error) {
	s, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	lab := &Lab{
		Config:      cfg,
		Store:       s,
		Metrics:     metrics.New(),
		Broadcaster: notify.NewBroadcaster(64),
		logger:      logger,
	}
	lab.Metrics.Registry().MustRegister(metrics.NewStatsCollector(s, logger))

	notifiers := notify.Multi{lab.Broadcaster}
	if cfg.NATS.Enabled {
		lab.nats, err = notify.NewNATSNotifier(cfg.NATS, logger)
		if err != nil {
			lab.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		notifiers = append(notifiers, lab.nats)
	}
	lab.Notifier = notifiers

	artifacts, err := classifier.NewFileArtifacts(cfg.Artifacts.RootPath, cfg.Artifacts.Compress, cfg.Artifacts.CacheSize)
	if err != nil {
		lab.Close()
		return nil, fmt.Errorf("failed to prepare artifacts: %w", err)
	}

	lab.writers, err = factory.CreateWriters(cfg.Writers, logger)
	if err != nil {
		lab.Close()
		return nil, err
	}

	backend := classifier.NewLookupBackend(cfg.Scoring.ValidationFraction, cfg.Scoring.MinValidationRows, newRand(cfg.Scoring.Seed, 1))
	lab.Scorer = scoring.NewScorer(s, backend, artifacts, lab.Notifier, logger, cfg.Scoring.EvaluationFraction, newRand(cfg.Scoring.Seed, 2)).
		WithWriters(lab.writers...).
		WithMetrics(lab.Metrics)
	lab.Inspector = inspector.New(s, lab.Scorer, lab.Notifier, lab.Metrics, logger, cfg.Analysis)
	return lab, nil
}

// newRand returns a generator seeded from seed, or randomly when seed is 0.
// stream separates the generators built from the same seed.
func newRand(seed, stream uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, stream))
}

// Close releases the writers, the NATS connection and the store.
func (l *Lab) Close() {
	for _, w := range l.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				l.logger.Warnf("Failed to close writer %s: %v", w.Name(), err)
			}
		}
	}
	if l.nats != nil {
		l.nats.Close()
	}
	if err := l.Store.Close(); err != nil {
		l.logger.Warnf("Failed to close store: %v", err)
	}
}
