package scoring

import (
	"Go2AdversaryLab/internal/engine/classifier"
	"Go2AdversaryLab/internal/engine/dataset"
	"Go2AdversaryLab/internal/engine/feature"
	"Go2AdversaryLab/internal/metrics"
	"Go2AdversaryLab/internal/model"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoAllowedData = errors.New("allowed table is empty")
	ErrNoBlockedData = errors.New("blocked table is empty")
)

// Scorer turns the frequency tables into trained models and recommendations.
type Scorer struct {
	store     model.Store
	backend   classifier.Backend
	artifacts classifier.ArtifactStore
	notifier  model.Notifier
	writers   []model.Writer
	metrics   *metrics.Metrics
	logger    *logrus.Logger

	evaluationFraction float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewScorer creates a scorer. evaluationFraction of every dataset is held out
// for the evaluation accuracy.
func NewScorer(store model.Store, backend classifier.Backend, artifacts classifier.ArtifactStore,
	notifier model.Notifier, logger *logrus.Logger, evaluationFraction float64, rng *rand.Rand) *Scorer {
	return &Scorer{
		store:              store,
		backend:            backend,
		artifacts:          artifacts,
		notifier:           notifier,
		logger:             logger,
		evaluationFraction: evaluationFraction,
		rng:                rng,
	}
}

// WithWriters sets the writers every result batch is handed to.
func (s *Scorer) WithWriters(writers ...model.Writer) *Scorer {
	s.writers = writers
	return s
}

func (s *Scorer) WithMetrics(m *metrics.Metrics) *Scorer {
	s.metrics = m
	return s
}

// ScoreAll scores every enabled dimension. A failing dimension is logged and
// skipped; the others still run.
func (s *Scorer) ScoreAll(ctx context.Context, cfg model.ProcessingConfig, runID string) model.ResultBatch {
	batch := model.ResultBatch{
		RunID:      runID,
		Mode:       cfg.Mode(),
		ModelGroup: cfg.ModelGroupName,
		Timestamp:  time.Now(),
	}

	dims := Dimensions(cfg)
	for i, dim := range dims {
		var recs []model.Recommendation
		var err error
		if cfg.TrainingMode {
			recs, err = s.Train(ctx, cfg.ModelGroupName, dim)
		} else {
			recs, err = s.Test(ctx, cfg.ModelGroupName, dim)
		}

		if err != nil {
			s.logger.WithFields(logrus.Fields{"dimension": dim.Name(), "mode": batch.Mode}).Warnf("Skipping dimension: %v", err)
			s.metrics.ObserveDimension(batch.Mode, "skipped")
		} else {
			s.metrics.ObserveDimension(batch.Mode, "ok")
			for _, r := range recs {
				s.metrics.ObserveRecommendation(r)
			}
			batch.Recommendations = append(batch.Recommendations, recs...)
		}

		s.notifier.Post(model.NewEvent(model.ProgressUpdated, fmt.Sprintf("scored %s (%d/%d)", dim.Name(), i+1, len(dims))))
	}

	for _, w := range s.writers {
		if err := w.Write(ctx, batch); err != nil {
			s.logger.Errorf("Writer %s failed: %v", w.Name(), err)
		}
	}
	return batch
}

// Train builds the dataset of a dimension, trains and evaluates a classifier,
// and publishes the recommendation with its accuracies.
func (s *Scorer) Train(ctx context.Context, group string, dim model.Dimension) ([]model.Recommendation, error) {
	allowed, ok, err := s.store.Best(ctx, dim.Table(model.Allowed))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoAllowedData
	}
	blocked, ok, err := s.store.Best(ctx, dim.Table(model.Blocked))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoBlockedData
	}
	recommender := model.Recommender{Dimension: dim, Allowed: allowed, Blocked: blocked}

	rows, err := dataset.Build(ctx, s.store, dim)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	train, eval := dataset.Split(rows, s.evaluationFraction, s.rng)
	s.mu.Unlock()

	m, report, err := s.backend.Train(ctx, train)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	evalErr, err := s.backend.Evaluate(ctx, m, eval)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	acc := Accuracies(report, evalErr)
	if acc.Validation == nil {
		s.logger.WithField("dimension", dim.Name()).Info("Validation error is negative, validation accuracy is unavailable")
	}

	fields := map[string]string{
		dim.RequiredField():                         allowed.Value,
		dim.ForbiddenField():                        blocked.Value,
		dim.AccuracyField(model.TrainingAccuracy):   feature.FormatNumber(*acc.Training),
		dim.AccuracyField(model.EvaluationAccuracy): feature.FormatNumber(*acc.Evaluation),
	}
	if acc.Validation != nil {
		fields[dim.AccuracyField(model.ValidationAccuracy)] = feature.FormatNumber(*acc.Validation)
	}
	for field, value := range fields {
		if err := s.store.SetField(ctx, model.TrainingResultsKey, field, []byte(value)); err != nil {
			return nil, fmt.Errorf("failed to publish %s: %w", field, err)
		}
	}

	if err := s.artifacts.SaveClassifier(ctx, group, dim, m); err != nil {
		return nil, err
	}
	if err := s.artifacts.SaveRecommender(ctx, group, recommender); err != nil {
		return nil, err
	}

	return []model.Recommendation{
		{Dimension: dim, Class: model.Allowed, Value: allowed.Value, Score: allowed.Score, Accuracy: acc},
		{Dimension: dim, Class: model.Blocked, Value: blocked.Value, Score: blocked.Score, Accuracy: acc},
	}, nil
}

// Accuracies converts backend errors into percentages. A negative validation
// error leaves Validation nil.
func Accuracies(report classifier.Report, evaluationError float64) model.Accuracy {
	training := Percent(1 - report.TrainingError)
	evaluation := Percent(1 - evaluationError)
	acc := model.Accuracy{Training: &training, Evaluation: &evaluation}
	if report.ValidationError >= 0 {
		validation := Percent(1 - report.ValidationError)
		acc.Validation = &validation
	}
	return acc
}

// Test scores the live tables of a dimension against the saved model group.
func (s *Scorer) Test(ctx context.Context, group string, dim model.Dimension) ([]model.Recommendation, error) {
	n, err := s.store.Count(ctx, dim.Table(model.Blocked))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNoBlockedData
	}

	log := s.logger.WithFields(logrus.Fields{"dimension": dim.Name(), "group": group})

	recommender, err := s.artifacts.LoadRecommender(ctx, group, dim)
	if err != nil {
		log.Warnf("No recommendation published: %v", err)
		recommender = nil
	}
	m, err := s.artifacts.LoadClassifier(ctx, group, dim)
	if err != nil {
		log.Warnf("No accuracy published: %v", err)
		m = nil
	}
	if recommender == nil && m == nil {
		return nil, fmt.Errorf("model group %q has no %s artifacts: %w", group, dim.Name(), classifier.ErrArtifactNotFound)
	}

	var recs []model.Recommendation
	for _, class := range model.Classes {
		entries, err := s.store.Scan(ctx, dim.Table(class))
		if err != nil {
			return recs, err
		}
		if len(entries) == 0 {
			log.Infof("No %s data to test", class)
			continue
		}

		rec := model.Recommendation{Dimension: dim, Class: class}
		published := false

		if recommender != nil {
			e := recommender.For(class)
			rec.Value, rec.Score = e.Value, e.Score
			if err := s.store.SetField(ctx, model.TestResultsKey, model.TestValueField(dim, class), []byte(e.Value)); err != nil {
				return recs, err
			}
			published = true
		}

		if m != nil {
			acc, ok, err := s.liveAccuracy(ctx, m, entries, class)
			if err != nil {
				return recs, err
			}
			if !ok {
				log.Warnf("Prediction for %s has no values", class)
			} else {
				if err := s.store.SetField(ctx, model.TestResultsKey, model.TestAccuracyField(dim, class), []byte(feature.FormatNumber(acc))); err != nil {
					return recs, err
				}
				rec.Accuracy.Live = &acc
				published = true
			}
		}

		if published {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// liveAccuracy predicts every recorded value of a class table, weighted by
// score, and returns the share predicted as class.
func (s *Scorer) liveAccuracy(ctx context.Context, m *classifier.Model, entries []model.Entry, class model.Class) (float64, bool, error) {
	var values []string
	for _, e := range entries {
		for i := 0; i < int(e.Score); i++ {
			values = append(values, e.Value)
		}
	}

	predicted, err := s.backend.Predict(ctx, m, values)
	if err != nil {
		return 0, false, fmt.Errorf("prediction failed: %w", err)
	}
	if len(predicted) == 0 {
		return 0, false, nil
	}

	matches := 0
	for _, p := range predicted {
		if p == class {
			matches++
		}
	}
	return Percent(float64(matches) / float64(len(predicted))), true, nil
}
