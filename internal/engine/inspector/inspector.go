package inspector

import (
	"Go2AdversaryLab/internal/config"
	"Go2AdversaryLab/internal/engine/feature"
	"Go2AdversaryLab/internal/engine/protocol"
	"Go2AdversaryLab/internal/engine/scoring"
	"Go2AdversaryLab/internal/metrics"
	"Go2AdversaryLab/internal/model"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrStopped = errors.New("inspector is stopped")

// Inspector drains the connection queues and runs the scoring phase. Runs are
// executed one at a time, in submission order, on a single worker goroutine.
type Inspector struct {
	store    model.Store
	scorer   *scoring.Scorer
	notifier model.Notifier
	metrics  *metrics.Metrics
	logger   *logrus.Logger

	length   feature.Extractor
	timing   feature.Extractor
	sequence feature.Extractor
	entropy  feature.Extractor

	mu      sync.Mutex
	pending []*Run
	started bool
	stopped bool
	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates an inspector. Call Start before submitting runs.
func New(store model.Store, scorer *scoring.Scorer, notifier model.Notifier, m *metrics.Metrics,
	logger *logrus.Logger, analysis config.AnalysisConfig) *Inspector {
	return &Inspector{
		store:    store,
		scorer:   scorer,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		length:   feature.NewLengthExtractor(store),
		timing:   feature.NewTimingExtractor(store, analysis.TimingBucketMs),
		sequence: feature.NewSequenceExtractor(store, analysis.SequenceOffset, analysis.SequenceLength),
		entropy:  feature.NewEntropyExtractor(store, analysis.EntropyPrecision),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the analysis worker.
func (i *Inspector) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started || i.stopped {
		return
	}
	i.started = true
	i.wg.Add(1)
	go i.worker()
	i.logger.Info("Inspector started.")
}

// Stop rejects new runs, lets the queued ones finish and waits for the worker.
// Without a worker, queued runs finish with ErrStopped.
func (i *Inspector) Stop() {
	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		return
	}
	i.stopped = true
	var orphaned []*Run
	if !i.started {
		orphaned, i.pending = i.pending, nil
	}
	i.mu.Unlock()

	for _, run := range orphaned {
		run.finish(model.ResultBatch{}, ErrStopped)
	}

	close(i.done)
	i.wg.Wait()
	i.logger.Info("Inspector stopped.")
}

// AnalyzeConnections queues a drain of both connection queues followed by a
// scoring phase and returns at once. A stats notification is posted
// immediately, before the run starts.
func (i *Inspector) AnalyzeConnections(ctx context.Context, cfg model.ProcessingConfig) *Run {
	// A started drain always runs to completion.
	run := newRun(context.WithoutCancel(ctx), uuid.NewString(), cfg)

	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		run.finish(model.ResultBatch{}, ErrStopped)
		return run
	}
	i.notifier.Post(model.NewEvent(model.StatsUpdated, ""))
	i.pending = append(i.pending, run)
	i.mu.Unlock()

	select {
	case i.wake <- struct{}{}:
	default:
	}
	return run
}

func (i *Inspector) worker() {
	defer i.wg.Done()
	for {
		i.mu.Lock()
		var run *Run
		if len(i.pending) > 0 {
			run = i.pending[0]
			i.pending = i.pending[1:]
		}
		i.mu.Unlock()

		if run != nil {
			i.execute(run)
			continue
		}

		select {
		case <-i.wake:
		case <-i.done:
			// Drain whatever was queued before Stop.
			i.mu.Lock()
			remaining := i.pending
			i.pending = nil
			i.mu.Unlock()
			for _, r := range remaining {
				i.execute(r)
			}
			return
		}
	}
}

func (i *Inspector) execute(run *Run) {
	log := i.logger.WithFields(logrus.Fields{"run": run.ID, "mode": run.Config.Mode()})
	log.Info("Analyzing connections.")

	if run.Config.DestructiveDrain {
		i.drainDestructive(run)
	} else {
		i.drainByIndex(run)
	}

	s := run.Summary()
	log.Infof("Drain finished: %d allowed, %d blocked, %d analyzed, %d failed, %d skipped.",
		s.Allowed, s.Blocked, s.Analyzed, s.Failed, s.Skipped)
	i.notifier.Post(model.NewEvent(model.ProgressUpdated, "drain finished"))

	results := i.scorer.ScoreAll(run.ctx, run.Config, run.ID)
	log.Infof("Scoring finished with %d recommendations.", len(results.Recommendations))

	run.finish(results, nil)
	i.notifier.Post(model.NewEvent(model.StatsUpdated, ""))
}

// drainDestructive pops each queue until it is empty, allowed first.
func (i *Inspector) drainDestructive(run *Run) {
	for _, class := range model.Classes {
		key := model.QueueKey(class)
		for {
			n, err := i.store.QueueLen(run.ctx, key)
			if err != nil {
				i.logger.Errorf("Failed to read length of %s: %v", key, err)
				break
			}
			if n == 0 {
				break
			}
			id, ok, err := i.store.PopFront(run.ctx, key)
			if err != nil {
				i.logger.Errorf("Failed to pop from %s: %v", key, err)
				break
			}
			if !ok {
				// The queue emptied between the length check and the pop.
				run.record(func(s *DrainSummary) { s.Skipped++ })
				break
			}
			i.handle(run, id, class)
		}
	}
}

// drainByIndex walks both queues without consuming them. The analyzed counters
// restart from zero because every queued connection is counted again.
func (i *Inspector) drainByIndex(run *Run) {
	for _, class := range model.Classes {
		if err := i.store.SetField(run.ctx, model.StatsKey, model.AnalyzedField(class), []byte("0")); err != nil {
			i.logger.Errorf("Failed to reset analyzed counter of %s: %v", class, err)
		}
	}
	i.notifier.Post(model.NewEvent(model.StatsUpdated, ""))

	for _, class := range model.Classes {
		key := model.QueueKey(class)
		n, err := i.store.QueueLen(run.ctx, key)
		if err != nil {
			i.logger.Errorf("Failed to read length of %s: %v", key, err)
			continue
		}
		for idx := 0; idx < n; idx++ {
			id, ok, err := i.store.QueueAt(run.ctx, key, idx)
			if err != nil {
				i.logger.Errorf("Failed to read %s[%d]: %v", key, idx, err)
				break
			}
			if !ok {
				run.record(func(s *DrainSummary) { s.Skipped++ })
				continue
			}
			i.handle(run, id, class)
		}
	}
}

func (i *Inspector) handle(run *Run, id string, class model.Class) {
	if id == "" {
		run.record(func(s *DrainSummary) { s.Skipped++ })
		return
	}

	conn := model.ObservedConnection{ID: id, Class: class}
	result := i.Analyze(run.ctx, conn, run.Config.EnableSequenceAnalysis, run.Config.EnableTLSAnalysis)

	run.record(func(s *DrainSummary) {
		if class == model.Allowed {
			s.Allowed++
		} else {
			s.Blocked++
		}
		if result.Analyzed {
			s.Analyzed++
		} else {
			s.Failed++
		}
	})
	i.metrics.ObserveConnection(class, result.Analyzed)
}

// AnalysisResult is the outcome of analyzing one connection.
type AnalysisResult struct {
	Analyzed bool
	Errors   []error
	Protocol protocol.Known
}

// Analyze runs every feature extractor on one connection, in a fixed order.
// A failing extractor does not stop the ones after it, but the analyzed
// counter is only incremented when all of them succeeded. Protocol
// fingerprinting runs last and never affects the counter.
func (i *Inspector) Analyze(ctx context.Context, conn model.ObservedConnection, sequences, tls bool) AnalysisResult {
	log := i.logger.WithFields(logrus.Fields{"connection": conn.ID, "class": conn.Class})

	steps := []feature.Extractor{i.length, i.timing}
	if sequences {
		steps = append(steps, i.sequence)
	}
	steps = append(steps, i.entropy)

	var result AnalysisResult
	for _, step := range steps {
		if err := step.Extract(ctx, conn); err != nil {
			result.Errors = append(result.Errors, err)
			i.observeError(step.Feature(), err)
			log.WithField("feature", step.Name()).Warn(err)
		}
	}

	if len(result.Errors) == 0 {
		if _, err := i.store.IncrField(ctx, model.StatsKey, model.AnalyzedField(conn.Class), 1); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to count analyzed connection: %w", err))
			log.Errorf("Failed to count analyzed connection: %v", err)
		} else {
			result.Analyzed = true
		}
	}

	if tls {
		kind, ok, err := protocol.DetectConnection(ctx, i.store, conn)
		if err != nil {
			log.Warnf("Protocol detection failed: %v", err)
		} else if ok {
			result.Protocol = kind
			if err := protocol.Process(ctx, i.store, conn, kind); err != nil {
				log.Warnf("Failed to process %s fields: %v", kind, err)
			}
		}
	}
	return result
}

func (i *Inspector) observeError(f model.Feature, err error) {
	var ferr *feature.Error
	if errors.As(err, &ferr) {
		i.metrics.ObserveFeatureError(f, string(ferr.Kind))
		return
	}
	i.metrics.ObserveFeatureError(f, "store_error")
}
