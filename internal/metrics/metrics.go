package metrics

import (
	"Go2AdversaryLab/internal/model"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the lab's collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsAnalyzed *prometheus.CounterVec
	ConnectionsFailed   *prometheus.CounterVec
	FeatureErrors       *prometheus.CounterVec
	DimensionsScored    *prometheus.CounterVec
	Accuracy            *prometheus.GaugeVec
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConnectionsAnalyzed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adversarylab_connections_analyzed_total",
				Help: "Connections whose every feature was counted",
			},
			[]string{"class"},
		),
		ConnectionsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adversarylab_connections_failed_total",
				Help: "Connections with at least one failed feature",
			},
			[]string{"class"},
		),
		FeatureErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adversarylab_feature_errors_total",
				Help: "Feature extraction errors by feature and kind",
			},
			[]string{"feature", "kind"},
		),
		DimensionsScored: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adversarylab_dimensions_scored_total",
				Help: "Dimensions scored by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		Accuracy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "adversarylab_accuracy_percent",
				Help: "Last published accuracy by dimension, class and kind",
			},
			[]string{"dimension", "class", "kind"},
		),
	}
}

// Registry returns the registry so extra collectors can be attached.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveConnection(class model.Class, analyzed bool) {
	if m == nil {
		return
	}
	if analyzed {
		m.ConnectionsAnalyzed.WithLabelValues(string(class)).Inc()
	} else {
		m.ConnectionsFailed.WithLabelValues(string(class)).Inc()
	}
}

func (m *Metrics) ObserveFeatureError(feature model.Feature, kind string) {
	if m == nil {
		return
	}
	m.FeatureErrors.WithLabelValues(string(feature), kind).Inc()
}

func (m *Metrics) ObserveDimension(mode, outcome string) {
	if m == nil {
		return
	}
	m.DimensionsScored.WithLabelValues(mode, outcome).Inc()
}

// ObserveRecommendation sets the accuracy gauges of every reported kind.
func (m *Metrics) ObserveRecommendation(r model.Recommendation) {
	if m == nil {
		return
	}
	set := func(kind string, v *float64) {
		if v != nil {
			m.Accuracy.WithLabelValues(r.Dimension.Name(), string(r.Class), kind).Set(*v)
		}
	}
	set("training", r.Accuracy.Training)
	set("validation", r.Accuracy.Validation)
	set("evaluation", r.Accuracy.Evaluation)
	set("live", r.Accuracy.Live)
}

// parseCounter reads a counter stored as decimal text.
func parseCounter(raw []byte) (float64, bool) {
	v, err := strconv.ParseFloat(string(raw), 64)
	return v, err == nil
}
