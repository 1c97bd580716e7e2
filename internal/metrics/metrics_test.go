package metrics

import (
	"Go2AdversaryLab/internal/model"
	"Go2AdversaryLab/internal/store"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()
	m.ObserveConnection(model.Allowed, true)
	m.ObserveConnection(model.Allowed, true)
	m.ObserveConnection(model.Blocked, false)
	m.ObserveFeatureError(model.FeatureLength, "no_in_packet")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionsAnalyzed.WithLabelValues("allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsFailed.WithLabelValues("blocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeatureErrors.WithLabelValues("length", "no_in_packet")))

	acc := 75.0
	m.ObserveRecommendation(model.Recommendation{
		Dimension: model.Dimension{Direction: model.Outgoing, Feature: model.FeatureLength},
		Class:     model.Blocked,
		Accuracy:  model.Accuracy{Live: &acc},
	})
	assert.Equal(t, 75.0, testutil.ToFloat64(m.Accuracy.WithLabelValues("outgoing_length", "blocked", "live")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveConnection(model.Allowed, true)
		m.ObserveFeatureError(model.FeatureTiming, "no_out_packet")
		m.ObserveDimension("training", "ok")
		m.ObserveRecommendation(model.Recommendation{})
	})
}

func TestStatsCollector(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(4)
	_, err := s.IncrField(ctx, model.StatsKey, model.SeenField(model.Allowed), 3)
	require.NoError(t, err)
	_, err = s.IncrField(ctx, model.StatsKey, model.AnalyzedField(model.Allowed), 2)
	require.NoError(t, err)

	m := New()
	m.Registry().MustRegister(NewStatsCollector(s, logrus.New()))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `adversarylab_connections_seen{class="allowed"} 3`))
	assert.True(t, strings.Contains(string(body), `adversarylab_connections_analyzed{class="allowed"} 2`))
	assert.True(t, strings.Contains(string(body), `adversarylab_connections_seen{class="blocked"} 0`))
}
