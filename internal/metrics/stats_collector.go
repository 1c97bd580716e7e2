package metrics

import (
	"Go2AdversaryLab/internal/model"
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// StatsCollector exports the seen/analyzed counters of the store at scrape time.
type StatsCollector struct {
	store  model.FieldStore
	logger *logrus.Logger

	seen     *prometheus.Desc
	analyzed *prometheus.Desc
}

func NewStatsCollector(store model.FieldStore, logger *logrus.Logger) *StatsCollector {
	return &StatsCollector{
		store:    store,
		logger:   logger,
		seen:     prometheus.NewDesc("adversarylab_connections_seen", "Connections handed to the lab", []string{"class"}, nil),
		analyzed: prometheus.NewDesc("adversarylab_connections_analyzed", "Connections analyzed in the current drain", []string{"class"}, nil),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.seen
	ch <- c.analyzed
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	fields, err := c.store.Fields(ctx, model.StatsKey)
	if err != nil {
		c.logger.Warnf("Failed to read stats for metrics: %v", err)
		return
	}
	for _, class := range model.Classes {
		seen, _ := parseCounter(fields[model.SeenField(class)])
		analyzed, _ := parseCounter(fields[model.AnalyzedField(class)])
		ch <- prometheus.MustNewConstMetric(c.seen, prometheus.GaugeValue, seen, string(class))
		ch <- prometheus.MustNewConstMetric(c.analyzed, prometheus.GaugeValue, analyzed, string(class))
	}
}
