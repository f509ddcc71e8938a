// Package metrics instruments pipeline runs with prometheus collectors.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	Namespace = "shardstat"

	MetricStageSeconds = "stage_duration_seconds"
	MetricRowsTotal    = "rows_total"
	MetricShardsLoaded = "shards_loaded_total"
	MetricRunsTotal    = "runs_total"
)

// Metrics holds the collectors of one registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	StageSeconds *prometheus.HistogramVec
	Rows         *prometheus.CounterVec
	ShardsLoaded prometheus.Counter
	Runs         *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		gatherer: reg,
		StageSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      MetricStageSeconds,
				Help:      "Wall time spent in each pipeline stage.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"mode", "stage"},
		),
		Rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      MetricRowsTotal,
				Help:      "Rows produced by each pipeline stage.",
			},
			[]string{"stage"},
		),
		ShardsLoaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      MetricShardsLoaded,
				Help:      "Fact shards decoded.",
			},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      MetricRunsTotal,
				Help:      "Pipeline runs by mode and outcome.",
			},
			[]string{"mode", "status"},
		),
	}
	reg.MustRegister(m.StageSeconds, m.Rows, m.ShardsLoaded, m.Runs)
	return m
}

// Stage starts timing a stage and returns the func that stops the clock.
func (m *Metrics) Stage(mode, stage string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.StageSeconds.WithLabelValues(mode, stage).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) AddRows(stage string, n int) {
	if m == nil {
		return
	}
	m.Rows.WithLabelValues(stage).Add(float64(n))
}

func (m *Metrics) AddShards(n int) {
	if m == nil {
		return
	}
	m.ShardsLoaded.Add(float64(n))
}

// RunDone counts a finished run as ok or failed.
func (m *Metrics) RunDone(mode string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Runs.WithLabelValues(mode, status).Inc()
}

// WriteText dumps every collected metric in the prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.gatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
