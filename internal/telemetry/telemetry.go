// Package telemetry exposes pipeline counters on a private prometheus registry.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	Runs            *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	OrdersProcessed prometheus.Counter
	OrdersSkipped   prometheus.Counter
	OrdersByChannel *prometheus.CounterVec
	Reclassified    *prometheus.CounterVec
	MatchRate       prometheus.Gauge
	GranularRows    prometheus.Gauge
	AdRowsDropped   prometheus.Counter
	Exports         *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attribution_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "attribution_run_duration_seconds",
			Help:    "Wall time of a pipeline run.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		OrdersProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attribution_orders_processed_total",
			Help: "Orders that produced an attribution result.",
		}),
		OrdersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attribution_orders_skipped_total",
			Help: "Orders dropped by per-order failures.",
		}),
		OrdersByChannel: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attribution_orders_by_channel_total",
			Help: "Attributed orders per final channel.",
		}, []string{"channel"}),
		Reclassified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attribution_direct_reclassified_total",
			Help: "Direct rows moved by the reclassification passes.",
		}, []string{"stage", "to"}),
		MatchRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attribution_match_rate_percent",
			Help: "Share of orders matched to a real ad in the last run.",
		}),
		GranularRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "attribution_granular_rows",
			Help: "Rows in the last granular reconciliation.",
		}),
		AdRowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attribution_ad_rows_dropped_total",
			Help: "Hourly ad rows discarded for lacking an hour window.",
		}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attribution_exports_total",
			Help: "Sink exports by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attribution_cache_lookups_total",
			Help: "Run cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Runs, m.RunDuration, m.OrdersProcessed, m.OrdersSkipped, m.OrdersByChannel,
		m.Reclassified, m.MatchRate, m.GranularRows, m.AdRowsDropped, m.Exports, m.CacheLookups,
	)
	return m
}

// ObserveRun records the outcome and duration of one run started at start.
func (m *Metrics) ObserveRun(start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
