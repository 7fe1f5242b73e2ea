package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zalepa/vaultstats/table"
)

type serverMetrics struct {
	requests       *prometheus.CounterVec
	sectionFailure *prometheus.CounterVec
	renderSeconds  prometheus.Histogram
}

func newServerMetrics(reg prometheus.Registerer, loader *table.Loader) *serverMetrics {
	f := promauto.With(reg)
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "vaultstats",
		Name:      "table_cache_hits_total",
		Help:      "Source table loads served from the cache.",
	}, func() float64 { return float64(loader.Stats().Hits) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "vaultstats",
		Name:      "table_cache_misses_total",
		Help:      "Source table loads that read the file.",
	}, func() float64 { return float64(loader.Stats().Misses) })
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "vaultstats",
		Name:      "table_cache_entries",
		Help:      "Source tables currently cached.",
	}, func() float64 { return float64(loader.Stats().Entries) })

	return &serverMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultstats",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		sectionFailure: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vaultstats",
			Name:      "section_failures_total",
			Help:      "Report sections that could not be built.",
		}, []string{"section"}),
		renderSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vaultstats",
			Name:      "report_render_seconds",
			Help:      "Time to build the full report.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
