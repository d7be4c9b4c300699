// Package telemetry holds the Prometheus metrics exported by the relay.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

var (
	RelayCopies = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyglot_relay_copies_total",
		Help: "Relay fan-out branches by outcome",
	}, []string{"result"})

	RelayEdits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyglot_relay_edits_total",
		Help: "Copy edits by outcome",
	}, []string{"result"})

	RecordsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polyglot_link_records_total",
		Help: "Message link records written",
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polyglot_cache_lookups_total",
		Help: "Cache lookups by cache name and hit/miss",
	}, []string{"cache", "result"})

	TranslateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polyglot_translate_duration_seconds",
		Help:    "Latency of translation provider calls",
		Buckets: prometheus.DefBuckets,
	})
)
