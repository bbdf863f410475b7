package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trackmarks"

const (
	OutcomeEnriched   = "enriched"
	OutcomeUnresolved = "unresolved"
	OutcomeReceived   = "received_dropped"
)

var (
	bookmarksResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bookmarks",
		Name:      "resolved_total",
		Help:      "Bookmarks passed through the resolver, by outcome.",
	}, []string{"outcome"})

	bookmarksRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "bookmarks",
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of a full load-filter-resolve-paginate run.",
		Buckets:   prometheus.DefBuckets,
	})

	trackingsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claims",
		Name:      "trackings_claimed_total",
		Help:      "Tracking records whose owner was overwritten by fallback resolution.",
	})

	claimEventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claims",
		Name:      "publish_errors_total",
		Help:      "Claim events that could not be published to Kafka.",
	})
)

func ObserveOutcome(outcome string) {
	bookmarksResolved.WithLabelValues(outcome).Inc()
}

func ObservePipeline(seconds float64) {
	bookmarksRequestDuration.Observe(seconds)
}

func IncClaimed() {
	trackingsClaimed.Inc()
}

func IncClaimPublishFailed() {
	claimEventsFailed.Inc()
}
