package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	postbacksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postbacks_received_total",
		Help: "Total postbacks normalized and stored, by partner scheme",
	}, []string{"partner"})

	postbacksDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postbacks_duplicate_total",
		Help: "Total postbacks suppressed by the dedup key, by partner scheme",
	}, []string{"partner"})

	postbacksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postbacks_rejected_total",
		Help: "Total postbacks rejected before persistence, by reason",
	}, []string{"reason"})

	insertFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postback_insert_failures_total",
		Help: "Total postback insert attempts that failed at the storage layer",
	})

	outboundClicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbound_clicks_total",
		Help: "Total outbound affiliate redirects served, by offer",
	}, []string{"offer"})
)

func PostbackReceived(partner string) {
	postbacksReceived.WithLabelValues(partner).Inc()
}

func PostbackDuplicate(partner string) {
	postbacksDuplicate.WithLabelValues(partner).Inc()
}

func PostbackRejected(reason string) {
	postbacksRejected.WithLabelValues(reason).Inc()
}

func InsertFailure() {
	insertFailures.Inc()
}

func OutboundClick(offerID string) {
	outboundClicks.WithLabelValues(offerID).Inc()
}
