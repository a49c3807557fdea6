package mesh

import "github.com/prometheus/client_golang/prometheus"

const namespace = "onionmesh"

var (
	relayedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Number of layers peeled and forwarded successfully",
		},
	)
	relayFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "failures_total",
			Help:      "Number of messages a relay failed to process, by reason",
		},
		[]string{"reason"},
	)
	userMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "user",
			Name:      "messages_total",
			Help:      "Number of messages sent or received by user endpoints",
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(relayedMessages)
	prometheus.MustRegister(relayFailures)
	prometheus.MustRegister(userMessages)
}
