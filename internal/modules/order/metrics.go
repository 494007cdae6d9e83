// README: Prometheus counters for status transitions.
package order

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridetrack_status_transitions_total",
			Help: "Applied order status transitions by target status",
		},
		[]string{"to"},
	)

	illegalTransitionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ridetrack_illegal_transitions_total",
			Help: "Out-of-graph status transitions that were ignored",
		},
	)
)
