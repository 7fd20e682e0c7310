package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	requestsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "travelwithstudents",
			Name:      "booking_requests_created_total",
			Help:      "Booking requests created.",
		},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelwithstudents",
			Name:      "settlements_total",
			Help:      "Escrow settlements by result.",
		},
		[]string{"result"},
	)

	proofVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelwithstudents",
			Name:      "proof_verifications_total",
			Help:      "Meeting proof verification attempts by result.",
		},
		[]string{"result"},
	)

	sweepTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "travelwithstudents",
			Name:      "sweep_transitions_total",
			Help:      "Expiry sweep state transitions by kind.",
		},
		[]string{"transition"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(requestsCreated, settlements, proofVerifications, sweepTransitions)
	})
}

func IncRequestCreated() {
	requestsCreated.Inc()
}

func IncSettlement(result string) {
	settlements.WithLabelValues(result).Inc()
}

func IncProofVerification(result string) {
	proofVerifications.WithLabelValues(result).Inc()
}

func AddSweepTransitions(transition string, n int64) {
	if n > 0 {
		sweepTransitions.WithLabelValues(transition).Add(float64(n))
	}
}
