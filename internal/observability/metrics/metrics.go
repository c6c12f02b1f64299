package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_engine",
			Name:      "requests_created_total",
			Help:      "Count of booking requests created by outcome.",
		},
		[]string{"outcome"},
	)

	commitConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_engine",
			Name:      "commit_conflicts_total",
			Help:      "Count of commits rejected because the slot was taken.",
		},
	)

	slotsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_engine",
			Name:      "slots_generated_total",
			Help:      "Count of candidate slots produced for availability queries.",
		},
	)

	notifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "booking_engine",
			Name:      "notification_failures_total",
			Help:      "Count of confirmation notifications that were abandoned.",
		},
	)

	statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "booking_engine",
			Name:      "status_transitions_total",
			Help:      "Count of booking request status transitions.",
		},
		[]string{"to"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, commitConflicts, slotsGenerated, notifyFailures, statusTransitions)
	})
}

func IncBookingCreated(outcome string) {
	bookingCreated.WithLabelValues(outcome).Inc()
}

func IncCommitConflict() {
	commitConflicts.Inc()
}

func AddSlotsGenerated(n int) {
	slotsGenerated.Add(float64(n))
}

func IncNotifyFailure() {
	notifyFailures.Inc()
}

func IncStatusTransition(to string) {
	statusTransitions.WithLabelValues(to).Inc()
}
