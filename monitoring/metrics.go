package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_operations_total",
			Help: "Reservation lifecycle operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	insufficientInventory = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insufficient_inventory_total",
			Help: "Reservation attempts rejected because inventory ran out",
		},
	)

	ticketsSold = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_sold_total",
			Help: "Total ticket units sold",
		},
	)

	orderOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_total",
			Help: "Orders by final payment status",
		},
		[]string{"status"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reservation_sweep_duration_seconds",
			Help:    "Duration of expiry sweep runs",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	sweepExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_sweep_expired_total",
			Help: "Reservations expired by the sweep loop",
		},
	)

	invariantViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_invariant_violations_total",
			Help: "Ledger operations that detected inconsistent counts",
		},
	)
)

func TrackReservation(operation, outcome string) {
	reservationOps.WithLabelValues(operation, outcome).Inc()
}

func TrackInsufficientInventory() {
	insufficientInventory.Inc()
}

func TrackTicketsSold(quantity int) {
	ticketsSold.Add(float64(quantity))
}

func TrackOrder(status string) {
	orderOps.WithLabelValues(status).Inc()
}

func TrackSweep(duration time.Duration, expired int) {
	sweepDuration.Observe(duration.Seconds())
	sweepExpired.Add(float64(expired))
}

func TrackInvariantViolation() {
	invariantViolations.Inc()
}
