// Package metrics exposes Prometheus counters for the reservation
// lifecycle.  The collectors register on the default registry and are
// served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsCreated counts reservations successfully inserted in
	// PENDING status.
	ReservationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Reservations successfully created.",
	})

	// ReservationConflicts counts create/update attempts rejected
	// because the requested interval overlapped a blocking reservation.
	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_conflicts_total",
		Help: "Reservation writes rejected due to interval overlap.",
	})

	// ReservationsArchived counts reservations moved to history on
	// reaching a terminal status.
	ReservationsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_archived_total",
		Help: "Reservations archived to history.",
	})
)
