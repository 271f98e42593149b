package booking

import "github.com/labsphere/environment-reservation/internal/model"

// CanTransition reports whether moving a reservation from one status to
// another is ever legal, regardless of who asks.  The rules:
//
//	PENDING   -> CONFIRMED | CANCELLED
//	CONFIRMED -> CANCELLED | COMPLETED
//	CANCELLED -> nothing (in particular never CONFIRMED)
//	COMPLETED -> nothing
//
// Administrators may additionally jump PENDING -> COMPLETED; the table
// only enumerates what can never happen, so any move out of a
// non-terminal status other than a self-transition is allowed here and
// gated per-actor by CanSetStatus.  Terminal statuses absorb: archived
// reservations have left the active set and cannot come back.
func CanTransition(from, to model.Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return false
	}
	if from == model.StatusCancelled && to == model.StatusConfirmed {
		return false
	}
	if from.Terminal() {
		return false
	}
	return true
}
