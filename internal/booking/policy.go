package booking

import "github.com/labsphere/environment-reservation/internal/model"

// Authorization predicates for reservation operations.  These are pure
// functions over the actor and the target so they can be unit tested
// without a database; the service consults them before touching any
// row.  Handlers never re-implement these checks inline.

// CanCreateFor reports whether actor may create a reservation held by
// holderID.  Members only book for themselves; administrators may book
// on behalf of any user.
func CanCreateFor(actor *model.User, holderID string) bool {
	return actor.IsAdmin() || actor.ID == holderID
}

// CanModify reports whether actor may change the non-status fields of r.
// The holder may edit only while the reservation is still pending;
// administrators may edit at any time.
func CanModify(actor *model.User, r *model.Reservation) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID == r.UserID && r.Status == model.StatusPending
}

// CanSetStatus reports whether actor may request moving r to the given
// status.  Administrators may request any transition (the table in
// CanTransition still applies); members may only cancel their own
// pending reservation.
func CanSetStatus(actor *model.User, r *model.Reservation, to model.Status) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID == r.UserID &&
		r.Status == model.StatusPending &&
		to == model.StatusCancelled
}
