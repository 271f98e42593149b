package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/labsphere/environment-reservation/internal/model"
)

var (
	member = &model.User{ID: "u-member", Role: model.RoleMember}
	admin  = &model.User{ID: "u-admin", Role: model.RoleAdmin}
)

func TestCanCreateFor(t *testing.T) {
	assert.True(t, CanCreateFor(member, member.ID))
	assert.False(t, CanCreateFor(member, "someone-else"))
	assert.True(t, CanCreateFor(admin, admin.ID))
	assert.True(t, CanCreateFor(admin, "someone-else"))
}

func TestCanModify(t *testing.T) {
	ownPending := &model.Reservation{UserID: member.ID, Status: model.StatusPending}
	ownConfirmed := &model.Reservation{UserID: member.ID, Status: model.StatusConfirmed}
	othersPending := &model.Reservation{UserID: "someone-else", Status: model.StatusPending}

	assert.True(t, CanModify(member, ownPending))
	assert.False(t, CanModify(member, ownConfirmed), "holder edits stop once confirmed")
	assert.False(t, CanModify(member, othersPending))

	assert.True(t, CanModify(admin, ownConfirmed))
	assert.True(t, CanModify(admin, othersPending))
}

func TestCanSetStatus(t *testing.T) {
	ownPending := &model.Reservation{UserID: member.ID, Status: model.StatusPending}
	ownConfirmed := &model.Reservation{UserID: member.ID, Status: model.StatusConfirmed}
	othersPending := &model.Reservation{UserID: "someone-else", Status: model.StatusPending}

	// Members may only cancel their own pending reservation.
	assert.True(t, CanSetStatus(member, ownPending, model.StatusCancelled))
	assert.False(t, CanSetStatus(member, ownPending, model.StatusConfirmed))
	assert.False(t, CanSetStatus(member, ownConfirmed, model.StatusCancelled))
	assert.False(t, CanSetStatus(member, othersPending, model.StatusCancelled))

	// Admins may request anything; CanTransition still gates legality.
	assert.True(t, CanSetStatus(admin, othersPending, model.StatusConfirmed))
	assert.True(t, CanSetStatus(admin, ownConfirmed, model.StatusCompleted))
}
