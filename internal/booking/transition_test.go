package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/labsphere/environment-reservation/internal/model"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to model.Status
		want     bool
	}{
		{model.StatusPending, model.StatusConfirmed, true},
		{model.StatusPending, model.StatusCancelled, true},
		{model.StatusPending, model.StatusCompleted, true},
		{model.StatusPending, model.StatusPending, false},

		{model.StatusConfirmed, model.StatusPending, true},
		{model.StatusConfirmed, model.StatusCancelled, true},
		{model.StatusConfirmed, model.StatusCompleted, true},
		{model.StatusConfirmed, model.StatusConfirmed, false},

		// Terminal statuses absorb.
		{model.StatusCancelled, model.StatusPending, false},
		{model.StatusCancelled, model.StatusConfirmed, false},
		{model.StatusCancelled, model.StatusCompleted, false},
		{model.StatusCancelled, model.StatusCancelled, false},
		{model.StatusCompleted, model.StatusPending, false},
		{model.StatusCompleted, model.StatusConfirmed, false},
		{model.StatusCompleted, model.StatusCancelled, false},
		{model.StatusCompleted, model.StatusCompleted, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	assert.False(t, CanTransition(model.Status("UNKNOWN"), model.StatusConfirmed))
	assert.False(t, CanTransition(model.StatusPending, model.Status("")))
	assert.False(t, CanTransition(model.Status(""), model.Status("")))
}
