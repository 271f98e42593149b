package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/labsphere/environment-reservation/internal/metrics"
	"github.com/labsphere/environment-reservation/internal/model"
	"github.com/labsphere/environment-reservation/internal/repository"
)

// Service owns the reservation lifecycle.  Every mutating operation
// runs inside a single transaction: the availability check and the
// write it guards execute under a FOR UPDATE lock on the environment
// row, and a status change that reaches a terminal state carries its
// archival in the same transaction.  A plain check-then-write without
// the lock would let two concurrent requests both observe "available"
// and both commit.
type Service struct {
	db           *sql.DB
	users        *repository.UserRepo
	environments *repository.EnvironmentRepo
	reservations *repository.ReservationRepo
	history      *repository.HistoryRepo
}

// NewService constructs a Service.  All dependencies must be non-nil.
func NewService(db *sql.DB, users *repository.UserRepo, environments *repository.EnvironmentRepo, reservations *repository.ReservationRepo, history *repository.HistoryRepo) *Service {
	if db == nil || users == nil || environments == nil || reservations == nil || history == nil {
		panic("nil dependency passed to booking.NewService")
	}
	return &Service{
		db:           db,
		users:        users,
		environments: environments,
		reservations: reservations,
		history:      history,
	}
}

// IsAvailable reports whether the environment is free for the half-open
// interval [start, end).  A reservation being edited passes its own id
// as excludeID so it does not conflict with itself; zero means no
// exclusion.  An inverted interval is reported as not available rather
// than as an error; callers that build requests should validate the
// interval and fail with ErrInvalidInput instead.  This is a plain
// read: only the mutating operations below give a race-free answer.
func (s *Service) IsAvailable(ctx context.Context, environmentID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	if !ValidInterval(start, end) {
		return false, nil
	}
	busy, err := s.reservations.HasOverlap(ctx, environmentID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return !busy, nil
}

// CreateInput carries the fields of a reservation request.  HolderID
// may be empty, in which case the actor books for themselves.
type CreateInput struct {
	EnvironmentID uint64
	HolderID      string
	Start, End    time.Time
	Reason        string
}

// Create books an environment for [Start, End) in PENDING status.
// Members may only book for themselves; administrators may name any
// existing user as holder.  The availability check and the insert
// commit atomically or not at all.
func (s *Service) Create(ctx context.Context, actor *model.User, in CreateInput) (*model.Reservation, error) {
	if !ValidInterval(in.Start, in.End) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	if len(in.Reason) > model.MaxReasonLen {
		return nil, fmt.Errorf("%w: reason exceeds %d characters", ErrInvalidInput, model.MaxReasonLen)
	}
	holderID := in.HolderID
	if holderID == "" {
		holderID = actor.ID
	}
	if !CanCreateFor(actor, holderID) {
		return nil, fmt.Errorf("%w: only administrators may book for other users", ErrForbidden)
	}
	if holderID != actor.ID {
		if _, err := s.users.GetByID(ctx, holderID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: user %s", ErrNotFound, holderID)
			}
			return nil, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.environments.LockTx(ctx, tx, in.EnvironmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: environment %d", ErrNotFound, in.EnvironmentID)
		}
		return nil, err
	}
	busy, err := s.reservations.HasOverlapTx(ctx, tx, in.EnvironmentID, in.Start, in.End, 0)
	if err != nil {
		return nil, err
	}
	if busy {
		metrics.ReservationConflicts.Inc()
		return nil, ErrConflict
	}
	res := &model.Reservation{
		EnvironmentID: in.EnvironmentID,
		UserID:        holderID,
		StartTime:     in.Start.UTC(),
		EndTime:       in.End.UTC(),
		Status:        model.StatusPending,
		Reason:        in.Reason,
	}
	if err := s.reservations.CreateTx(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	metrics.ReservationsCreated.Inc()
	return res, nil
}

// UpdateInput carries optional replacement values for the non-status
// fields of a reservation.  Nil leaves a field unchanged.  Status is
// not here on purpose: it only moves through UpdateStatus.
type UpdateInput struct {
	EnvironmentID *uint64
	Start         *time.Time
	End           *time.Time
	Reason        *string
}

// Update changes the schedulable fields of a reservation.  The holder
// may edit while it is still pending; administrators may edit at any
// time.  When the environment or interval changes, availability is
// re-checked against the effective new values, excluding the
// reservation itself; on conflict nothing is written.
func (s *Service) Update(ctx context.Context, actor *model.User, id uint64, in UpdateInput) (*model.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := s.reservations.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
		}
		return nil, err
	}
	if !CanModify(actor, &res) {
		return nil, fmt.Errorf("%w: you may only edit your own pending reservations", ErrForbidden)
	}

	// Effective values: requested where present, current otherwise.
	envID := res.EnvironmentID
	if in.EnvironmentID != nil {
		envID = *in.EnvironmentID
	}
	start := res.StartTime
	if in.Start != nil {
		start = in.Start.UTC()
	}
	end := res.EndTime
	if in.End != nil {
		end = in.End.UTC()
	}
	reason := res.Reason
	if in.Reason != nil {
		reason = *in.Reason
	}
	if !ValidInterval(start, end) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	if len(reason) > model.MaxReasonLen {
		return nil, fmt.Errorf("%w: reason exceeds %d characters", ErrInvalidInput, model.MaxReasonLen)
	}

	rescheduled := envID != res.EnvironmentID || !start.Equal(res.StartTime) || !end.Equal(res.EndTime)
	if rescheduled {
		if _, err := s.environments.LockTx(ctx, tx, envID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: environment %d", ErrNotFound, envID)
			}
			return nil, err
		}
		busy, err := s.reservations.HasOverlapTx(ctx, tx, envID, start, end, res.ID)
		if err != nil {
			return nil, err
		}
		if busy {
			metrics.ReservationConflicts.Inc()
			return nil, ErrConflict
		}
	}

	res.EnvironmentID = envID
	res.StartTime = start
	res.EndTime = end
	res.Reason = reason
	if err := s.reservations.UpdateFieldsTx(ctx, tx, &res); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &res, nil
}

// UpdateStatus moves a reservation through the lifecycle state machine.
// When the new status is terminal, the reservation is archived to
// history and removed from the active set within the same transaction,
// so a status change and its archival are never observable separately.
// The returned history record is non-nil exactly when archival
// happened.
func (s *Service) UpdateStatus(ctx context.Context, actor *model.User, id uint64, to model.Status) (*model.Reservation, *model.ReservationHistory, error) {
	if !to.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, string(to))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := s.reservations.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: reservation %d", ErrNotFound, id)
		}
		return nil, nil, err
	}
	if !CanSetStatus(actor, &res, to) {
		return nil, nil, fmt.Errorf("%w: you are not allowed to set this reservation to %s", ErrForbidden, to)
	}
	if !CanTransition(res.Status, to) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, res.Status, to)
	}

	if err := s.reservations.UpdateStatusTx(ctx, tx, id, to); err != nil {
		return nil, nil, err
	}
	res.Status = to

	var hist *model.ReservationHistory
	if to.Terminal() {
		h, err := s.reservations.SnapshotTx(ctx, tx, id)
		if err != nil {
			return nil, nil, err
		}
		if err := s.history.InsertTx(ctx, tx, &h); err != nil {
			if errors.Is(err, repository.ErrDuplicateHistoryID) {
				log.Printf("booking: history collision archiving reservation %d as %s: %v", id, to, err)
				return nil, nil, fmt.Errorf("%w: reservation %d already archived", ErrIntegrityViolation, id)
			}
			return nil, nil, err
		}
		if err := s.reservations.DeleteTx(ctx, tx, id); err != nil {
			// The rollback also undoes the history insert, so no retry
			// can duplicate the archival.
			log.Printf("booking: failed to remove reservation %d after archiving: %v", id, err)
			return nil, nil, err
		}
		hist = &h
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	committed = true
	if hist != nil {
		metrics.ReservationsArchived.Inc()
	}
	return &res, hist, nil
}
