package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/labsphere/environment-reservation/internal/booking"
	"github.com/labsphere/environment-reservation/internal/model"
	"github.com/labsphere/environment-reservation/internal/queue"
	"github.com/labsphere/environment-reservation/internal/repository"
	queue_publisher "github.com/labsphere/environment-reservation/internal/service"
)

// ReservationHandler exposes the reservation lifecycle endpoints.  The
// permission and transition rules live in the booking service; this
// layer only translates HTTP to service calls and sentinel errors back
// to status codes.
type ReservationHandler struct {
	Svc          *booking.Service
	Users        *repository.UserRepo
	Reservations *repository.ReservationRepo
}

func NewReservationHandler(svc *booking.Service, u *repository.UserRepo, r *repository.ReservationRepo) *ReservationHandler {
	return &ReservationHandler{Svc: svc, Users: u, Reservations: r}
}

// ----- DTOs -----

type createReservationReq struct {
	EnvironmentID uint64    `json:"environment_id"`
	UserID        string    `json:"user_id"` // optional, admin books on behalf
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Reason        string    `json:"reason"`
}

type updateReservationReq struct {
	EnvironmentID *uint64    `json:"environment_id"`
	StartTime     *time.Time `json:"start_time"`
	EndTime       *time.Time `json:"end_time"`
	Reason        *string    `json:"reason"`
}

type updateStatusReq struct {
	Status string `json:"status"`
}

type reservationResp struct {
	ID            uint64    `json:"id"`
	EnvironmentID uint64    `json:"environment_id"`
	UserID        string    `json:"user_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	CreatedAt     time.Time `json:"created_at"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
}

func toReservationResp(r model.Reservation) reservationResp {
	return reservationResp{
		ID: r.ID, EnvironmentID: r.EnvironmentID, UserID: r.UserID,
		StartTime: r.StartTime, EndTime: r.EndTime, CreatedAt: r.CreatedAt,
		Status: string(r.Status), Reason: r.Reason,
	}
}

// serviceError maps booking sentinels to HTTP responses.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, booking.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrIntegrityViolation):
		// Details are server-side only; the log line in the service has them.
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// actor loads the authenticated user's full record.
func (h *ReservationHandler) actor(ctx context.Context, c echo.Context) (*model.User, error) {
	u, err := h.Users.GetByID(ctx, actorID(c))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create books an environment.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EnvironmentID == 0 || req.StartTime.IsZero() || req.EndTime.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "environment_id/start_time/end_time required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actor, err := h.actor(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}

	res, err := h.Svc.Create(ctx, actor, booking.CreateInput{
		EnvironmentID: req.EnvironmentID,
		HolderID:      req.UserID,
		Start:         req.StartTime,
		End:           req.EndTime,
		Reason:        req.Reason,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResp(*res))
}

// List returns reservations.  Members see only their own; admins see
// everything and may filter by user_id.
func (h *ReservationHandler) List(c echo.Context) error {
	skip, limit := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actor, err := h.actor(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}

	f := repository.ReservationFilter{Skip: skip, Limit: limit}
	if actor.IsAdmin() {
		f.UserID = c.QueryParam("user_id")
	} else {
		f.UserID = actor.ID
	}
	if v := c.QueryParam("environment_id"); v != "" {
		id, err := parseQueryID(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid environment_id"})
		}
		f.EnvironmentID = id
	}
	if v := c.QueryParam("status"); v != "" {
		st := model.Status(v)
		if !st.Valid() {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
		f.Status = st
	}
	var bad string
	f.StartFrom, bad = timeParam(c, "start_from", bad)
	f.StartTo, bad = timeParam(c, "start_to", bad)
	f.EndFrom, bad = timeParam(c, "end_from", bad)
	f.EndTo, bad = timeParam(c, "end_to", bad)
	if bad != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + bad})
	}

	list, err := h.Reservations.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]reservationResp, 0, len(list))
	for _, r := range list {
		out = append(out, toReservationResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out, "skip": skip, "limit": limit})
}

// Get returns one reservation.  Members may only read their own.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actor, err := h.actor(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}

	res, err := h.Reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !actor.IsAdmin() && res.UserID != actor.ID {
		// Report not-found rather than forbidden so ids are not probeable.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	}
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Update changes the schedulable fields of a reservation.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EnvironmentID == nil && req.StartTime == nil && req.EndTime == nil && req.Reason == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actor, err := h.actor(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}

	res, err := h.Svc.Update(ctx, actor, id, booking.UpdateInput{
		EnvironmentID: req.EnvironmentID,
		Start:         req.StartTime,
		End:           req.EndTime,
		Reason:        req.Reason,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(*res))
}

// UpdateStatus moves a reservation through the lifecycle.  When the
// change archives the reservation, a reservation.archived event is
// published after commit, best-effort.
func (h *ReservationHandler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	actor, err := h.actor(ctx, c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
	}

	res, hist, err := h.Svc.UpdateStatus(ctx, actor, id, model.Status(req.Status))
	if err != nil {
		return serviceError(c, err)
	}

	if hist != nil {
		ev := queue.ReservationArchivedEvent{
			ReservationID:   hist.ID,
			EnvironmentID:   hist.EnvironmentID,
			EnvironmentName: hist.EnvironmentName,
			UserID:          hist.UserID,
			UserName:        hist.UserName,
			StartTime:       hist.StartTime.UTC().Format(time.RFC3339),
			EndTime:         hist.EndTime.UTC().Format(time.RFC3339),
			Status:          string(hist.Status),
			Reason:          hist.Reason,
			ArchivedAt:      time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer pubCancel()
			if err := queue_publisher.PublishReservationArchived(pubCtx, ev); err != nil {
				log.Printf("reservation %d: archive event publish failed: %v", ev.ReservationID, err)
			}
		}()
		return c.JSON(http.StatusOK, echo.Map{
			"reservation": toReservationResp(*res),
			"archived":    true,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation": toReservationResp(*res),
		"archived":    false,
	})
}

// Availability answers whether an environment is free for an interval.
// The answer is advisory; Create re-checks under lock.
func (h *ReservationHandler) Availability(c echo.Context) error {
	envID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start"})
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end"})
	}
	if !end.After(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be after start"})
	}
	var exclude uint64
	if v := c.QueryParam("exclude"); v != "" {
		exclude, err = parseQueryID(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exclude"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	free, err := h.Svc.IsAvailable(ctx, envID, start, end, exclude)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"environment_id": envID,
		"start":          start.UTC(),
		"end":            end.UTC(),
		"available":      free,
	})
}

// timeParam parses an RFC3339 query param; the second return carries
// through the first offending param name.
func timeParam(c echo.Context, name, bad string) (*time.Time, string) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, bad
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		if bad == "" {
			bad = name
		}
		return nil, bad
	}
	return &t, bad
}
