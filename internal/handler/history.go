package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/labsphere/environment-reservation/internal/middleware"
	"github.com/labsphere/environment-reservation/internal/model"
	"github.com/labsphere/environment-reservation/internal/repository"
)

// HistoryHandler exposes the archived reservation listings.
type HistoryHandler struct {
	History *repository.HistoryRepo
}

func NewHistoryHandler(h *repository.HistoryRepo) *HistoryHandler {
	return &HistoryHandler{History: h}
}

type historyResp struct {
	ID              uint64    `json:"id"`
	EnvironmentID   uint64    `json:"environment_id"`
	EnvironmentName string    `json:"environment_name"`
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	CreatedAt       time.Time `json:"created_at"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
}

func toHistoryResp(h model.ReservationHistory) historyResp {
	return historyResp{
		ID: h.ID, EnvironmentID: h.EnvironmentID, EnvironmentName: h.EnvironmentName,
		UserID: h.UserID, UserName: h.UserName, StartTime: h.StartTime, EndTime: h.EndTime,
		CreatedAt: h.CreatedAt, Status: string(h.Status), Reason: h.Reason,
	}
}

// List returns archived reservations with filters.  Admin only; the id
// in the path of /history/me routes through ListMine instead.
func (h *HistoryHandler) List(c echo.Context) error {
	f, errMsg := h.filterFromQuery(c)
	if errMsg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errMsg})
	}
	f.UserID = c.QueryParam("user_id")
	return h.list(c, f)
}

// ListMine returns the caller's own archived reservations.
func (h *HistoryHandler) ListMine(c echo.Context) error {
	f, errMsg := h.filterFromQuery(c)
	if errMsg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errMsg})
	}
	f.UserID, _ = c.Get(middleware.CtxUserID).(string)
	return h.list(c, f)
}

// Get returns one archived record.  Admin only.
func (h *HistoryHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.History.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "history record not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toHistoryResp(rec))
}

func (h *HistoryHandler) filterFromQuery(c echo.Context) (repository.HistoryFilter, string) {
	skip, limit := pagination(c)
	f := repository.HistoryFilter{Skip: skip, Limit: limit}

	if v := c.QueryParam("environment_id"); v != "" {
		id, err := parseQueryID(v)
		if err != nil {
			return f, "invalid environment_id"
		}
		f.EnvironmentID = id
	}
	if v := c.QueryParam("status"); v != "" {
		st := model.Status(v)
		if !st.Valid() || !st.Terminal() {
			return f, "unknown status"
		}
		f.Status = st
	}
	f.Name = strings.TrimSpace(c.QueryParam("name"))

	var bad string
	f.StartFrom, bad = timeParam(c, "start_from", bad)
	f.StartTo, bad = timeParam(c, "start_to", bad)
	f.EndFrom, bad = timeParam(c, "end_from", bad)
	f.EndTo, bad = timeParam(c, "end_to", bad)
	if bad != "" {
		return f, "invalid " + bad
	}
	return f, ""
}

func (h *HistoryHandler) list(c echo.Context, f repository.HistoryFilter) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	records, err := h.History.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]historyResp, 0, len(records))
	for _, rec := range records {
		out = append(out, toHistoryResp(rec))
	}
	return c.JSON(http.StatusOK, echo.Map{"history": out, "skip": f.Skip, "limit": f.Limit})
}
