package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/labsphere/environment-reservation/internal/model"
	"github.com/labsphere/environment-reservation/internal/repository"
)

// EnvironmentHandler exposes environment CRUD.  Reads are open to any
// authenticated user; writes are admin only (enforced in the router).
type EnvironmentHandler struct {
	Environments *repository.EnvironmentRepo
	Reservations *repository.ReservationRepo
}

func NewEnvironmentHandler(e *repository.EnvironmentRepo, r *repository.ReservationRepo) *EnvironmentHandler {
	return &EnvironmentHandler{Environments: e, Reservations: r}
}

type environmentReq struct {
	Name         string `json:"name"`
	Capacity     uint32 `json:"capacity"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	HasScreen    bool   `json:"has_screen"`
	HasProjector bool   `json:"has_projector"`
	HasAirCon    bool   `json:"has_air_con"`
	IsActive     *bool  `json:"is_active"`
}

type environmentResp struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Capacity     uint32 `json:"capacity"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	HasScreen    bool   `json:"has_screen"`
	HasProjector bool   `json:"has_projector"`
	HasAirCon    bool   `json:"has_air_con"`
	IsActive     bool   `json:"is_active"`
}

func toEnvironmentResp(e model.Environment) environmentResp {
	return environmentResp{
		ID: e.ID, Name: e.Name, Capacity: e.Capacity, Description: e.Description,
		Category: e.Category, HasScreen: e.HasScreen, HasProjector: e.HasProjector,
		HasAirCon: e.HasAirCon, IsActive: e.IsActive,
	}
}

func (r *environmentReq) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.ToUpper(strings.TrimSpace(r.Category))
	if r.Name == "" {
		return "name required"
	}
	if r.Capacity == 0 {
		return "capacity must be positive"
	}
	if !model.ValidCategory(r.Category) {
		return "unknown category"
	}
	return ""
}

// Create registers a new environment.  Admin only.
func (h *EnvironmentHandler) Create(c echo.Context) error {
	var req environmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	env := model.Environment{
		Name: req.Name, Capacity: req.Capacity, Description: req.Description,
		Category: req.Category, HasScreen: req.HasScreen,
		HasProjector: req.HasProjector, HasAirCon: req.HasAirCon, IsActive: active,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Environments.Create(ctx, &env); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, toEnvironmentResp(env))
}

// Get returns one environment.
func (h *EnvironmentHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	env, err := h.Environments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toEnvironmentResp(env))
}

// List returns environments matching the query filters.
func (h *EnvironmentHandler) List(c echo.Context) error {
	skip, limit := pagination(c)
	f := repository.EnvironmentFilter{Skip: skip, Limit: limit}

	if cat := strings.ToUpper(strings.TrimSpace(c.QueryParam("category"))); cat != "" {
		if !model.ValidCategory(cat) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown category"})
		}
		f.Category = cat
	}
	if v := c.QueryParam("min_capacity"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid min_capacity"})
		}
		f.MinCapacity = uint32(n)
	}
	f.Active = boolParam(c, "active")
	f.HasScreen = boolParam(c, "has_screen")
	f.HasProjector = boolParam(c, "has_projector")
	f.HasAirCon = boolParam(c, "has_air_con")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	envs, err := h.Environments.List(ctx, f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]environmentResp, 0, len(envs))
	for _, e := range envs {
		out = append(out, toEnvironmentResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"environments": out, "skip": skip, "limit": limit})
}

// Update replaces the mutable fields of an environment.  Admin only.
func (h *EnvironmentHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req environmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	env, err := h.Environments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	env.Name = req.Name
	env.Capacity = req.Capacity
	env.Description = req.Description
	env.Category = req.Category
	env.HasScreen = req.HasScreen
	env.HasProjector = req.HasProjector
	env.HasAirCon = req.HasAirCon
	if req.IsActive != nil {
		env.IsActive = *req.IsActive
	}

	if err := h.Environments.Update(ctx, &env); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toEnvironmentResp(env))
}

// Deactivate marks the environment unavailable for new reservations
// without touching existing ones.  Admin only.
func (h *EnvironmentHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

// Activate re-enables a deactivated environment.  Admin only.
func (h *EnvironmentHandler) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *EnvironmentHandler) setActive(c echo.Context, active bool) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Environments.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "is_active": active})
}

// Delete removes an environment.  Refused while reservations still
// reference it; deactivate instead to retire an environment in use.
func (h *EnvironmentHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	has, err := h.Reservations.ExistsForEnvironment(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if has {
		return c.JSON(http.StatusConflict, echo.Map{"error": "environment has reservations"})
	}

	if err := h.Environments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "environment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// parseID reads a positive uint64 path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

func parseQueryID(v string) (uint64, error) {
	return strconv.ParseUint(v, 10, 64)
}

// boolParam returns nil when the query param is absent, so "no filter"
// and "filter for false" stay distinct.
func boolParam(c echo.Context, name string) *bool {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	b := v == "true" || v == "1"
	return &b
}
