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

	"github.com/labsphere/environment-reservation/internal/config"
	"github.com/labsphere/environment-reservation/internal/middleware"
	"github.com/labsphere/environment-reservation/internal/model"
	"github.com/labsphere/environment-reservation/internal/repository"
	"github.com/labsphere/environment-reservation/internal/utils"
)

// UserHandler exposes account administration and profile updates.
type UserHandler struct {
	Cfg          config.Config
	Users        *repository.UserRepo
	Reservations *repository.ReservationRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo, r *repository.ReservationRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u, Reservations: r}
}

type updateProfileReq struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// List returns users page by page.  Admin only.
func (h *UserHandler) List(c echo.Context) error {
	skip, limit := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, toUserPart(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out, "skip": skip, "limit": limit})
}

// Get returns a single user by id.  Admin only.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// Promote grants the ADMIN role.  Admin only.
func (h *UserHandler) Promote(c echo.Context) error {
	return h.setRole(c, model.RoleAdmin)
}

// Demote reverts a user to MEMBER.  Admins cannot demote themselves so
// the system always keeps at least the acting admin.
func (h *UserHandler) Demote(c echo.Context) error {
	if c.Param("id") == actorID(c) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot demote yourself"})
	}
	return h.setRole(c, model.RoleMember)
}

func (h *UserHandler) setRole(c echo.Context, role string) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetRole(ctx, c.Param("id"), role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "role": role})
}

// Deactivate disables an account without removing its data.
func (h *UserHandler) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

// Activate re-enables a previously disabled account.
func (h *UserHandler) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *UserHandler) setActive(c echo.Context, active bool) error {
	if !active && c.Param("id") == actorID(c) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot deactivate yourself"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetActive(ctx, c.Param("id"), active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id"), "is_active": active})
}

// Delete removes a user.  Refused while the user still holds
// reservations, active or archived references stay intact either way.
func (h *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if id == actorID(c) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete yourself"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	has, err := h.Reservations.ExistsForUser(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if has {
		return c.JSON(http.StatusConflict, echo.Map{"error": "user has reservations"})
	}

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateProfile lets the authenticated user change name, email or
// password.  Only provided fields are touched.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == nil && req.Email == nil && req.Password == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		req.Name = &trimmed
	}
	if req.Email != nil {
		lowered := strings.ToLower(strings.TrimSpace(*req.Email))
		if lowered == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email cannot be empty"})
		}
		req.Email = &lowered
	}

	var hashPtr *string
	if req.Password != nil {
		if len(*req.Password) < 8 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
		}
		hash, err := utils.HashPassword(*req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
		}
		hashPtr = &hash
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := actorID(c)
	if err := h.Users.UpdateProfile(ctx, id, req.Name, req.Email, hashPtr); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// actorID reads the authenticated user id set by the JWT middleware.
func actorID(c echo.Context) string {
	id, _ := c.Get(middleware.CtxUserID).(string)
	return id
}

// pagination parses skip/limit query params with bounds.
func pagination(c echo.Context) (int, int) {
	skip, _ := strconv.Atoi(c.QueryParam("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return skip, limit
}
