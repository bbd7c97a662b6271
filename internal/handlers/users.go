package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ndatsenko/pulsemon/internal/httperr"
	"github.com/ndatsenko/pulsemon/internal/service"
	"github.com/ndatsenko/pulsemon/internal/store"
	"github.com/ndatsenko/pulsemon/internal/util"
)

// UserHandler is the admin surface: account management, role assignment and
// API-client minting.
type UserHandler struct {
	Users   *store.UserStore
	Clients *store.APIClientStore
	Service *service.AuthService
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	users, total, err := h.Users.List(c.Request().Context(), offset, limit)
	if err != nil {
		return httperr.Wrap(httperr.Internal, "listing users failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "users": users})
}

func (h *UserHandler) SetEnabled(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.New(httperr.Validation, "invalid request body")
	}

	if err := h.Users.SetEnabled(c.Request().Context(), userID, req.Enabled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httperr.New(httperr.NotFound, "user not found")
		}
		return httperr.Wrap(httperr.Internal, "updating user failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user updated"})
}

func (h *UserHandler) AssignRole(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil || req.Role == "" {
		return httperr.New(httperr.Validation, "role is required")
	}

	if err := h.Service.AssignRole(c.Request().Context(), userID, req.Role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httperr.New(httperr.NotFound, "role not found")
		}
		return httperr.Wrap(httperr.Internal, "assigning role failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role assigned"})
}

func (h *UserHandler) RemoveRole(c echo.Context) error {
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	roleName := c.Param("role")
	if roleName == "" {
		return httperr.New(httperr.Validation, "role is required")
	}

	if err := h.Service.RemoveRole(c.Request().Context(), userID, roleName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return httperr.New(httperr.NotFound, "role not found")
		}
		return httperr.Wrap(httperr.Internal, "removing role failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role removed"})
}

// CreateClient mints an API client. The key is only ever shown in this
// response.
func (h *UserHandler) CreateClient(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return httperr.New(httperr.Validation, "name is required")
	}

	client, err := h.Clients.Create(c.Request().Context(), req.Name)
	if err != nil {
		return httperr.Wrap(httperr.Internal, "creating api client failed", err)
	}
	return c.JSON(http.StatusCreated, client)
}

func pathID(c echo.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		return 0, httperr.New(httperr.Validation, "invalid id")
	}
	return uint(id), nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
