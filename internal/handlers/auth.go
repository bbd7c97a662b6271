package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ndatsenko/pulsemon/internal/httperr"
	authmw "github.com/ndatsenko/pulsemon/internal/middleware/auth"
	"github.com/ndatsenko/pulsemon/internal/service"
)

type AuthHandler struct {
	Service *service.AuthService
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.New(httperr.Validation, "invalid request body")
	}

	user, err := h.Service.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			return httperr.New(httperr.Validation, service.ErrValidation.Error())
		case errors.Is(err, service.ErrUserExists):
			return httperr.New(httperr.Conflict, "username or email already taken")
		default:
			return httperr.Wrap(httperr.Internal, "registration failed", err)
		}
	}

	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.New(httperr.Validation, "invalid request body")
	}

	result, err := h.Service.Login(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			// One body for unknown identifier, wrong password and disabled
			// account; responses must not reveal which.
			return httperr.New(httperr.Unauthorized, "invalid credentials")
		}
		return httperr.Wrap(httperr.Internal, "login failed", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token": result.Token,
		"user":  result.User,
		"roles": result.Roles,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	principal, ok := authmw.CurrentUser(c)
	if !ok {
		return httperr.New(httperr.Unauthorized, "unauthorized")
	}

	h.Service.Logout(c.Request().Context(), principal.Token)
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me echoes the authenticated identity, mostly for client debugging.
func (h *AuthHandler) Me(c echo.Context) error {
	principal, ok := authmw.CurrentUser(c)
	if !ok {
		return httperr.New(httperr.Unauthorized, "unauthorized")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  principal.UserID,
		"username": principal.Username,
		"roles":    principal.Roles,
	})
}
