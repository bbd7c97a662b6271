package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/ndatsenko/pulsemon/internal/httperr"
	authmw "github.com/ndatsenko/pulsemon/internal/middleware/auth"
	"github.com/ndatsenko/pulsemon/internal/models"
	"github.com/ndatsenko/pulsemon/internal/store"
)

// SystemHandler manages monitored hosts. Every operation is scoped to the
// authenticated owner; admins see all systems on List.
type SystemHandler struct {
	DB *gorm.DB
}

func (h *SystemHandler) Create(c echo.Context) error {
	principal, ok := authmw.CurrentUser(c)
	if !ok {
		return httperr.New(httperr.Unauthorized, "unauthorized")
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return httperr.New(httperr.Validation, "name is required")
	}

	system := models.System{
		OwnerID:     principal.UserID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(&system).Error; err != nil {
		return httperr.Wrap(httperr.Internal, "creating system failed", err)
	}
	return c.JSON(http.StatusCreated, system)
}

func (h *SystemHandler) List(c echo.Context) error {
	principal, ok := authmw.CurrentUser(c)
	if !ok {
		return httperr.New(httperr.Unauthorized, "unauthorized")
	}

	q := h.DB.WithContext(c.Request().Context()).Model(&models.System{})
	if !hasRole(principal.Roles, store.RoleAdmin) {
		q = q.Where("owner_id = ?", principal.UserID)
	}

	var systems []models.System
	if err := q.Order("name ASC").Find(&systems).Error; err != nil {
		return httperr.Wrap(httperr.Internal, "listing systems failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"systems": systems})
}

func (h *SystemHandler) Get(c echo.Context) error {
	principal, ok := authmw.CurrentUser(c)
	if !ok {
		return httperr.New(httperr.Unauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var system models.System
	dbErr := h.DB.WithContext(c.Request().Context()).
		Where("id = ? AND owner_id = ?", id, principal.UserID).
		First(&system).Error
	if dbErr != nil {
		// not owning a system looks the same as it not existing
		if errors.Is(dbErr, gorm.ErrRecordNotFound) {
			return httperr.New(httperr.NotFound, "system not found")
		}
		return httperr.Wrap(httperr.Internal, "fetching system failed", dbErr)
	}
	return c.JSON(http.StatusOK, system)
}

func (h *SystemHandler) Delete(c echo.Context) error {
	principal, ok := authmw.CurrentUser(c)
	if !ok {
		return httperr.New(httperr.Unauthorized, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.WithContext(c.Request().Context()).
		Where("id = ? AND owner_id = ?", id, principal.UserID).
		Delete(&models.System{})
	if res.Error != nil {
		return httperr.Wrap(httperr.Internal, "deleting system failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return httperr.New(httperr.NotFound, "system not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "system deleted"})
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
