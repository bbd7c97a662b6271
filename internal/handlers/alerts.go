package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/ndatsenko/pulsemon/internal/httperr"
	"github.com/ndatsenko/pulsemon/internal/models"
	"github.com/ndatsenko/pulsemon/internal/util"
)

type AlertHandler struct {
	DB *gorm.DB
}

func (h *AlertHandler) Create(c echo.Context) error {
	var req struct {
		SystemID string `json:"system_id"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
	}
	if err := c.Bind(&req); err != nil || req.SystemID == "" || req.Severity == "" || req.Message == "" {
		return httperr.New(httperr.Validation, "system_id, severity and message are required")
	}

	alert := models.Alert{
		SystemID: req.SystemID,
		Severity: req.Severity,
		Message:  req.Message,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(&alert).Error; err != nil {
		return httperr.Wrap(httperr.Internal, "creating alert failed", err)
	}
	return c.JSON(http.StatusCreated, alert)
}

func (h *AlertHandler) List(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	ctx := c.Request().Context()
	q := h.DB.WithContext(ctx).Model(&models.Alert{})
	if systemID := c.QueryParam("system_id"); systemID != "" {
		q = q.Where("system_id = ?", systemID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return httperr.Wrap(httperr.Internal, "listing alerts failed", err)
	}

	var items []models.Alert
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return httperr.Wrap(httperr.Internal, "listing alerts failed", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "alerts": items})
}

func (h *AlertHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var alert models.Alert
	if err := h.DB.WithContext(c.Request().Context()).First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httperr.New(httperr.NotFound, "alert not found")
		}
		return httperr.Wrap(httperr.Internal, "fetching alert failed", err)
	}
	return c.JSON(http.StatusOK, alert)
}

func (h *AlertHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		Severity     *string `json:"severity"`
		Message      *string `json:"message"`
		Acknowledged *bool   `json:"acknowledged"`
	}
	if err := c.Bind(&req); err != nil {
		return httperr.New(httperr.Validation, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Severity != nil {
		updates["severity"] = *req.Severity
	}
	if req.Message != nil {
		updates["message"] = *req.Message
	}
	if req.Acknowledged != nil {
		updates["acknowledged"] = *req.Acknowledged
	}
	if len(updates) == 0 {
		return httperr.New(httperr.Validation, "nothing to update")
	}

	res := h.DB.WithContext(c.Request().Context()).
		Model(&models.Alert{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return httperr.Wrap(httperr.Internal, "updating alert failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return httperr.New(httperr.NotFound, "alert not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "alert updated"})
}

func (h *AlertHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	res := h.DB.WithContext(c.Request().Context()).Delete(&models.Alert{}, id)
	if res.Error != nil {
		return httperr.Wrap(httperr.Internal, "deleting alert failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return httperr.New(httperr.NotFound, "alert not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "alert deleted"})
}
