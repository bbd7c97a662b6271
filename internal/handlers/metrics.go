package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/ndatsenko/pulsemon/internal/httperr"
	"github.com/ndatsenko/pulsemon/internal/logging"
	authmw "github.com/ndatsenko/pulsemon/internal/middleware/auth"
	"github.com/ndatsenko/pulsemon/internal/models"
	"github.com/ndatsenko/pulsemon/internal/mykafka"
	"github.com/ndatsenko/pulsemon/internal/service/search"
	"github.com/ndatsenko/pulsemon/internal/util"
)

type MetricHandler struct {
	DB       *gorm.DB
	ES       *elasticsearch.Client
	Index    string
	Producer *mykafka.Producer
}

func (h *MetricHandler) publish(c echo.Context, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "metric_events", fmt.Sprint(event["system_id"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish failed", "topic", "metric_events", "error", err)
	}
}

// Ingest records one metric sample. Reachable with a Bearer token or an
// X-API-Key; the source is noted in the event either way.
func (h *MetricHandler) Ingest(c echo.Context) error {
	systemID := c.Param("id")
	if systemID == "" {
		return httperr.New(httperr.Validation, "system id is required")
	}

	var req struct {
		Name       string     `json:"name"`
		Value      *float64   `json:"value"`
		Unit       string     `json:"unit"`
		RecordedAt *time.Time `json:"recorded_at"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" || req.Value == nil {
		return httperr.New(httperr.Validation, "name and value are required")
	}

	recordedAt := time.Now()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	metric := models.Metric{
		SystemID:   systemID,
		Name:       req.Name,
		Value:      *req.Value,
		Unit:       req.Unit,
		RecordedAt: recordedAt,
	}
	if err := h.DB.WithContext(c.Request().Context()).Create(&metric).Error; err != nil {
		return httperr.Wrap(httperr.Internal, "storing metric failed", err)
	}

	if h.ES != nil {
		if err := search.Index(c.Request().Context(), h.ES, h.Index, metric); err != nil {
			logging.FromContext(c.Request().Context()).Warn("metric index failed", "error", err)
		}
	}

	source := "user"
	if name, ok := authmw.APIClientName(c); ok {
		source = "api_client:" + name
	}
	h.publish(c, map[string]interface{}{
		"type":      "metric_ingested",
		"system_id": metric.SystemID,
		"name":      metric.Name,
		"source":    source,
	})

	return c.JSON(http.StatusCreated, metric)
}

func (h *MetricHandler) List(c echo.Context) error {
	systemID := c.Param("id")
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	ctx := c.Request().Context()

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Metric{}).
		Where("system_id = ?", systemID).Count(&total).Error; err != nil {
		return httperr.Wrap(httperr.Internal, "listing metrics failed", err)
	}

	var items []models.Metric
	err := h.DB.WithContext(ctx).
		Where("system_id = ?", systemID).
		Order("recorded_at DESC").Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return httperr.Wrap(httperr.Internal, "listing metrics failed", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "metrics": items})
}

// Latest returns the most recent sample for each metric name of a system.
func (h *MetricHandler) Latest(c echo.Context) error {
	systemID := c.Param("id")

	var items []models.Metric
	err := h.DB.WithContext(c.Request().Context()).
		Where("system_id = ?", systemID).
		Where("id IN (?)", h.DB.Model(&models.Metric{}).
			Select("MAX(id)").
			Where("system_id = ?", systemID).
			Group("name")).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return httperr.Wrap(httperr.Internal, "fetching latest metrics failed", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"metrics": items})
}

func (h *MetricHandler) Search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return httperr.New(httperr.Validation, "query is required")
	}
	if h.ES == nil {
		return httperr.New(httperr.Internal, "search is unavailable")
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, metrics, err := search.Search(c.Request().Context(), h.ES, h.Index, q, from, limit)
	if err != nil {
		return httperr.Wrap(httperr.Internal, "search failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "metrics": metrics})
}
