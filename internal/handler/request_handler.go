package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arkisys/registrar-api/internal/middleware"
	"github.com/arkisys/registrar-api/internal/models"
	"github.com/arkisys/registrar-api/internal/service"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/response"
)

type requestService interface {
	List(ctx context.Context, filter models.RequestFilter, actorID string) ([]service.RequestView, *models.Pagination, error)
	Get(ctx context.Context, id, actorID string) (*service.RequestView, error)
	Stats(ctx context.Context) (*models.RequestStats, bool, error)
	Owner(ctx context.Context, requestID string) (*models.RequestOwner, error)
	Process(ctx context.Context, requestID string, actor service.Actor) (*service.RequestView, error)
	Cancel(ctx context.Context, requestID string, actor service.Actor) (*service.RequestView, error)
	ScheduleRelease(ctx context.Context, requestID string, req service.ScheduleReleaseRequest, actor service.Actor) (*models.ReleaseSchedule, error)
	GetSchedule(ctx context.Context, requestID string) (*models.ReleaseSchedule, error)
	Window() service.ScheduleWindow
	ExpectedDays(ctx context.Context, documentTypeID string) (int, error)
}

// RequestHandler exposes the document-request lifecycle endpoints.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler builds a new handler.
func NewRequestHandler(svc requestService) *RequestHandler {
	return &RequestHandler{service: svc}
}

// List godoc
// @Summary List document requests
// @Tags Requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search by student name or LRN"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	filter := models.RequestFilter{
		Status:    c.Query("status"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	views, pagination, err := h.service.List(c.Request.Context(), filter, actorFromContext(c).ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, pagination)
}

// Get godoc
// @Summary Get one document request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), c.Param("id"), actorFromContext(c).ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Stats godoc
// @Summary Per-status request counts
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests/stats [get]
func (h *RequestHandler) Stats(c *gin.Context) {
	stats, cacheHit, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Owner godoc
// @Summary Current owner of a request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/owner [get]
func (h *RequestHandler) Owner(c *gin.Context) {
	owner, err := h.service.Owner(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, owner, nil)
}

// Process godoc
// @Summary Advance a request to its next status
// @Description Claims ownership for the acting registrar and applies the
// @Description single allowed forward transition for the request's status.
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/process [post]
func (h *RequestHandler) Process(c *gin.Context) {
	view, err := h.service.Process(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Cancel godoc
// @Summary Cancel a request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	view, err := h.service.Cancel(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

type scheduleReleasePayload struct {
	Date string `json:"date" binding:"required"`
}

// ScheduleRelease godoc
// @Summary Schedule the release date
// @Description Records the release schedule and advances the request from
// @Description Signatory to Release in one step. On failure the request
// @Description stays in Signatory.
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body scheduleReleasePayload true "Release date"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/schedule [post]
func (h *RequestHandler) ScheduleRelease(c *gin.Context) {
	var payload scheduleReleasePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "release date is required"))
		return
	}
	date, err := parseScheduleDate(payload.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid release date format"))
		return
	}

	schedule, err := h.service.ScheduleRelease(c.Request.Context(), c.Param("id"), service.ScheduleReleaseRequest{Date: date}, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// GetSchedule godoc
// @Summary Get the release schedule of a request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/schedule [get]
func (h *RequestHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.service.GetSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Window godoc
// @Summary Selectable scheduling window
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests/schedule-window [get]
func (h *RequestHandler) Window(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Window(), nil)
}

// ExpectedDays godoc
// @Summary Expected processing days for a document type
// @Tags Requests
// @Produce json
// @Param documentTypeId query string true "Document type ID"
// @Success 200 {object} response.Envelope
// @Router /requests/expected-days [get]
func (h *RequestHandler) ExpectedDays(c *gin.Context) {
	days, err := h.service.ExpectedDays(c.Request.Context(), c.Query("documentTypeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"expected_days": days}, nil)
}

// parseScheduleDate accepts both the portal's plain date and full RFC 3339
// timestamps.
func parseScheduleDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
