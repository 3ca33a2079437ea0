package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/arkisys/registrar-api/internal/models"
	"github.com/arkisys/registrar-api/internal/service"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/response"
)

type requirementService interface {
	Attachments(ctx context.Context, requestID string) ([]models.AttachmentGroup, error)
	MarkAdditionalViewed(ctx context.Context, requestID string)
	Comments(ctx context.Context, attachmentID string) ([]models.RequirementComment, error)
	AddComment(ctx context.Context, attachmentID string, req service.AddCommentRequest, actor service.Actor) (*models.RequirementComment, error)
	UpdateCommentStatus(ctx context.Context, commentID string, status models.CommentStatus) error
	DownloadAll(ctx context.Context, requestID string) (*service.DownloadAllResult, error)
	OpenAttachment(token string) (*os.File, error)
}

// RequirementHandler serves requirement attachments and review comments.
type RequirementHandler struct {
	service requirementService
}

// NewRequirementHandler builds a new handler.
func NewRequirementHandler(svc requirementService) *RequirementHandler {
	return &RequirementHandler{service: svc}
}

// Attachments godoc
// @Summary Attachments of a request grouped by requirement type
// @Tags Requirements
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/attachments [get]
func (h *RequirementHandler) Attachments(c *gin.Context) {
	groups, err := h.service.Attachments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// MarkViewed godoc
// @Summary Mark additional requirements as viewed
// @Description Best effort; always returns 204.
// @Tags Requirements
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Router /requests/{id}/requirements/viewed [post]
func (h *RequirementHandler) MarkViewed(c *gin.Context) {
	h.service.MarkAdditionalViewed(c.Request.Context(), c.Param("id"))
	response.NoContent(c)
}

// Comments godoc
// @Summary Review comments on an attachment
// @Tags Requirements
// @Produce json
// @Param id path string true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Router /attachments/{id}/comments [get]
func (h *RequirementHandler) Comments(c *gin.Context) {
	comments, err := h.service.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// AddComment godoc
// @Summary Add a review comment to an attachment
// @Tags Requirements
// @Accept json
// @Produce json
// @Param id path string true "Attachment ID"
// @Param payload body service.AddCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Router /attachments/{id}/comments [post]
func (h *RequirementHandler) AddComment(c *gin.Context) {
	var req service.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

type commentStatusPayload struct {
	Status string `json:"status" binding:"required"`
}

// UpdateCommentStatus godoc
// @Summary Resolve or reopen a review comment
// @Tags Requirements
// @Accept json
// @Produce json
// @Param id path string true "Comment ID"
// @Param payload body commentStatusPayload true "Status payload"
// @Success 204 {object} response.Envelope
// @Router /comments/{id}/status [put]
func (h *RequirementHandler) UpdateCommentStatus(c *gin.Context) {
	var payload commentStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	if err := h.service.UpdateCommentStatus(c.Request.Context(), c.Param("id"), models.CommentStatus(payload.Status)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadAll godoc
// @Summary Download all attachments of a request as a zip
// @Description Partial failures are reported in headers; the archive holds
// @Description whatever could be read.
// @Tags Requirements
// @Produce application/zip
// @Param id path string true "Request ID"
// @Success 200 {string} string "zip archive"
// @Router /requests/{id}/attachments/download [get]
func (h *RequirementHandler) DownloadAll(c *gin.Context) {
	result, err := h.service.DownloadAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Header("X-Download-Total", strconv.Itoa(result.Total))
	c.Header("X-Download-Succeeded", strconv.Itoa(result.Succeeded))
	c.Data(http.StatusOK, "application/zip", result.Archive)
}

// DownloadAttachment godoc
// @Summary Download a single attachment by signed token
// @Tags Requirements
// @Produce application/octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {string} string "file body"
// @Failure 403 {object} response.Envelope
// @Router /attachments/download/{token} [get]
func (h *RequirementHandler) DownloadAttachment(c *gin.Context) {
	file, err := h.service.OpenAttachment(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(file.Name()))
	http.ServeContent(c.Writer, c.Request, filepath.Base(file.Name()), fileModTime(file), file)
}
