package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arkisys/registrar-api/internal/service"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/response"
)

type certificateService interface {
	Generate(ctx context.Context, requestID string, actor service.Actor) (*service.GeneratedCertificate, error)
	EnqueueBatch(requestIDs []string, actor service.Actor) error
	OpenDownload(token string) (*os.File, error)
}

// CertificateHandler exposes certificate generation and download.
type CertificateHandler struct {
	service certificateService
}

// NewCertificateHandler builds a new handler.
func NewCertificateHandler(svc certificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// Generate godoc
// @Summary Render the certificate for a request
// @Description Only diploma, certificate and CAV requests are template
// @Description generated.
// @Tags Certificates
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests/{id}/certificate [post]
func (h *CertificateHandler) Generate(c *gin.Context) {
	cert, err := h.service.Generate(c.Request.Context(), c.Param("id"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cert, nil)
}

type batchGeneratePayload struct {
	RequestIDs []string `json:"request_ids" binding:"required"`
}

// GenerateBatch godoc
// @Summary Queue certificate rendering for several requests
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body batchGeneratePayload true "Request IDs"
// @Success 202 {object} response.Envelope
// @Router /certificates/batch [post]
func (h *CertificateHandler) GenerateBatch(c *gin.Context) {
	var payload batchGeneratePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "request_ids is required"))
		return
	}
	if err := h.service.EnqueueBatch(payload.RequestIDs, actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"queued": len(payload.RequestIDs)}, nil)
}

// Download godoc
// @Summary Download a generated certificate by signed token
// @Tags Certificates
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {string} string "PDF body"
// @Failure 403 {object} response.Envelope
// @Router /certificates/download/{token} [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	file, err := h.service.OpenDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(file.Name()))
	c.Header("Content-Type", "application/pdf")
	http.ServeContent(c.Writer, c.Request, filepath.Base(file.Name()), fileModTime(file), file)
}

func fileModTime(file *os.File) time.Time {
	if info, err := file.Stat(); err == nil {
		return info.ModTime()
	}
	return time.Time{}
}
