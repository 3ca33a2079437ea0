package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arkisys/registrar-api/internal/service"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/response"
)

type documentService interface {
	UploadBatch(ctx context.Context, files []service.UploadFile, actor service.Actor) ([]service.UploadOutcome, error)
}

// DocumentHandler accepts scanned PDF uploads for student matching.
type DocumentHandler struct {
	service documentService
}

// NewDocumentHandler builds a new handler.
func NewDocumentHandler(svc documentService) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// Upload godoc
// @Summary Upload scanned PDFs and match them to students
// @Description Each file's extracted text is matched against the roster by
// @Description LRN or fuzzy name. Unmatched files are kept for manual review.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "PDF files"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents/upload [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form"))
		return
	}

	headers := form.File["files"]
	files := make([]service.UploadFile, 0, len(headers))
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file"))
			return
		}
		content, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not read uploaded file"))
			return
		}
		files = append(files, service.UploadFile{Name: header.Filename, Content: content})
	}

	outcomes, err := h.service.UploadBatch(c.Request.Context(), files, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}
