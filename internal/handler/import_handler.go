package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arkisys/registrar-api/internal/service"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/legacyjson"
	"github.com/arkisys/registrar-api/pkg/response"
)

type importService interface {
	Import(ctx context.Context, filename string, content []byte, req service.ImportRequest, actor service.Actor) (*service.ImportResult, error)
}

// ImportHandler accepts roster spreadsheet uploads.
type ImportHandler struct {
	service importService
}

// NewImportHandler builds a new handler.
func NewImportHandler(svc importService) *ImportHandler {
	return &ImportHandler{service: svc}
}

// Import godoc
// @Summary Bulk import students from a spreadsheet
// @Description Accepts an .xlsx or .csv masterlist. Section, strand and
// @Description school-year assignments come in the json form field.
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet"
// @Param json formData string true "Import parameters"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/import [post]
func (h *ImportHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "spreadsheet file is required"))
		return
	}

	var req service.ImportRequest
	if raw := c.PostForm("json"); raw != "" {
		if err := legacyjson.DecodeString(raw, &req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import parameters"))
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not read uploaded file"))
		return
	}

	result, err := h.service.Import(c.Request.Context(), fileHeader.Filename, content, req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
