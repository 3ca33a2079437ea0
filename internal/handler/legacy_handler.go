package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arkisys/registrar-api/internal/models"
	"github.com/arkisys/registrar-api/internal/service"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/legacyjson"
)

// LegacyHandler serves the portal's original wire protocol: a multipart POST
// carrying an "operation" field naming the remote procedure and a "json"
// field with the payload. Operation names are part of the contract with
// deployed clients and must not change.
type LegacyHandler struct {
	requests     requestService
	students     studentService
	requirements requirementService
	ops          map[string]func(*gin.Context, string) (interface{}, error)
}

// NewLegacyHandler builds the dispatcher.
func NewLegacyHandler(requests requestService, students studentService, requirements requirementService) *LegacyHandler {
	h := &LegacyHandler{
		requests:     requests,
		students:     students,
		requirements: requirements,
	}
	h.ops = map[string]func(*gin.Context, string) (interface{}, error){
		"getAllRequests":                   h.getAllRequests,
		"getRequestStats":                  h.getRequestStats,
		"processRequest":                   h.processRequest,
		"processRelease":                   h.processRequest,
		"scheduleRelease":                  h.scheduleRelease,
		"getReleaseSchedule":               h.getReleaseSchedule,
		"getRequestOwner":                  h.getRequestOwner,
		"getStudentInfo":                   h.getStudentInfo,
		"updateStudentInfo":                h.updateStudentInfo,
		"getRequestAttachments":            h.getRequestAttachments,
		"getStudentDocuments":              h.getStudentDocuments,
		"addRequirementComment":            h.addRequirementComment,
		"getRequirementComments":           h.getRequirementComments,
		"updateCommentStatus":              h.updateCommentStatus,
		"markAdditionalRequirementsViewed": h.markAdditionalViewed,
		"getExpectedDays":                  h.getExpectedDays,
	}
	return h
}

// Dispatch godoc
// @Summary Legacy portal RPC endpoint
// @Description Multipart POST with an "operation" field and a JSON payload
// @Description in the "json" field. Business failures return 200 with
// @Description success=false so deployed clients keep working.
// @Tags Legacy
// @Accept multipart/form-data
// @Produce json
// @Param operation formData string true "Operation name"
// @Param json formData string false "JSON payload"
// @Success 200 {object} map[string]interface{}
// @Router /legacy [post]
func (h *LegacyHandler) Dispatch(c *gin.Context) {
	operation := c.PostForm("operation")
	if operation == "" {
		h.fail(c, appErrors.Clone(appErrors.ErrValidation, "operation is required"))
		return
	}

	op, ok := h.ops[operation]
	if !ok {
		h.fail(c, appErrors.Clone(appErrors.ErrValidation, "unknown operation: "+operation))
		return
	}

	data, err := op(c, c.PostForm("json"))
	if err != nil {
		h.fail(c, err)
		return
	}

	body := gin.H{"success": true}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusOK, body)
}

// fail reports a business failure the way the original backend did: HTTP 200
// with success=false and the message in "error". Ownership conflicts carry
// the holder's name in "processedBy"; the client closes the detail view when
// it sees that key.
func (h *LegacyHandler) fail(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	body := gin.H{"success": false, "error": appErr.Message}
	if appErr.ProcessedBy != "" {
		body["processedBy"] = appErr.ProcessedBy
	}
	c.JSON(http.StatusOK, body)
}

func decodePayload(raw string, dest interface{}) error {
	if raw == "" {
		return appErrors.Clone(appErrors.ErrValidation, "missing request payload")
	}
	if err := legacyjson.DecodeString(raw, dest); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidResponseFormat, "Invalid response format")
	}
	return nil
}

type legacyRequestRef struct {
	RequestID string `json:"requestId"`
}

func (h *LegacyHandler) getAllRequests(c *gin.Context, raw string) (interface{}, error) {
	var payload struct {
		Status   string `json:"status"`
		Search   string `json:"search"`
		Page     int    `json:"page"`
		PageSize int    `json:"pageSize"`
	}
	if raw != "" {
		if err := decodePayload(raw, &payload); err != nil {
			return nil, err
		}
	}
	if payload.Page <= 0 {
		payload.Page = 1
	}
	if payload.PageSize <= 0 {
		payload.PageSize = 20
	}

	views, pagination, err := h.requests.List(c.Request.Context(), models.RequestFilter{
		Status:   payload.Status,
		Search:   payload.Search,
		Page:     payload.Page,
		PageSize: payload.PageSize,
	}, actorFromContext(c).ID)
	if err != nil {
		return nil, err
	}
	return gin.H{"requests": views, "pagination": pagination}, nil
}

func (h *LegacyHandler) getRequestStats(c *gin.Context, raw string) (interface{}, error) {
	stats, _, err := h.requests.Stats(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (h *LegacyHandler) processRequest(c *gin.Context, raw string) (interface{}, error) {
	var payload legacyRequestRef
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	return h.requests.Process(c.Request.Context(), payload.RequestID, actorFromContext(c))
}

func (h *LegacyHandler) scheduleRelease(c *gin.Context, raw string) (interface{}, error) {
	var payload struct {
		RequestID string `json:"requestId"`
		Date      string `json:"date"`
	}
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	date, err := parseScheduleDate(payload.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid release date format")
	}
	return h.requests.ScheduleRelease(c.Request.Context(), payload.RequestID, service.ScheduleReleaseRequest{Date: date}, actorFromContext(c))
}

func (h *LegacyHandler) getReleaseSchedule(c *gin.Context, raw string) (interface{}, error) {
	var payload legacyRequestRef
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	return h.requests.GetSchedule(c.Request.Context(), payload.RequestID)
}

func (h *LegacyHandler) getRequestOwner(c *gin.Context, raw string) (interface{}, error) {
	var payload legacyRequestRef
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	owner, err := h.requests.Owner(c.Request.Context(), payload.RequestID)
	if err != nil {
		return nil, err
	}
	// The portal polls this on open; no owner is a normal answer.
	return gin.H{"owner": owner}, nil
}

func (h *LegacyHandler) getStudentInfo(c *gin.Context, raw string) (interface{}, error) {
	var payload struct {
		StudentID string `json:"studentId"`
	}
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	return h.students.Get(c.Request.Context(), payload.StudentID)
}

func (h *LegacyHandler) updateStudentInfo(c *gin.Context, raw string) (interface{}, error) {
	var payload struct {
		StudentID string `json:"studentId"`
		service.UpdateStudentRequest
	}
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	return h.students.Update(c.Request.Context(), payload.StudentID, payload.UpdateStudentRequest, actorFromContext(c).ID)
}

func (h *LegacyHandler) getRequestAttachments(c *gin.Context, raw string) (interface{}, error) {
	var payload legacyRequestRef
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	return h.requirements.Attachments(c.Request.Context(), payload.RequestID)
}

func (h *LegacyHandler) getStudentDocuments(c *gin.Context, raw string) (interface{}, error) {
	var payload struct {
		StudentID string `json:"studentId"`
	}
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	return h.students.Documents(c.Request.Context(), payload.StudentID)
}

func (h *LegacyHandler) addRequirementComment(c *gin.Context, raw string) (interface{}, error) {
	var payload struct {
		AttachmentID string `json:"attachmentId"`
		Comment      string `json:"comment"`
	}
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	return h.requirements.AddComment(c.Request.Context(), payload.AttachmentID, service.AddCommentRequest{Comment: payload.Comment}, actorFromContext(c))
}

func (h *LegacyHandler) getRequirementComments(c *gin.Context, raw string) (interface{}, error) {
	var payload struct {
		AttachmentID string `json:"attachmentId"`
	}
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	return h.requirements.Comments(c.Request.Context(), payload.AttachmentID)
}

func (h *LegacyHandler) updateCommentStatus(c *gin.Context, raw string) (interface{}, error) {
	var payload struct {
		CommentID string `json:"commentId"`
		Status    string `json:"status"`
	}
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	if err := h.requirements.UpdateCommentStatus(c.Request.Context(), payload.CommentID, models.CommentStatus(payload.Status)); err != nil {
		return nil, err
	}
	return nil, nil
}

func (h *LegacyHandler) markAdditionalViewed(c *gin.Context, raw string) (interface{}, error) {
	var payload legacyRequestRef
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	h.requirements.MarkAdditionalViewed(c.Request.Context(), payload.RequestID)
	return nil, nil
}

func (h *LegacyHandler) getExpectedDays(c *gin.Context, raw string) (interface{}, error) {
	var payload struct {
		DocumentTypeID string `json:"documentTypeId"`
	}
	if err := decodePayload(raw, &payload); err != nil {
		return nil, err
	}
	days, err := h.requests.ExpectedDays(c.Request.Context(), payload.DocumentTypeID)
	if err != nil {
		return nil, err
	}
	return gin.H{"expectedDays": days}, nil
}
