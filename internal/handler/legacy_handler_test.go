package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkisys/registrar-api/internal/middleware"
	"github.com/arkisys/registrar-api/internal/models"
	"github.com/arkisys/registrar-api/internal/service"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
)

type requestServiceMock struct {
	view        service.RequestView
	processErr  error
	stats       models.RequestStats
	schedule    models.ReleaseSchedule
	scheduleErr error
	owner       *models.RequestOwner
	days        int
	window      service.ScheduleWindow

	scheduledDate string
}

func (m *requestServiceMock) List(ctx context.Context, filter models.RequestFilter, actorID string) ([]service.RequestView, *models.Pagination, error) {
	return []service.RequestView{m.view}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *requestServiceMock) Get(ctx context.Context, id, actorID string) (*service.RequestView, error) {
	return &m.view, nil
}

func (m *requestServiceMock) Stats(ctx context.Context) (*models.RequestStats, bool, error) {
	return &m.stats, false, nil
}

func (m *requestServiceMock) Owner(ctx context.Context, requestID string) (*models.RequestOwner, error) {
	return m.owner, nil
}

func (m *requestServiceMock) Process(ctx context.Context, requestID string, actor service.Actor) (*service.RequestView, error) {
	if m.processErr != nil {
		return nil, m.processErr
	}
	return &m.view, nil
}

func (m *requestServiceMock) Cancel(ctx context.Context, requestID string, actor service.Actor) (*service.RequestView, error) {
	return &m.view, nil
}

func (m *requestServiceMock) ScheduleRelease(ctx context.Context, requestID string, req service.ScheduleReleaseRequest, actor service.Actor) (*models.ReleaseSchedule, error) {
	if m.scheduleErr != nil {
		return nil, m.scheduleErr
	}
	m.scheduledDate = req.Date.Format("2006-01-02")
	return &m.schedule, nil
}

func (m *requestServiceMock) GetSchedule(ctx context.Context, requestID string) (*models.ReleaseSchedule, error) {
	return &m.schedule, nil
}

func (m *requestServiceMock) Window() service.ScheduleWindow {
	return m.window
}

func (m *requestServiceMock) ExpectedDays(ctx context.Context, documentTypeID string) (int, error) {
	return m.days, nil
}

type studentServiceMock struct {
	student models.Student
	docs    []models.StudentDocument

	updated *service.UpdateStudentRequest
}

func (m *studentServiceMock) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	return []models.Student{m.student}, nil, nil
}

func (m *studentServiceMock) Get(ctx context.Context, id string) (*models.Student, error) {
	return &m.student, nil
}

func (m *studentServiceMock) Create(ctx context.Context, req service.CreateStudentRequest) (*models.Student, error) {
	return &m.student, nil
}

func (m *studentServiceMock) Update(ctx context.Context, id string, req service.UpdateStudentRequest, actorID string) (*models.Student, error) {
	m.updated = &req
	return &m.student, nil
}

func (m *studentServiceMock) Documents(ctx context.Context, studentID string) ([]models.StudentDocument, error) {
	return m.docs, nil
}

func (m *studentServiceMock) ExportCSV(ctx context.Context, filter models.StudentFilter) ([]byte, string, error) {
	return []byte("lrn\n"), "students.csv", nil
}

type requirementServiceMock struct {
	groups   []models.AttachmentGroup
	comments []models.RequirementComment
	viewed   []string
}

func (m *requirementServiceMock) Attachments(ctx context.Context, requestID string) ([]models.AttachmentGroup, error) {
	return m.groups, nil
}

func (m *requirementServiceMock) MarkAdditionalViewed(ctx context.Context, requestID string) {
	m.viewed = append(m.viewed, requestID)
}

func (m *requirementServiceMock) Comments(ctx context.Context, attachmentID string) ([]models.RequirementComment, error) {
	return m.comments, nil
}

func (m *requirementServiceMock) AddComment(ctx context.Context, attachmentID string, req service.AddCommentRequest, actor service.Actor) (*models.RequirementComment, error) {
	return &models.RequirementComment{ID: "c1", AttachmentID: attachmentID, Comment: req.Comment}, nil
}

func (m *requirementServiceMock) UpdateCommentStatus(ctx context.Context, commentID string, status models.CommentStatus) error {
	return nil
}

func (m *requirementServiceMock) DownloadAll(ctx context.Context, requestID string) (*service.DownloadAllResult, error) {
	return &service.DownloadAllResult{Archive: []byte("zip"), Filename: "attachments.zip", Total: 1, Succeeded: 1}, nil
}

func (m *requirementServiceMock) OpenAttachment(token string) (*os.File, error) {
	return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid download token")
}

func legacyRequest(t *testing.T, operation, payload string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("operation", operation))
	if payload != "" {
		require.NoError(t, form.WriteField("json", payload))
	}
	require.NoError(t, form.Close())

	req, err := http.NewRequest(http.MethodPost, "/legacy", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return req
}

func dispatchLegacy(t *testing.T, h *LegacyHandler, operation, payload string) (map[string]interface{}, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = legacyRequest(t, operation, payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "reg-1", FirstName: "Ana", LastName: "Cruz", Role: models.RoleRegistrar})

	h.Dispatch(c)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body, w
}

func newLegacyHandler() (*LegacyHandler, *requestServiceMock, *studentServiceMock, *requirementServiceMock) {
	requests := &requestServiceMock{days: 7}
	students := &studentServiceMock{student: models.Student{ID: "s1", LRN: "123456789012"}}
	requirements := &requirementServiceMock{}
	return NewLegacyHandler(requests, students, requirements), requests, students, requirements
}

func TestLegacyDispatchUnknownOperation(t *testing.T) {
	h, _, _, _ := newLegacyHandler()

	body, w := dispatchLegacy(t, h, "dropAllTables", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "unknown operation")
}

func TestLegacyDispatchMissingOperation(t *testing.T) {
	h, _, _, _ := newLegacyHandler()

	body, _ := dispatchLegacy(t, h, "", "")
	assert.Equal(t, false, body["success"])
}

func TestLegacyProcessRequestOwnershipConflict(t *testing.T) {
	h, requests, _, _ := newLegacyHandler()
	requests.processErr = appErrors.OwnershipConflict("Ben Reyes")

	body, w := dispatchLegacy(t, h, "processRequest", `{"requestId":"req-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Ben Reyes", body["processedBy"])
}

func TestLegacyProcessRequestSuccess(t *testing.T) {
	h, _, _, _ := newLegacyHandler()

	body, _ := dispatchLegacy(t, h, "processRequest", `{"requestId":"req-1"}`)
	assert.Equal(t, true, body["success"])
	assert.NotNil(t, body["data"])
}

func TestLegacyScheduleReleaseParsesNoisyPayload(t *testing.T) {
	h, requests, _, _ := newLegacyHandler()

	// The original backend sometimes prepends PHP notices to JSON bodies;
	// the same tolerance applies to payloads relayed through integrations.
	noisy := `Notice: session started {"requestId":"req-1","date":"2026-09-10"}`
	body, _ := dispatchLegacy(t, h, "scheduleRelease", noisy)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "2026-09-10", requests.scheduledDate)
}

func TestLegacyGetExpectedDays(t *testing.T) {
	h, _, _, _ := newLegacyHandler()

	body, _ := dispatchLegacy(t, h, "getExpectedDays", `{"documentTypeId":"dt-1"}`)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(7), data["expectedDays"])
}

func TestLegacyUpdateStudentInfo(t *testing.T) {
	h, _, students, _ := newLegacyHandler()

	payload := `{"studentId":"s1","lrn":"123456789012","firstname":"Patty","lastname":"Aspiras"}`
	body, _ := dispatchLegacy(t, h, "updateStudentInfo", payload)
	assert.Equal(t, true, body["success"])
	require.NotNil(t, students.updated)
	assert.Equal(t, "Patty", students.updated.FirstName)
}

func TestLegacyMarkAdditionalRequirementsViewed(t *testing.T) {
	h, _, _, requirements := newLegacyHandler()

	body, _ := dispatchLegacy(t, h, "markAdditionalRequirementsViewed", `{"requestId":"req-1"}`)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []string{"req-1"}, requirements.viewed)
}

func TestLegacyMissingPayload(t *testing.T) {
	h, _, _, _ := newLegacyHandler()

	body, _ := dispatchLegacy(t, h, "processRequest", "")
	assert.Equal(t, false, body["success"])
}
