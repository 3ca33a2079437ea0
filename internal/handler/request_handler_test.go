package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkisys/registrar-api/internal/middleware"
	"github.com/arkisys/registrar-api/internal/models"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
)

func requestTestContext(t *testing.T, method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "reg-1", FirstName: "Ana", LastName: "Cruz", Role: models.RoleRegistrar})
	return c, w
}

func TestRequestHandlerProcess(t *testing.T) {
	handler := NewRequestHandler(&requestServiceMock{})
	c, w := requestTestContext(t, http.MethodPost, "/requests/req-1/process", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Process(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestHandlerProcessConflict(t *testing.T) {
	handler := NewRequestHandler(&requestServiceMock{processErr: appErrors.OwnershipConflict("Ben Reyes")})
	c, w := requestTestContext(t, http.MethodPost, "/requests/req-1/process", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.Process(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Ben Reyes")
}

func TestRequestHandlerScheduleReleasePlainDate(t *testing.T) {
	mock := &requestServiceMock{}
	handler := NewRequestHandler(mock)
	c, w := requestTestContext(t, http.MethodPost, "/requests/req-1/schedule", []byte(`{"date":"2026-09-10"}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.ScheduleRelease(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-09-10", mock.scheduledDate)
}

func TestRequestHandlerScheduleReleaseBadDate(t *testing.T) {
	handler := NewRequestHandler(&requestServiceMock{})
	c, w := requestTestContext(t, http.MethodPost, "/requests/req-1/schedule", []byte(`{"date":"next tuesday"}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.ScheduleRelease(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerScheduleReleaseMissingDate(t *testing.T) {
	handler := NewRequestHandler(&requestServiceMock{})
	c, w := requestTestContext(t, http.MethodPost, "/requests/req-1/schedule", []byte(`{}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.ScheduleRelease(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerStats(t *testing.T) {
	handler := NewRequestHandler(&requestServiceMock{stats: models.RequestStats{Pending: 3, Total: 3}})
	c, w := requestTestContext(t, http.MethodGet, "/requests/stats", nil)

	handler.Stats(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pending":3`)
}

func TestRequestHandlerExpectedDays(t *testing.T) {
	handler := NewRequestHandler(&requestServiceMock{days: 14})
	c, w := requestTestContext(t, http.MethodGet, "/requests/expected-days?documentTypeId=dt-1", nil)

	handler.ExpectedDays(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"expected_days":14`)
}
