package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/models"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/storage"
)

type mockCertStudentRepo struct {
	students map[string]models.Student
}

func (m *mockCertStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s := m.students[id]
	return &s, nil
}

func newTestCertificateService(t *testing.T, repo *mockRequestRepo, audit *mockAuditRepo) *CertificateService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	strand := "STEM"
	track := "Academic"
	year := "2023-2024"
	students := &mockCertStudentRepo{students: map[string]models.Student{
		"s1": {ID: "s1", LRN: "123456789012", FirstName: "Patty", LastName: "Aspiras", Strand: &strand, Track: &track, SchoolYear: &year},
	}}
	return NewCertificateService(repo, students, audit, store, signer, zap.NewNop(), CertificateConfig{
		SchoolName:    "San Isidro National High School",
		SchoolAddress: "San Isidro, Nueva Ecija",
	})
}

func TestCertificateServiceGenerateDiploma(t *testing.T) {
	repo := newMockRequestRepo()
	request := pendingRequest("req-1", "s1", models.CategoryDiploma)
	request.DocumentName = "Diploma"
	repo.requests["req-1"] = request
	audit := &mockAuditRepo{}
	svc := newTestCertificateService(t, repo, audit)

	cert, err := svc.Generate(context.Background(), "req-1", Actor{ID: "reg-1", Name: "Ana Cruz"})
	require.NoError(t, err)
	assert.Equal(t, "diploma", cert.Kind)
	assert.NotEmpty(t, cert.DownloadURL)

	file, err := svc.OpenDownload(cert.DownloadURL)
	require.NoError(t, err)
	defer file.Close()
	info, err := file.Stat()
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCertificateIssue, audit.logs[0].Action)
}

func TestCertificateServiceGenerateRejectsRecordCategory(t *testing.T) {
	repo := newMockRequestRepo()
	request := pendingRequest("req-1", "s1", models.CategoryRecord)
	request.DocumentName = "Form 137"
	repo.requests["req-1"] = request
	svc := newTestCertificateService(t, repo, &mockAuditRepo{})

	_, err := svc.Generate(context.Background(), "req-1", Actor{ID: "reg-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCertificateServiceCategoryFallbackFromName(t *testing.T) {
	repo := newMockRequestRepo()
	request := pendingRequest("req-1", "s1", "")
	request.DocumentName = "Certificate of Enrollment"
	repo.requests["req-1"] = request
	svc := newTestCertificateService(t, repo, &mockAuditRepo{})

	cert, err := svc.Generate(context.Background(), "req-1", Actor{ID: "reg-1", Name: "Ana Cruz"})
	require.NoError(t, err)
	assert.Equal(t, "certificate", cert.Kind)
}

func TestCertificateServiceOpenDownloadInvalidToken(t *testing.T) {
	svc := newTestCertificateService(t, newMockRequestRepo(), &mockAuditRepo{})

	_, err := svc.OpenDownload("not-a-token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
