package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/models"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]models.Student
	docs     map[string][]models.StudentDocument
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{
		students: make(map[string]models.Student),
		docs:     make(map[string][]models.StudentDocument),
	}
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	if filter.Page > 1 {
		return nil, len(out), nil
	}
	return out, len(out), nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByLRN(ctx context.Context, lrn string, excludeID string) (bool, error) {
	for _, s := range m.students {
		if s.LRN == lrn && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = fmt.Sprintf("gen-%d", len(m.students)+1)
	}
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Documents(ctx context.Context, studentID string) ([]models.StudentDocument, error) {
	return m.docs[studentID], nil
}

func TestStudentServiceCreate(t *testing.T) {
	repo := newMockStudentRepo()
	svc := NewStudentService(repo, nil, validator.New(), zap.NewNop())

	student, err := svc.Create(context.Background(), CreateStudentRequest{
		LRN:       "123456789012",
		FirstName: "Patty",
		LastName:  "Aspiras",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.Len(t, repo.students, 1)
}

func TestStudentServiceCreateDuplicateLRN(t *testing.T) {
	repo := newMockStudentRepo()
	repo.students["s1"] = models.Student{ID: "s1", LRN: "123456789012"}
	svc := NewStudentService(repo, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), CreateStudentRequest{
		LRN:       "123456789012",
		FirstName: "Patty",
		LastName:  "Aspiras",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdate(t *testing.T) {
	audit := &mockAuditRepo{}
	repo := newMockStudentRepo()
	repo.students["s1"] = models.Student{ID: "s1", LRN: "111", FirstName: "Old", LastName: "Name"}
	svc := NewStudentService(repo, audit, validator.New(), zap.NewNop())

	updated, err := svc.Update(context.Background(), "s1", UpdateStudentRequest{
		LRN:       "222",
		FirstName: "New",
		LastName:  "Name",
	}, "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "222", updated.LRN)
	assert.Equal(t, "New", updated.FirstName)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionStudentUpdate, audit.logs[0].Action)
}

func TestStudentServiceUpdateNotFound(t *testing.T) {
	svc := NewStudentService(newMockStudentRepo(), nil, validator.New(), zap.NewNop())

	_, err := svc.Update(context.Background(), "missing", UpdateStudentRequest{
		LRN:       "222",
		FirstName: "New",
		LastName:  "Name",
	}, "reg-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceExportCSV(t *testing.T) {
	repo := newMockStudentRepo()
	strand := "STEM"
	repo.students["s1"] = models.Student{ID: "s1", LRN: "123456789012", FirstName: "Patty", LastName: "Aspiras", Strand: &strand}
	svc := NewStudentService(repo, nil, validator.New(), zap.NewNop())

	data, filename, err := svc.ExportCSV(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".csv"))
	content := string(data)
	assert.Contains(t, content, "123456789012")
	assert.Contains(t, content, "STEM")
}
