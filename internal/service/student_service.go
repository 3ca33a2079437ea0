package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/models"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/export"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByLRN(ctx context.Context, lrn string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Documents(ctx context.Context, studentID string) ([]models.StudentDocument, error)
}

type studentAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	LRN          string  `json:"lrn" validate:"required"`
	FirstName    string  `json:"firstname" validate:"required"`
	MiddleName   string  `json:"middlename"`
	LastName     string  `json:"lastname" validate:"required"`
	SectionID    *string `json:"sectionId"`
	StrandID     *string `json:"strandId"`
	SchoolYearID *string `json:"schoolYearId"`
	GradeLevelID *string `json:"gradeLevelId"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	LRN          string  `json:"lrn" validate:"required"`
	FirstName    string  `json:"firstname" validate:"required"`
	MiddleName   string  `json:"middlename"`
	LastName     string  `json:"lastname" validate:"required"`
	SectionID    *string `json:"sectionId"`
	StrandID     *string `json:"strandId"`
	SchoolYearID *string `json:"schoolYearId"`
	GradeLevelID *string `json:"gradeLevelId"`
}

// StudentService handles roster use-cases.
type StudentService struct {
	repo      studentRepository
	auditRepo studentAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, auditRepo studentAuditRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{
		repo:      repo,
		auditRepo: auditRepo,
		validator: validate,
		logger:    logger,
	}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return students, pagination, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	exists, err := s.repo.ExistsByLRN(ctx, req.LRN, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate lrn")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lrn already used")
	}
	student := &models.Student{
		LRN:          req.LRN,
		FirstName:    req.FirstName,
		MiddleName:   req.MiddleName,
		LastName:     req.LastName,
		SectionID:    req.SectionID,
		StrandID:     req.StrandID,
		SchoolYearID: req.SchoolYearID,
		GradeLevelID: req.GradeLevelID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies an existing student record.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest, actorID string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByLRN(ctx, req.LRN, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate lrn")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lrn already used")
	}

	student.LRN = req.LRN
	student.FirstName = req.FirstName
	student.MiddleName = req.MiddleName
	student.LastName = req.LastName
	student.SectionID = req.SectionID
	student.StrandID = req.StrandID
	student.SchoolYearID = req.SchoolYearID
	student.GradeLevelID = req.GradeLevelID
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	if s.auditRepo != nil {
		if err := s.auditRepo.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionStudentUpdate,
			Resource:   "student",
			ResourceID: &student.ID,
		}); err != nil {
			s.logger.Warn("failed to record student update audit log", zap.Error(err))
		}
	}
	return student, nil
}

// Documents lists stored files for a student.
func (s *StudentService) Documents(ctx context.Context, studentID string) ([]models.StudentDocument, error) {
	if _, err := s.Get(ctx, studentID); err != nil {
		return nil, err
	}
	docs, err := s.repo.Documents(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student documents")
	}
	return docs, nil
}

// ExportCSV renders the filtered roster as a CSV download.
func (s *StudentService) ExportCSV(ctx context.Context, filter models.StudentFilter) ([]byte, string, error) {
	filter.Page = 1
	filter.PageSize = 100
	rows := make([]map[string]string, 0)
	for {
		students, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
		}
		for _, st := range students {
			rows = append(rows, map[string]string{
				"LRN":         st.LRN,
				"First Name":  st.FirstName,
				"Middle Name": st.MiddleName,
				"Last Name":   st.LastName,
				"Section":     deref(st.SectionName),
				"Strand":      deref(st.Strand),
				"Track":       deref(st.Track),
				"School Year": deref(st.SchoolYear),
			})
		}
		if len(rows) >= total || len(students) == 0 {
			break
		}
		filter.Page++
	}

	data, err := export.RenderCSV(export.Dataset{
		Headers: []string{"LRN", "First Name", "Middle Name", "Last Name", "Section", "Strand", "Track", "School Year"},
		Rows:    rows,
	})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster export")
	}
	filename := fmt.Sprintf("students-%s.csv", time.Now().UTC().Format("20060102-150405"))
	return data, filename, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
