package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/importer"
	"github.com/arkisys/registrar-api/internal/models"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
)

type importStudentRepository interface {
	ExistsByLRN(ctx context.Context, lrn string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
}

type importAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ImportRequest applies uniform placement to every imported row; the sheet
// carries identities, the registrar picks where the batch belongs. All four
// selections must be made before any row is saved.
type ImportRequest struct {
	SectionID    *string `json:"sectionId" validate:"required"`
	StrandID     *string `json:"strandId" validate:"required"`
	SchoolYearID *string `json:"schoolYearId" validate:"required"`
	GradeLevelID *string `json:"gradeLevelId" validate:"required"`
}

// ImportRowError records why one spreadsheet row was rejected.
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Skipped int              `json:"skipped"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ImportService ingests roster spreadsheets.
type ImportService struct {
	repo      importStudentRepository
	auditRepo importAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
	maxRows   int
}

// NewImportService constructs the import service.
func NewImportService(repo importStudentRepository, auditRepo importAuditRepository, validate *validator.Validate, logger *zap.Logger, maxRows int) *ImportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 2000
	}
	return &ImportService{repo: repo, auditRepo: auditRepo, validator: validate, logger: logger, maxRows: maxRows}
}

// Import parses the spreadsheet and registers every valid row. Row failures
// are collected per row; only structural problems fail the whole file.
func (s *ImportService) Import(ctx context.Context, filename string, content []byte, req ImportRequest, actor Actor) (*ImportResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import payload")
	}

	rawRows, err := importer.ReadRows(filename, content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "could not read spreadsheet")
	}

	sheet, err := importer.Normalize(rawRows)
	if err != nil {
		if errors.Is(err, importer.ErrHeaderNotFound) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "could not find header row")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to normalize spreadsheet")
	}
	if len(sheet.Rows) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("spreadsheet exceeds the %d row limit", s.maxRows))
	}

	cols := resolveColumns(sheet.Headers, sheet.LRNColumn)
	if cols.lrn < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "spreadsheet has no LRN column")
	}
	if cols.firstName < 0 || cols.lastName < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "spreadsheet needs first and last name columns")
	}

	result := &ImportResult{Total: len(sheet.Rows)}
	for i, row := range sheet.Rows {
		// Row numbers reported to the registrar are 1-based data rows.
		rowNum := i + 1
		lrn := strings.TrimSpace(row[cols.lrn])
		first := strings.TrimSpace(row[cols.firstName])
		last := strings.TrimSpace(row[cols.lastName])
		if lrn == "" || first == "" || last == "" {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Reason: "missing LRN or name"})
			continue
		}

		exists, err := s.repo.ExistsByLRN(ctx, lrn, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check lrn")
		}
		if exists {
			result.Skipped++
			continue
		}

		student := &models.Student{
			LRN:          lrn,
			FirstName:    first,
			LastName:     last,
			SectionID:    req.SectionID,
			StrandID:     req.StrandID,
			SchoolYearID: req.SchoolYearID,
			GradeLevelID: req.GradeLevelID,
		}
		if cols.middleName >= 0 {
			student.MiddleName = strings.TrimSpace(row[cols.middleName])
		}
		if err := s.repo.Create(ctx, student); err != nil {
			s.logger.Warn("failed to import row", zap.Int("row", rowNum), zap.Error(err))
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Reason: "could not save student"})
			continue
		}
		result.Created++
	}

	if s.auditRepo != nil {
		if err := s.auditRepo.CreateAuditLog(ctx, &models.AuditLog{
			UserID:   &actor.ID,
			Action:   models.AuditActionBulkImport,
			Resource: "student",
			NewValues: []byte(fmt.Sprintf(`{"file":%q,"created":%d,"skipped":%d}`,
				filename, result.Created, result.Skipped)),
		}); err != nil {
			s.logger.Warn("failed to record import audit log", zap.Error(err))
		}
	}

	s.logger.Info("roster import finished",
		zap.String("file", filename),
		zap.Int("total", result.Total),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

type columnIndexes struct {
	lrn        int
	firstName  int
	middleName int
	lastName   int
}

// resolveColumns locates name columns by header substring. Sheets from
// different systems label these inconsistently ("FIRST NAME", "FIRSTNAME",
// "First_Name"), so matching is loose.
func resolveColumns(headers []string, lrnColumn int) columnIndexes {
	cols := columnIndexes{lrn: lrnColumn, firstName: -1, middleName: -1, lastName: -1}
	for i, header := range headers {
		upper := strings.ToUpper(strings.ReplaceAll(header, "_", " "))
		switch {
		case strings.Contains(upper, "FIRST"):
			if cols.firstName < 0 {
				cols.firstName = i
			}
		case strings.Contains(upper, "MIDDLE"):
			if cols.middleName < 0 {
				cols.middleName = i
			}
		case strings.Contains(upper, "LAST"):
			if cols.lastName < 0 {
				cols.lastName = i
			}
		}
	}
	return cols
}
