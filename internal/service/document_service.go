package service

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/matching"
	"github.com/arkisys/registrar-api/internal/models"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/pdftext"
)

type docStudentRepository interface {
	All(ctx context.Context) ([]models.Student, error)
	CreateDocument(ctx context.Context, doc *models.StudentDocument) error
}

type docAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type docStorage interface {
	Save(filename string, data []byte) (string, error)
}

// UploadFile is one file in an upload batch.
type UploadFile struct {
	Name    string
	Content []byte
}

// UploadOutcome reports the match result for one uploaded file.
type UploadOutcome struct {
	Filename    string `json:"filename"`
	Matched     bool   `json:"matched"`
	StudentID   string `json:"student_id,omitempty"`
	StudentName string `json:"student_name,omitempty"`
	// Ambiguous flags files that matched more than one student; the upload
	// review screen surfaces these for manual confirmation.
	Ambiguous bool   `json:"ambiguous,omitempty"`
	Error     string `json:"error,omitempty"`
}

// UploadConfig bounds a document upload batch.
type UploadConfig struct {
	MaxBatchSize     int
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	DocumentType     string
}

// DocumentService ingests scanned student documents: it extracts PDF text,
// matches each file to a roster student, and files the stored copy under the
// matched student.
type DocumentService struct {
	repo      docStudentRepository
	auditRepo docAuditRepository
	storage   docStorage
	matcher   *matching.Matcher
	logger    *zap.Logger
	config    UploadConfig

	// extract is swappable for tests; production uses the PDF reader.
	extract func([]byte) (string, error)
}

// NewDocumentService constructs the document service.
func NewDocumentService(repo docStudentRepository, auditRepo docAuditRepository, storage docStorage, matcher *matching.Matcher, logger *zap.Logger, config UploadConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if matcher == nil {
		matcher = matching.NewMatcher(logger)
	}
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 10
	}
	if config.MaxFileSizeBytes <= 0 {
		config.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	if len(config.AllowedMIMEs) == 0 {
		config.AllowedMIMEs = []string{"application/pdf"}
	}
	if config.DocumentType == "" {
		config.DocumentType = "SF10"
	}
	return &DocumentService{
		repo:      repo,
		auditRepo: auditRepo,
		storage:   storage,
		matcher:   matcher,
		logger:    logger,
		config:    config,
		extract:   pdftext.Extract,
	}
}

// UploadBatch processes up to MaxBatchSize PDFs. Per-file failures are
// reported in the outcome list; only an unloadable roster fails the batch.
func (s *DocumentService) UploadBatch(ctx context.Context, files []UploadFile, actor Actor) ([]UploadOutcome, error) {
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no files uploaded")
	}
	if len(files) > s.config.MaxBatchSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d files per batch", s.config.MaxBatchSize))
	}

	roster, err := s.repo.All(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	outcomes := make([]UploadOutcome, 0, len(files))
	for _, file := range files {
		outcomes = append(outcomes, s.processFile(ctx, file, roster, actor))
	}
	return outcomes, nil
}

func (s *DocumentService) processFile(ctx context.Context, file UploadFile, roster []models.Student, actor Actor) UploadOutcome {
	outcome := UploadOutcome{Filename: file.Name}

	if int64(len(file.Content)) > s.config.MaxFileSizeBytes {
		outcome.Error = "file too large"
		return outcome
	}
	if !s.accepted(file.Content) {
		outcome.Error = "only PDF files are accepted"
		return outcome
	}

	text, err := s.extract(file.Content)
	if err != nil {
		s.logger.Warn("failed to extract document text", zap.String("file", file.Name), zap.Error(err))
		outcome.Error = "could not read PDF text"
		return outcome
	}

	result := s.matcher.Match(text, roster)
	if result.Student == nil {
		// Keep the bytes so nothing uploaded is lost; review picks these up.
		if _, err := s.storage.Save(unmatchedPath(file.Name), file.Content); err != nil {
			s.logger.Warn("failed to store unmatched document", zap.String("file", file.Name), zap.Error(err))
			outcome.Error = "could not store file"
		}
		return outcome
	}

	student := result.Student
	stored, err := s.storage.Save(studentPath(student.ID, file.Name), file.Content)
	if err != nil {
		s.logger.Warn("failed to store document", zap.String("file", file.Name), zap.Error(err))
		outcome.Error = "could not store file"
		return outcome
	}

	doc := &models.StudentDocument{
		StudentID:    student.ID,
		DocumentType: s.config.DocumentType,
		FilePath:     stored,
		FileName:     file.Name,
		UploadedBy:   actor.ID,
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		s.logger.Warn("failed to link document", zap.String("file", file.Name), zap.Error(err))
		outcome.Error = "could not link file to student"
		return outcome
	}

	if s.auditRepo != nil {
		if err := s.auditRepo.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.ID,
			Action:     models.AuditActionDocumentUpload,
			Resource:   "student_document",
			ResourceID: &doc.ID,
		}); err != nil {
			s.logger.Warn("failed to record upload audit log", zap.Error(err))
		}
	}

	outcome.Matched = true
	outcome.StudentID = student.ID
	outcome.StudentName = student.FullName()
	outcome.Ambiguous = result.Ambiguous
	return outcome
}

// accepted sniffs the file body against the configured MIME allow-list. The
// extension is ignored; content is what gets matched and stored.
func (s *DocumentService) accepted(content []byte) bool {
	detected := http.DetectContentType(content)
	for _, mime := range s.config.AllowedMIMEs {
		if strings.EqualFold(detected, mime) {
			return true
		}
	}
	return false
}

func studentPath(studentID, filename string) string {
	return filepath.Join("students", studentID, timestamped(filename))
}

func unmatchedPath(filename string) string {
	return filepath.Join("unmatched", timestamped(filename))
}

func timestamped(filename string) string {
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(filename))
}
