package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/models"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/export"
	"github.com/arkisys/registrar-api/pkg/jobs"
	"github.com/arkisys/registrar-api/pkg/storage"
)

type certRequestRepository interface {
	FindByID(ctx context.Context, id string) (*models.DocumentRequest, error)
}

type certStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type certStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

type certAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CertificateConfig carries institution identity stamped onto every
// generated document.
type CertificateConfig struct {
	SchoolName    string
	SchoolAddress string
	Workers       int
	Retries       int
}

// GeneratedCertificate describes a rendered document and its download token.
type GeneratedCertificate struct {
	RequestID   string    `json:"request_id"`
	Kind        string    `json:"kind"`
	FilePath    string    `json:"file_path"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type certificateJob struct {
	RequestID string
	Actor     Actor
}

// CertificateService renders template-generated documents (diplomas,
// certifications, CAV packages) for requests whose document type is
// template-backed. Single requests render inline; batches go through the
// worker queue.
type CertificateService struct {
	requests  certRequestRepository
	students  certStudentRepository
	auditRepo certAuditRepository
	storage   certStorage
	signer    *storage.SignedURLSigner
	renderer  *export.CertificateRenderer
	queue     *jobs.Queue
	logger    *zap.Logger
	config    CertificateConfig
}

// NewCertificateService constructs the certificate service and its render
// queue. Call Start before enqueueing batches and Stop on shutdown.
func NewCertificateService(requests certRequestRepository, students certStudentRepository, auditRepo certAuditRepository, store certStorage, signer *storage.SignedURLSigner, logger *zap.Logger, config CertificateConfig) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CertificateService{
		requests:  requests,
		students:  students,
		auditRepo: auditRepo,
		storage:   store,
		signer:    signer,
		renderer:  export.NewCertificateRenderer(),
		logger:    logger,
		config:    config,
	}
	s.queue = jobs.NewQueue("certificates", s.handleJob, jobs.QueueConfig{
		Workers:    config.Workers,
		MaxRetries: config.Retries,
		Logger:     logger,
	})
	return s
}

// Start launches the render workers.
func (s *CertificateService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the render workers.
func (s *CertificateService) Stop() {
	s.queue.Stop()
}

// Generate renders the certificate for one request inline.
func (s *CertificateService) Generate(ctx context.Context, requestID string, actor Actor) (*GeneratedCertificate, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	kind, err := kindFor(request)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, request.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	data := export.CertificateData{
		StudentName:   student.FullName(),
		LRN:           student.LRN,
		Strand:        deref(student.Strand),
		Track:         deref(student.Track),
		SchoolYear:    deref(student.SchoolYear),
		Purpose:       request.Purpose,
		SchoolName:    s.config.SchoolName,
		SchoolAddress: s.config.SchoolAddress,
		IssuedAt:      time.Now(),
		SignatoryName: actor.Name,
		SignatoryRole: "Registrar",
	}

	rendered, err := s.renderer.Render(kind, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	filename := fmt.Sprintf("%s/%s-%s.pdf", request.ID, kind, uuid.NewString())
	stored, err := s.storage.Save(filename, rendered)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store certificate")
	}

	token, expiresAt, err := s.signer.Generate(request.ID, stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	if s.auditRepo != nil {
		if err := s.auditRepo.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.ID,
			Action:     models.AuditActionCertificateIssue,
			Resource:   "document_request",
			ResourceID: &request.ID,
			NewValues:  []byte(fmt.Sprintf(`{"kind":%q}`, kind)),
		}); err != nil {
			s.logger.Warn("failed to record certificate audit log", zap.Error(err))
		}
	}

	return &GeneratedCertificate{
		RequestID:   request.ID,
		Kind:        string(kind),
		FilePath:    stored,
		DownloadURL: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// EnqueueBatch schedules background rendering for several requests.
func (s *CertificateService) EnqueueBatch(requestIDs []string, actor Actor) error {
	if len(requestIDs) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "no requests to render")
	}
	for _, id := range requestIDs {
		job := jobs.Job{
			ID:      uuid.NewString(),
			Type:    "render_certificate",
			Payload: certificateJob{RequestID: id, Actor: actor},
		}
		if err := s.queue.Enqueue(job); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue render job")
		}
	}
	return nil
}

// OpenDownload validates a signed token and opens the referenced file.
func (s *CertificateService) OpenDownload(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "certificate no longer available")
	}
	return file, nil
}

func (s *CertificateService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(certificateJob)
	if !ok {
		s.logger.Error("certificate job carries unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	_, err := s.Generate(ctx, payload.RequestID, payload.Actor)
	return err
}

// kindFor maps a request's category to a renderer template.
func kindFor(request *models.DocumentRequest) (export.CertificateKind, error) {
	switch models.ResolveCategory(request.Category, request.DocumentName) {
	case models.CategoryDiploma:
		return export.KindDiploma, nil
	case models.CategoryCertificate:
		return export.KindCertificate, nil
	case models.CategoryCAV:
		return export.KindCAV, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "document type is not template generated")
}

