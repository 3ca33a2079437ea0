package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/models"
	"github.com/arkisys/registrar-api/internal/repository"
	"github.com/arkisys/registrar-api/internal/workflow"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
)

const (
	statsCacheKey          = "requests:stats"
	expectedDaysCachePrefx = "requests:expected_days:"
)

type requestRepository interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, int, error)
	FindByID(ctx context.Context, id string) (*models.DocumentRequest, error)
	Stats(ctx context.Context) (*models.RequestStats, error)
	GetOwner(ctx context.Context, requestID string) (*models.RequestOwner, error)
	UpdateStatus(ctx context.Context, requestID, ownerID, fromStatus, toStatus string, at time.Time) error
	CreateSchedule(ctx context.Context, schedule *models.ReleaseSchedule) error
	GetSchedule(ctx context.Context, requestID string) (*models.ReleaseSchedule, error)
	ExpectedDays(ctx context.Context, documentTypeID string) (*int, error)
}

type requestStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	HasDocuments(ctx context.Context, studentID string) (bool, error)
}

type requestAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Actor identifies the registrar performing a workflow operation.
type Actor struct {
	ID   string
	Name string
}

// ActionView is the portal-facing shape of the next workflow step.
type ActionView struct {
	Label            string `json:"label"`
	Next             string `json:"next"`
	Enabled          bool   `json:"enabled"`
	RequiresSchedule bool   `json:"requiresSchedule"`
	Terminal         bool   `json:"terminal"`
}

// RequestView decorates a request with release arithmetic and the action the
// acting registrar may take.
type RequestView struct {
	models.DocumentRequest
	ExpectedReleaseDate time.Time            `json:"expected_release_date"`
	DaysRemaining       int                  `json:"days_remaining"`
	Countdown           string               `json:"countdown"`
	Owner               *models.RequestOwner `json:"owner,omitempty"`
	NextAction          ActionView           `json:"next_action"`
}

// ScheduleReleaseRequest carries the registrar-chosen release date.
type ScheduleReleaseRequest struct {
	Date time.Time `json:"date" validate:"required"`
}

// ScheduleWindow bounds the selectable release dates for the scheduling form.
type ScheduleWindow struct {
	MinDate time.Time `json:"min_date"`
	MaxDate time.Time `json:"max_date"`
}

// RequestService drives the document-request lifecycle: listing, per-status
// transitions, ownership claims, and release scheduling.
type RequestService struct {
	repo        requestRepository
	studentRepo requestStudentRepository
	auditRepo   requestAuditRepository
	scheduler   *workflow.Scheduler
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	statsTTL    time.Duration
	now         func() time.Time
}

// NewRequestService constructs the request service.
func NewRequestService(repo requestRepository, studentRepo requestStudentRepository, auditRepo requestAuditRepository, scheduler *workflow.Scheduler, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, statsTTL time.Duration) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if scheduler == nil {
		scheduler = workflow.NewScheduler(nil, 0, 0, 0)
	}
	if statsTTL <= 0 {
		statsTTL = 5 * time.Minute
	}
	return &RequestService{
		repo:        repo,
		studentRepo: studentRepo,
		auditRepo:   auditRepo,
		scheduler:   scheduler,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		statsTTL:    statsTTL,
		now:         time.Now,
	}
}

// List returns decorated requests with pagination metadata.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter, actorID string) ([]RequestView, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	// One expected-days lookup per document type, not per row.
	daysByType := make(map[string]int)
	views := make([]RequestView, 0, len(requests))
	for i := range requests {
		view, err := s.buildView(ctx, &requests[i], actorID, nil, daysByType)
		if err != nil {
			return nil, nil, err
		}
		views = append(views, *view)
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
	return views, pagination, nil
}

// Get returns one decorated request including its owner.
func (s *RequestService) Get(ctx context.Context, id, actorID string) (*RequestView, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	owner, err := s.repo.GetOwner(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request owner")
	}
	return s.buildView(ctx, request, actorID, owner, make(map[string]int))
}

// Stats aggregates per-status counts, served from cache when warm. The
// second return reports whether the cache answered.
func (s *RequestService) Stats(ctx context.Context) (*models.RequestStats, bool, error) {
	var cached models.RequestStats
	if hit, _ := s.cache.Get(ctx, statsCacheKey, &cached); hit {
		return &cached, true, nil
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request stats")
	}
	if err := s.cache.Set(ctx, statsCacheKey, stats, s.statsTTL); err != nil {
		s.logger.Warn("failed to cache request stats", zap.Error(err))
	}
	return stats, false, nil
}

// Owner returns the ownership record, nil while unclaimed.
func (s *RequestService) Owner(ctx context.Context, requestID string) (*models.RequestOwner, error) {
	owner, err := s.repo.GetOwner(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request owner")
	}
	return owner, nil
}

// Process advances a request one step along the workflow: Pending to
// Processed, Processed to Signatory, or Release to Completed. The first
// advance claims the request for the acting registrar; later advances by
// anyone else are rejected with the owner's name.
func (s *RequestService) Process(ctx context.Context, requestID string, actor Actor) (*RequestView, error) {
	request, status, err := s.loadForTransition(ctx, requestID)
	if err != nil {
		return nil, err
	}

	docsAvailable, templateGenerated, err := s.documentGate(ctx, request)
	if err != nil {
		return nil, err
	}

	action := workflow.NextAction(status, docsAvailable, templateGenerated)
	if action.Terminal {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request is already "+status.String())
	}
	if !action.Enabled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "required student documents are not yet available")
	}
	if action.RequiresSchedule {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "a release schedule is required to advance this request")
	}

	if err := s.guardOwnership(ctx, requestID, status, actor); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, requestID, actor.ID, status.String(), action.Next.String(), s.now().UTC()); err != nil {
		return nil, s.transitionError(ctx, requestID, err, "failed to update request status")
	}

	s.afterTransition(ctx, request, status.String(), action.Next.String(), actor)
	return s.Get(ctx, requestID, actor.ID)
}

// Cancel moves a non-terminal request to Cancelled.
func (s *RequestService) Cancel(ctx context.Context, requestID string, actor Actor) (*RequestView, error) {
	request, status, err := s.loadForTransition(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !workflow.CanTransition(status, workflow.StatusCancelled, false) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "request can no longer be cancelled")
	}
	if err := s.guardOwnership(ctx, requestID, status, actor); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, requestID, actor.ID, status.String(), workflow.StatusCancelled.String(), s.now().UTC()); err != nil {
		return nil, s.transitionError(ctx, requestID, err, "failed to cancel request")
	}
	s.afterTransition(ctx, request, status.String(), workflow.StatusCancelled.String(), actor)
	return s.Get(ctx, requestID, actor.ID)
}

// ScheduleRelease records the release date and advances Signatory to Release.
// The schedule write and the status advance commit together.
func (s *RequestService) ScheduleRelease(ctx context.Context, requestID string, req ScheduleReleaseRequest, actor Actor) (*models.ReleaseSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	request, status, err := s.loadForTransition(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if status != workflow.StatusSignatory {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only requests awaiting signatory can be scheduled")
	}
	if err := s.guardOwnership(ctx, requestID, status, actor); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.scheduler.ValidateDate(now, req.Date); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrScheduleOutOfRange.Code, appErrors.ErrScheduleOutOfRange.Status, appErrors.ErrScheduleOutOfRange.Message)
	}

	schedule := &models.ReleaseSchedule{
		RequestID:    requestID,
		DateSchedule: req.Date,
		CreatedBy:    actor.ID,
		CreatedAt:    now.UTC(),
	}
	if err := s.repo.CreateSchedule(ctx, schedule); err != nil {
		return nil, s.transitionError(ctx, requestID, err, "failed to record release schedule")
	}

	s.afterTransition(ctx, request, workflow.StatusSignatory.String(), workflow.StatusRelease.String(), actor)
	return schedule, nil
}

// GetSchedule fetches the recorded release schedule.
func (s *RequestService) GetSchedule(ctx context.Context, requestID string) (*models.ReleaseSchedule, error) {
	schedule, err := s.repo.GetSchedule(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no release schedule recorded")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load release schedule")
	}
	return schedule, nil
}

// Window returns the selectable release-date range for the scheduling form.
func (s *RequestService) Window() ScheduleWindow {
	now := s.now()
	return ScheduleWindow{MinDate: s.scheduler.MinDate(now), MaxDate: s.scheduler.MaxDate(now)}
}

// ExpectedDays resolves the processing-day count for a document type,
// falling back to the configured default.
func (s *RequestService) ExpectedDays(ctx context.Context, documentTypeID string) (int, error) {
	cacheKey := expectedDaysCachePrefx + documentTypeID
	var cached int
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, nil
	}

	override, err := s.repo.ExpectedDays(ctx, documentTypeID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load expected days")
	}
	days := s.scheduler.DefaultExpectedDays()
	if override != nil && *override > 0 {
		days = *override
	}
	if err := s.cache.Set(ctx, cacheKey, days, s.statsTTL); err != nil {
		s.logger.Warn("failed to cache expected days", zap.Error(err))
	}
	return days, nil
}

func (s *RequestService) loadForTransition(ctx context.Context, requestID string) (*models.DocumentRequest, workflow.Status, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	status, err := workflow.ParseStatus(request.Status)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "request has an unknown status")
	}
	if status.Terminal() {
		return nil, "", appErrors.Clone(appErrors.ErrInvalidTransition, "request is already "+status.String())
	}
	return request, status, nil
}

// guardOwnership rejects actions the per-request lock disallows, surfacing
// the current owner's name. The claim itself happens inside the repository
// write transaction so a failed transition never leaves a stray claim.
func (s *RequestService) guardOwnership(ctx context.Context, requestID string, status workflow.Status, actor Actor) error {
	owner, err := s.repo.GetOwner(ctx, requestID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request owner")
	}
	if !workflow.IsActionAllowed(owner, actor.ID, status) {
		return appErrors.OwnershipConflict(owner.OwnerName)
	}
	return nil
}

// transitionError maps repository failures from a workflow write onto the
// portal's error taxonomy.
func (s *RequestService) transitionError(ctx context.Context, requestID string, err error, message string) error {
	switch {
	case errors.Is(err, repository.ErrRequestOwned):
		winner, gerr := s.repo.GetOwner(ctx, requestID)
		if gerr != nil || winner == nil {
			return appErrors.OwnershipConflict("")
		}
		return appErrors.OwnershipConflict(winner.OwnerName)
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrInvalidTransition, "request status changed, reload and retry")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *RequestService) afterTransition(ctx context.Context, request *models.DocumentRequest, from, to string, actor Actor) {
	s.metrics.RecordTransition(from, to)
	if err := s.cache.Invalidate(ctx, statsCacheKey); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}

	payload, _ := json.Marshal(map[string]string{"from": from, "to": to})
	if err := s.auditRepo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.ID,
		Action:     models.AuditActionRequestTransition,
		Resource:   "document_request",
		ResourceID: &request.ID,
		NewValues:  payload,
	}); err != nil {
		s.logger.Warn("failed to record transition audit log", zap.Error(err))
	}

	s.logger.Info("request transitioned",
		zap.String("request_id", request.ID),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("actor", actor.ID))
}

func (s *RequestService) documentGate(ctx context.Context, request *models.DocumentRequest) (docsAvailable, templateGenerated bool, err error) {
	templateGenerated = models.ResolveCategory(request.Category, request.DocumentName).TemplateGenerated()
	if templateGenerated {
		return false, true, nil
	}
	docsAvailable, err = s.studentRepo.HasDocuments(ctx, request.StudentID)
	if err != nil {
		return false, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student documents")
	}
	return docsAvailable, false, nil
}

func (s *RequestService) buildView(ctx context.Context, request *models.DocumentRequest, actorID string, owner *models.RequestOwner, daysByType map[string]int) (*RequestView, error) {
	days, ok := daysByType[request.DocumentTypeID]
	if !ok {
		var err error
		days, err = s.ExpectedDays(ctx, request.DocumentTypeID)
		if err != nil {
			return nil, err
		}
		daysByType[request.DocumentTypeID] = days
	}

	now := s.now()
	view := &RequestView{
		DocumentRequest:     *request,
		ExpectedReleaseDate: s.scheduler.ExpectedReleaseDate(request.DateRequested, days),
		DaysRemaining:       s.scheduler.DaysRemaining(request.DateRequested, days, now),
		Owner:               owner,
	}

	status, err := workflow.ParseStatus(request.Status)
	if err != nil {
		// Legacy rows can carry junk; render them terminal rather than failing
		// the whole listing.
		s.logger.Warn("request has unknown status", zap.String("request_id", request.ID), zap.String("status", request.Status))
		view.NextAction = ActionView{Label: workflow.LabelAccessDenied}
		return view, nil
	}

	switch status {
	case workflow.StatusCompleted:
		released := view.ExpectedReleaseDate
		if request.ReleaseDate != nil {
			released = *request.ReleaseDate
		}
		view.Countdown = workflow.RenderCompleted(released, s.scheduler.Location())
	case workflow.StatusCancelled:
		view.Countdown = ""
	default:
		view.Countdown = workflow.RenderCountdown(view.DaysRemaining)
	}

	docsAvailable, templateGenerated, err := s.documentGate(ctx, request)
	if err != nil {
		return nil, err
	}
	action := workflow.ActionFor(status, owner, actorID, docsAvailable, templateGenerated)
	view.NextAction = ActionView{
		Label:            action.Label,
		Next:             action.Next.String(),
		Enabled:          action.Enabled,
		RequiresSchedule: action.RequiresSchedule,
		Terminal:         action.Terminal,
	}
	return view, nil
}
