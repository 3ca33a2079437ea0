package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/arkisys/registrar-api/internal/models"
	appErrors "github.com/arkisys/registrar-api/pkg/errors"
	"github.com/arkisys/registrar-api/pkg/storage"
)

type requirementRepository interface {
	Attachments(ctx context.Context, requestID string) ([]models.RequirementAttachment, error)
	CreateAttachment(ctx context.Context, attachment *models.RequirementAttachment) error
	MarkAdditionalViewed(ctx context.Context, requestID string) error
	Comments(ctx context.Context, attachmentID string) ([]models.RequirementComment, error)
	CreateComment(ctx context.Context, comment *models.RequirementComment) error
	UpdateCommentStatus(ctx context.Context, commentID string, status models.CommentStatus) error
}

type attachmentStorage interface {
	Open(filename string) (*os.File, error)
}

// AddCommentRequest holds payload for flagging an attachment problem.
type AddCommentRequest struct {
	Comment string `json:"comment" validate:"required"`
}

// DownloadAllResult reports the outcome of a batched attachment download.
type DownloadAllResult struct {
	Archive   []byte
	Filename  string
	Total     int
	Succeeded int
	Failed    []string
}

// RequirementService manages request attachments and registrar review
// comments.
type RequirementService struct {
	repo          requirementRepository
	storage       attachmentStorage
	signer        *storage.SignedURLSigner
	validator     *validator.Validate
	logger        *zap.Logger
	downloadDelay time.Duration
}

// NewRequirementService constructs the requirement service.
func NewRequirementService(repo requirementRepository, store attachmentStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, downloadDelay time.Duration) *RequirementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequirementService{
		repo:          repo,
		storage:       store,
		signer:        signer,
		validator:     validate,
		logger:        logger,
		downloadDelay: downloadDelay,
	}
}

// Attachments lists the request's attachments grouped by requirement type.
func (s *RequirementService) Attachments(ctx context.Context, requestID string) ([]models.AttachmentGroup, error) {
	attachments, err := s.repo.Attachments(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attachments")
	}

	groups := make([]models.AttachmentGroup, 0)
	index := make(map[string]int)
	for _, att := range attachments {
		if s.signer != nil {
			if token, _, err := s.signer.Generate(att.ID, att.FilePath); err == nil {
				att.DownloadURL = token
			}
		}
		i, ok := index[att.RequirementType]
		if !ok {
			i = len(groups)
			index[att.RequirementType] = i
			groups = append(groups, models.AttachmentGroup{RequirementType: att.RequirementType})
		}
		groups[i].Attachments = append(groups[i].Attachments, att)
	}
	return groups, nil
}

// OpenAttachment validates a signed token and opens the referenced file.
func (s *RequirementService) OpenAttachment(token string) (*os.File, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "attachment downloads are not enabled")
	}
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "attachment no longer available")
	}
	return file, nil
}

// MarkAdditionalViewed clears the unviewed badge for a request. Failures are
// logged but never block the caller; the badge is advisory.
func (s *RequirementService) MarkAdditionalViewed(ctx context.Context, requestID string) {
	if err := s.repo.MarkAdditionalViewed(ctx, requestID); err != nil {
		s.logger.Warn("failed to mark additional requirements viewed",
			zap.String("request_id", requestID), zap.Error(err))
	}
}

// Comments lists review comments for an attachment.
func (s *RequirementService) Comments(ctx context.Context, attachmentID string) ([]models.RequirementComment, error) {
	comments, err := s.repo.Comments(ctx, attachmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

// AddComment flags a problem with an attachment.
func (s *RequirementService) AddComment(ctx context.Context, attachmentID string, req AddCommentRequest, actor Actor) (*models.RequirementComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	comment := &models.RequirementComment{
		AttachmentID: attachmentID,
		Comment:      req.Comment,
		Status:       models.CommentStatusPending,
		RegistrarID:  actor.ID,
	}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}
	return comment, nil
}

// UpdateCommentStatus toggles a comment between pending and resolved.
func (s *RequirementService) UpdateCommentStatus(ctx context.Context, commentID string, status models.CommentStatus) error {
	if status != models.CommentStatusPending && status != models.CommentStatusResolved {
		return appErrors.Clone(appErrors.ErrValidation, "unknown comment status")
	}
	if err := s.repo.UpdateCommentStatus(ctx, commentID, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update comment status")
	}
	return nil
}

// DownloadAll bundles every attachment of a request into a zip archive.
// Files are read with a fixed delay between them, and unreadable files are
// tallied rather than failing the whole batch.
func (s *RequirementService) DownloadAll(ctx context.Context, requestID string) (*DownloadAllResult, error) {
	attachments, err := s.repo.Attachments(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attachments")
	}
	if len(attachments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "request has no attachments")
	}

	buf := &bytes.Buffer{}
	archive := zip.NewWriter(buf)
	result := &DownloadAllResult{Total: len(attachments)}

	for i, att := range attachments {
		if i > 0 && s.downloadDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.downloadDelay):
			}
		}
		if err := s.addToArchive(archive, att); err != nil {
			s.logger.Warn("skipping unreadable attachment",
				zap.String("attachment_id", att.ID), zap.Error(err))
			result.Failed = append(result.Failed, filepath.Base(att.FilePath))
			continue
		}
		result.Succeeded++
	}

	if err := archive.Close(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize archive")
	}
	if result.Succeeded == 0 {
		return nil, appErrors.Clone(appErrors.ErrInternal, "no attachments could be read")
	}

	result.Archive = buf.Bytes()
	result.Filename = fmt.Sprintf("requirements-%s.zip", requestID)
	return result, nil
}

func (s *RequirementService) addToArchive(archive *zip.Writer, att models.RequirementAttachment) error {
	file, err := s.storage.Open(att.FilePath)
	if err != nil {
		return err
	}
	defer file.Close() //nolint:errcheck

	name := fmt.Sprintf("%s/%s", att.RequirementType, filepath.Base(att.FilePath))
	entry, err := archive.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, file)
	return err
}
