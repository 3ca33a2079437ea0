package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arkisys/registrar-api/internal/models"
)

// RequirementRepository persists request attachments and registrar comments.
type RequirementRepository struct {
	db *sqlx.DB
}

// NewRequirementRepository constructs the repository.
func NewRequirementRepository(db *sqlx.DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

// Attachments lists attachments for a request ordered by requirement type,
// matching the grouped display.
func (r *RequirementRepository) Attachments(ctx context.Context, requestID string) ([]models.RequirementAttachment, error) {
	const query = `SELECT id, request_id, requirement_type, file_path, additional, viewed, created_at
       FROM requirement_attachments WHERE request_id = $1 ORDER BY requirement_type, created_at`
	var attachments []models.RequirementAttachment
	if err := r.db.SelectContext(ctx, &attachments, query, requestID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return attachments, nil
}

// CreateAttachment stores an attachment row.
func (r *RequirementRepository) CreateAttachment(ctx context.Context, attachment *models.RequirementAttachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO requirement_attachments (id, request_id, requirement_type, file_path, additional, viewed, created_at)
       VALUES (:id, :request_id, :requirement_type, :file_path, :additional, :viewed, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attachment); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// MarkAdditionalViewed flags every unviewed additional attachment of the
// request as seen. Best-effort callers log failures and continue.
func (r *RequirementRepository) MarkAdditionalViewed(ctx context.Context, requestID string) error {
	const query = `UPDATE requirement_attachments SET viewed = TRUE
       WHERE request_id = $1 AND additional AND NOT viewed`
	if _, err := r.db.ExecContext(ctx, query, requestID); err != nil {
		return fmt.Errorf("mark additional viewed: %w", err)
	}
	return nil
}

// Comments lists comments for an attachment, newest first.
func (r *RequirementRepository) Comments(ctx context.Context, attachmentID string) ([]models.RequirementComment, error) {
	const query = `SELECT c.id, c.attachment_id, c.comment, c.status, c.registrar_id,
       u.first_name AS registrar_first_name, u.last_name AS registrar_last_name,
       c.is_notified, c.created_at
       FROM requirement_comments c JOIN users u ON u.id = c.registrar_id
       WHERE c.attachment_id = $1 ORDER BY c.created_at DESC`
	var comments []models.RequirementComment
	if err := r.db.SelectContext(ctx, &comments, query, attachmentID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// CreateComment inserts a registrar comment flagging an attachment problem.
func (r *RequirementRepository) CreateComment(ctx context.Context, comment *models.RequirementComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.Status == "" {
		comment.Status = models.CommentStatusPending
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO requirement_comments (id, attachment_id, comment, status, registrar_id, is_notified, created_at)
       VALUES (:id, :attachment_id, :comment, :status, :registrar_id, :is_notified, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// UpdateCommentStatus toggles a comment between pending and resolved.
func (r *RequirementRepository) UpdateCommentStatus(ctx context.Context, commentID string, status models.CommentStatus) error {
	const query = `UPDATE requirement_comments SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, commentID, status); err != nil {
		return fmt.Errorf("update comment status: %w", err)
	}
	return nil
}
