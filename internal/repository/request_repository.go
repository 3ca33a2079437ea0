package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arkisys/registrar-api/internal/models"
)

// ErrRequestOwned reports that a workflow write lost the ownership race:
// another registrar holds the claim on the request.
var ErrRequestOwned = errors.New("request owned by another registrar")

// RequestRepository persists document requests, ownership claims, and
// release schedules.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `r.id, r.student_id, s.first_name || ' ' || s.last_name AS student_name,
       r.document_type_id, dt.name AS document_name, dt.category,
       r.status, r.purpose, r.display_purpose, r.date_requested, r.release_date,
       (SELECT COUNT(*) FROM requirement_attachments ra WHERE ra.request_id = r.id AND ra.additional AND NOT ra.viewed) AS additional_requirements,
       r.created_at, r.updated_at`

const requestJoins = `FROM document_requests r
       JOIN students s ON s.id = r.student_id
       JOIN document_types dt ON dt.id = r.document_type_id`

// List returns requests matching the filter with a total count.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(r.status) = LOWER($%d)", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM request_owners ro WHERE ro.request_id = r.id AND ro.owner_id = $%d)", len(args)+1))
		args = append(args, filter.OwnerID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name || ' ' || s.last_name) LIKE $%d OR LOWER(s.lrn) LIKE $%d OR LOWER(dt.name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := strings.Join(conditions, " AND ")

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"date_requested": "r.date_requested",
		"status":         "r.status",
		"student":        "student_name",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "r.date_requested"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		requestColumns, requestJoins, where, column, order, size, offset)

	var requests []models.DocumentRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", requestJoins, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// FindByID fetches a single request.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.DocumentRequest, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE r.id = $1", requestColumns, requestJoins)
	var request models.DocumentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Stats aggregates per-status counts.
func (r *RequestRepository) Stats(ctx context.Context) (*models.RequestStats, error) {
	const query = `SELECT
       COUNT(*) FILTER (WHERE LOWER(status) = 'pending') AS pending,
       COUNT(*) FILTER (WHERE LOWER(status) = 'processed') AS processed,
       COUNT(*) FILTER (WHERE LOWER(status) = 'signatory') AS signatory,
       COUNT(*) FILTER (WHERE LOWER(status) = 'release') AS release,
       COUNT(*) FILTER (WHERE LOWER(status) = 'completed') AS completed,
       COUNT(*) FILTER (WHERE LOWER(status) = 'cancelled') AS cancelled,
       COUNT(*) AS total
       FROM document_requests`
	var stats models.RequestStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("request stats: %w", err)
	}
	return &stats, nil
}

// GetOwner returns the ownership record, or nil while the request is
// unclaimed.
func (r *RequestRepository) GetOwner(ctx context.Context, requestID string) (*models.RequestOwner, error) {
	const query = `SELECT ro.request_id, ro.owner_id, u.first_name || ' ' || u.last_name AS owner_name, ro.processed_at
       FROM request_owners ro JOIN users u ON u.id = ro.owner_id
       WHERE ro.request_id = $1`
	var owner models.RequestOwner
	if err := r.db.GetContext(ctx, &owner, query, requestID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get request owner: %w", err)
	}
	return &owner, nil
}

// claimInTx records the acting registrar as owner if the request is still
// unclaimed, then verifies who holds the claim. Inside a transaction so a
// failed status write never leaves a stray claim behind.
func claimInTx(ctx context.Context, tx *sqlx.Tx, requestID, ownerID string, at time.Time) error {
	const insert = `INSERT INTO request_owners (request_id, owner_id, processed_at)
       VALUES ($1, $2, $3)
       ON CONFLICT (request_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insert, requestID, ownerID, at); err != nil {
		return fmt.Errorf("claim request: %w", err)
	}
	var holder string
	const check = `SELECT owner_id FROM request_owners WHERE request_id = $1`
	if err := tx.GetContext(ctx, &holder, check, requestID); err != nil {
		return fmt.Errorf("check request owner: %w", err)
	}
	if holder != ownerID {
		return ErrRequestOwned
	}
	return nil
}

// UpdateStatus claims the request for ownerID and moves it between statuses
// with a compare-and-set on the current status, both in one transaction.
// Returns sql.ErrNoRows when the request is no longer in the expected
// status, ErrRequestOwned when another registrar holds the claim; either
// way the claim does not stick.
func (r *RequestRepository) UpdateStatus(ctx context.Context, requestID, ownerID, fromStatus, toStatus string, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin status tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := claimInTx(ctx, tx, requestID, ownerID, at); err != nil {
		return err
	}

	const query = `UPDATE document_requests SET status = $3, updated_at = $4
       WHERE id = $1 AND LOWER(status) = LOWER($2)`
	result, err := tx.ExecContext(ctx, query, requestID, fromStatus, toStatus, at)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check status update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit status tx: %w", err)
	}
	return nil
}

// CreateSchedule claims the request for its creator, records the release
// schedule, and advances the request from Signatory to Release in one
// transaction; a failed schedule leaves the request in Signatory, unclaimed
// by the caller.
func (r *RequestRepository) CreateSchedule(ctx context.Context, schedule *models.ReleaseSchedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	if err := claimInTx(ctx, tx, schedule.RequestID, schedule.CreatedBy, schedule.CreatedAt); err != nil {
		return err
	}
	const insert = `INSERT INTO release_schedules (request_id, date_schedule, created_by, created_at)
       VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, insert, schedule.RequestID, schedule.DateSchedule, schedule.CreatedBy, schedule.CreatedAt); err != nil {
		return fmt.Errorf("insert release schedule: %w", err)
	}

	const advance = `UPDATE document_requests SET status = 'Release', release_date = $2, updated_at = $3
       WHERE id = $1 AND LOWER(status) = 'signatory'`
	result, err := tx.ExecContext(ctx, advance, schedule.RequestID, schedule.DateSchedule, schedule.CreatedAt)
	if err != nil {
		return fmt.Errorf("advance to release: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check advance rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule tx: %w", err)
	}
	return nil
}

// GetSchedule fetches the release schedule for a request.
func (r *RequestRepository) GetSchedule(ctx context.Context, requestID string) (*models.ReleaseSchedule, error) {
	const query = `SELECT request_id, date_schedule, created_by, created_at FROM release_schedules WHERE request_id = $1`
	var schedule models.ReleaseSchedule
	if err := r.db.GetContext(ctx, &schedule, query, requestID); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ExpectedDays returns the per-type processing-day override when present.
func (r *RequestRepository) ExpectedDays(ctx context.Context, documentTypeID string) (*int, error) {
	const query = `SELECT expected_days FROM document_types WHERE id = $1`
	var days *int
	if err := r.db.GetContext(ctx, &days, query, documentTypeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("expected days: %w", err)
	}
	return days, nil
}
