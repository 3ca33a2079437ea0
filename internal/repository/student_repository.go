package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arkisys/registrar-api/internal/models"
)

// StudentRepository manages persistence for the student roster.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `st.id, st.lrn, st.first_name, st.middle_name, st.last_name,
       st.section_id, sec.name AS section_name, st.strand_id, str.name AS strand, str.track,
       st.school_year_id, sy.name AS school_year, st.grade_level_id, st.created_at, st.updated_at`

const studentJoins = `FROM students st
       LEFT JOIN sections sec ON sec.id = st.section_id
       LEFT JOIN strands str ON str.id = st.strand_id
       LEFT JOIN school_years sy ON sy.id = st.school_year_id`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("st.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.SchoolYearID != "" {
		conditions = append(conditions, fmt.Sprintf("st.school_year_id = $%d", len(args)+1))
		args = append(args, filter.SchoolYearID)
	}
	if filter.StrandID != "" {
		conditions = append(conditions, fmt.Sprintf("st.strand_id = $%d", len(args)+1))
		args = append(args, filter.StrandID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(st.first_name || ' ' || st.last_name) LIKE $%d OR LOWER(st.lrn) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := strings.Join(conditions, " AND ")

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"last_name":  "st.last_name",
		"lrn":        "st.lrn",
		"created_at": "st.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "st.last_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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
		studentColumns, studentJoins, where, column, order, size, offset)

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", studentJoins, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE st.id = $1", studentColumns, studentJoins)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// All returns the full roster for matching; bulk uploads need every row.
func (r *StudentRepository) All(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s %s ORDER BY st.last_name ASC", studentColumns, studentJoins)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	return students, nil
}

// ExistsByLRN checks whether a student with the LRN exists, optionally
// excluding an ID.
func (r *StudentRepository) ExistsByLRN(ctx context.Context, lrn string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE lrn = $1"
	args := []interface{}{lrn}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check lrn: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, lrn, first_name, middle_name, last_name, section_id, strand_id, school_year_id, grade_level_id, created_at, updated_at)
       VALUES (:id, :lrn, :first_name, :middle_name, :last_name, :section_id, :strand_id, :school_year_id, :grade_level_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET lrn = :lrn, first_name = :first_name, middle_name = :middle_name, last_name = :last_name,
       section_id = :section_id, strand_id = :strand_id, school_year_id = :school_year_id, grade_level_id = :grade_level_id, updated_at = :updated_at
       WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// CreateDocument records a stored per-student file such as an SF10 scan.
func (r *StudentRepository) CreateDocument(ctx context.Context, doc *models.StudentDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_documents (id, student_id, document_type, file_path, file_name, uploaded_by, created_at)
       VALUES (:id, :student_id, :document_type, :file_path, :file_name, :uploaded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create student document: %w", err)
	}
	return nil
}

// Documents lists stored files for a student.
func (r *StudentRepository) Documents(ctx context.Context, studentID string) ([]models.StudentDocument, error) {
	const query = `SELECT id, student_id, document_type, file_path, file_name, uploaded_by, created_at
       FROM student_documents WHERE student_id = $1 ORDER BY created_at DESC`
	var docs []models.StudentDocument
	if err := r.db.SelectContext(ctx, &docs, query, studentID); err != nil {
		return nil, fmt.Errorf("list student documents: %w", err)
	}
	return docs, nil
}

// HasDocuments reports whether the student has any stored documents; the
// workflow gates Pending transitions on this for non-template requests.
func (r *StudentRepository) HasDocuments(ctx context.Context, studentID string) (bool, error) {
	const query = `SELECT 1 FROM student_documents WHERE student_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student documents: %w", err)
	}
	return true, nil
}
