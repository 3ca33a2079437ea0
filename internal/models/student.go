package models

import "time"

// Student represents a learner on the institution's roster. LRN is the
// externally issued Learner Reference Number and uniquely identifies a
// student within the institution.
type Student struct {
	ID           string    `db:"id" json:"id"`
	LRN          string    `db:"lrn" json:"lrn"`
	FirstName    string    `db:"first_name" json:"firstname"`
	MiddleName   string    `db:"middle_name" json:"middlename"`
	LastName     string    `db:"last_name" json:"lastname"`
	SectionID    *string   `db:"section_id" json:"sectionId,omitempty"`
	SectionName  *string   `db:"section_name" json:"sectionName,omitempty"`
	StrandID     *string   `db:"strand_id" json:"strandId,omitempty"`
	Strand       *string   `db:"strand" json:"strand,omitempty"`
	Track        *string   `db:"track" json:"track,omitempty"`
	SchoolYearID *string   `db:"school_year_id" json:"schoolYearId,omitempty"`
	SchoolYear   *string   `db:"school_year" json:"schoolYear,omitempty"`
	GradeLevelID *string   `db:"grade_level_id" json:"gradeLevelId,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the name parts for display and matching.
func (s Student) FullName() string {
	name := s.FirstName
	if s.MiddleName != "" {
		name += " " + s.MiddleName
	}
	if s.LastName != "" {
		name += " " + s.LastName
	}
	return name
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	SectionID    string
	SchoolYearID string
	StrandID     string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// StudentDocument is a stored per-student file such as an SF10 scan.
type StudentDocument struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	DocumentType string    `db:"document_type" json:"document_type"`
	FilePath     string    `db:"file_path" json:"filepath"`
	FileName     string    `db:"file_name" json:"filename"`
	UploadedBy   string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
