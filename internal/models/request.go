package models

import (
	"strings"
	"time"
)

// DocumentCategory classifies what a requested document is generated from.
// Template categories (diploma, certificate, CAV) are rendered from built-in
// templates and need no pre-existing student documents before processing.
type DocumentCategory string

const (
	CategoryRecord      DocumentCategory = "RECORD"
	CategoryDiploma     DocumentCategory = "DIPLOMA"
	CategoryCertificate DocumentCategory = "CERTIFICATE"
	CategoryCAV         DocumentCategory = "CAV"
)

// TemplateGenerated reports whether the category is rendered from a template.
func (c DocumentCategory) TemplateGenerated() bool {
	switch c {
	case CategoryDiploma, CategoryCertificate, CategoryCAV:
		return true
	}
	return false
}

// ResolveCategory returns the stored category when recognized, falling back
// to document-name keywords for legacy rows created before categories were
// recorded.
func ResolveCategory(category DocumentCategory, documentName string) DocumentCategory {
	switch category {
	case CategoryRecord, CategoryDiploma, CategoryCertificate, CategoryCAV:
		return category
	}
	name := strings.ToLower(documentName)
	switch {
	case strings.Contains(name, "diploma"):
		return CategoryDiploma
	case strings.Contains(name, "cav"), strings.Contains(name, "authentication"):
		return CategoryCAV
	case strings.Contains(name, "cert"):
		return CategoryCertificate
	}
	return CategoryRecord
}

// DocumentType is a requestable document kind (SF10, diploma, CAV, ...).
type DocumentType struct {
	ID           string           `db:"id" json:"id"`
	Name         string           `db:"name" json:"name"`
	Category     DocumentCategory `db:"category" json:"category"`
	ExpectedDays *int             `db:"expected_days" json:"expected_days,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// DocumentRequest is a student's request for a registrar document.
type DocumentRequest struct {
	ID             string           `db:"id" json:"id"`
	StudentID      string           `db:"student_id" json:"student_id"`
	StudentName    string           `db:"student_name" json:"student"`
	DocumentTypeID string           `db:"document_type_id" json:"document_type_id"`
	DocumentName   string           `db:"document_name" json:"document"`
	Category       DocumentCategory `db:"category" json:"category"`
	Status         string           `db:"status" json:"status"`
	Purpose        string           `db:"purpose" json:"purpose"`
	DisplayPurpose *string          `db:"display_purpose" json:"display_purpose,omitempty"`
	DateRequested  time.Time        `db:"date_requested" json:"date_requested"`
	ReleaseDate    *time.Time       `db:"release_date" json:"release_date,omitempty"`
	// AdditionalRequirements counts attachments flagged as extra requirements
	// still pending registrar review.
	AdditionalRequirements int       `db:"additional_requirements" json:"has_additional_requirements"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// RequestOwner is the soft lock set when a registrar first advances a
// request beyond Pending. Absent while the request is unclaimed.
type RequestOwner struct {
	RequestID   string    `db:"request_id" json:"request_id"`
	OwnerID     string    `db:"owner_id" json:"ownerId"`
	OwnerName   string    `db:"owner_name" json:"owner"`
	ProcessedAt time.Time `db:"processed_at" json:"processedAt"`
}

// ReleaseSchedule is the registrar-chosen release date recorded during the
// Signatory to Release transition. Immutable once created.
type ReleaseSchedule struct {
	RequestID    string    `db:"request_id" json:"request_id"`
	DateSchedule time.Time `db:"date_schedule" json:"dateSchedule"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// RequestFilter captures listing criteria for document requests.
type RequestFilter struct {
	Status    string
	Search    string
	OwnerID   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RequestStats aggregates per-status counts for the dashboard.
type RequestStats struct {
	Pending   int `db:"pending" json:"pending"`
	Processed int `db:"processed" json:"processed"`
	Signatory int `db:"signatory" json:"signatory"`
	Release   int `db:"release" json:"release"`
	Completed int `db:"completed" json:"completed"`
	Cancelled int `db:"cancelled" json:"cancelled"`
	Total     int `db:"total" json:"total"`
}
