package models

import "time"

// CommentStatus tracks whether a flagged attachment problem was resolved.
type CommentStatus string

const (
	CommentStatusPending  CommentStatus = "pending"
	CommentStatusResolved CommentStatus = "resolved"
)

// RequirementAttachment is a file a student attached to a request.
type RequirementAttachment struct {
	ID              string    `db:"id" json:"id"`
	RequestID       string    `db:"request_id" json:"request_id"`
	RequirementType string    `db:"requirement_type" json:"requirementType"`
	FilePath        string    `db:"file_path" json:"filepath"`
	// Additional marks requirements uploaded after the initial submission;
	// these drive the unviewed-count badge on the request list.
	Additional bool      `db:"additional" json:"additional"`
	Viewed     bool      `db:"viewed" json:"viewed"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	// DownloadURL is a transient signed token attached when listing.
	DownloadURL string `db:"-" json:"downloadUrl,omitempty"`
}

// RequirementComment is a registrar's note flagging a problem with an
// attachment. Toggling to resolved notifies the student server-side.
type RequirementComment struct {
	ID                 string        `db:"id" json:"id"`
	AttachmentID       string        `db:"attachment_id" json:"attachment_id"`
	Comment            string        `db:"comment" json:"comment"`
	Status             CommentStatus `db:"status" json:"status"`
	RegistrarID        string        `db:"registrar_id" json:"registrar_id"`
	RegistrarFirstName string        `db:"registrar_first_name" json:"registrarFirstName"`
	RegistrarLastName  string        `db:"registrar_last_name" json:"registrarLastName"`
	IsNotified         bool          `db:"is_notified" json:"isNotified"`
	CreatedAt          time.Time     `db:"created_at" json:"createdAt"`
}

// AttachmentGroup bundles attachments sharing a requirement type.
type AttachmentGroup struct {
	RequirementType string                  `json:"requirementType"`
	Attachments     []RequirementAttachment `json:"attachments"`
}
