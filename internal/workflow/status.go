package workflow

import (
	"fmt"
	"strings"
)

// Status is the closed set of document-request lifecycle states. Legacy rows
// store free-form display strings, so parsing is case-insensitive.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusProcessed Status = "Processed"
	StatusSignatory Status = "Signatory"
	StatusRelease   Status = "Release"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// ParseStatus resolves a stored status string to its canonical form.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, nil
	case "processed":
		return StatusProcessed, nil
	case "signatory":
		return StatusSignatory, nil
	case "release":
		return StatusRelease, nil
	case "completed":
		return StatusCompleted, nil
	case "cancelled":
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown request status %q", raw)
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}
