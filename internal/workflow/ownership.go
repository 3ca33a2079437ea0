package workflow

import "github.com/arkisys/registrar-api/internal/models"

// IsActionAllowed applies the ownership guard: an unclaimed request may be
// handled by anyone, the owning registrar may always continue, and everyone
// else is locked out once the request has left Pending. Pending requests
// stay globally available until first claimed.
//
// The repository's conditional claim is the source of truth; this check
// exists so callers can short-circuit obviously futile transitions and
// render "Access Denied" up front.
func IsActionAllowed(owner *models.RequestOwner, actorID string, status Status) bool {
	if owner == nil || owner.OwnerID == "" {
		return true
	}
	if owner.OwnerID == actorID {
		return true
	}
	return status == StatusPending
}

// ActionFor combines the status machine with the ownership guard, returning
// the disabled "Access Denied" action when the actor may not proceed.
func ActionFor(status Status, owner *models.RequestOwner, actorID string, docsAvailable, templateGenerated bool) Action {
	action := NextAction(status, docsAvailable, templateGenerated)
	if action.Terminal {
		return action
	}
	if !IsActionAllowed(owner, actorID, status) {
		return Action{Label: LabelAccessDenied, Next: status}
	}
	return action
}
