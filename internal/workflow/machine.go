package workflow

// Action describes the single next step available for a request in a given
// status: the button label the portal renders, the resulting status, and
// whether the step is currently permitted.
type Action struct {
	Label   string
	Next    Status
	Enabled bool
	// RequiresSchedule marks the two-phase Signatory exit: the portal opens
	// the scheduling form, and only a successful schedule submission advances
	// the request to Release.
	RequiresSchedule bool
	Terminal         bool
}

// Action labels are part of the portal contract and rendered verbatim.
const (
	LabelMarkProcessed      = "Mark as Processed"
	LabelProceedSignatory   = "Proceed to Signatory"
	LabelSetReleaseSchedule = "Set Release Schedule"
	LabelMarkCompleted      = "Mark as Completed"
	LabelCompleted          = "Document Completed"
	LabelCancelled          = "Request Cancelled"
	LabelAccessDenied       = "Access Denied"
)

// NextAction returns the action for the given status. docsAvailable reports
// whether the student has required documents on file; templateGenerated is
// true for diploma/certificate/CAV types, which need no pre-existing
// documents before processing.
func NextAction(status Status, docsAvailable, templateGenerated bool) Action {
	switch status {
	case StatusPending:
		return Action{
			Label:   LabelMarkProcessed,
			Next:    StatusProcessed,
			Enabled: docsAvailable || templateGenerated,
		}
	case StatusProcessed:
		return Action{Label: LabelProceedSignatory, Next: StatusSignatory, Enabled: true}
	case StatusSignatory:
		return Action{
			Label:            LabelSetReleaseSchedule,
			Next:             StatusRelease,
			Enabled:          true,
			RequiresSchedule: true,
		}
	case StatusRelease:
		return Action{Label: LabelMarkCompleted, Next: StatusCompleted, Enabled: true}
	case StatusCompleted:
		return Action{Label: LabelCompleted, Next: StatusCompleted, Terminal: true}
	case StatusCancelled:
		return Action{Label: LabelCancelled, Next: StatusCancelled, Terminal: true}
	}
	return Action{Label: LabelAccessDenied}
}

// CanTransition validates a requested move against the transition table.
// Signatory to Release is only reachable through schedule submission, which
// callers signal with scheduled.
func CanTransition(from, to Status, scheduled bool) bool {
	if from.Terminal() {
		return false
	}
	switch from {
	case StatusPending:
		return to == StatusProcessed || to == StatusCancelled
	case StatusProcessed:
		return to == StatusSignatory || to == StatusCancelled
	case StatusSignatory:
		if to == StatusRelease {
			return scheduled
		}
		return to == StatusCancelled
	case StatusRelease:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}
