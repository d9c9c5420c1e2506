package domain

// RunStatus represents the externally reported status of an upload run
type RunStatus string

const (
	// PENDING - run accepted, nothing submitted yet
	RunStatusPending RunStatus = "pending"
	// SUBMITTED - create-listing call accepted by the destination
	RunStatusSubmitted RunStatus = "submitted"
	// APPROVED - destination reported the listing as approved
	RunStatusApproved RunStatus = "approved"
	// FAILED - terminal failure (pre-flight, source, image or destination)
	RunStatusFailed RunStatus = "failed"
)

// IsValid checks if the run status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusSubmitted, RunStatusApproved, RunStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid
func (s RunStatus) CanTransitionTo(newStatus RunStatus) bool {
	switch s {
	case RunStatusPending:
		return newStatus == RunStatusSubmitted || newStatus == RunStatusFailed
	case RunStatusSubmitted:
		return newStatus == RunStatusApproved || newStatus == RunStatusFailed
	case RunStatusApproved, RunStatusFailed:
		return false // Terminal states
	default:
		return false
	}
}

// Stage is one step of the upload state machine
type Stage string

const (
	StageClassified Stage = "classified"
	StageExtracted  Stage = "extracted"
	StageResolved   Stage = "resolved"
	StageBuilt      Stage = "built"
	StageSubmitted  Stage = "submitted"
	StageApproving  Stage = "approving"
	StageApproved   Stage = "approved"
	StageFailed     Stage = "failed"
)

// order returns the position of a stage in the forward path
func (s Stage) order() int {
	switch s {
	case StageClassified:
		return 1
	case StageExtracted:
		return 2
	case StageResolved:
		return 3
	case StageBuilt:
		return 4
	case StageSubmitted:
		return 5
	case StageApproving:
		return 6
	case StageApproved:
		return 7
	default:
		return 0
	}
}

// CanAdvanceTo reports whether a run may move from s to next.
// Any non-terminal stage may fail; otherwise stages only move forward.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if s == StageApproved || s == StageFailed {
		return false
	}
	if next == StageFailed {
		return true
	}
	if s == "" {
		return next == StageClassified
	}
	return next.order() > s.order()
}

// InFlight reports whether the stage still holds the single-flight slot
func (s Stage) InFlight() bool {
	return s.order() >= StageClassified.order() && s.order() <= StageSubmitted.order()
}

// ApprovalState is the destination-side listing status as reported by the seller API
type ApprovalState string

const (
	ApprovalStateApproved        ApprovalState = "승인완료"
	ApprovalStatePartialApproved ApprovalState = "부분승인완료"
	ApprovalStateRejected        ApprovalState = "승인반려"
	ApprovalStateRequested       ApprovalState = "승인대기중"
	ApprovalStateSaved           ApprovalState = "임시저장"
)

// IsApproved reports whether the listing is live
func (a ApprovalState) IsApproved() bool {
	return a == ApprovalStateApproved || a == ApprovalStatePartialApproved
}

// IsTerminal reports whether polling can stop
func (a ApprovalState) IsTerminal() bool {
	return a.IsApproved() || a == ApprovalStateRejected
}
