package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/jafarshop/relister/internal/domain"
)

// Failure reasons reported to callers of the upload entrypoint
const (
	ReasonMissingCredentials  = "missing_required_credentials"
	ReasonIPNotAllowed        = "ip_not_allowed"
	ReasonSourceUnreachable   = "source_unreachable"
	ReasonImageUnreachable    = "image_unreachable"
	ReasonDestinationRejected = "destination_rejected"
	ReasonApprovalPending     = "approval_pending"
	ReasonApprovalRejected    = "approval_rejected"
	ReasonUnsupportedSource   = "unsupported_source"
	ReasonValidation          = "validation_failed"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict is returned when another upload is already in flight
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "conflict"
}

// ErrBusy is the conflict returned by the single-flight guard
var ErrBusy = &ErrConflict{Message: "busy: another upload is in progress"}

// ErrValidation is returned when a draft or payload fails validation
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "validation failed"
}

// ErrInvalidStateTransition is returned when an upload run moves between incompatible states
type ErrInvalidStateTransition struct {
	From domain.RunStatus
	To   domain.RunStatus
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrPreflight is a fatal gate failure raised before any network side effect
type ErrPreflight struct {
	Reason  string
	Message string
}

func (e *ErrPreflight) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Message)
	}
	return e.Reason
}

// ErrSourceUnreachable wraps failures loading the source page
type ErrSourceUnreachable struct {
	URL string
	Err error
}

func (e *ErrSourceUnreachable) Error() string {
	return fmt.Sprintf("source unreachable: %s: %v", e.URL, e.Err)
}

func (e *ErrSourceUnreachable) Unwrap() error { return e.Err }

// ErrImageUnreachable is returned when the representative image cannot be fetched
type ErrImageUnreachable struct {
	URL string
	Err error
}

func (e *ErrImageUnreachable) Error() string {
	return fmt.Sprintf("main image download failed: %s: %v", e.URL, e.Err)
}

func (e *ErrImageUnreachable) Unwrap() error { return e.Err }

// ErrDestinationRejected carries the destination response body verbatim
type ErrDestinationRejected struct {
	Operation string
	Status    int
	Body      string
}

func (e *ErrDestinationRejected) Error() string {
	return fmt.Sprintf("destination rejected %s: status %d, body: %s", e.Operation, e.Status, e.Body)
}

// ErrApprovalRejected is returned when the marketplace review declines a submitted listing
type ErrApprovalRejected struct {
	SellerProductID int64
	Status          string
}

func (e *ErrApprovalRejected) Error() string {
	return fmt.Sprintf("listing %d rejected in review: %s", e.SellerProductID, e.Status)
}

// Reason maps an error to its failure reason. Unknown errors map to "".
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var preflight *ErrPreflight
	if stderrors.As(err, &preflight) {
		return preflight.Reason
	}
	var source *ErrSourceUnreachable
	if stderrors.As(err, &source) {
		return ReasonSourceUnreachable
	}
	var image *ErrImageUnreachable
	if stderrors.As(err, &image) {
		return ReasonImageUnreachable
	}
	var rejected *ErrDestinationRejected
	if stderrors.As(err, &rejected) {
		return ReasonDestinationRejected
	}
	var declined *ErrApprovalRejected
	if stderrors.As(err, &declined) {
		return ReasonApprovalRejected
	}
	var validation *ErrValidation
	if stderrors.As(err, &validation) {
		return ReasonValidation
	}
	return ""
}
