package moderation

import (
	"errors"
	"time"

	"modguard/model"
)

// Validation errors surfaced to the initiating moderator. They never indicate
// a mutated case.
var (
	ErrCaseNotFound     = errors.New("moderation case not found")
	ErrCaseNotPending   = errors.New("moderation case is no longer pending")
	ErrNoReasons        = errors.New("no reason codes selected")
	ErrInvalidDuration  = errors.New("invalid duration preset")
	ErrDurationRequired = errors.New("a duration is required for this action")

	// ErrConfirmInProgress is returned when a confirm attempt races another
	// confirm or cancel on the same case. The losing attempt performs no
	// side effects.
	ErrConfirmInProgress = errors.New("a decision for this case is already in progress")

	// ErrActionFailed wraps platform errors from the side-effecting call.
	// The case has been forced to failed when this is returned.
	ErrActionFailed = errors.New("moderation action failed")
)

// ExecutionWindow carries the fields written together with the
// pending -> active transition.
type ExecutionWindow struct {
	StartTs   time.Time
	EndTs     *time.Time
	Permanent bool
}

// CaseStore is the durable storage contract the engine depends on.
//
// Lookups return (nil, nil) when no case exists; only connectivity failures
// surface as errors. TransitionStatus is the conditional update that keeps a
// case from being executed twice: it must return false, without writing,
// whenever the current status differs from expected.
type CaseStore interface {
	Create(c *model.ModerationCase) error
	GetByID(id string) (*model.ModerationCase, error)
	UpdateReasonCodes(id string, codes []string) error
	UpdateCustomReason(id string, text string) error
	UpdateDuration(id string, endTs *time.Time, permanent bool) error
	UpdateReasonText(id string, text string) error
	UpdateDMDelivered(id string, delivered bool) error
	UpdateAuditLogID(id string, ref string) error
	TransitionStatus(id string, expected, next model.CaseStatus, window *ExecutionWindow) (bool, error)
	FindDueForExpiry(now time.Time, limit int) ([]model.ModerationCase, error)
	MarkLifted(id string) (bool, error)
}
