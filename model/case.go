package model

import "time"

// ActionType is the kind of moderation action a case carries out.
type ActionType string

const (
	ActionBan     ActionType = "ban"
	ActionUnban   ActionType = "unban"
	ActionTimeout ActionType = "timeout"
	ActionKick    ActionType = "kick"
	ActionWarn    ActionType = "warn"
)

// Valid reports whether the action type is one of the supported kinds.
func (a ActionType) Valid() bool {
	switch a {
	case ActionBan, ActionUnban, ActionTimeout, ActionKick, ActionWarn:
		return true
	}
	return false
}

// HierarchyChecked reports whether the action requires the actor (and the bot)
// to outrank the target.
func (a ActionType) HierarchyChecked() bool {
	switch a {
	case ActionBan, ActionKick, ActionTimeout:
		return true
	}
	return false
}

// Reversible reports whether the action can be auto-reversed after its window
// elapses. Warns and kicks have no window.
func (a ActionType) Reversible() bool {
	return a == ActionBan || a == ActionTimeout
}

// Label returns a human-readable name for the action.
func (a ActionType) Label() string {
	switch a {
	case ActionBan:
		return "Ban"
	case ActionUnban:
		return "Unban"
	case ActionTimeout:
		return "Timeout"
	case ActionKick:
		return "Kick"
	case ActionWarn:
		return "Warn"
	}
	return string(a)
}

// CaseStatus is the lifecycle state of a moderation case.
//
// Valid transitions are pending -> active, pending -> failed and
// active -> lifted. Failed and lifted are terminal.
type CaseStatus string

const (
	CasePending CaseStatus = "pending"
	CaseActive  CaseStatus = "active"
	CaseFailed  CaseStatus = "failed"
	CaseLifted  CaseStatus = "lifted"
)

// ModerationCase is a single moderation action against one member, from the
// moment a moderator opens it until it is executed, cancelled or lifted.
type ModerationCase struct {
	ID          string
	GuildID     string
	TargetID    string
	ModeratorID string
	ActionType  ActionType
	Status      CaseStatus

	// ReasonCodes holds canonical reason codes chosen in the wizard,
	// deduplicated and ordered. CustomReason is optional moderator-written
	// text; it is only kept while the CUSTOM code is selected.
	ReasonCodes  []string
	CustomReason string

	// ReasonText is the final composed reason, written once at confirmation.
	ReasonText string

	// StartTs/EndTs describe the execution window. EndTs is nil for a
	// permanent action, and also while the case is pending and no duration
	// has been chosen yet.
	StartTs   *time.Time
	EndTs     *time.Time
	Permanent bool

	DMDelivered bool
	AuditLogID  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasReasonCode reports whether the given code is currently selected.
func (c *ModerationCase) HasReasonCode(code string) bool {
	for _, rc := range c.ReasonCodes {
		if rc == code {
			return true
		}
	}
	return false
}
