package moderation

import (
	"time"

	"modguard/model"
)

// ActionGateway performs the side-effecting platform calls. Unban and
// RemoveTimeout must treat "not banned" / "not timed out" as success so that
// reversals stay idempotent; a ban lifted by hand must not fail the sweep.
type ActionGateway interface {
	Ban(guildID, userID, reason string) error
	Unban(guildID, userID string) error
	Timeout(guildID, userID string, until time.Time) error
	RemoveTimeout(guildID, userID string) error
	Kick(guildID, userID, reason string) error
}

// DMPayload is the notification sent to the target of an executed action.
type DMPayload struct {
	CaseID     string
	GuildID    string
	Action     model.ActionType
	ReasonText string
	Permanent  bool
	EndTs      *time.Time
}

// LogEntry is a moderation-log post for an executed or lifted case.
type LogEntry struct {
	CaseID      string
	Action      model.ActionType
	TargetID    string
	ModeratorID string
	ReasonText  string
	Permanent   bool
	EndTs       *time.Time
	Lifted      bool
}

// Notifier delivers best-effort side-channel messages. Both methods report
// delivery but never fail the calling operation.
type Notifier interface {
	SendDirectMessage(userID string, p DMPayload) bool
	PostToModerationLog(guildID string, e LogEntry) bool
}

// AuditCorrelator looks up the platform audit-log entry produced by an action.
// A single attempt, never retried; propagation delay simply means no match.
type AuditCorrelator interface {
	FindRecentEntry(guildID string, action model.ActionType, targetID string) (string, error)
}
