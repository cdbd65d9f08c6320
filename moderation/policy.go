package moderation

import (
	"github.com/bwmarrin/discordgo"

	"modguard/model"
)

// MemberSnapshot is a point-in-time view of one member's standing in a guild.
// Snapshots are taken fresh for every confirm attempt; privileges can change
// between wizard steps and the final decision.
type MemberSnapshot struct {
	UserID          string
	IsOwner         bool
	IsBot           bool
	HasStaffRole    bool
	Permissions     int64
	TopRolePosition int
}

// DenyReason identifies which policy check rejected an action.
type DenyReason string

const (
	DenyNotStaff         DenyReason = "not_staff"
	DenyActorPermission  DenyReason = "actor_permission"
	DenyBotPermission    DenyReason = "bot_permission"
	DenyTargetImmune     DenyReason = "target_immune"
	DenyActorHierarchy   DenyReason = "actor_hierarchy"
	DenyBotHierarchy     DenyReason = "bot_hierarchy"
	DenyNoReasons        DenyReason = "no_reasons"
	DenySelfOrBotTarget  DenyReason = "self_or_bot_target"
	DenyBotAccountTarget DenyReason = "bot_account_target"
)

// Message returns the text shown to the moderator for a denial.
func (r DenyReason) Message() string {
	switch r {
	case DenyNotStaff:
		return "You need a staff role to use moderation commands."
	case DenyActorPermission:
		return "You lack the permission required for this action."
	case DenyBotPermission:
		return "The bot lacks the permission required for this action."
	case DenyTargetImmune:
		return "This member holds a staff role and cannot be actioned."
	case DenyActorHierarchy:
		return "You must outrank the target to perform this action."
	case DenyBotHierarchy:
		return "The bot cannot act on a member ranked above it."
	case DenyNoReasons:
		return "Select at least one reason before confirming."
	case DenySelfOrBotTarget:
		return "You cannot target yourself or the bot."
	case DenyBotAccountTarget:
		return "Bot accounts cannot be targeted."
	}
	return "Action denied."
}

// DeniedError is an authorization failure. The case, if any, stays untouched.
type DeniedError struct {
	Reason DenyReason
}

func (e *DeniedError) Error() string {
	return "denied: " + string(e.Reason)
}

// requiredPermission maps an action to the minimal guild permission needed to
// perform it. Warns need none.
func requiredPermission(action model.ActionType) int64 {
	switch action {
	case model.ActionBan, model.ActionUnban:
		return discordgo.PermissionBanMembers
	case model.ActionTimeout:
		return discordgo.PermissionModerateMembers
	case model.ActionKick:
		return discordgo.PermissionKickMembers
	}
	return 0
}

// HasRequiredRole is the staff-role gate in front of every moderation command.
func HasRequiredRole(actor MemberSnapshot) bool {
	return actor.HasStaffRole || actor.IsOwner
}

// HasPermission reports whether the member carries the guild permission the
// action needs.
func HasPermission(m MemberSnapshot, action model.ActionType) bool {
	required := requiredPermission(action)
	if required == 0 || m.IsOwner {
		return true
	}
	if m.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return m.Permissions&required != 0
}

// IsImmune reports whether the target is protected from all actions. Staff
// members are immune regardless of hierarchy.
func IsImmune(target MemberSnapshot) bool {
	return target.HasStaffRole
}

// Outranks reports whether the actor strictly outranks the target. The guild
// owner outranks everyone; a tie is not enough.
func Outranks(actor, target MemberSnapshot) bool {
	if actor.IsOwner {
		return true
	}
	return actor.TopRolePosition > target.TopRolePosition
}

// IsSelfOrBotTarget reports whether the target is the acting moderator or the
// bot's own account.
func IsSelfOrBotTarget(actorID, targetID, botID string) bool {
	return targetID == actorID || targetID == botID
}

// IsBotAccount reports whether the target is an automated account.
func IsBotAccount(target MemberSnapshot) bool {
	return target.IsBot
}

// EvaluateConfirm runs the full policy chain for a confirm attempt. Checks run
// in a fixed order and the first failing one wins. Returns nil when the action
// is allowed.
func EvaluateConfirm(action model.ActionType, actor, bot, target MemberSnapshot, reasonCount int) *DeniedError {
	if !HasRequiredRole(actor) {
		return &DeniedError{DenyNotStaff}
	}
	if !HasPermission(actor, action) {
		return &DeniedError{DenyActorPermission}
	}
	if !HasPermission(bot, action) {
		return &DeniedError{DenyBotPermission}
	}
	if IsImmune(target) {
		return &DeniedError{DenyTargetImmune}
	}
	if action.HierarchyChecked() {
		if !Outranks(actor, target) {
			return &DeniedError{DenyActorHierarchy}
		}
		if !Outranks(bot, target) {
			return &DeniedError{DenyBotHierarchy}
		}
	}
	if reasonCount == 0 {
		return &DeniedError{DenyNoReasons}
	}
	if IsSelfOrBotTarget(actor.UserID, target.UserID, bot.UserID) {
		return &DeniedError{DenySelfOrBotTarget}
	}
	if IsBotAccount(target) {
		return &DeniedError{DenyBotAccountTarget}
	}
	return nil
}
