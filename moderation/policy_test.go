package moderation

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modguard/model"
)

func staffActor() MemberSnapshot {
	return MemberSnapshot{
		UserID:          "mod-1",
		HasStaffRole:    true,
		Permissions:     discordgo.PermissionBanMembers | discordgo.PermissionKickMembers | discordgo.PermissionModerateMembers,
		TopRolePosition: 10,
	}
}

func botMember() MemberSnapshot {
	return MemberSnapshot{
		UserID:          "bot-1",
		IsBot:           true,
		Permissions:     discordgo.PermissionBanMembers | discordgo.PermissionKickMembers | discordgo.PermissionModerateMembers,
		TopRolePosition: 20,
	}
}

func plainTarget() MemberSnapshot {
	return MemberSnapshot{UserID: "target-1", TopRolePosition: 2}
}

func TestEvaluateConfirmAllows(t *testing.T) {
	denied := EvaluateConfirm(model.ActionBan, staffActor(), botMember(), plainTarget(), 1)
	assert.Nil(t, denied)
}

func TestEvaluateConfirmRequiresStaffRole(t *testing.T) {
	actor := staffActor()
	actor.HasStaffRole = false
	denied := EvaluateConfirm(model.ActionBan, actor, botMember(), plainTarget(), 1)
	require.NotNil(t, denied)
	assert.Equal(t, DenyNotStaff, denied.Reason)
}

func TestEvaluateConfirmChecksActorBeforeBotPermission(t *testing.T) {
	actor := staffActor()
	actor.Permissions = 0
	bot := botMember()
	bot.Permissions = 0
	denied := EvaluateConfirm(model.ActionBan, actor, bot, plainTarget(), 1)
	require.NotNil(t, denied)
	assert.Equal(t, DenyActorPermission, denied.Reason)

	// With the actor restored, the same scenario falls through to the bot check.
	denied = EvaluateConfirm(model.ActionBan, staffActor(), bot, plainTarget(), 1)
	require.NotNil(t, denied)
	assert.Equal(t, DenyBotPermission, denied.Reason)
}

func TestEvaluateConfirmStaffTargetIsImmune(t *testing.T) {
	target := plainTarget()
	target.HasStaffRole = true
	// Immunity wins even when the actor outranks the target.
	denied := EvaluateConfirm(model.ActionKick, staffActor(), botMember(), target, 1)
	require.NotNil(t, denied)
	assert.Equal(t, DenyTargetImmune, denied.Reason)
}

func TestEvaluateConfirmHierarchy(t *testing.T) {
	target := plainTarget()
	target.TopRolePosition = 10 // ties with the actor

	denied := EvaluateConfirm(model.ActionBan, staffActor(), botMember(), target, 1)
	require.NotNil(t, denied)
	assert.Equal(t, DenyActorHierarchy, denied.Reason)

	bot := botMember()
	bot.TopRolePosition = 5
	target.TopRolePosition = 8
	denied = EvaluateConfirm(model.ActionBan, staffActor(), bot, target, 1)
	require.NotNil(t, denied)
	assert.Equal(t, DenyBotHierarchy, denied.Reason)
}

func TestEvaluateConfirmOwnerBypassesHierarchy(t *testing.T) {
	actor := MemberSnapshot{UserID: "owner-1", IsOwner: true}
	target := plainTarget()
	target.TopRolePosition = 100
	bot := botMember()
	bot.TopRolePosition = 200
	denied := EvaluateConfirm(model.ActionBan, actor, bot, target, 1)
	assert.Nil(t, denied)
}

func TestEvaluateConfirmSkipsHierarchyForUnbanAndWarn(t *testing.T) {
	target := plainTarget()
	target.TopRolePosition = 100 // above both actor and bot

	assert.Nil(t, EvaluateConfirm(model.ActionUnban, staffActor(), botMember(), target, 1))
	assert.Nil(t, EvaluateConfirm(model.ActionWarn, staffActor(), botMember(), target, 1))
}

func TestEvaluateConfirmRequiresReasons(t *testing.T) {
	denied := EvaluateConfirm(model.ActionBan, staffActor(), botMember(), plainTarget(), 0)
	require.NotNil(t, denied)
	assert.Equal(t, DenyNoReasons, denied.Reason)
}

func TestEvaluateConfirmRejectsSelfAndBotTargets(t *testing.T) {
	actor := staffActor()
	self := plainTarget()
	self.UserID = actor.UserID
	denied := EvaluateConfirm(model.ActionWarn, actor, botMember(), self, 1)
	require.NotNil(t, denied)
	assert.Equal(t, DenySelfOrBotTarget, denied.Reason)

	botAccount := plainTarget()
	botAccount.IsBot = true
	denied = EvaluateConfirm(model.ActionWarn, actor, botMember(), botAccount, 1)
	require.NotNil(t, denied)
	assert.Equal(t, DenyBotAccountTarget, denied.Reason)
}

func TestHasPermission(t *testing.T) {
	m := MemberSnapshot{Permissions: discordgo.PermissionKickMembers}
	assert.True(t, HasPermission(m, model.ActionKick))
	assert.False(t, HasPermission(m, model.ActionBan))

	// Administrator implies everything.
	admin := MemberSnapshot{Permissions: discordgo.PermissionAdministrator}
	assert.True(t, HasPermission(admin, model.ActionBan))

	// Warns need no guild permission at all.
	assert.True(t, HasPermission(MemberSnapshot{}, model.ActionWarn))

	// The owner needs no explicit bits.
	assert.True(t, HasPermission(MemberSnapshot{IsOwner: true}, model.ActionBan))
}

func TestOutranks(t *testing.T) {
	a := MemberSnapshot{TopRolePosition: 5}
	b := MemberSnapshot{TopRolePosition: 5}
	assert.False(t, Outranks(a, b), "a tie must not count as outranking")

	a.TopRolePosition = 6
	assert.True(t, Outranks(a, b))

	owner := MemberSnapshot{IsOwner: true, TopRolePosition: 0}
	assert.True(t, Outranks(owner, MemberSnapshot{TopRolePosition: 100}))
}

func TestDenyReasonMessages(t *testing.T) {
	for _, r := range []DenyReason{
		DenyNotStaff, DenyActorPermission, DenyBotPermission, DenyTargetImmune,
		DenyActorHierarchy, DenyBotHierarchy, DenyNoReasons, DenySelfOrBotTarget,
		DenyBotAccountTarget,
	} {
		assert.NotEmpty(t, r.Message())
		assert.NotEqual(t, "Action denied.", r.Message())
	}
	assert.Equal(t, "Action denied.", DenyReason("something_else").Message())
}
