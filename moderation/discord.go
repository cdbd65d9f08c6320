package moderation

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"modguard/model"
)

// isBenignRESTError reports whether err is one of the "nothing to undo" REST
// errors a reversal should treat as success.
func isBenignRESTError(err error, codes ...int) bool {
	var rerr *discordgo.RESTError
	if !errors.As(err, &rerr) || rerr.Message == nil {
		return false
	}
	for _, code := range codes {
		if rerr.Message.Code == code {
			return true
		}
	}
	return false
}

// DiscordActions implements ActionGateway on a discordgo session.
type DiscordActions struct {
	session *discordgo.Session
}

func NewDiscordActions(s *discordgo.Session) *DiscordActions {
	return &DiscordActions{session: s}
}

func (a *DiscordActions) Ban(guildID, userID, reason string) error {
	return a.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (a *DiscordActions) Unban(guildID, userID string) error {
	err := a.session.GuildBanDelete(guildID, userID)
	if err != nil && isBenignRESTError(err, discordgo.ErrCodeUnknownBan, discordgo.ErrCodeUnknownUser) {
		// Already unbanned, possibly by hand. The reversal is done.
		return nil
	}
	return err
}

func (a *DiscordActions) Timeout(guildID, userID string, until time.Time) error {
	return a.session.GuildMemberTimeout(guildID, userID, &until)
}

func (a *DiscordActions) RemoveTimeout(guildID, userID string) error {
	err := a.session.GuildMemberTimeout(guildID, userID, nil)
	if err != nil && isBenignRESTError(err, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser) {
		// The member left; there is no timeout left to clear.
		return nil
	}
	return err
}

func (a *DiscordActions) Kick(guildID, userID, reason string) error {
	return a.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

// DiscordNotifier implements Notifier with DMs and mod-log channel embeds.
type DiscordNotifier struct {
	session *discordgo.Session
	cfg     model.BotConfigProvider
}

func NewDiscordNotifier(s *discordgo.Session, cfg model.BotConfigProvider) *DiscordNotifier {
	return &DiscordNotifier{session: s, cfg: cfg}
}

func windowText(permanent bool, endTs *time.Time) string {
	if permanent {
		return "Permanent"
	}
	if endTs == nil {
		return "—"
	}
	return fmt.Sprintf("Until <t:%d:f>", endTs.Unix())
}

func (n *DiscordNotifier) SendDirectMessage(userID string, p DMPayload) bool {
	channel, err := n.session.UserChannelCreate(userID)
	if err != nil {
		log.Printf("Error creating private channel with user %s: %v", userID, err)
		return false
	}
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("You received a moderation action: %s", p.Action.Label()),
		Color: 0xff0000,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: p.ReasonText},
			{Name: "Duration", Value: windowText(p.Permanent, p.EndTs)},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Case ID: " + p.CaseID},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if _, err := n.session.ChannelMessageSendEmbed(channel.ID, embed); err != nil {
		log.Printf("Error sending private message to user %s: %v", userID, err)
		return false
	}
	return true
}

func (n *DiscordNotifier) PostToModerationLog(guildID string, e LogEntry) bool {
	serverCfg, ok := n.cfg.GetConfig().ServerConfig(guildID)
	if !ok || serverCfg.ModLogChannelID == "" {
		return false
	}

	title := fmt.Sprintf("%s | Case %s", e.Action.Label(), e.CaseID)
	color := 0xed4245
	if e.Lifted {
		title = fmt.Sprintf("%s lifted | Case %s", e.Action.Label(), e.CaseID)
		color = 0x57f287
	}
	embed := &discordgo.MessageEmbed{
		Title: title,
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Target", Value: fmt.Sprintf("<@%s>", e.TargetID), Inline: true},
			{Name: "Moderator", Value: fmt.Sprintf("<@%s>", e.ModeratorID), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if !e.Lifted {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Reason", Value: e.ReasonText},
			&discordgo.MessageEmbedField{Name: "Duration", Value: windowText(e.Permanent, e.EndTs), Inline: true},
		)
	}
	if _, err := n.session.ChannelMessageSendEmbed(serverCfg.ModLogChannelID, embed); err != nil {
		log.Printf("Error posting to moderation log for guild %s: %v", guildID, err)
		return false
	}
	return true
}

// auditActions maps case actions to the platform audit-log event they produce.
var auditActions = map[model.ActionType]discordgo.AuditLogAction{
	model.ActionBan:     discordgo.AuditLogActionMemberBanAdd,
	model.ActionUnban:   discordgo.AuditLogActionMemberBanRemove,
	model.ActionTimeout: discordgo.AuditLogActionMemberUpdate,
	model.ActionKick:    discordgo.AuditLogActionMemberKick,
}

// DiscordAuditCorrelator implements AuditCorrelator with a single
// GuildAuditLog page fetch.
type DiscordAuditCorrelator struct {
	session *discordgo.Session
}

func NewDiscordAuditCorrelator(s *discordgo.Session) *DiscordAuditCorrelator {
	return &DiscordAuditCorrelator{session: s}
}

func (a *DiscordAuditCorrelator) FindRecentEntry(guildID string, action model.ActionType, targetID string) (string, error) {
	logAction, ok := auditActions[action]
	if !ok {
		return "", nil
	}
	auditLog, err := a.session.GuildAuditLog(guildID, "", "", int(logAction), 25)
	if err != nil {
		return "", err
	}
	for _, entry := range auditLog.AuditLogEntries {
		if entry.TargetID == targetID {
			return entry.ID, nil
		}
	}
	return "", nil
}

// SnapshotProvider builds MemberSnapshots from live guild data. The session
// runs with state caching disabled, so lookups go to the REST API.
type SnapshotProvider struct {
	session *discordgo.Session
	cfg     model.BotConfigProvider
}

func NewSnapshotProvider(s *discordgo.Session, cfg model.BotConfigProvider) *SnapshotProvider {
	return &SnapshotProvider{session: s, cfg: cfg}
}

// Member takes a point-in-time snapshot of one member.
func (p *SnapshotProvider) Member(guildID, userID string) (MemberSnapshot, error) {
	guild, err := p.session.Guild(guildID)
	if err != nil {
		return MemberSnapshot{}, fmt.Errorf("fetching guild %s: %w", guildID, err)
	}
	member, err := p.session.GuildMember(guildID, userID)
	if err != nil {
		return MemberSnapshot{}, fmt.Errorf("fetching member %s in guild %s: %w", userID, guildID, err)
	}
	serverCfg, _ := p.cfg.GetConfig().ServerConfig(guildID)
	return buildSnapshot(guild, member, userID, serverCfg.StaffRoleIDs), nil
}

// buildSnapshot folds a member's roles into a MemberSnapshot. Every member
// carries the implicit @everyone role (its ID is the guild ID), so its
// permissions count even though member.Roles never lists it.
func buildSnapshot(guild *discordgo.Guild, member *discordgo.Member, userID string, staffRoleIDs []string) MemberSnapshot {
	staffRoles := make(map[string]bool, len(staffRoleIDs))
	for _, id := range staffRoleIDs {
		staffRoles[id] = true
	}

	rolesByID := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		rolesByID[role.ID] = role
	}

	snap := MemberSnapshot{
		UserID:  userID,
		IsOwner: guild.OwnerID == userID,
	}
	if member.User != nil {
		snap.IsBot = member.User.Bot
	}
	if everyone, ok := rolesByID[guild.ID]; ok {
		snap.Permissions |= everyone.Permissions
	}
	for _, roleID := range member.Roles {
		if staffRoles[roleID] {
			snap.HasStaffRole = true
		}
		role, ok := rolesByID[roleID]
		if !ok {
			continue
		}
		snap.Permissions |= role.Permissions
		if role.Position > snap.TopRolePosition {
			snap.TopRolePosition = role.Position
		}
	}
	return snap
}

// ForConfirm gathers the three snapshots a confirm attempt needs. The actor
// and the bot must resolve as members; the target may have already left (an
// unban target usually has) and then degrades to a roleless user snapshot.
func (p *SnapshotProvider) ForConfirm(guildID, actorID, targetID string) (Snapshots, error) {
	botID := p.session.State.User.ID
	actor, err := p.Member(guildID, actorID)
	if err != nil {
		return Snapshots{}, err
	}
	bot, err := p.Member(guildID, botID)
	if err != nil {
		return Snapshots{}, err
	}
	target, err := p.Member(guildID, targetID)
	if err != nil {
		if !isBenignRESTError(err, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser) {
			return Snapshots{}, err
		}
		target = MemberSnapshot{UserID: targetID}
		if user, uerr := p.session.User(targetID); uerr == nil {
			target.IsBot = user.Bot
		}
	}
	return Snapshots{Actor: actor, Bot: bot, Target: target}, nil
}
