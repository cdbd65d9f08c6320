package modcase

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"modguard/model"
	mod "modguard/moderation"
	"modguard/utils"
)

// Component custom ID prefixes for the wizard. The case ID rides after the
// colon.
const (
	DurationSelectID  = "modcase_duration"
	ReasonSelectID    = "modcase_reasons"
	CustomButtonID    = "modcase_custom"
	CustomModalID     = "modcase_custom_modal"
	ConfirmButtonID   = "modcase_confirm"
	CancelButtonID    = "modcase_cancel"
	customReasonField = "custom_reason"
)

func componentID(prefix, caseID string) string {
	return prefix + ":" + caseID
}

// SplitComponentID separates a wizard custom ID into its verb and case ID.
func SplitComponentID(customID string) (verb, caseID string) {
	parts := strings.SplitN(customID, ":", 2)
	if len(parts) != 2 {
		return customID, ""
	}
	return parts[0], parts[1]
}

func statusLabel(status model.CaseStatus) string {
	switch status {
	case model.CasePending:
		return "⏳ Pending"
	case model.CaseActive:
		return "✅ Active"
	case model.CaseFailed:
		return "❌ Failed"
	case model.CaseLifted:
		return "🔓 Lifted"
	}
	return string(status)
}

func durationFieldValue(c *model.ModerationCase) string {
	if c.Permanent {
		return "Permanent"
	}
	if c.EndTs == nil {
		return "Not chosen"
	}
	return utils.FormatDuration(c.EndTs.Sub(c.CreatedAt))
}

func reasonFieldValue(c *model.ModerationCase, locale string) string {
	if len(c.ReasonCodes) == 0 {
		return "None selected"
	}
	labels := make([]string, 0, len(c.ReasonCodes))
	for _, code := range c.ReasonCodes {
		if code == mod.ReasonCustom {
			continue
		}
		labels = append(labels, mod.ReasonLabel(code, locale))
	}
	if c.HasReasonCode(mod.ReasonCustom) {
		if c.CustomReason != "" {
			labels = append(labels, "Custom: "+c.CustomReason)
		} else {
			labels = append(labels, "Custom (text not set)")
		}
	}
	return strings.Join(labels, "\n")
}

// WizardEmbed renders the configuration state of a pending case.
func WizardEmbed(c *model.ModerationCase, locale string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s | configure and confirm", c.ActionType.Label()),
		Color: 0xfee75c,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Target", Value: fmt.Sprintf("<@%s>", c.TargetID), Inline: true},
			{Name: "Status", Value: statusLabel(c.Status), Inline: true},
			{Name: "Reasons", Value: reasonFieldValue(c, locale)},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Case ID: " + c.ID},
		Timestamp: c.CreatedAt.Format(time.RFC3339),
	}
	if c.ActionType.Reversible() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Duration", Value: durationFieldValue(c), Inline: true,
		})
	}
	return embed
}

func durationSelectRow(c *model.ModerationCase, presets []string) discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(presets)+1)
	for _, preset := range presets {
		d, err := utils.ParseDuration(preset)
		if err != nil {
			continue
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:   utils.FormatDuration(d),
			Value:   preset,
			Default: !c.Permanent && c.EndTs != nil && c.EndTs.Sub(c.CreatedAt) == d,
		})
	}
	// Timeouts always expire; only bans may be permanent.
	if c.ActionType == model.ActionBan {
		options = append(options, discordgo.SelectMenuOption{
			Label:   "Permanent",
			Value:   mod.DurationPermanent,
			Default: c.Permanent,
		})
	}
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    componentID(DurationSelectID, c.ID),
				Placeholder: "Choose a duration",
				Options:     options,
			},
		},
	}
}

func reasonSelectRow(c *model.ModerationCase, locale string) discordgo.MessageComponent {
	options := make([]discordgo.SelectMenuOption, 0, len(mod.ReasonCodes))
	for _, code := range mod.ReasonCodes {
		label := code
		if code != mod.ReasonCustom {
			label = mod.ReasonLabel(code, locale)
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:   label,
			Value:   code,
			Default: c.HasReasonCode(code),
		})
	}
	minValues := 1
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    componentID(ReasonSelectID, c.ID),
				Placeholder: "Choose reasons",
				MinValues:   &minValues,
				MaxValues:   mod.MaxReasonCodes,
				Options:     options,
			},
		},
	}
}

func buttonRow(c *model.ModerationCase) discordgo.MessageComponent {
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Label:    "Custom reason…",
				Style:    discordgo.SecondaryButton,
				CustomID: componentID(CustomButtonID, c.ID),
				Disabled: !c.HasReasonCode(mod.ReasonCustom),
			},
			discordgo.Button{
				Label:    "Confirm",
				Style:    discordgo.DangerButton,
				CustomID: componentID(ConfirmButtonID, c.ID),
			},
			discordgo.Button{
				Label:    "Cancel",
				Style:    discordgo.SecondaryButton,
				CustomID: componentID(CancelButtonID, c.ID),
			},
		},
	}
}

// WizardComponents builds the wizard rows for a pending case.
func WizardComponents(c *model.ModerationCase, presets []string, locale string) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, 3)
	if c.ActionType.Reversible() {
		rows = append(rows, durationSelectRow(c, presets))
	}
	rows = append(rows, reasonSelectRow(c, locale), buttonRow(c))
	return rows
}

// CaseEmbed renders a full case record, for /mod-case and the final wizard
// state.
func CaseEmbed(c *model.ModerationCase) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s | Case %s", c.ActionType.Label(), c.ID),
		Color: 0x5865f2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Target", Value: fmt.Sprintf("<@%s>", c.TargetID), Inline: true},
			{Name: "Moderator", Value: fmt.Sprintf("<@%s>", c.ModeratorID), Inline: true},
			{Name: "Status", Value: statusLabel(c.Status), Inline: true},
		},
		Timestamp: c.CreatedAt.Format(time.RFC3339),
	}
	if c.ReasonText != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Reason", Value: c.ReasonText})
	}
	if c.Status == model.CaseActive || c.Status == model.CaseLifted {
		value := "Permanent"
		if !c.Permanent && c.EndTs != nil {
			value = fmt.Sprintf("Until <t:%d:f>", c.EndTs.Unix())
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Window", Value: value, Inline: true})
	}
	if c.AuditLogID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Audit entry", Value: c.AuditLogID, Inline: true})
	}
	dm := "No"
	if c.DMDelivered {
		dm = "Yes"
	}
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "DM delivered", Value: dm, Inline: true})
	return embed
}
