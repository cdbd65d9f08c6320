package modcase

import (
	"errors"
	"log"

	"github.com/bwmarrin/discordgo"

	"modguard/bot"
	"modguard/model"
	mod "modguard/moderation"
	"modguard/utils"
)

// HandleWizardComponent routes a wizard select/button interaction.
func HandleWizardComponent(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	verb, caseID := SplitComponentID(i.MessageComponentData().CustomID)
	c, err := b.GetEngine().GetCase(caseID)
	if err != nil {
		utils.SendErrorResponse(s, i, errorMessage(err))
		return
	}
	if i.Member == nil || i.Member.User.ID != c.ModeratorID {
		utils.SendErrorResponse(s, i, "Only the moderator who opened this case can use its controls.")
		return
	}

	switch verb {
	case DurationSelectID:
		applySetter(s, i, b, c, func() error {
			return b.GetEngine().SetDuration(c.ID, i.MessageComponentData().Values[0])
		})
	case ReasonSelectID:
		applySetter(s, i, b, c, func() error {
			return b.GetEngine().SetReasons(c.ID, i.MessageComponentData().Values)
		})
	case CustomButtonID:
		openCustomReasonModal(s, i, c)
	case ConfirmButtonID:
		handleConfirm(s, i, b, c)
	case CancelButtonID:
		handleCancel(s, i, b, c)
	}
}

// applySetter runs a wizard setter and re-renders the message with the
// refreshed case state.
func applySetter(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, c *model.ModerationCase, set func() error) {
	if err := set(); err != nil {
		utils.SendErrorResponse(s, i, errorMessage(err))
		return
	}
	refreshWizard(s, i, b, c.ID)
}

func refreshWizard(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, caseID string) {
	c, err := b.GetEngine().GetCase(caseID)
	if err != nil {
		utils.SendErrorResponse(s, i, errorMessage(err))
		return
	}
	serverCfg, _ := b.GetConfig().ServerConfig(i.GuildID)
	err = utils.UpdateComponentMessage(s, i,
		WizardEmbed(c, serverCfg.Locale),
		WizardComponents(c, b.GetConfig().Moderation.DurationPresets, serverCfg.Locale))
	if err != nil {
		log.Printf("Failed to refresh wizard for case %s: %v", caseID, err)
	}
}

func openCustomReasonModal(s *discordgo.Session, i *discordgo.InteractionCreate, c *model.ModerationCase) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: componentID(CustomModalID, c.ID),
			Title:    "Custom reason",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    customReasonField,
							Label:       "Reason shown to the member",
							Style:       discordgo.TextInputParagraph,
							MaxLength:   mod.MaxCustomReasonLen,
							Required:    false,
							Value:       c.CustomReason,
							Placeholder: "Leave empty to clear",
						},
					},
				},
			},
		},
	})
	if err != nil {
		log.Printf("Failed to open custom reason modal for case %s: %v", c.ID, err)
	}
}

// HandleWizardModal stores the custom reason submitted from the modal.
func HandleWizardModal(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	_, caseID := SplitComponentID(i.ModalSubmitData().CustomID)
	c, err := b.GetEngine().GetCase(caseID)
	if err != nil {
		utils.SendErrorResponse(s, i, errorMessage(err))
		return
	}
	if i.Member == nil || i.Member.User.ID != c.ModeratorID {
		utils.SendErrorResponse(s, i, "Only the moderator who opened this case can use its controls.")
		return
	}

	var text string
	for _, row := range i.ModalSubmitData().Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == customReasonField {
				text = input.Value
			}
		}
	}
	if err := b.GetEngine().SetCustomReason(caseID, text); err != nil {
		utils.SendErrorResponse(s, i, errorMessage(err))
		return
	}
	refreshWizard(s, i, b, caseID)
}

func handleConfirm(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, c *model.ModerationCase) {
	// The platform calls below can take a while; acknowledge first.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		log.Printf("Failed to defer confirm for case %s: %v", c.ID, err)
		return
	}

	serverCfg, _ := b.GetConfig().ServerConfig(i.GuildID)
	snaps, err := b.GetSnapshots().ForConfirm(i.GuildID, i.Member.User.ID, c.TargetID)
	if err != nil {
		log.Printf("Failed to snapshot members for case %s: %v", c.ID, err)
		utils.SendFollowUpError(s, i.Interaction, "Could not fetch current roles. The case is still pending.")
		return
	}

	if _, err := b.GetEngine().Confirm(c.ID, snaps, serverCfg.Locale); err != nil {
		if errors.Is(err, mod.ErrActionFailed) {
			utils.LogError(s, b.GetConfig().LogChannelID, "Moderation", "Execute",
				"Case "+c.ID+": "+err.Error())
		}
		utils.SendFollowUpError(s, i.Interaction, errorMessage(err))
		return
	}
	finishWizard(s, i, b, c.ID)
}

func handleCancel(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, c *model.ModerationCase) {
	if err := b.GetEngine().Cancel(c.ID); err != nil {
		utils.SendErrorResponse(s, i, errorMessage(err))
		return
	}
	err := utils.UpdateComponentMessage(s, i, CaseEmbed(mustGetCase(b, c.ID)), []discordgo.MessageComponent{})
	if err != nil {
		log.Printf("Failed to render cancelled case %s: %v", c.ID, err)
	}
}

// finishWizard replaces the wizard with the final case record and strips the
// controls.
func finishWizard(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, caseID string) {
	embeds := []*discordgo.MessageEmbed{CaseEmbed(mustGetCase(b, caseID))}
	components := []discordgo.MessageComponent{}
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		log.Printf("Failed to render executed case %s: %v", caseID, err)
	}
}

func mustGetCase(b *bot.Bot, caseID string) *model.ModerationCase {
	c, err := b.GetEngine().GetCase(caseID)
	if err != nil {
		// Render an empty shell rather than crash the handler.
		log.Printf("Failed to reload case %s: %v", caseID, err)
		return &model.ModerationCase{ID: caseID}
	}
	return c
}
