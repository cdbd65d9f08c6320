package modcase

import (
	"errors"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"modguard/bot"
	"modguard/model"
	mod "modguard/moderation"
	"modguard/utils"
)

// errorMessage maps engine errors to the text shown to the moderator.
func errorMessage(err error) string {
	var denied *mod.DeniedError
	if errors.As(err, &denied) {
		return denied.Reason.Message()
	}
	switch {
	case errors.Is(err, mod.ErrCaseNotFound):
		return "This case no longer exists."
	case errors.Is(err, mod.ErrCaseNotPending):
		return "This case has already been decided."
	case errors.Is(err, mod.ErrNoReasons):
		return "Select at least one reason."
	case errors.Is(err, mod.ErrInvalidDuration):
		return "That duration preset is not valid."
	case errors.Is(err, mod.ErrDurationRequired):
		return "Choose a duration before confirming a timeout."
	case errors.Is(err, mod.ErrConfirmInProgress):
		return "A decision for this case is already being processed."
	case errors.Is(err, mod.ErrActionFailed):
		return "The action could not be executed. The case has been marked failed."
	}
	return "Something went wrong. Please try again."
}

// abandonCase closes a case the wizard never opened for.
func abandonCase(b *bot.Bot, caseID string) {
	if err := b.GetEngine().Cancel(caseID); err != nil {
		log.Printf("Failed to abandon case %s: %v", caseID, err)
	}
}

// HandleModCommand opens a new case from a /mod subcommand and presents the
// configuration wizard.
func HandleModCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	serverCfg, ok := b.GetConfig().ServerConfig(i.GuildID)
	if !ok || !serverCfg.Enable {
		utils.SendErrorResponse(s, i, "Moderation is not configured for this server.")
		return
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	action := model.ActionType(sub.Name)
	if !action.Valid() || len(sub.Options) == 0 {
		utils.SendErrorResponse(s, i, "Unknown moderation action.")
		return
	}
	var target *discordgo.User
	var preset string
	for _, opt := range sub.Options {
		switch opt.Name {
		case "user":
			target = opt.UserValue(s)
		case "duration":
			preset = opt.StringValue()
		}
	}
	if target == nil {
		utils.SendErrorResponse(s, i, "Could not resolve the target user.")
		return
	}

	actor, err := b.GetSnapshots().Member(i.GuildID, i.Member.User.ID)
	if err != nil {
		log.Printf("Failed to snapshot moderator %s: %v", i.Member.User.ID, err)
		utils.SendErrorResponse(s, i, "Could not verify your roles. Please try again.")
		return
	}
	if !mod.HasRequiredRole(actor) {
		utils.SendErrorResponse(s, i, mod.DenyNotStaff.Message())
		return
	}

	c, err := b.GetEngine().CreateCase(mod.CreateParams{
		ID:          uuid.NewString(),
		GuildID:     i.GuildID,
		TargetID:    target.ID,
		ModeratorID: i.Member.User.ID,
		BotID:       s.State.User.ID,
		Action:      action,
	})
	if err != nil {
		utils.SendErrorResponse(s, i, errorMessage(err))
		return
	}

	if preset != "" && action.Reversible() {
		if preset == mod.DurationPermanent && action != model.ActionBan {
			abandonCase(b, c.ID)
			utils.SendErrorResponse(s, i, "Only bans can be permanent.")
			return
		}
		if err := b.GetEngine().SetDuration(c.ID, preset); err != nil {
			abandonCase(b, c.ID)
			utils.SendErrorResponse(s, i, errorMessage(err))
			return
		}
		c, err = b.GetEngine().GetCase(c.ID)
		if err != nil {
			utils.SendErrorResponse(s, i, errorMessage(err))
			return
		}
	}

	respErr := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{WizardEmbed(c, serverCfg.Locale)},
			Components: WizardComponents(c, b.GetConfig().Moderation.DurationPresets, serverCfg.Locale),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
	if respErr != nil {
		log.Printf("Failed to open wizard for case %s: %v", c.ID, respErr)
	}
}
