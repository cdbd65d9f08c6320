package modcase

import (
	"log"

	"github.com/bwmarrin/discordgo"

	"modguard/bot"
	mod "modguard/moderation"
	"modguard/utils"
)

// HandleModCaseCommand renders a case record for /mod-case.
func HandleModCaseCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
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

	caseID := i.ApplicationCommandData().Options[0].StringValue()
	c, err := b.GetEngine().GetCase(caseID)
	if err != nil {
		utils.SendErrorResponse(s, i, errorMessage(err))
		return
	}
	if c.GuildID != i.GuildID {
		utils.SendErrorResponse(s, i, "This case belongs to another server.")
		return
	}

	respErr := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{CaseEmbed(c)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if respErr != nil {
		log.Printf("Error responding to mod-case lookup: %v", respErr)
	}
}
