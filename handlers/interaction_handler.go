package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"modguard/bot"
	"modguard/handlers/modcase"
)

func handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		if strings.HasPrefix(customID, "modcase_") {
			modcase.HandleWizardComponent(s, i, b)
		}
	case discordgo.InteractionModalSubmit:
		customID := i.ModalSubmitData().CustomID
		if strings.HasPrefix(customID, modcase.CustomModalID+":") {
			modcase.HandleWizardModal(s, i, b)
		}
	}
}
