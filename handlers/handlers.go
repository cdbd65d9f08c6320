package handlers

import (
	"github.com/bwmarrin/discordgo"

	"modguard/bot"
	"modguard/handlers/modcase"
)

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handleInteractionCreate(s, i, b)
	})
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"mod": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			modcase.HandleModCommand(s, i, b)
		},
		"mod-case": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			modcase.HandleModCaseCommand(s, i, b)
		},
		"mod-status": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			SystemInfoHandler(s, i, b)
		},
	}
}
