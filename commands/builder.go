package commands

import (
	"github.com/bwmarrin/discordgo"

	"modguard/commands/defs"
	"modguard/model"
)

// GenerateCommands returns the command set registered for an enabled guild.
func GenerateCommands(serverCfg *model.ServerConfig) []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Mod,
		defs.ModCase,
		defs.ModStatus,
	}
}
