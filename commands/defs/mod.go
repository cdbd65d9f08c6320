package defs

import "github.com/bwmarrin/discordgo"

func actionOptions(withDuration bool) []*discordgo.ApplicationCommandOption {
	options := []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "The member to act on",
			Required:    true,
		},
	}
	if withDuration {
		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duration",
			Description: "Preselect a duration, e.g. 1h, 3d, or permanent",
		})
	}
	return options
}

// Mod opens a moderation case against a member. The duration, reasons and
// custom text are configured in the wizard that follows.
var Mod = &discordgo.ApplicationCommand{
	Name:        "mod",
	Description: "Open a moderation case against a member",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "处罚",
	},
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "对成员开启处罚流程",
	},
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "ban",
			Description: "Ban a member",
			Options:     actionOptions(true),
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "unban",
			Description: "Remove a member's ban",
			Options:     actionOptions(false),
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "timeout",
			Description: "Time a member out",
			Options:     actionOptions(true),
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "kick",
			Description: "Kick a member",
			Options:     actionOptions(false),
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "warn",
			Description: "Warn a member",
			Options:     actionOptions(false),
		},
	},
}
