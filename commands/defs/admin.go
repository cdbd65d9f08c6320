package defs

import "github.com/bwmarrin/discordgo"

// ModCase looks up a single moderation case record.
var ModCase = &discordgo.ApplicationCommand{
	Name:        "mod-case",
	Description: "Look up a moderation case by ID",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "处罚查询",
		discordgo.ChineseTW: "處罰查詢",
	},
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "按 ID 查询处罚记录",
		discordgo.ChineseTW: "按 ID 查詢處罰記錄",
	},
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "case_id",
			Description: "The case ID to look up",
			Required:    true,
		},
	},
}

// ModStatus reports host and case-table statistics.
var ModStatus = &discordgo.ApplicationCommand{
	Name:        "mod-status",
	Description: "Display bot and case statistics",
	NameLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "系统状态",
		discordgo.ChineseTW: "系統狀態",
	},
	DescriptionLocalizations: &map[discordgo.Locale]string{
		discordgo.ChineseCN: "显示机器人和处罚数据的统计信息",
		discordgo.ChineseTW: "顯示機器人和處罰數據的統計信息",
	},
}
