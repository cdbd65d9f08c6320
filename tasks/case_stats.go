package tasks

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"modguard/model"
	"modguard/utils/database/cases"
)

// GenerateCaseStatsEmbed summarizes the moderation activity of one guild over
// the given window.
func GenerateCaseStatsEmbed(store *cases.Store, guildID string, window time.Duration) (*discordgo.MessageEmbed, error) {
	since := time.Now().Add(-window)
	recent, err := store.RecentByGuild(guildID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent cases for guild %s: %v", guildID, err)
	}

	byModerator := make(map[string]int)
	byAction := make(map[model.ActionType]int)
	executed := 0
	for i := range recent {
		c := &recent[i]
		if c.Status == model.CasePending || c.Status == model.CaseFailed {
			continue
		}
		executed++
		byModerator[c.ModeratorID]++
		byAction[c.ActionType]++
	}

	var sortedMods []string
	for modID := range byModerator {
		sortedMods = append(sortedMods, modID)
	}
	sort.Slice(sortedMods, func(i, j int) bool {
		return byModerator[sortedMods[i]] > byModerator[sortedMods[j]]
	})

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("### Moderation activity over the past %s\n", window.String()))
	builder.WriteString(fmt.Sprintf("**Cases opened: %d, executed: %d**\n\n", len(recent), executed))
	if len(byAction) > 0 {
		builder.WriteString("**By action:**\n")
		for _, action := range []model.ActionType{model.ActionBan, model.ActionUnban, model.ActionTimeout, model.ActionKick, model.ActionWarn} {
			if count := byAction[action]; count > 0 {
				builder.WriteString(fmt.Sprintf("%s: %d\n", action.Label(), count))
			}
		}
		builder.WriteString("\n")
	}
	if len(sortedMods) > 0 {
		builder.WriteString("**By moderator:**\n")
		for i, modID := range sortedMods {
			builder.WriteString(fmt.Sprintf("%d. <@%s>: %d\n", i+1, modID, byModerator[modID]))
		}
	}

	return &discordgo.MessageEmbed{
		Title:       "Case statistics",
		Description: builder.String(),
		Timestamp:   time.Now().Format(time.RFC3339),
		Color:       0x00ff00,
	}, nil
}

// UpdateCaseStats posts the stats embed for one guild.
func UpdateCaseStats(s *discordgo.Session, store *cases.Store, guildID string, serverCfg model.ServerConfig, window time.Duration) {
	embed, err := GenerateCaseStatsEmbed(store, guildID, window)
	if err != nil {
		log.Printf("Failed to generate case stats embed: %v", err)
		return
	}
	if _, err := s.ChannelMessageSendEmbed(serverCfg.CaseStatsChannelID, embed); err != nil {
		log.Printf("Failed to send case stats to channel %s: %v", serverCfg.CaseStatsChannelID, err)
	}
}
