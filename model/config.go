package model

import "time"

// ServerConfig holds per-guild moderation settings, loaded from
// data/moderation.yaml.
type ServerConfig struct {
	GuildID            string   `mapstructure:"guild_id"`
	Enable             bool     `mapstructure:"enable"`
	StaffRoleIDs       []string `mapstructure:"staff_role_ids"`
	ModLogChannelID    string   `mapstructure:"mod_log_channel_id"`
	CaseStatsChannelID string   `mapstructure:"case_stats_channel_id"`
	Locale             string   `mapstructure:"locale"`
}

// ModerationConfig is the file-backed part of the configuration.
type ModerationConfig struct {
	DurationPresets []string                `mapstructure:"duration_presets"`
	SweepInterval   time.Duration           `mapstructure:"sweep_interval"`
	SweepBatchSize  int                     `mapstructure:"sweep_batch_size"`
	Servers         map[string]ServerConfig `mapstructure:"servers"`
}

type Config struct {
	BotToken                 string
	AppID                    string
	LogChannelID             string
	CaseDBPath               string
	DisableCommandUnregister bool

	Moderation ModerationConfig
}

// ServerConfig returns the settings for a guild, if configured.
func (c *Config) ServerConfig(guildID string) (ServerConfig, bool) {
	sc, ok := c.Moderation.Servers[guildID]
	return sc, ok
}
