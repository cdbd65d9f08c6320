package model

// BotConfigProvider provides an interface to get the bot's configuration.
type BotConfigProvider interface {
	GetConfig() *Config
}
