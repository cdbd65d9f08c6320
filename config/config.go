package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"modguard/model"
)

// Load loads the configuration from environment variables and
// data/moderation.yaml.
func Load() (*model.Config, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		log.Fatal("Error: BOT_TOKEN environment variable not set")
	}

	appID := os.Getenv("APP_ID")
	if appID == "" {
		log.Fatal("Error: APP_ID environment variable not set")
	}

	logChannelID := os.Getenv("LOG_CHANNEL_ID")
	if logChannelID == "" {
		log.Println("Warning: LOG_CHANNEL_ID not set, logging will be disabled")
	}

	dbPath := os.Getenv("CASE_DB_PATH")
	if dbPath == "" {
		dbPath = "data/cases.db"
	}

	cfg := &model.Config{
		BotToken:                 token,
		AppID:                    appID,
		LogChannelID:             logChannelID,
		CaseDBPath:               dbPath,
		DisableCommandUnregister: os.Getenv("DISABLE_COMMAND_UNREGISTER") == "true",
	}

	if err := loadModeration(&cfg.Moderation); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadModeration(mc *model.ModerationConfig) error {
	v := viper.New()
	v.SetConfigFile("data/moderation.yaml")
	v.SetDefault("duration_presets", []string{"10m", "1h", "6h", "1d", "3d", "7d"})
	v.SetDefault("sweep_interval", "3m")
	v.SetDefault("sweep_batch_size", 50)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			log.Println("Warning: data/moderation.yaml not found, no guilds configured")
		} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Warning: data/moderation.yaml not found, no guilds configured")
		} else {
			return fmt.Errorf("reading moderation config: %w", err)
		}
	}

	if err := v.Unmarshal(mc); err != nil {
		return fmt.Errorf("parsing moderation config: %w", err)
	}

	// The map key is the guild ID; keep the embedded field consistent.
	for guildID, serverCfg := range mc.Servers {
		if serverCfg.GuildID == "" {
			serverCfg.GuildID = guildID
		}
		if serverCfg.Locale == "" {
			serverCfg.Locale = "en"
		}
		mc.Servers[guildID] = serverCfg
	}
	return nil
}
