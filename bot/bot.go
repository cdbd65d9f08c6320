package bot

import (
	"log"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"

	"modguard/commands"
	"modguard/model"
	"modguard/moderation"
	"modguard/utils/database/cases"
)

type Bot struct {
	Session            *discordgo.Session
	RegisteredCommands []*discordgo.ApplicationCommand
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	config    atomic.Value // *model.Config
	store     *cases.Store
	engine    *moderation.Engine
	snapshots *moderation.SnapshotProvider
	scheduler *Scheduler
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetSession() *discordgo.Session {
	return b.Session
}

func (b *Bot) GetStore() *cases.Store {
	return b.store
}

func (b *Bot) GetEngine() *moderation.Engine {
	return b.engine
}

func (b *Bot) GetSnapshots() *moderation.SnapshotProvider {
	return b.snapshots
}

func (b *Bot) GetScheduler() *Scheduler {
	return b.scheduler
}

func New(cfg *model.Config, db *sqlx.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentGuildModeration
	dg.StateEnabled = false

	b := &Bot{
		Session: dg,
	}
	b.config.Store(cfg)

	b.store = cases.New(db)
	b.snapshots = moderation.NewSnapshotProvider(dg, b)
	b.engine = moderation.NewEngine(
		b.store,
		moderation.NewDiscordActions(dg),
		moderation.NewDiscordNotifier(dg, b),
		moderation.NewDiscordAuditCorrelator(dg),
		nil,
	)
	b.scheduler = NewScheduler(b)
	return b, nil
}

func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	b.scheduler.Stop()
	b.Session.Close()
}

// GuildReachable reports whether the bot still serves a guild; the expiry
// sweep skips cases it cannot act on.
func (b *Bot) GuildReachable(guildID string) bool {
	serverCfg, ok := b.GetConfig().ServerConfig(guildID)
	if !ok || !serverCfg.Enable {
		return false
	}
	_, err := b.Session.Guild(guildID)
	return err == nil
}

func (b *Bot) RefreshCommands(guildID string) {
	serverCfg, ok := b.GetConfig().ServerConfig(guildID)
	if !ok {
		log.Printf("Could not find server config for guild: %s", guildID)
		return
	}

	cmds := commands.GenerateCommands(&serverCfg)
	log.Printf("Registering %d commands for guild %s...", len(cmds), guildID)
	registeredCmds, err := b.Session.ApplicationCommandBulkOverwrite(b.GetConfig().AppID, guildID, cmds)
	if err != nil {
		log.Printf("cannot update commands for guild '%s': %v", guildID, err)
		return
	}
	b.RegisteredCommands = append(b.RegisteredCommands, registeredCmds...)
}

func (b *Bot) UnregisterCommands(guildID string) {
	appID := b.GetConfig().AppID
	cmds, err := b.Session.ApplicationCommands(appID, guildID)
	if err != nil {
		log.Printf("Could not fetch commands for guild %s: %v", guildID, err)
		return
	}
	for _, cmd := range cmds {
		if err := b.Session.ApplicationCommandDelete(appID, guildID, cmd.ID); err != nil {
			log.Printf("Could not delete command %s in guild %s: %v", cmd.Name, guildID, err)
		}
	}
}
