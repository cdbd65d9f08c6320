package bot

import (
	"log"
	"sync"
	"time"

	"modguard/scanner"
	"modguard/tasks"
)

// Scheduler owns the bot's background work: the case expiry sweep and the
// periodic case-stats updates.
type Scheduler struct {
	bot     *Bot
	sweeper *scanner.ExpirySweeper
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewScheduler(b *Bot) *Scheduler {
	cfg := b.GetConfig()
	sweeper := scanner.NewExpirySweeper(
		b.GetStore(),
		b.GetEngine().Actions(),
		b.GetEngine().Notifier(),
		b.GuildReachable,
		cfg.Moderation.SweepInterval,
		cfg.Moderation.SweepBatchSize,
	)
	return &Scheduler{
		bot:     b,
		sweeper: sweeper,
		done:    make(chan struct{}),
	}
}

// Start begins all scheduled tasks, including the immediate expiry sweep.
func (s *Scheduler) Start() {
	s.sweeper.Start()

	s.wg.Add(1)
	go s.runPeriodicTasks()
}

// Stop terminates all scheduled tasks gracefully.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	s.sweeper.Stop()
	close(s.done)
	s.wg.Wait()
	log.Println("Scheduler stopped.")
}

func (s *Scheduler) runPeriodicTasks() {
	defer s.wg.Done()

	statsTicker := time.NewTicker(1 * time.Hour)
	defer statsTicker.Stop()

	for {
		select {
		case <-statsTicker.C:
			log.Println("Updating case stats...")
			s.updateCaseStats(time.Hour)
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) updateCaseStats(window time.Duration) {
	cfg := s.bot.GetConfig()
	for guildID, serverCfg := range cfg.Moderation.Servers {
		if !serverCfg.Enable || serverCfg.CaseStatsChannelID == "" {
			continue
		}
		go tasks.UpdateCaseStats(s.bot.GetSession(), s.bot.GetStore(), guildID, serverCfg, window)
	}
}
