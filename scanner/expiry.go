package scanner

import (
	"log"
	"sync"
	"time"

	"modguard/model"
	"modguard/moderation"
)

const (
	defaultSweepInterval = 3 * time.Minute
	defaultSweepBatch    = 50
)

// CaseSource is the slice of the case store the sweeper needs.
type CaseSource interface {
	FindDueForExpiry(now time.Time, limit int) ([]model.ModerationCase, error)
	MarkLifted(id string) (bool, error)
}

// Reverser undoes time-boxed actions. Both calls treat "nothing to undo" as
// success.
type Reverser interface {
	Unban(guildID, userID string) error
	RemoveTimeout(guildID, userID string) error
}

// ExpirySweeper periodically reverses active cases whose window has elapsed
// and marks them lifted. Reversal failures are left in place and retried on
// the next cycle.
type ExpirySweeper struct {
	store     CaseSource
	actions   Reverser
	notify    moderation.Notifier
	reachable func(guildID string) bool
	now       func() time.Time
	interval  time.Duration
	batch     int

	done chan struct{}
	wg   sync.WaitGroup
}

// NewExpirySweeper builds a sweeper. reachable filters out guilds the bot can
// no longer serve; nil means every guild is reachable. Zero interval/batch
// fall back to the defaults (3 minutes, 50 cases).
func NewExpirySweeper(store CaseSource, actions Reverser, notify moderation.Notifier, reachable func(guildID string) bool, interval time.Duration, batch int) *ExpirySweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &ExpirySweeper{
		store:     store,
		actions:   actions,
		notify:    notify,
		reachable: reachable,
		now:       time.Now,
		interval:  interval,
		batch:     batch,
		done:      make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval until Stop.
func (e *ExpirySweeper) Start() {
	e.wg.Add(1)
	go e.run()
}

// Stop terminates the sweep loop and waits for an in-progress sweep.
func (e *ExpirySweeper) Stop() {
	close(e.done)
	e.wg.Wait()
}

func (e *ExpirySweeper) run() {
	defer e.wg.Done()
	e.Sweep()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			e.Sweep()
		case <-e.done:
			return
		}
	}
}

// Sweep processes one batch of due cases. Each case is handled independently;
// one failure never blocks the rest of the batch.
func (e *ExpirySweeper) Sweep() {
	due, err := e.store.FindDueForExpiry(e.now(), e.batch)
	if err != nil {
		log.Printf("Expiry sweep: failed to query due cases: %v", err)
		return
	}
	for i := range due {
		e.process(&due[i])
	}
}

func (e *ExpirySweeper) process(c *model.ModerationCase) {
	if e.reachable != nil && !e.reachable(c.GuildID) {
		log.Printf("Expiry sweep: guild %s unreachable, skipping case %s", c.GuildID, c.ID)
		return
	}

	var err error
	switch c.ActionType {
	case model.ActionTimeout:
		err = e.actions.RemoveTimeout(c.GuildID, c.TargetID)
	case model.ActionBan:
		err = e.actions.Unban(c.GuildID, c.TargetID)
	default:
		// Only bans and timeouts carry a window; anything else here is a
		// stale record and just gets closed out.
	}
	if err != nil {
		log.Printf("Expiry sweep: failed to reverse case %s (%s): %v", c.ID, c.ActionType, err)
		return
	}

	lifted, err := e.store.MarkLifted(c.ID)
	if err != nil {
		log.Printf("Expiry sweep: failed to mark case %s lifted: %v", c.ID, err)
		return
	}
	if !lifted {
		// Another sweep got there first; the reversal was an idempotent no-op.
		return
	}

	log.Printf("Expiry sweep: lifted case %s (%s on %s)", c.ID, c.ActionType, c.TargetID)
	if e.notify == nil {
		return
	}
	e.notify.PostToModerationLog(c.GuildID, moderation.LogEntry{
		CaseID:      c.ID,
		Action:      c.ActionType,
		TargetID:    c.TargetID,
		ModeratorID: c.ModeratorID,
		Lifted:      true,
	})
}
