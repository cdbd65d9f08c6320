package moderation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modguard/model"
)

// memStore is an in-memory CaseStore for engine tests. beforeTransition, when
// set, runs inside TransitionStatus before the conditional check so tests can
// simulate a concurrent decision landing first.
type memStore struct {
	mu               sync.Mutex
	cases            map[string]*model.ModerationCase
	beforeTransition func(id string, expected, next model.CaseStatus)
}

func newMemStore() *memStore {
	return &memStore{cases: make(map[string]*model.ModerationCase)}
}

func (s *memStore) Create(c *model.ModerationCase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[c.ID]; ok {
		return errors.New("duplicate case id")
	}
	cp := *c
	s.cases[c.ID] = &cp
	return nil
}

func (s *memStore) GetByID(id string) (*model.ModerationCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) mutate(id string, fn func(c *model.ModerationCase)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok {
		return errors.New("no such case")
	}
	fn(c)
	return nil
}

func (s *memStore) UpdateReasonCodes(id string, codes []string) error {
	return s.mutate(id, func(c *model.ModerationCase) { c.ReasonCodes = codes })
}

func (s *memStore) UpdateCustomReason(id string, text string) error {
	return s.mutate(id, func(c *model.ModerationCase) { c.CustomReason = text })
}

func (s *memStore) UpdateDuration(id string, endTs *time.Time, permanent bool) error {
	return s.mutate(id, func(c *model.ModerationCase) {
		c.EndTs = endTs
		c.Permanent = permanent
	})
}

func (s *memStore) UpdateReasonText(id string, text string) error {
	return s.mutate(id, func(c *model.ModerationCase) { c.ReasonText = text })
}

func (s *memStore) UpdateDMDelivered(id string, delivered bool) error {
	return s.mutate(id, func(c *model.ModerationCase) { c.DMDelivered = delivered })
}

func (s *memStore) UpdateAuditLogID(id string, ref string) error {
	return s.mutate(id, func(c *model.ModerationCase) { c.AuditLogID = ref })
}

func (s *memStore) TransitionStatus(id string, expected, next model.CaseStatus, window *ExecutionWindow) (bool, error) {
	if s.beforeTransition != nil {
		s.beforeTransition(id, expected, next)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok || c.Status != expected {
		return false, nil
	}
	c.Status = next
	if window != nil {
		start := window.StartTs
		c.StartTs = &start
		c.EndTs = window.EndTs
		c.Permanent = window.Permanent
	}
	return true, nil
}

func (s *memStore) FindDueForExpiry(now time.Time, limit int) ([]model.ModerationCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ModerationCase
	for _, c := range s.cases {
		if c.Status == model.CaseActive && !c.Permanent && c.EndTs != nil && !c.EndTs.After(now) {
			out = append(out, *c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) MarkLifted(id string) (bool, error) {
	return s.TransitionStatus(id, model.CaseActive, model.CaseLifted, nil)
}

// fakeGateway records platform calls and fails on demand.
type fakeGateway struct {
	mu           sync.Mutex
	bans         []string
	unbans       []string
	timeouts     []string
	removals     []string
	kicks        []string
	lastReason   string
	lastUntil    time.Time
	banErr       error
	timeoutErr   error
	kickErr      error
	unbanErr     error
	removeErr    error
}

func (g *fakeGateway) Ban(guildID, userID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.banErr != nil {
		return g.banErr
	}
	g.bans = append(g.bans, userID)
	g.lastReason = reason
	return nil
}

func (g *fakeGateway) Unban(guildID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unbanErr != nil {
		return g.unbanErr
	}
	g.unbans = append(g.unbans, userID)
	return nil
}

func (g *fakeGateway) Timeout(guildID, userID string, until time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timeoutErr != nil {
		return g.timeoutErr
	}
	g.timeouts = append(g.timeouts, userID)
	g.lastUntil = until
	return nil
}

func (g *fakeGateway) RemoveTimeout(guildID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.removeErr != nil {
		return g.removeErr
	}
	g.removals = append(g.removals, userID)
	return nil
}

func (g *fakeGateway) Kick(guildID, userID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.kickErr != nil {
		return g.kickErr
	}
	g.kicks = append(g.kicks, userID)
	g.lastReason = reason
	return nil
}

func (g *fakeGateway) totalCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.bans) + len(g.unbans) + len(g.timeouts) + len(g.removals) + len(g.kicks)
}

// fakeNotifier records side-channel deliveries. dmGate, when set, blocks each
// DM until the gate is released, so tests can hold a confirm mid-flight.
type fakeNotifier struct {
	mu     sync.Mutex
	dms    []DMPayload
	logs   []LogEntry
	dmFail bool
	dmGate chan struct{}
}

func (n *fakeNotifier) SendDirectMessage(userID string, p DMPayload) bool {
	if n.dmGate != nil {
		<-n.dmGate
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dms = append(n.dms, p)
	return !n.dmFail
}

func (n *fakeNotifier) PostToModerationLog(guildID string, e LogEntry) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logs = append(n.logs, e)
	return true
}

func (n *fakeNotifier) dmCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.dms)
}

type fakeAudit struct {
	ref string
	err error
}

func (a *fakeAudit) FindRecentEntry(guildID string, action model.ActionType, targetID string) (string, error) {
	return a.ref, a.err
}

// engineFixture bundles an engine with its collaborators and a movable clock.
type engineFixture struct {
	engine  *Engine
	store   *memStore
	gateway *fakeGateway
	notify  *fakeNotifier
	audit   *fakeAudit
	now     time.Time
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		store:   newMemStore(),
		gateway: &fakeGateway{},
		notify:  &fakeNotifier{},
		audit:   &fakeAudit{ref: "audit-42"},
		now:     time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
	}
	f.engine = NewEngine(f.store, f.gateway, f.notify, f.audit, func() time.Time { return f.now })
	return f
}

func (f *engineFixture) createCase(t *testing.T, action model.ActionType) *model.ModerationCase {
	t.Helper()
	c, err := f.engine.CreateCase(CreateParams{
		ID:          "case-" + string(action),
		GuildID:     "guild-1",
		TargetID:    "target-1",
		ModeratorID: "mod-1",
		BotID:       "bot-1",
		Action:      action,
	})
	require.NoError(t, err)
	return c
}

func allowedSnapshots() Snapshots {
	return Snapshots{
		Actor:  staffActor(),
		Bot:    botMember(),
		Target: plainTarget(),
	}
}

func TestCreateCaseOpensPending(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionBan)
	assert.Equal(t, model.CasePending, c.Status)
	assert.Equal(t, f.now, c.CreatedAt)

	stored, err := f.engine.GetCase(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CasePending, stored.Status)
}

func TestCreateCaseRejectsSelfAndBotTargets(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateCase(CreateParams{
		ID: "c1", GuildID: "g", TargetID: "mod-1", ModeratorID: "mod-1", BotID: "bot-1",
		Action: model.ActionWarn,
	})
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, DenySelfOrBotTarget, denied.Reason)

	_, err = f.engine.CreateCase(CreateParams{
		ID: "c2", GuildID: "g", TargetID: "bot-1", ModeratorID: "mod-1", BotID: "bot-1",
		Action: model.ActionWarn,
	})
	require.ErrorAs(t, err, &denied)

	// Nothing was persisted for either attempt.
	c, err := f.store.GetByID("c1")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCreateCaseRejectsUnknownAction(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateCase(CreateParams{
		ID: "c1", GuildID: "g", TargetID: "t", ModeratorID: "m", BotID: "b",
		Action: model.ActionType("purge"),
	})
	assert.Error(t, err)
}

func TestGetCaseNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.GetCase("missing")
	assert.ErrorIs(t, err, ErrCaseNotFound)
}

func TestConfirmExecutesBan(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionBan)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam, ReasonRaid}))
	require.NoError(t, f.engine.SetDuration(c.ID, "1h"))

	res, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	require.NoError(t, err)

	assert.Equal(t, []string{"target-1"}, f.gateway.bans)
	assert.Equal(t, res.ReasonText, f.gateway.lastReason)
	assert.True(t, res.DMDelivered)
	assert.False(t, res.Permanent)
	require.NotNil(t, res.EndTs)
	assert.Equal(t, f.now.Add(time.Hour), *res.EndTs)

	stored, err := f.store.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CaseActive, stored.Status)
	require.NotNil(t, stored.StartTs)
	assert.Equal(t, f.now, *stored.StartTs)
	assert.Equal(t, res.ReasonText, stored.ReasonText)
	assert.True(t, stored.DMDelivered)
	assert.Equal(t, "audit-42", stored.AuditLogID)

	require.Len(t, f.notify.dms, 1)
	assert.Equal(t, c.ID, f.notify.dms[0].CaseID)
	require.Len(t, f.notify.logs, 1)
	assert.False(t, f.notify.logs[0].Lifted)
}

func TestConfirmReAnchorsWindowToExecutionInstant(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionTimeout)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonHarassment}))
	require.NoError(t, f.engine.SetDuration(c.ID, "1h"))

	// The moderator dawdles for half an hour before confirming. The target
	// still serves the full chosen hour from the execution instant.
	f.now = f.now.Add(30 * time.Minute)

	res, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	require.NoError(t, err)
	require.NotNil(t, res.EndTs)
	assert.Equal(t, f.now.Add(time.Hour), *res.EndTs)
	assert.Equal(t, f.now.Add(time.Hour), f.gateway.lastUntil)
}

func TestConfirmPermanentBan(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionBan)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonTOS}))
	require.NoError(t, f.engine.SetDuration(c.ID, DurationPermanent))

	res, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	require.NoError(t, err)
	assert.True(t, res.Permanent)
	assert.Nil(t, res.EndTs)

	stored, _ := f.store.GetByID(c.ID)
	assert.True(t, stored.Permanent)
	assert.Nil(t, stored.EndTs)
}

func TestConfirmWarnMakesNoPlatformCall(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionWarn)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))

	res, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	require.NoError(t, err)
	assert.Zero(t, f.gateway.totalCalls())
	assert.True(t, res.DMDelivered)

	stored, _ := f.store.GetByID(c.ID)
	assert.Equal(t, model.CaseActive, stored.Status)
}

func TestConfirmTimeoutWithoutDuration(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionTimeout)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))

	_, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	assert.ErrorIs(t, err, ErrDurationRequired)
	assert.Zero(t, f.gateway.totalCalls())

	// A validation error leaves the case untouched, reason text included.
	stored, _ := f.store.GetByID(c.ID)
	assert.Equal(t, model.CasePending, stored.Status)
	assert.Empty(t, stored.ReasonText)
}

func TestConfirmWithoutWindowBecomesPermanent(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionBan)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))

	// The moderator never touched the duration select.
	res, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	require.NoError(t, err)
	assert.True(t, res.Permanent)
	assert.Nil(t, res.EndTs)

	stored, _ := f.store.GetByID(c.ID)
	assert.Equal(t, model.CaseActive, stored.Status)
	assert.True(t, stored.Permanent, "an active case without an end must be permanent")
	assert.Nil(t, stored.EndTs)
}

func TestConfirmedCasesCarryEndExactlyWhenTemporary(t *testing.T) {
	for _, action := range []model.ActionType{model.ActionUnban, model.ActionKick, model.ActionWarn} {
		f := newFixture(t)
		c := f.createCase(t, action)
		require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))

		_, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
		require.NoError(t, err)

		stored, _ := f.store.GetByID(c.ID)
		assert.Equal(t, model.CaseActive, stored.Status)
		assert.Equal(t, stored.EndTs == nil, stored.Permanent, "action %s", action)
	}
}

func TestConfirmDeniedLeavesCaseUntouched(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionBan)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))
	require.NoError(t, f.engine.SetDuration(c.ID, "1h"))

	snaps := allowedSnapshots()
	snaps.Target.HasStaffRole = true

	_, err := f.engine.Confirm(c.ID, snaps, "en")
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, DenyTargetImmune, denied.Reason)

	assert.Zero(t, f.gateway.totalCalls())
	assert.Zero(t, f.notify.dmCount())
	stored, _ := f.store.GetByID(c.ID)
	assert.Equal(t, model.CasePending, stored.Status)
}

func TestConfirmWithoutReasonsIsDenied(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionWarn)

	_, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, DenyNoReasons, denied.Reason)
}

func TestConfirmActionFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.gateway.banErr = errors.New("missing permissions")
	c := f.createCase(t, model.ActionBan)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))
	require.NoError(t, f.engine.SetDuration(c.ID, DurationPermanent))

	_, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	assert.ErrorIs(t, err, ErrActionFailed)

	stored, _ := f.store.GetByID(c.ID)
	assert.Equal(t, model.CaseFailed, stored.Status)
	assert.Empty(t, f.notify.logs, "a failed action must not reach the moderation log")
}

func TestConfirmLostRaceSuppressesEffects(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionWarn)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))

	// Another instance decides the case between our read and our transition.
	f.store.beforeTransition = func(id string, expected, next model.CaseStatus) {
		f.store.beforeTransition = nil
		require.NoError(t, f.store.mutate(id, func(mc *model.ModerationCase) {
			mc.Status = model.CaseFailed
		}))
	}

	_, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	assert.ErrorIs(t, err, ErrCaseNotPending)
	assert.Empty(t, f.notify.logs)

	stored, _ := f.store.GetByID(c.ID)
	assert.Equal(t, model.CaseFailed, stored.Status)
}

func TestConfirmConcurrentAttemptsRunOneAction(t *testing.T) {
	f := newFixture(t)
	f.notify.dmGate = make(chan struct{})
	c := f.createCase(t, model.ActionBan)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))
	require.NoError(t, f.engine.SetDuration(c.ID, DurationPermanent))

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
		firstDone <- err
	}()

	// Wait until the first confirm is blocked inside the DM send, then race a
	// second attempt against it.
	require.Eventually(t, func() bool {
		f.engine.mu.Lock()
		defer f.engine.mu.Unlock()
		return f.engine.inFlight[c.ID]
	}, time.Second, time.Millisecond)

	_, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	assert.ErrorIs(t, err, ErrConfirmInProgress)

	close(f.notify.dmGate)
	require.NoError(t, <-firstDone)

	assert.Equal(t, 1, f.gateway.totalCalls())
	assert.Equal(t, 1, f.notify.dmCount())
}

func TestConfirmAfterDecisionIsRejected(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionWarn)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))

	_, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	require.NoError(t, err)

	_, err = f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	assert.ErrorIs(t, err, ErrCaseNotPending)
	assert.Equal(t, 1, f.notify.dmCount())
}

func TestConfirmRecordsFailedDM(t *testing.T) {
	f := newFixture(t)
	f.notify.dmFail = true
	c := f.createCase(t, model.ActionWarn)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))

	res, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	require.NoError(t, err, "an undeliverable DM must not fail the action")
	assert.False(t, res.DMDelivered)

	stored, _ := f.store.GetByID(c.ID)
	assert.Equal(t, model.CaseActive, stored.Status)
	assert.False(t, stored.DMDelivered)
}

func TestConfirmToleratesAuditFailure(t *testing.T) {
	f := newFixture(t)
	f.audit.ref = ""
	f.audit.err = errors.New("audit log unavailable")
	c := f.createCase(t, model.ActionWarn)
	require.NoError(t, f.engine.SetReasons(c.ID, []string{ReasonSpam}))

	_, err := f.engine.Confirm(c.ID, allowedSnapshots(), "en")
	require.NoError(t, err)

	stored, _ := f.store.GetByID(c.ID)
	assert.Equal(t, model.CaseActive, stored.Status)
	assert.Empty(t, stored.AuditLogID)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	c := f.createCase(t, model.ActionBan)

	require.NoError(t, f.engine.Cancel(c.ID))
	stored, _ := f.store.GetByID(c.ID)
	assert.Equal(t, model.CaseFailed, stored.Status)
	assert.Zero(t, f.gateway.totalCalls())
	assert.Zero(t, f.notify.dmCount())

	// A decided case cannot be cancelled again.
	assert.ErrorIs(t, f.engine.Cancel(c.ID), ErrCaseNotPending)
	assert.ErrorIs(t, f.engine.Cancel("missing"), ErrCaseNotFound)
}
