package moderation

import (
	"fmt"
	"log"
	"sync"
	"time"

	"modguard/model"
)

// Engine drives the case lifecycle: creation, wizard edits, the
// confirm/cancel decision and its pending -> active/failed transition.
type Engine struct {
	store   CaseStore
	actions ActionGateway
	notify  Notifier
	audit   AuditCorrelator
	now     func() time.Time

	// inFlight serializes decisions per case within this process. The store's
	// conditional transition is the authoritative guard; the lock keeps the
	// losing concurrent attempt from firing side channels before it loses.
	mu       sync.Mutex
	inFlight map[string]bool
}

// NewEngine wires the engine. A nil clock means time.Now.
func NewEngine(store CaseStore, actions ActionGateway, notify Notifier, audit AuditCorrelator, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		store:    store,
		actions:  actions,
		notify:   notify,
		audit:    audit,
		now:      clock,
		inFlight: make(map[string]bool),
	}
}

// Actions exposes the gateway so the expiry sweep can reuse the same
// reversal calls.
func (e *Engine) Actions() ActionGateway {
	return e.actions
}

// Notifier exposes the side-channel sink for lift notifications.
func (e *Engine) Notifier() Notifier {
	return e.notify
}

func (e *Engine) beginDecision(caseID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[caseID] {
		return false
	}
	e.inFlight[caseID] = true
	return true
}

func (e *Engine) endDecision(caseID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, caseID)
}

// CreateParams describes a new case. ID is caller-supplied and doubles as the
// idempotency key.
type CreateParams struct {
	ID          string
	GuildID     string
	TargetID    string
	ModeratorID string
	BotID       string
	Action      model.ActionType
}

// CreateCase opens a pending case. Self-targeting and bot-targeting are
// rejected before anything is persisted.
func (e *Engine) CreateCase(p CreateParams) (*model.ModerationCase, error) {
	if !p.Action.Valid() {
		return nil, fmt.Errorf("unknown action type %q", p.Action)
	}
	if IsSelfOrBotTarget(p.ModeratorID, p.TargetID, p.BotID) {
		return nil, &DeniedError{DenySelfOrBotTarget}
	}
	now := e.now()
	c := &model.ModerationCase{
		ID:          p.ID,
		GuildID:     p.GuildID,
		TargetID:    p.TargetID,
		ModeratorID: p.ModeratorID,
		ActionType:  p.Action,
		Status:      model.CasePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.Create(c); err != nil {
		return nil, fmt.Errorf("creating case %s: %w", p.ID, err)
	}
	return c, nil
}

// GetCase returns a case by ID, or ErrCaseNotFound.
func (e *Engine) GetCase(caseID string) (*model.ModerationCase, error) {
	c, err := e.store.GetByID(caseID)
	if err != nil {
		return nil, fmt.Errorf("loading case %s: %w", caseID, err)
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	return c, nil
}

// Snapshots carries the fresh role/permission views a confirm attempt is
// evaluated against.
type Snapshots struct {
	Actor  MemberSnapshot
	Bot    MemberSnapshot
	Target MemberSnapshot
}

// ConfirmResult reports a successful execution.
type ConfirmResult struct {
	ReasonText  string
	Permanent   bool
	EndTs       *time.Time
	DMDelivered bool
}

// Confirm executes a pending case. The policy chain runs against the given
// snapshots, the reason is composed and persisted, the window is re-anchored
// to the execution instant, the target is notified best-effort, the platform
// action runs, and the case lands in exactly one of active or failed via the
// store's conditional transition.
func (e *Engine) Confirm(caseID string, snap Snapshots, localeTag string) (*ConfirmResult, error) {
	if !e.beginDecision(caseID) {
		return nil, ErrConfirmInProgress
	}
	defer e.endDecision(caseID)

	c, err := e.loadPending(caseID)
	if err != nil {
		return nil, err
	}

	if denied := EvaluateConfirm(c.ActionType, snap.Actor, snap.Bot, snap.Target, len(c.ReasonCodes)); denied != nil {
		return nil, denied
	}

	now := e.now()
	window := ExecutionWindow{StartTs: now, Permanent: c.Permanent}
	var until *time.Time
	if !c.Permanent && c.EndTs != nil {
		// The wizard stored the end relative to creation time; keep the chosen
		// span but anchor it to the actual execution instant.
		end := now.Add(c.EndTs.Sub(c.CreatedAt))
		window.EndTs = &end
		until = &end
	}
	if c.ActionType == model.ActionTimeout && until == nil {
		return nil, ErrDurationRequired
	}
	// An execution that never ends is a permanent one, whether or not the
	// wizard said so: active cases carry an end exactly when they expire.
	if window.EndTs == nil {
		window.Permanent = true
	}

	reasonText := ComposeReason(c.ReasonCodes, c.CustomReason, localeTag)
	if err := e.store.UpdateReasonText(c.ID, reasonText); err != nil {
		return nil, fmt.Errorf("persisting reason text for case %s: %w", c.ID, err)
	}

	dmOK := e.notify.SendDirectMessage(c.TargetID, DMPayload{
		CaseID:     c.ID,
		GuildID:    c.GuildID,
		Action:     c.ActionType,
		ReasonText: reasonText,
		Permanent:  window.Permanent,
		EndTs:      window.EndTs,
	})
	if err := e.store.UpdateDMDelivered(c.ID, dmOK); err != nil {
		log.Printf("Failed to record DM outcome for case %s: %v", c.ID, err)
	}

	if err := e.executeAction(c, reasonText, until); err != nil {
		if _, terr := e.store.TransitionStatus(c.ID, model.CasePending, model.CaseFailed, nil); terr != nil {
			log.Printf("Failed to mark case %s failed: %v", c.ID, terr)
		}
		return nil, fmt.Errorf("%w: %v", ErrActionFailed, err)
	}

	ok, err := e.store.TransitionStatus(c.ID, model.CasePending, model.CaseActive, &window)
	if err != nil {
		return nil, fmt.Errorf("activating case %s: %w", c.ID, err)
	}
	if !ok {
		// Someone else already decided the case; suppress every further
		// effect and report the duplicate.
		log.Printf("Case %s was decided concurrently, suppressing duplicate", c.ID)
		return nil, ErrCaseNotPending
	}

	if ref, aerr := e.audit.FindRecentEntry(c.GuildID, c.ActionType, c.TargetID); aerr != nil {
		log.Printf("Audit lookup for case %s failed: %v", c.ID, aerr)
	} else if ref != "" {
		if uerr := e.store.UpdateAuditLogID(c.ID, ref); uerr != nil {
			log.Printf("Failed to store audit reference for case %s: %v", c.ID, uerr)
		}
	}

	e.notify.PostToModerationLog(c.GuildID, LogEntry{
		CaseID:      c.ID,
		Action:      c.ActionType,
		TargetID:    c.TargetID,
		ModeratorID: c.ModeratorID,
		ReasonText:  reasonText,
		Permanent:   window.Permanent,
		EndTs:       window.EndTs,
	})

	return &ConfirmResult{
		ReasonText:  reasonText,
		Permanent:   window.Permanent,
		EndTs:       window.EndTs,
		DMDelivered: dmOK,
	}, nil
}

func (e *Engine) executeAction(c *model.ModerationCase, reason string, until *time.Time) error {
	switch c.ActionType {
	case model.ActionBan:
		return e.actions.Ban(c.GuildID, c.TargetID, reason)
	case model.ActionUnban:
		return e.actions.Unban(c.GuildID, c.TargetID)
	case model.ActionTimeout:
		return e.actions.Timeout(c.GuildID, c.TargetID, *until)
	case model.ActionKick:
		return e.actions.Kick(c.GuildID, c.TargetID, reason)
	case model.ActionWarn:
		// A warn is the record plus the DM; there is no platform call.
		return nil
	}
	return fmt.Errorf("unknown action type %q", c.ActionType)
}

// Cancel abandons a pending case with no side-effecting action. It shares the
// failed status with execution errors, and the same conditional transition.
func (e *Engine) Cancel(caseID string) error {
	if !e.beginDecision(caseID) {
		return ErrConfirmInProgress
	}
	defer e.endDecision(caseID)

	if _, err := e.loadPending(caseID); err != nil {
		return err
	}
	ok, err := e.store.TransitionStatus(caseID, model.CasePending, model.CaseFailed, nil)
	if err != nil {
		return fmt.Errorf("cancelling case %s: %w", caseID, err)
	}
	if !ok {
		return ErrCaseNotPending
	}
	return nil
}
