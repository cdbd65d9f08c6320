package moderation

import (
	"fmt"
	"strings"

	"modguard/model"
	"modguard/utils"
)

const (
	// MaxReasonCodes caps the wizard's reason selection.
	MaxReasonCodes = 5
	// MaxCustomReasonLen caps the free-text reason, in runes.
	MaxCustomReasonLen = 300
	// DurationPermanent is the preset sentinel for an action with no window.
	DurationPermanent = "permanent"
)

// SanitizeReasonCodes trims, upper-cases, deduplicates and caps the selected
// codes, preserving selection order.
func SanitizeReasonCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := make(map[string]bool)
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
		if len(out) == MaxReasonCodes {
			break
		}
	}
	return out
}

// loadPending fetches a case and rejects anything not editable.
func (e *Engine) loadPending(caseID string) (*model.ModerationCase, error) {
	c, err := e.store.GetByID(caseID)
	if err != nil {
		return nil, fmt.Errorf("loading case %s: %w", caseID, err)
	}
	if c == nil {
		return nil, ErrCaseNotFound
	}
	if c.Status != model.CasePending {
		return nil, ErrCaseNotPending
	}
	return c, nil
}

// SetReasons replaces the selected reason codes on a pending case. Dropping
// the CUSTOM code also clears any stored custom text, so stale free text can
// never leak into the composed reason later.
func (e *Engine) SetReasons(caseID string, codes []string) error {
	c, err := e.loadPending(caseID)
	if err != nil {
		return err
	}
	codes = SanitizeReasonCodes(codes)
	if len(codes) == 0 {
		return ErrNoReasons
	}
	if err := e.store.UpdateReasonCodes(c.ID, codes); err != nil {
		return fmt.Errorf("updating reason codes for case %s: %w", c.ID, err)
	}
	custom := false
	for _, code := range codes {
		if code == ReasonCustom {
			custom = true
			break
		}
	}
	if !custom && c.CustomReason != "" {
		if err := e.store.UpdateCustomReason(c.ID, ""); err != nil {
			return fmt.Errorf("clearing custom reason for case %s: %w", c.ID, err)
		}
	}
	return nil
}

// SetCustomReason stores the free-text reason on a pending case. The text is
// trimmed and capped; an empty string clears it.
func (e *Engine) SetCustomReason(caseID, text string) error {
	c, err := e.loadPending(caseID)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if runes := []rune(text); len(runes) > MaxCustomReasonLen {
		text = string(runes[:MaxCustomReasonLen])
	}
	if err := e.store.UpdateCustomReason(c.ID, text); err != nil {
		return fmt.Errorf("updating custom reason for case %s: %w", c.ID, err)
	}
	return nil
}

// SetDuration records the chosen window on a pending case. The preset is
// either "permanent" or a unit-suffixed span such as "10m" or "3d". The stored
// end is anchored to the case's creation time; Confirm re-anchors the offset to
// the actual execution instant. Invalid presets leave the case untouched.
func (e *Engine) SetDuration(caseID, preset string) error {
	c, err := e.loadPending(caseID)
	if err != nil {
		return err
	}
	if preset == DurationPermanent {
		if err := e.store.UpdateDuration(c.ID, nil, true); err != nil {
			return fmt.Errorf("updating duration for case %s: %w", c.ID, err)
		}
		return nil
	}
	d, err := utils.ParseDuration(preset)
	if err != nil || d <= 0 {
		return ErrInvalidDuration
	}
	end := c.CreatedAt.Add(d)
	if err := e.store.UpdateDuration(c.ID, &end, false); err != nil {
		return fmt.Errorf("updating duration for case %s: %w", c.ID, err)
	}
	return nil
}
