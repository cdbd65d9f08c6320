package cases

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"modguard/model"
	"modguard/moderation"
)

// caseRow is the flat sqlite mapping of a moderation case. Reason codes are
// stored as a JSON array in a TEXT column; timestamps as unix seconds.
type caseRow struct {
	CaseID       string        `db:"case_id"`
	GuildID      string        `db:"guild_id"`
	TargetID     string        `db:"target_id"`
	ModeratorID  string        `db:"moderator_id"`
	ActionType   string        `db:"action_type"`
	Status       string        `db:"status"`
	ReasonCodes  string        `db:"reason_codes"`
	CustomReason string        `db:"custom_reason"`
	ReasonText   string        `db:"reason_text"`
	StartTs      sql.NullInt64 `db:"start_ts"`
	EndTs        sql.NullInt64 `db:"end_ts"`
	Permanent    bool          `db:"permanent"`
	DMDelivered  bool          `db:"dm_delivered"`
	AuditLogID   string        `db:"audit_log_id"`
	CreatedAt    int64         `db:"created_at"`
	UpdatedAt    int64         `db:"updated_at"`
}

func toRow(c *model.ModerationCase) (*caseRow, error) {
	codes := c.ReasonCodes
	if codes == nil {
		codes = []string{}
	}
	codesJSON, err := json.Marshal(codes)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize reason codes: %w", err)
	}
	row := &caseRow{
		CaseID:       c.ID,
		GuildID:      c.GuildID,
		TargetID:     c.TargetID,
		ModeratorID:  c.ModeratorID,
		ActionType:   string(c.ActionType),
		Status:       string(c.Status),
		ReasonCodes:  string(codesJSON),
		CustomReason: c.CustomReason,
		ReasonText:   c.ReasonText,
		Permanent:    c.Permanent,
		DMDelivered:  c.DMDelivered,
		AuditLogID:   c.AuditLogID,
		CreatedAt:    c.CreatedAt.Unix(),
		UpdatedAt:    c.UpdatedAt.Unix(),
	}
	if c.StartTs != nil {
		row.StartTs = sql.NullInt64{Int64: c.StartTs.Unix(), Valid: true}
	}
	if c.EndTs != nil {
		row.EndTs = sql.NullInt64{Int64: c.EndTs.Unix(), Valid: true}
	}
	return row, nil
}

func (r *caseRow) toModel() (*model.ModerationCase, error) {
	var codes []string
	if r.ReasonCodes != "" {
		if err := json.Unmarshal([]byte(r.ReasonCodes), &codes); err != nil {
			return nil, fmt.Errorf("failed to parse reason codes for case %s: %w", r.CaseID, err)
		}
	}
	c := &model.ModerationCase{
		ID:           r.CaseID,
		GuildID:      r.GuildID,
		TargetID:     r.TargetID,
		ModeratorID:  r.ModeratorID,
		ActionType:   model.ActionType(r.ActionType),
		Status:       model.CaseStatus(r.Status),
		ReasonCodes:  codes,
		CustomReason: r.CustomReason,
		ReasonText:   r.ReasonText,
		Permanent:    r.Permanent,
		DMDelivered:  r.DMDelivered,
		AuditLogID:   r.AuditLogID,
		CreatedAt:    time.Unix(r.CreatedAt, 0),
		UpdatedAt:    time.Unix(r.UpdatedAt, 0),
	}
	if r.StartTs.Valid {
		t := time.Unix(r.StartTs.Int64, 0)
		c.StartTs = &t
	}
	if r.EndTs.Valid {
		t := time.Unix(r.EndTs.Int64, 0)
		c.EndTs = &t
	}
	return c, nil
}

// Store implements moderation.CaseStore on sqlite.
type Store struct {
	db *sqlx.DB
}

var _ moderation.CaseStore = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new case. The case ID is the idempotency key; inserting a
// duplicate fails on the primary key.
func (s *Store) Create(c *model.ModerationCase) error {
	row, err := toRow(c)
	if err != nil {
		return err
	}
	query := `INSERT INTO moderation_cases (case_id, guild_id, target_id, moderator_id, action_type, status, reason_codes, custom_reason, reason_text, start_ts, end_ts, permanent, dm_delivered, audit_log_id, created_at, updated_at)
			  VALUES (:case_id, :guild_id, :target_id, :moderator_id, :action_type, :status, :reason_codes, :custom_reason, :reason_text, :start_ts, :end_ts, :permanent, :dm_delivered, :audit_log_id, :created_at, :updated_at)`
	if _, err := s.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("failed to insert case %s: %w", c.ID, err)
	}
	return nil
}

// GetByID returns a case, or (nil, nil) when none exists.
func (s *Store) GetByID(id string) (*model.ModerationCase, error) {
	var row caseRow
	err := s.db.Get(&row, "SELECT * FROM moderation_cases WHERE case_id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case %s: %w", id, err)
	}
	return row.toModel()
}

func (s *Store) setField(id, column string, value interface{}) error {
	query := fmt.Sprintf("UPDATE moderation_cases SET %s = ?, updated_at = ? WHERE case_id = ?", column)
	if _, err := s.db.Exec(query, value, time.Now().Unix(), id); err != nil {
		return fmt.Errorf("failed to update %s for case %s: %w", column, id, err)
	}
	return nil
}

func (s *Store) UpdateReasonCodes(id string, codes []string) error {
	if codes == nil {
		codes = []string{}
	}
	codesJSON, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("failed to serialize reason codes: %w", err)
	}
	return s.setField(id, "reason_codes", string(codesJSON))
}

func (s *Store) UpdateCustomReason(id string, text string) error {
	return s.setField(id, "custom_reason", text)
}

func (s *Store) UpdateDuration(id string, endTs *time.Time, permanent bool) error {
	var end sql.NullInt64
	if endTs != nil {
		end = sql.NullInt64{Int64: endTs.Unix(), Valid: true}
	}
	query := `UPDATE moderation_cases SET end_ts = ?, permanent = ?, updated_at = ? WHERE case_id = ?`
	if _, err := s.db.Exec(query, end, permanent, time.Now().Unix(), id); err != nil {
		return fmt.Errorf("failed to update duration for case %s: %w", id, err)
	}
	return nil
}

func (s *Store) UpdateReasonText(id string, text string) error {
	return s.setField(id, "reason_text", text)
}

func (s *Store) UpdateDMDelivered(id string, delivered bool) error {
	return s.setField(id, "dm_delivered", delivered)
}

func (s *Store) UpdateAuditLogID(id string, ref string) error {
	return s.setField(id, "audit_log_id", ref)
}

// TransitionStatus conditionally moves a case from expected to next, writing
// the execution window in the same statement when one is given. Returns false
// without writing anything when the current status differs, which is what
// keeps a case from being executed twice.
func (s *Store) TransitionStatus(id string, expected, next model.CaseStatus, window *moderation.ExecutionWindow) (bool, error) {
	var res sql.Result
	var err error
	if window != nil {
		var end sql.NullInt64
		if window.EndTs != nil {
			end = sql.NullInt64{Int64: window.EndTs.Unix(), Valid: true}
		}
		query := `UPDATE moderation_cases SET status = ?, start_ts = ?, end_ts = ?, permanent = ?, updated_at = ? WHERE case_id = ? AND status = ?`
		res, err = s.db.Exec(query, string(next), window.StartTs.Unix(), end, window.Permanent, time.Now().Unix(), id, string(expected))
	} else {
		query := `UPDATE moderation_cases SET status = ?, updated_at = ? WHERE case_id = ? AND status = ?`
		res, err = s.db.Exec(query, string(next), time.Now().Unix(), id, string(expected))
	}
	if err != nil {
		return false, fmt.Errorf("failed to transition case %s to %s: %w", id, next, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for case %s: %w", id, err)
	}
	return affected > 0, nil
}

// FindDueForExpiry returns active, non-permanent cases whose window has
// elapsed, oldest first.
func (s *Store) FindDueForExpiry(now time.Time, limit int) ([]model.ModerationCase, error) {
	var rows []caseRow
	query := `SELECT * FROM moderation_cases
			  WHERE status = ? AND permanent = 0 AND end_ts IS NOT NULL AND end_ts <= ?
			  ORDER BY end_ts ASC LIMIT ?`
	if err := s.db.Select(&rows, query, string(model.CaseActive), now.Unix(), limit); err != nil {
		return nil, fmt.Errorf("failed to find due cases: %w", err)
	}
	out := make([]model.ModerationCase, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

// MarkLifted conditionally moves an active case to lifted. Returns false when
// the case is no longer active, so duplicate sweeps degrade to no-ops.
func (s *Store) MarkLifted(id string) (bool, error) {
	return s.TransitionStatus(id, model.CaseActive, model.CaseLifted, nil)
}

// CountByStatus returns case totals per status, for the status embed.
func (s *Store) CountByStatus() (map[model.CaseStatus]int, error) {
	rows, err := s.db.Query("SELECT status, COUNT(*) FROM moderation_cases GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.CaseStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[model.CaseStatus(status)] = count
	}
	return counts, rows.Err()
}

// RecentByGuild returns cases created in a guild since the given time, newest
// first, for the periodic stats embed.
func (s *Store) RecentByGuild(guildID string, since time.Time) ([]model.ModerationCase, error) {
	var rows []caseRow
	query := `SELECT * FROM moderation_cases WHERE guild_id = ? AND created_at >= ? ORDER BY created_at DESC`
	if err := s.db.Select(&rows, query, guildID, since.Unix()); err != nil {
		return nil, fmt.Errorf("failed to get recent cases for guild %s: %w", guildID, err)
	}
	out := make([]model.ModerationCase, 0, len(rows))
	for i := range rows {
		c, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}
