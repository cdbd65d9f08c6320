package cases

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Init opens the case database and ensures the schema exists.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	casesSchema := `CREATE TABLE IF NOT EXISTS moderation_cases (
	          case_id TEXT PRIMARY KEY,
	          guild_id TEXT NOT NULL,
	          target_id TEXT NOT NULL,
	          moderator_id TEXT NOT NULL,
	          action_type TEXT NOT NULL,
	          status TEXT NOT NULL DEFAULT 'pending',
	          reason_codes TEXT NOT NULL DEFAULT '[]',
	          custom_reason TEXT NOT NULL DEFAULT '',
	          reason_text TEXT NOT NULL DEFAULT '',
	          start_ts INTEGER,
	          end_ts INTEGER,
	          permanent INTEGER NOT NULL DEFAULT 0,
	          dm_delivered INTEGER NOT NULL DEFAULT 0,
	          audit_log_id TEXT NOT NULL DEFAULT '',
	          created_at INTEGER NOT NULL,
	          updated_at INTEGER NOT NULL
	      );`
	if _, err := db.Exec(casesSchema); err != nil {
		return nil, fmt.Errorf("failed to create moderation_cases table: %w", err)
	}

	// The expiry sweep filters on status and end_ts every cycle.
	indexSchema := `CREATE INDEX IF NOT EXISTS idx_cases_status_end_ts
	          ON moderation_cases (status, end_ts);`
	if _, err := db.Exec(indexSchema); err != nil {
		return nil, fmt.Errorf("failed to create expiry index: %w", err)
	}

	return db, nil
}
