package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"replyflow/internal/constants"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS rules (
	id             TEXT PRIMARY KEY,
	pattern        TEXT NOT NULL,
	response       TEXT NOT NULL,
	enabled        INTEGER NOT NULL DEFAULT 1,
	case_sensitive INTEGER NOT NULL DEFAULT 0,
	chat_type      TEXT NOT NULL DEFAULT 'any',
	delay_sec      INTEGER NOT NULL DEFAULT 0,
	position       INTEGER NOT NULL,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS message_logs (
	id              TEXT PRIMARY KEY,
	ts              TEXT NOT NULL,
	sender          TEXT NOT NULL,
	sender_name     TEXT NOT NULL,
	message         TEXT NOT NULL,
	matched_rule_id TEXT,
	matched_pattern TEXT,
	response        TEXT,
	chat_type       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_position ON rules(position);
CREATE INDEX IF NOT EXISTS idx_message_logs_ts ON message_logs(ts);
`

// Database is the durable store behind the rule engine and the message
// log. Rules keep their evaluation order through the position column.
type Database struct {
	db      *sql.DB
	maxLogs int
}

// New opens (creating if needed) the sqlite database at dbPath and
// applies the schema.
func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Database{db: db, maxLogs: constants.MaxMessageLogs}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}
