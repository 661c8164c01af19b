package database

import (
	"context"
	"fmt"

	"replyflow/internal/models"
)

// AppendLog inserts a message log entry and evicts entries with the
// oldest timestamps beyond the capacity, in a single transaction.
func (d *Database) AppendLog(ctx context.Context, entry *models.MessageLogEntry) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	insert := `
		INSERT INTO message_logs (
			id, ts, sender, sender_name, message,
			matched_rule_id, matched_pattern, response, chat_type
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if _, err := tx.ExecContext(ctx, insert,
		entry.ID,
		entry.Timestamp,
		entry.Sender,
		entry.SenderName,
		entry.Message,
		entry.MatchedRule,
		entry.MatchedPattern,
		entry.Response,
		string(entry.ChatType),
	); err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	evict := `
		DELETE FROM message_logs
		WHERE id NOT IN (
			SELECT id FROM message_logs ORDER BY ts DESC, id DESC LIMIT ?
		)
	`

	if _, err := tx.ExecContext(ctx, evict, d.maxLogs); err != nil {
		return fmt.Errorf("failed to evict old log entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log entry: %w", err)
	}

	return nil
}

// GetLogs returns message log entries most-recent-first, capped at
// min(limit, capacity). A non-positive limit means the full capacity.
func (d *Database) GetLogs(ctx context.Context, limit int) ([]models.MessageLogEntry, error) {
	if limit <= 0 || limit > d.maxLogs {
		limit = d.maxLogs
	}

	query := `
		SELECT id, ts, sender, sender_name, message,
		       matched_rule_id, matched_pattern, response, chat_type
		FROM message_logs
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load message logs: %w", err)
	}
	defer rows.Close()

	logs := []models.MessageLogEntry{}
	for rows.Next() {
		var entry models.MessageLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.Sender,
			&entry.SenderName,
			&entry.Message,
			&entry.MatchedRule,
			&entry.MatchedPattern,
			&entry.Response,
			&entry.ChatType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message logs: %w", err)
	}

	return logs, nil
}

// ClearLogs removes every message log entry.
func (d *Database) ClearLogs(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM message_logs`); err != nil {
		return fmt.Errorf("failed to clear message logs: %w", err)
	}
	return nil
}
