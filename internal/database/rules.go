package database

import (
	"context"
	"fmt"
	"time"

	"replyflow/internal/models"
)

// LoadRules returns the full rule sequence in evaluation order. An empty
// database yields an empty slice, not an error.
func (d *Database) LoadRules(ctx context.Context) ([]models.Rule, error) {
	query := `
		SELECT id, pattern, response, enabled, case_sensitive,
		       chat_type, delay_sec, created_at, updated_at
		FROM rules
		ORDER BY position ASC
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	defer rows.Close()

	rules := []models.Rule{}
	for rows.Next() {
		var rule models.Rule
		var enabled, caseSensitive int
		var createdAt, updatedAt string

		if err := rows.Scan(
			&rule.ID,
			&rule.Pattern,
			&rule.Response,
			&enabled,
			&caseSensitive,
			&rule.ChatType,
			&rule.DelaySec,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rule.Enabled = enabled != 0
		rule.CaseSensitive = caseSensitive != 0
		rule.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rule created_at: %w", err)
		}
		rule.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rule updated_at: %w", err)
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return rules, nil
}

// SaveRules replaces the stored rule sequence with the given one,
// preserving slice order as evaluation order.
func (d *Database) SaveRules(ctx context.Context, rules []models.Rule) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
		return fmt.Errorf("failed to clear rules: %w", err)
	}

	insert := `
		INSERT INTO rules (
			id, pattern, response, enabled, case_sensitive,
			chat_type, delay_sec, position, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for position, rule := range rules {
		if _, err := tx.ExecContext(ctx, insert,
			rule.ID,
			rule.Pattern,
			rule.Response,
			boolToInt(rule.Enabled),
			boolToInt(rule.CaseSensitive),
			string(rule.ChatType),
			rule.DelaySec,
			position,
			rule.CreatedAt.UTC().Format(time.RFC3339Nano),
			rule.UpdatedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("failed to insert rule %s: %w", rule.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rules: %w", err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
