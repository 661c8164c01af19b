package service

import (
	"context"
	"strings"
	"sync"
	"time"

	apperrors "replyflow/internal/errors"
	"replyflow/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RuleStore is the durable backing for the rule sequence.
type RuleStore interface {
	LoadRules(ctx context.Context) ([]models.Rule, error)
	SaveRules(ctx context.Context, rules []models.Rule) error
}

// RuleInput carries the fields accepted when creating a rule. Optional
// fields are pointers so absent values take the documented defaults.
type RuleInput struct {
	Pattern       string
	Response      string
	Enabled       *bool
	CaseSensitive *bool
	ChatType      *models.ChatType
	DelaySec      *int
}

// RuleUpdate carries a partial rule mutation; nil fields are left as-is.
type RuleUpdate struct {
	Pattern       *string
	Response      *string
	Enabled       *bool
	CaseSensitive *bool
	ChatType      *models.ChatType
	DelaySec      *int
}

// RuleEngine holds the authoritative in-memory rule sequence and keeps
// the store synchronized on every mutation. Matching is a pure read:
// first enabled rule, in stored order, whose category filter accepts the
// message and whose pattern is a substring of the text.
type RuleEngine struct {
	store  RuleStore
	logger *logrus.Logger

	mu    sync.RWMutex
	rules []models.Rule

	now   func() time.Time
	newID func() string
}

// NewRuleEngine creates an engine backed by the given store.
func NewRuleEngine(store RuleStore, logger *logrus.Logger) *RuleEngine {
	return &RuleEngine{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Load replaces the in-memory sequence with the stored one.
func (e *RuleEngine) Load(ctx context.Context) error {
	rules, err := e.store.LoadRules(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeStorage, "failed to load rules")
	}

	e.mu.Lock()
	e.rules = rules
	e.mu.Unlock()

	e.logger.WithField("count", len(rules)).Info("Rules loaded")
	return nil
}

// FindMatch returns the first applicable rule for the message, or nil.
// An empty pattern substring-matches every message; that behavior is
// relied upon by existing rule sets and must not change.
func (e *RuleEngine) FindMatch(text string, chatType models.ChatType) *models.Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for i := range e.rules {
		rule := &e.rules[i]
		if !rule.Enabled {
			continue
		}
		if rule.ChatType != models.ChatTypeAny && rule.ChatType != chatType {
			continue
		}

		haystack, needle := text, rule.Pattern
		if !rule.CaseSensitive {
			haystack = strings.ToLower(haystack)
			needle = strings.ToLower(needle)
		}

		if strings.Contains(haystack, needle) {
			matched := *rule
			return &matched
		}
	}

	return nil
}

// AddRule appends a rule to the end of the sequence and persists it.
// Defaults: enabled, case-insensitive, any chat type, no delay.
func (e *RuleEngine) AddRule(ctx context.Context, input RuleInput) (*models.Rule, error) {
	now := e.now().UTC()
	rule := models.Rule{
		ID:            e.newID(),
		Pattern:       input.Pattern,
		Response:      input.Response,
		Enabled:       true,
		CaseSensitive: false,
		ChatType:      models.ChatTypeAny,
		DelaySec:      0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if input.Enabled != nil {
		rule.Enabled = *input.Enabled
	}
	if input.CaseSensitive != nil {
		rule.CaseSensitive = *input.CaseSensitive
	}
	if input.ChatType != nil {
		rule.ChatType = *input.ChatType
	}
	if input.DelaySec != nil {
		rule.DelaySec = *input.DelaySec
	}

	e.mu.Lock()
	next := make([]models.Rule, len(e.rules), len(e.rules)+1)
	copy(next, e.rules)
	next = append(next, rule)
	e.rules = next
	e.persistLocked(ctx)
	e.mu.Unlock()

	e.logger.WithField("rule_id", rule.ID).Info("Rule added")
	return &rule, nil
}

// UpdateRule merges the provided fields into the identified rule,
// refreshes its update timestamp and persists the sequence.
func (e *RuleEngine) UpdateRule(ctx context.Context, id string, update RuleUpdate) (*models.Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	index := e.indexOfLocked(id)
	if index < 0 {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "rule not found").WithContext("rule_id", id)
	}

	next := make([]models.Rule, len(e.rules))
	copy(next, e.rules)

	rule := &next[index]
	if update.Pattern != nil {
		rule.Pattern = *update.Pattern
	}
	if update.Response != nil {
		rule.Response = *update.Response
	}
	if update.Enabled != nil {
		rule.Enabled = *update.Enabled
	}
	if update.CaseSensitive != nil {
		rule.CaseSensitive = *update.CaseSensitive
	}
	if update.ChatType != nil {
		rule.ChatType = *update.ChatType
	}
	if update.DelaySec != nil {
		rule.DelaySec = *update.DelaySec
	}
	rule.UpdatedAt = e.now().UTC()

	e.rules = next
	e.persistLocked(ctx)

	e.logger.WithField("rule_id", id).Info("Rule updated")
	updated := *rule
	return &updated, nil
}

// DeleteRule removes the identified rule and persists the sequence.
func (e *RuleEngine) DeleteRule(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	index := e.indexOfLocked(id)
	if index < 0 {
		return apperrors.New(apperrors.ErrCodeNotFound, "rule not found").WithContext("rule_id", id)
	}

	next := make([]models.Rule, 0, len(e.rules)-1)
	next = append(next, e.rules[:index]...)
	next = append(next, e.rules[index+1:]...)
	e.rules = next
	e.persistLocked(ctx)

	e.logger.WithField("rule_id", id).Info("Rule deleted")
	return nil
}

// ToggleRule flips the identified rule's enabled flag in place and
// persists the sequence.
func (e *RuleEngine) ToggleRule(ctx context.Context, id string) (*models.Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	index := e.indexOfLocked(id)
	if index < 0 {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "rule not found").WithContext("rule_id", id)
	}

	e.rules[index].Enabled = !e.rules[index].Enabled
	e.rules[index].UpdatedAt = e.now().UTC()
	e.persistLocked(ctx)

	rule := e.rules[index]
	e.logger.WithFields(logrus.Fields{
		"rule_id": id,
		"enabled": rule.Enabled,
	}).Info("Rule toggled")
	return &rule, nil
}

// Rules returns a copy of the current sequence in evaluation order.
func (e *RuleEngine) Rules() []models.Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]models.Rule, len(e.rules))
	copy(rules, e.rules)
	return rules
}

// Rule returns the identified rule, or a NotFound error.
func (e *RuleEngine) Rule(id string) (*models.Rule, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	index := e.indexOfLocked(id)
	if index < 0 {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "rule not found").WithContext("rule_id", id)
	}

	rule := e.rules[index]
	return &rule, nil
}

// Stats returns counts over the current rule sequence.
func (e *RuleEngine) Stats() models.RuleStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := models.RuleStats{
		TotalRules: len(e.rules),
		RulesByType: map[models.ChatType]int{
			models.ChatTypeAny:    0,
			models.ChatTypeDirect: 0,
			models.ChatTypeGroup:  0,
		},
	}
	for i := range e.rules {
		if e.rules[i].Enabled {
			stats.EnabledRules++
		} else {
			stats.DisabledRules++
		}
		stats.RulesByType[e.rules[i].ChatType]++
	}
	return stats
}

func (e *RuleEngine) indexOfLocked(id string) int {
	for i := range e.rules {
		if e.rules[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the current sequence to the store. A persistence
// failure is logged and counted but does not roll back the in-memory
// state; memory and store reconcile on the next successful persist.
func (e *RuleEngine) persistLocked(ctx context.Context) {
	if err := e.store.SaveRules(ctx, e.rules); err != nil {
		e.logger.WithError(err).Error("Failed to persist rules")
		recordStorageFailure("save_rules")
	}
}
