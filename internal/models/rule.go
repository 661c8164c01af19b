package models

import (
	"time"
)

// ChatType scopes a rule to a conversation category. ChatTypeAny is a
// rule-scope wildcard, not a message category.
type ChatType string

const (
	ChatTypeAny    ChatType = "any"
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
)

// ValidChatType reports whether t is a value rules may carry.
func ValidChatType(t ChatType) bool {
	switch t {
	case ChatTypeAny, ChatTypeDirect, ChatTypeGroup:
		return true
	}
	return false
}

// Rule maps a trigger pattern to an auto-reply. The rule sequence is
// ordered; evaluation order equals storage order.
type Rule struct {
	ID            string    `json:"id"`
	Pattern       string    `json:"pattern"`
	Response      string    `json:"response"`
	Enabled       bool      `json:"enabled"`
	CaseSensitive bool      `json:"caseSensitive"`
	ChatType      ChatType  `json:"chatType"`
	DelaySec      int       `json:"delay"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// RuleStats is the rule-set breakdown reported by the matching engine.
type RuleStats struct {
	TotalRules    int              `json:"totalRules"`
	EnabledRules  int              `json:"enabledRules"`
	DisabledRules int              `json:"disabledRules"`
	RulesByType   map[ChatType]int `json:"rulesByType"`
}
