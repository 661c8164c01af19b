package service

import (
	"replyflow/internal/metrics"
)

// Shared structured-log field names, kept consistent across services.
const (
	LogFieldRuleID   = "rule_id"
	LogFieldChatID   = "chat_id"
	LogFieldSender   = "sender"
	LogFieldChatType = "chat_type"
	LogFieldState    = "state"
	LogFieldAttempt  = "attempt"
)

func recordStorageFailure(op string) {
	metrics.IncrementCounter("storage_failures_total", map[string]string{
		"op": op,
	}, "Persistence failures")
}

func recordSendFailure() {
	metrics.IncrementCounter("send_failures_total", nil, "Reply send failures")
}
