package models

// InboundMessage is one normalized message from the session transport.
// It exists only for the duration of a single pipeline pass.
type InboundMessage struct {
	ID        string   `json:"id"`
	From      string   `json:"from"`
	Sender    string   `json:"sender"`
	Body      string   `json:"message"`
	ChatType  ChatType `json:"chatType"`
	Timestamp int64    `json:"timestamp"`
}

// MessageLogEntry records one processed inbound message and its outcome.
// Entries are immutable once created and retained up to a fixed capacity.
type MessageLogEntry struct {
	ID             string   `json:"id"`
	Timestamp      string   `json:"timestamp"`
	Sender         string   `json:"sender"`
	SenderName     string   `json:"senderName"`
	Message        string   `json:"message"`
	MatchedRule    *string  `json:"matchedRule"`
	MatchedPattern *string  `json:"matchedRulePattern"`
	Response       *string  `json:"response"`
	ChatType       ChatType `json:"chatType"`
}
