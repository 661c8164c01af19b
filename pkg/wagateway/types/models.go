package types

import (
	"encoding/json"
	"time"
)

// SessionStatus values reported by the gateway
const (
	SessionStatusStarting = "STARTING"
	SessionStatusScanQR   = "SCAN_QR_CODE"
	SessionStatusWorking  = "WORKING"
	SessionStatusFailed   = "FAILED"
	SessionStatusStopped  = "STOPPED"
)

// Close reasons carried on FAILED/STOPPED status events
const (
	ReasonLoggedOut = "LOGGED_OUT"
)

// Gateway event names
const (
	EventSessionStatus = "session.status"
	EventMessage       = "message"
)

// ClientConfig configures the gateway client
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	SessionName string
	Timeout     time.Duration
}

// EventEnvelope is the raw frame read off the gateway event socket
type EventEnvelope struct {
	Event   string          `json:"event"`
	Session string          `json:"session"`
	Payload json.RawMessage `json:"payload"`
}

// SessionStatusPayload is the payload of a session.status event
type SessionStatusPayload struct {
	Status string `json:"status"`
	QR     string `json:"qr,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// RawMessage is one message in a message event batch, as the gateway
// delivers it before any normalization
type RawMessage struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	Participant string `json:"participant,omitempty"`
	FromMe      bool   `json:"fromMe"`
	Body        string `json:"body"`
	Timestamp   int64  `json:"timestamp"`
}

// MessageBatchPayload is the payload of a message event
type MessageBatchPayload struct {
	Messages []RawMessage `json:"messages"`
}

// SendTextRequest is the body of a sendText call
type SendTextRequest struct {
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
	Session string `json:"session"`
}

// SendTextResponse is the gateway's reply to a sendText call
type SendTextResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// SessionInfo describes a gateway session
type SessionInfo struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}
