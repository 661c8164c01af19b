package types

import "context"

// EventKind distinguishes the events a Session delivers
type EventKind int

const (
	// EventKindStatus is a session lifecycle update from the gateway
	EventKindStatus EventKind = iota
	// EventKindMessages is a batch of raw inbound messages
	EventKindMessages
	// EventKindClosed means the event socket dropped; Err carries the cause
	EventKindClosed
)

// Event is one parsed occurrence from the gateway event socket
type Event struct {
	Kind     EventKind
	Status   *SessionStatusPayload
	Messages []RawMessage
	Err      error
}

// Session is the transport boundary: a single authenticated gateway
// session with an event stream and a send operation. Connect may be
// called again after the socket drops; Events delivers across connects.
type Session interface {
	// Connect dials the event socket. It fails on construction errors
	// (bad URL, unreachable gateway); a later drop surfaces as an
	// EventKindClosed event, not an error from Connect.
	Connect(ctx context.Context) error

	// Events returns the stream of parsed gateway events. The channel
	// is owned by the Session and closed only by Close.
	Events() <-chan Event

	// SendText delivers text to the destination chat.
	SendText(ctx context.Context, chatID, text string) error

	// Logout explicitly terminates the authenticated session at the
	// gateway, invalidating stored credentials.
	Logout(ctx context.Context) error

	// Close tears down the socket and closes the event channel.
	Close() error
}
