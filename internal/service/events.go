package service

import (
	"sync"

	"replyflow/internal/constants"
	"replyflow/internal/metrics"
	"replyflow/internal/models"
)

// EventType labels the normalized events published to observers.
type EventType string

const (
	EventQR               EventType = "qr"
	EventReady            EventType = "ready"
	EventDisconnected     EventType = "disconnected"
	EventMessage          EventType = "message"
	EventMessageProcessed EventType = "messageProcessed"
)

// Event is one published occurrence. Only the field matching the type
// is set: QR for EventQR, Message for EventMessage, LogEntry for
// EventMessageProcessed.
type Event struct {
	Type     EventType
	QR       string
	Message  *models.InboundMessage
	LogEntry *models.MessageLogEntry
}

// Publisher fans events out to registered subscribers over bounded
// channels. Publish never blocks: when a subscriber's channel is full
// the event is dropped for that subscriber and counted.
type Publisher struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	bufSize int
	closed  bool
}

// NewPublisher creates a publisher with the default channel capacity.
func NewPublisher() *Publisher {
	return &Publisher{
		subs:    make(map[int]chan Event),
		bufSize: constants.SubscriberChannelSize,
	}
}

// Subscribe registers an observer. The returned function unsubscribes
// and closes the channel; it is safe to call more than once.
func (p *Publisher) Subscribe() (<-chan Event, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++

	ch := make(chan Event, p.bufSize)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	p.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if sub, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(sub)
			}
		})
	}

	return ch, unsubscribe
}

// Publish delivers the event to every subscriber without blocking.
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return
	}

	for _, ch := range p.subs {
		select {
		case ch <- event:
		default:
			metrics.IncrementCounter("events_dropped_total", map[string]string{
				"type": string(event.Type),
			}, "Events dropped due to slow subscribers")
		}
	}
}

// Close unsubscribes everyone and rejects further subscriptions.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
}
