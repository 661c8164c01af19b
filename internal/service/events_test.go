package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SubscribeAndPublish(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	p.Publish(Event{Type: EventReady})

	event := <-ch
	assert.Equal(t, EventReady, event.Type)
}

func TestPublisher_MultipleSubscribersEachReceive(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	ch1, unsub1 := p.Subscribe()
	defer unsub1()
	ch2, unsub2 := p.Subscribe()
	defer unsub2()

	p.Publish(Event{Type: EventQR, QR: "payload"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		event := <-ch
		assert.Equal(t, EventQR, event.Type)
		assert.Equal(t, "payload", event.QR)
	}
}

func TestPublisher_UnsubscribeClosesChannel(t *testing.T) {
	p := NewPublisher()
	defer p.Close()

	ch, unsubscribe := p.Subscribe()
	unsubscribe()
	unsubscribe() // second call is a no-op

	_, ok := <-ch
	assert.False(t, ok)
}

func TestPublisher_SlowSubscriberDoesNotBlock(t *testing.T) {
	p := NewPublisher()
	defer p.Close()
	p.bufSize = 1

	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	// Second publish overflows the capacity-1 channel and must drop
	// instead of blocking.
	p.Publish(Event{Type: EventReady})
	p.Publish(Event{Type: EventDisconnected})

	event := <-ch
	assert.Equal(t, EventReady, event.Type)
	select {
	case extra := <-ch:
		t.Fatalf("expected dropped event, got %v", extra.Type)
	default:
	}
}

func TestPublisher_CloseClosesSubscribers(t *testing.T) {
	p := NewPublisher()
	ch, _ := p.Subscribe()

	p.Close()
	p.Close() // idempotent

	_, ok := <-ch
	require.False(t, ok)

	// Subscribing after Close yields a closed channel.
	late, _ := p.Subscribe()
	_, ok = <-late
	assert.False(t, ok)

	// Publishing after Close is a no-op.
	p.Publish(Event{Type: EventReady})
}
