package service

import (
	"context"
	"strings"
	"sync"

	apperrors "replyflow/internal/errors"
	"replyflow/internal/metrics"
	"replyflow/internal/models"
	"replyflow/internal/privacy"
	"replyflow/internal/retry"
	watypes "replyflow/pkg/wagateway/types"

	"github.com/sirupsen/logrus"
)

// GroupChatSuffix marks a chat address as a multi-party conversation.
const GroupChatSuffix = "@g.us"

// LifecycleManager owns the single session transport for the process:
// it translates transport signals into the normalized event set (qr,
// ready, disconnected, message) and implements the bounded reconnect
// policy. An explicit Disconnect never schedules a reconnect.
type LifecycleManager struct {
	transport watypes.Session
	policy    retry.SchedulePolicy
	bus       *Publisher
	logger    *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.RWMutex
	state     models.ConnectionState
	qr        string
	attempts  int
	loggedOut bool
	started   bool
}

// NewLifecycleManager creates a manager around the given transport.
func NewLifecycleManager(transport watypes.Session, policy retry.SchedulePolicy, logger *logrus.Logger) *LifecycleManager {
	return &LifecycleManager{
		transport: transport,
		policy:    policy,
		bus:       NewPublisher(),
		logger:    logger,
		state:     models.ConnectionDisconnected,
	}
}

// Subscribe registers an observer for normalized lifecycle events.
func (m *LifecycleManager) Subscribe() (<-chan Event, func()) {
	return m.bus.Subscribe()
}

// Initialize establishes the transport session and starts the event
// loop. It fails only on unrecoverable transport construction errors;
// later disconnects are handled by the reconnect policy.
func (m *LifecycleManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return apperrors.New(apperrors.ErrCodeInternalError, "lifecycle manager already initialized")
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.state = models.ConnectionConnecting
	m.mu.Unlock()

	if err := m.transport.Connect(m.ctx); err != nil {
		m.mu.Lock()
		m.state = models.ConnectionDisconnected
		m.mu.Unlock()
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "failed to establish transport session")
	}

	m.wg.Add(1)
	go m.eventLoop()

	m.logger.Info("Connection lifecycle manager initialized")
	return nil
}

// SendMessage delivers text to the destination chat. It fails with
// NotConnected unless the current state is connected.
func (m *LifecycleManager) SendMessage(ctx context.Context, destination, text string) error {
	if !m.IsConnected() {
		return apperrors.New(apperrors.ErrCodeNotConnected, "transport is not connected")
	}

	if err := m.transport.SendText(ctx, destination, text); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTransport, "failed to send message")
	}
	return nil
}

// Disconnect performs an explicit logout. Afterwards the state is
// disconnected and no automatic reconnect is scheduled.
func (m *LifecycleManager) Disconnect(ctx context.Context) error {
	// Suppress reconnects before the logout lands; the gateway may
	// emit a STOPPED status while the logout call is in flight.
	m.mu.Lock()
	m.loggedOut = true
	m.mu.Unlock()

	var logoutErr error
	if err := m.transport.Logout(ctx); err != nil {
		m.logger.WithError(err).Warn("Transport logout failed")
		logoutErr = apperrors.Wrap(err, apperrors.ErrCodeTransport, "logout failed")
	}

	m.mu.Lock()
	m.qr = ""
	m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	if err := m.transport.Close(); err != nil {
		m.logger.WithError(err).Debug("Transport close reported an error")
	}
	m.wg.Wait()

	m.mu.Lock()
	m.state = models.ConnectionDisconnected
	m.mu.Unlock()
	m.bus.Close()

	m.logger.Info("Transport disconnected by explicit logout")
	return logoutErr
}

// GetConnectionState returns the current state label.
func (m *LifecycleManager) GetConnectionState() models.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// GetQRCode returns the pending credential challenge payload, empty
// once connected or logged out.
func (m *LifecycleManager) GetQRCode() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.qr
}

// IsConnected reports whether the transport is currently connected.
func (m *LifecycleManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == models.ConnectionConnected
}

// Status returns the observer snapshot served by the dashboard.
func (m *LifecycleManager) Status() models.ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.ConnectionStatus{Status: m.state, QR: m.qr}
}

func (m *LifecycleManager) eventLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-m.transport.Events():
			if !ok {
				return
			}
			m.handleEvent(event)
		}
	}
}

func (m *LifecycleManager) handleEvent(event watypes.Event) {
	switch event.Kind {
	case watypes.EventKindStatus:
		m.handleStatus(event.Status)
	case watypes.EventKindMessages:
		m.handleMessages(event.Messages)
	case watypes.EventKindClosed:
		m.logger.WithError(event.Err).Warn("Transport event socket closed")
		m.handleClose("")
	}
}

func (m *LifecycleManager) handleStatus(status *watypes.SessionStatusPayload) {
	if status == nil {
		return
	}

	switch status.Status {
	case watypes.SessionStatusStarting:
		m.mu.Lock()
		m.state = models.ConnectionConnecting
		m.mu.Unlock()

	case watypes.SessionStatusScanQR:
		m.mu.Lock()
		m.state = models.ConnectionConnecting
		m.qr = status.QR
		m.mu.Unlock()
		m.logger.Info("Credential challenge received")
		m.bus.Publish(Event{Type: EventQR, QR: status.QR})

	case watypes.SessionStatusWorking:
		m.mu.Lock()
		m.state = models.ConnectionConnected
		m.qr = ""
		m.attempts = 0
		m.mu.Unlock()
		metrics.SetGauge("reconnect_attempts", 0, nil, "Current reconnect attempt count")
		m.logger.Info("Transport session established")
		m.bus.Publish(Event{Type: EventReady})

	case watypes.SessionStatusFailed, watypes.SessionStatusStopped:
		m.handleClose(status.Reason)
	}
}

func (m *LifecycleManager) handleClose(reason string) {
	m.mu.Lock()
	if m.loggedOut {
		m.state = models.ConnectionDisconnected
		m.mu.Unlock()
		return
	}

	m.state = models.ConnectionDisconnected
	explicitLogout := reason == watypes.ReasonLoggedOut
	if explicitLogout {
		m.qr = ""
	}
	m.mu.Unlock()

	m.bus.Publish(Event{Type: EventDisconnected})

	if explicitLogout {
		m.logger.Warn("Session logged out; manual re-authentication required")
		return
	}

	m.scheduleReconnect()
}

// scheduleReconnect runs the next reconnect attempt as deferred work so
// the event loop stays responsive while the delay elapses.
func (m *LifecycleManager) scheduleReconnect() {
	m.mu.Lock()
	if m.policy.Exhausted(m.attempts) {
		m.mu.Unlock()
		m.logger.WithField("max_attempts", m.policy.MaxAttempts).Error(
			"Reconnect attempts exhausted; automatic recovery stopped, restart required")
		metrics.IncrementCounter("reconnect_exhausted_total", nil, "Reconnect policy exhaustion events")
		return
	}

	attempt := m.attempts
	m.attempts++
	delay := m.policy.DelayFor(attempt)
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		LogFieldAttempt: attempt + 1,
		"max_attempts":  m.policy.MaxAttempts,
		"delay":         delay,
	}).Info("Scheduling reconnect")
	metrics.IncrementCounter("reconnect_attempts_total", nil, "Scheduled reconnect attempts")
	metrics.SetGauge("reconnect_attempts", float64(attempt+1), nil, "Current reconnect attempt count")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		if !m.policy.Wait(m.ctx, attempt) {
			return
		}

		m.mu.Lock()
		if m.loggedOut {
			m.mu.Unlock()
			return
		}
		m.state = models.ConnectionConnecting
		m.mu.Unlock()

		if err := m.transport.Connect(m.ctx); err != nil {
			m.logger.WithError(err).Warn("Reconnect attempt failed")
			m.mu.Lock()
			m.state = models.ConnectionDisconnected
			m.mu.Unlock()
			m.scheduleReconnect()
		}
	}()
}

func (m *LifecycleManager) handleMessages(raw []watypes.RawMessage) {
	for i := range raw {
		msg := &raw[i]
		if msg.FromMe || msg.Body == "" {
			continue
		}

		chatType := models.ChatTypeDirect
		if strings.HasSuffix(msg.From, GroupChatSuffix) {
			chatType = models.ChatTypeGroup
		}

		sender := msg.Participant
		if sender == "" {
			sender = msg.From
		}

		inbound := &models.InboundMessage{
			ID:        msg.ID,
			From:      msg.From,
			Sender:    sender,
			Body:      msg.Body,
			ChatType:  chatType,
			Timestamp: msg.Timestamp,
		}

		m.logger.WithFields(logrus.Fields{
			LogFieldChatID:   privacy.MaskChatID(msg.From),
			LogFieldSender:   privacy.MaskChatID(sender),
			LogFieldChatType: chatType,
		}).Debug("Inbound message received")

		m.bus.Publish(Event{Type: EventMessage, Message: inbound})
	}
}
