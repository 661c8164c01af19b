package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"replyflow/internal/metrics"
	"replyflow/internal/models"
	"replyflow/internal/privacy"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MessageSender delivers a reply to a destination chat.
type MessageSender interface {
	SendMessage(ctx context.Context, destination, text string) error
}

// LogStore persists the processed-message log.
type LogStore interface {
	AppendLog(ctx context.Context, entry *models.MessageLogEntry) error
	GetLogs(ctx context.Context, limit int) ([]models.MessageLogEntry, error)
	ClearLogs(ctx context.Context) error
}

// Pipeline consumes inbound messages, runs them through the rule
// engine and sends the matched reply after the rule's delay. Each
// message is processed on its own goroutine so a delayed reply never
// holds up later messages.
type Pipeline struct {
	engine *RuleEngine
	sender MessageSender
	store  LogStore
	bus    *Publisher
	logger *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.RWMutex
	running      bool
	startedAt    time.Time
	messageCount int64

	// sleep is swapped in tests to avoid real waits
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewPipeline wires a pipeline over the given engine, sender and store.
func NewPipeline(engine *RuleEngine, sender MessageSender, store LogStore, bus *Publisher, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		engine: engine,
		sender: sender,
		store:  store,
		bus:    bus,
		logger: logger,
		sleep:  sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Start subscribes to the event source and begins processing inbound
// messages. It is an error to start a running pipeline. The pipeline
// owns its lifetime: Stop is the only cancellation point, so a process
// shutdown signal does not abort in-flight delays or sends before Stop
// runs.
func (p *Pipeline) Start(events <-chan Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("pipeline already running")
	}
	p.running = true
	p.startedAt = time.Now()
	p.messageCount = 0
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go p.consume(events)

	p.logger.Info("Message pipeline started")
	return nil
}

// Stop cancels in-flight processing and waits for it to finish.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.logger.Info("Message pipeline stopped")
}

// IsRunning reports whether the pipeline is consuming events.
func (p *Pipeline) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// MessageCount returns the number of messages processed since Start.
func (p *Pipeline) MessageCount() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.messageCount
}

// Uptime returns the time elapsed since Start, zero when stopped.
func (p *Pipeline) Uptime() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return 0
	}
	return time.Since(p.startedAt)
}

func (p *Pipeline) consume(events <-chan Event) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type != EventMessage || event.Message == nil {
				continue
			}
			p.wg.Add(1)
			go func(msg *models.InboundMessage) {
				defer p.wg.Done()
				p.process(p.ctx, msg)
			}(event.Message)
		}
	}
}

// process runs one message through matching, delay, send and logging.
// Send and persistence failures are contained: they are logged and
// counted, never propagated to the event loop.
func (p *Pipeline) process(ctx context.Context, msg *models.InboundMessage) {
	p.mu.Lock()
	p.messageCount++
	p.mu.Unlock()
	metrics.IncrementCounter("messages_processed_total", map[string]string{
		"chat_type": string(msg.ChatType),
	}, "Inbound messages processed")

	entry := p.newLogEntry(msg)
	rule := p.engine.FindMatch(msg.Body, msg.ChatType)

	if rule != nil {
		entry.MatchedRule = strPtr(rule.ID)
		entry.MatchedPattern = strPtr(rule.Pattern)
		entry.Response = strPtr(rule.Response)

		metrics.IncrementCounter("rules_matched_total", map[string]string{
			"rule_id": rule.ID,
		}, "Rule matches")

		log := p.logger.WithFields(logrus.Fields{
			LogFieldRuleID: rule.ID,
			LogFieldChatID: privacy.MaskChatID(msg.From),
			"delay":        rule.DelaySec,
		})
		log.Info("Rule matched, sending reply")

		send := true
		if rule.DelaySec > 0 && !p.sleep(ctx, time.Duration(rule.DelaySec)*time.Second) {
			// A cancelled delay skips the send but still falls through
			// to the log write below.
			log.Debug("Reply cancelled during delay")
			send = false
		}

		if send {
			if err := p.sender.SendMessage(ctx, msg.From, rule.Response); err != nil {
				log.WithError(err).Error("Failed to send reply")
				recordSendFailure()
			} else {
				metrics.IncrementCounter("replies_sent_total", nil, "Replies sent")
			}
		}
	} else {
		p.logger.WithFields(logrus.Fields{
			LogFieldChatID: privacy.MaskChatID(msg.From),
		}).Debug("No rule matched")
	}

	// The log write is not tied to the pipeline context so entries for
	// in-flight messages still land during shutdown.
	if err := p.store.AppendLog(context.Background(), entry); err != nil {
		p.logger.WithError(err).Error("Failed to persist message log entry")
		recordStorageFailure("append_log")
	}

	p.bus.Publish(Event{Type: EventMessageProcessed, LogEntry: entry})
}

func (p *Pipeline) newLogEntry(msg *models.InboundMessage) *models.MessageLogEntry {
	ts := time.Unix(msg.Timestamp, 0).UTC()
	if msg.Timestamp <= 0 {
		ts = time.Now().UTC()
	}

	return &models.MessageLogEntry{
		ID:         uuid.NewString(),
		Timestamp:  ts.Format(time.RFC3339),
		Sender:     msg.Sender,
		SenderName: senderName(msg.Sender),
		Message:    msg.Body,
		ChatType:   msg.ChatType,
	}
}

// senderName strips the network-domain suffix from a chat address.
func senderName(sender string) string {
	if idx := strings.Index(sender, "@"); idx >= 0 {
		return sender[:idx]
	}
	return sender
}

// Stats assembles the combined statistics snapshot.
func (p *Pipeline) Stats(connState models.ConnectionState) models.PipelineStats {
	p.mu.RLock()
	running := p.running
	count := p.messageCount
	var uptime time.Duration
	if running {
		uptime = time.Since(p.startedAt)
	}
	p.mu.RUnlock()

	uptimeSec := int64(uptime.Seconds())
	return models.PipelineStats{
		MessageCount:     count,
		UptimeSec:        uptimeSec,
		UptimeFormatted:  FormatUptime(uptimeSec),
		ConnectionStatus: connState,
		IsRunning:        running,
		RuleStats:        p.engine.Stats(),
	}
}

// FormatUptime renders seconds as "Xh Ym Zs".
func FormatUptime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

func strPtr(s string) *string {
	return &s
}
