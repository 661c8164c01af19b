package wagateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"replyflow/pkg/wagateway/types"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
)

// Gateway is a single session against a WAHA-style WhatsApp gateway:
// an HTTP API for sends and session control plus a long-lived websocket
// delivering session status and message events. It implements
// types.Session. Connect may be called again after a drop; the event
// channel survives reconnects and is closed only by Close.
type Gateway struct {
	cfg        types.ClientConfig
	httpClient *http.Client
	logger     *logrus.Logger

	events chan types.Event
	done   chan struct{}

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	wg     sync.WaitGroup
}

// NewGateway creates a gateway session client.
func NewGateway(cfg types.ClientConfig, logger *logrus.Logger) *Gateway {
	return &Gateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		events:     make(chan types.Event, eventChannelSize),
		done:       make(chan struct{}),
	}
}

const eventChannelSize = 64

// Events returns the stream of parsed gateway events.
func (g *Gateway) Events() <-chan types.Event {
	return g.events
}

// Connect dials the gateway event socket and starts the read loop.
// Construction errors (bad URL, unreachable gateway) are returned; a
// later socket drop surfaces as an EventKindClosed event instead.
func (g *Gateway) Connect(ctx context.Context) error {
	wsURL, err := g.socketURL()
	if err != nil {
		return err
	}

	header := http.Header{}
	if g.cfg.APIKey != "" {
		header.Set("X-Api-Key", g.cfg.APIKey)
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return fmt.Errorf("failed to dial gateway event socket: %w", err)
	}
	conn.SetReadLimit(readLimitBytes)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "closed")
		return fmt.Errorf("gateway is closed")
	}
	if g.conn != nil {
		_ = g.conn.Close(websocket.StatusNormalClosure, "replaced")
	}
	g.conn = conn
	g.wg.Add(1)
	g.mu.Unlock()

	go g.readLoop(ctx, conn)

	g.logger.WithField("session", g.cfg.SessionName).Debug("Gateway event socket connected")
	return nil
}

const readLimitBytes = 1 << 20

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer g.wg.Done()

	for {
		var envelope types.EventEnvelope
		if err := wsjson.Read(ctx, conn, &envelope); err != nil {
			g.emit(types.Event{Kind: types.EventKindClosed, Err: err})
			return
		}

		event, ok := g.parseEnvelope(envelope)
		if !ok {
			continue
		}
		g.emit(event)
	}
}

func (g *Gateway) parseEnvelope(envelope types.EventEnvelope) (types.Event, bool) {
	switch envelope.Event {
	case types.EventSessionStatus:
		var status types.SessionStatusPayload
		if err := json.Unmarshal(envelope.Payload, &status); err != nil {
			g.logger.WithError(err).Warn("Failed to parse session status payload")
			return types.Event{}, false
		}
		return types.Event{Kind: types.EventKindStatus, Status: &status}, true

	case types.EventMessage:
		var batch types.MessageBatchPayload
		if err := json.Unmarshal(envelope.Payload, &batch); err != nil {
			g.logger.WithError(err).Warn("Failed to parse message payload")
			return types.Event{}, false
		}
		return types.Event{Kind: types.EventKindMessages, Messages: batch.Messages}, true

	default:
		g.logger.WithField("event", envelope.Event).Debug("Ignoring unknown gateway event")
		return types.Event{}, false
	}
}

func (g *Gateway) emit(event types.Event) {
	select {
	case g.events <- event:
	case <-g.done:
	}
}

// Close tears down the socket and closes the event channel. Safe to call
// once; callers must not use the gateway afterwards.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	conn := g.conn
	g.conn = nil
	close(g.done)
	g.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "shutting down")
	}

	g.wg.Wait()
	close(g.events)
	return err
}

func (g *Gateway) socketURL() (string, error) {
	base, err := url.Parse(g.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid gateway base URL: %w", err)
	}

	switch base.Scheme {
	case "http":
		base.Scheme = "ws"
	case "https":
		base.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported gateway URL scheme %q", base.Scheme)
	}

	base.Path = "/ws"
	query := base.Query()
	query.Set("session", g.cfg.SessionName)
	query.Set("events", types.EventSessionStatus+","+types.EventMessage)
	base.RawQuery = query.Encode()

	return base.String(), nil
}
