package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/watchtogether/server/internal/domain"
)

var ErrNotConnected = errors.New("not connected")

const defaultReconnectDelay = 2 * time.Second

// Client owns the websocket transport for one participant: dial, the join
// flow (REQUEST_SYNC before anything else), the read loop feeding the
// engine, and reconnect-and-resync on transport loss. No outbound events
// survive a disconnect.
type Client struct {
	wsURL          string
	engine         *Engine
	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	logger         *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(wsURL string, engine *Engine, logger *slog.Logger) *Client {
	c := &Client{
		wsURL:          wsURL,
		engine:         engine,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: defaultReconnectDelay,
		logger:         logger,
	}
	engine.SetSender(c)

	return c
}

// Run connects and serves until ctx is cancelled, reconnecting with a fresh
// REQUEST_SYNC after every transport drop.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.runOnce(ctx); err != nil {
			c.logger.Info("connection lost", "error", err)
		}

		c.engine.setStatus("reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return err
	}

	c.setConn(conn)
	defer func() {
		c.setConn(nil)
		conn.Close()
	}()

	c.engine.setStatus("connected")

	// join flow: reach parity via SYNC_STATE before any user interaction
	// can emit outbound events
	c.engine.RequestSync()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return c.readLoop(conn)
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		if msg.Type == "ERROR" {
			var syncErr domain.SyncError
			if err := json.Unmarshal(msg.Payload, &syncErr); err == nil {
				c.logger.Info("server rejected event", "code", syncErr.Code, "message", syncErr.Message)
			}
			continue
		}

		var event domain.SyncEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			c.logger.Info("failed to decode event", "type", msg.Type, "error", err)
			continue
		}
		event.Type = domain.EventType(msg.Type)

		if err := c.engine.Apply(event); err != nil {
			c.logger.Info("failed to apply event", "type", event.Type, "error", err)
		}
	}
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Send implements Sender over the current connection.
func (c *Client) Send(event domain.SyncEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	return c.conn.WriteJSON(outboundMessage{
		Type:    string(event.Type),
		Payload: event,
	})
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}
