package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/routiner/internal/calendar"
	"github.com/dukerupert/routiner/internal/schedule"
	"github.com/dukerupert/routiner/internal/tracker"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Command is a request sent by the browser.
type Command struct {
	Type      string     `json:"type"`
	Year      int        `json:"year,omitempty"`
	Month     time.Month `json:"month,omitempty"`
	Date      string     `json:"date,omitempty"`
	RoutineID string     `json:"routine_id,omitempty"`
}

// Client represents a single WebSocket connection. Each client views one
// month at a time through its own tracker.View.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	send   chan []byte
	view   *tracker.View
	logger *slog.Logger

	// calendar holds the latest undelivered month snapshot only.
	calendar chan []byte
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn, source tracker.Source, logger *slog.Logger) *Client {
	c := &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		calendar: make(chan []byte, 1),
		logger:   logger,
	}
	c.view = tracker.New(source, c.pushCalendar)
	return c
}

// Run registers the client, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unregisters.
func (c *Client) Run(ctx context.Context, month schedule.Month) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)
	defer c.view.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := c.view.Start(month); err != nil {
		c.logger.Warn("start view", "error", err)
		return
	}

	go c.writePump(ctx)
	c.readPump(ctx)
}

// readPump handles incoming commands. It returns on error (connection
// close), which triggers cleanup.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if err := c.handle(ctx, data); err != nil {
			c.logger.Debug("command failed", "error", err)
			c.reply(Message{Type: "error", Action: err.Error()})
		}
	}
}

func (c *Client) handle(ctx context.Context, data []byte) error {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}
	switch cmd.Type {
	case "navigate":
		return c.view.Navigate(schedule.Month{Year: cmd.Year, Month: cmd.Month})
	case "next":
		return c.view.Next()
	case "prev":
		return c.view.Prev()
	case "toggle":
		return c.view.Toggle(ctx, cmd.Date, cmd.RoutineID)
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

func (c *Client) reply(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal reply", "error", err)
		return
	}
	// Only called from readPump, which returns before the hub closes send.
	select {
	case c.send <- data:
	default:
	}
}

// pushCalendar replaces any snapshot the write pump has not sent yet.
// Renders are serialized by the view, so there is a single writer.
func (c *Client) pushCalendar(snap calendar.Snapshot) {
	data, err := json.Marshal(Message{Type: "calendar", Extra: map[string]any{"snapshot": snap}})
	if err != nil {
		c.logger.Error("marshal calendar", "error", err)
		return
	}
	for {
		select {
		case c.calendar <- data:
			return
		default:
		}
		select {
		case <-c.calendar:
		default:
		}
	}
}

// writePump drains the send channel and writes messages to the WebSocket.
// It also sends periodic pings to detect stale connections.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel, connection is done
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case msg := <-c.calendar:
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
