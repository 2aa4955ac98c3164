package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
)

// Client is one websocket connection to a project room. A user editing
// in two tabs holds two clients with distinct ClientIDs.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	UserID    string
	ProjectID string
	ClientID  string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, projectID, clientID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		UserID:    userID,
		ProjectID: projectID,
		ClientID:  clientID,
	}
}

// ReadPump consumes frames until the connection drops, stamping each
// message with the connection's identity before the hub sees it.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status == websocket.StatusMessageTooBig {
				slog.Warn("frame over size limit, closing",
					"clientId", c.ClientID, "projectId", c.ProjectID)
			} else if !isExpectedClose(status) {
				slog.Debug("session read ended",
					"error", err, "clientId", c.ClientID, "projectId", c.ProjectID)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("undecodable session frame",
				"error", err, "clientId", c.ClientID)
			continue
		}

		// The envelope identity always comes from the connection, never
		// from the frame.
		msg.UserID = c.UserID
		msg.ClientID = c.ClientID
		msg.ProjectID = c.ProjectID

		c.hub.handleMessage(c, &msg)
	}
}

// WritePump drains the send buffer and keeps the connection alive with
// pings. It exits when the buffer closes or the context ends.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.write(ctx, frame); err != nil {
				slog.Debug("session write failed",
					"error", err, "clientId", c.ClientID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) write(ctx context.Context, frame []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, frame)
}

// Send queues a message without blocking the hub. A client that cannot
// keep up loses frames rather than stalling the room; it can always
// recover with a resync request.
func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal session message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("send buffer full, dropping frame",
			"clientId", c.ClientID, "projectId", c.ProjectID)
	}
}

func isExpectedClose(status websocket.StatusCode) bool {
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
}
