package notifications

import (
	"time"

	"blogcms/internal/middleware"
	"blogcms/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Admin dashboards only send pongs and close frames.
	maxMessageSize = 1024

	sendBuffer = 256
)

var droppedNotice = []byte(`{"type":"events_dropped","payload":{"reason":"buffer_full"}}`)

// Client is a single admin websocket connection attached to a Hub.
type Client struct {
	hub *Hub

	// Conn is nil in tests that only exercise the hub bookkeeping.
	Conn *websocket.Conn

	// Send is the buffered channel of outbound event payloads.
	Send chan []byte

	AccountID uint

	// closeCode and closeText are set by the hub before it closes Send and
	// are sent by the write pump, the only writer on Conn.
	closeCode int
	closeText string
}

func newClient(hub *Hub, conn *websocket.Conn, accountID uint) *Client {
	return &Client{
		hub:       hub,
		Conn:      conn,
		AccountID: accountID,
		Send:      make(chan []byte, sendBuffer),
	}
}

// ReadPump drains control frames until the peer goes away, then unregisters.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				middleware.Logger.Warn("admin websocket read failed", "account_id", c.AccountID, "error", err)
			}
			return
		}
	}
}

// WritePump pumps events from Send to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, c.closeFrame())
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) closeFrame() []byte {
	if c.closeCode == 0 {
		return []byte{}
	}
	return websocket.FormatCloseMessage(c.closeCode, c.closeText)
}

// TrySend queues a message without blocking. When the buffer is full the
// message is dropped and the client is told so it can refetch.
func (c *Client) TrySend(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues("closed").Inc()
		}
	}()

	select {
	case c.Send <- message:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		middleware.Logger.Warn("admin websocket buffer full, dropped event", "account_id", c.AccountID)
		select {
		case c.Send <- droppedNotice:
		default:
		}
	}
}
