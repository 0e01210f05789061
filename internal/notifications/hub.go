package notifications

import (
	"context"
	"errors"
	"sync"

	"blogcms/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	maxConnsPerAccount = 8
	maxTotalConns      = 512
)

var (
	// ErrServerFull is returned by Register when the hub is at capacity.
	ErrServerFull = errors.New("server connection limit reached")
	// ErrAccountFull is returned by Register when one account holds too many sockets.
	ErrAccountFull = errors.New("account connection limit reached")
	// ErrHubClosed is returned by Register after Shutdown.
	ErrHubClosed = errors.New("hub is shut down")
)

// Hub tracks admin websocket clients and broadcasts events to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	perAcct map[uint]int
	closed  bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		perAcct: make(map[uint]int),
	}
}

// Register attaches a connection for accountID.
func (h *Hub) Register(accountID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= maxTotalConns {
		return nil, ErrServerFull
	}
	if h.perAcct[accountID] >= maxConnsPerAccount {
		return nil, ErrAccountFull
	}

	client := newClient(h, conn, accountID)
	h.clients[client] = struct{}{}
	h.perAcct[accountID]++
	observability.WebSocketConnections.Inc()
	return client, nil
}

// Unregister detaches a client and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send)
	h.perAcct[client.AccountID]--
	if h.perAcct[client.AccountID] <= 0 {
		delete(h.perAcct, client.AccountID)
	}
	observability.WebSocketConnections.Dec()
}

// Count returns the number of attached clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends message to every attached client.
func (h *Hub) Broadcast(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.TrySend(message)
	}
}

// StartWiring forwards every event published through n to this hub.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, func(payload string) {
		h.Broadcast([]byte(payload))
	})
}

// Shutdown detaches every client. Each write pump then sends a going-away
// close frame and closes its connection.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	for client := range h.clients {
		client.closeCode = websocket.CloseGoingAway
		client.closeText = "Server shutting down"
		close(client.Send)
		observability.WebSocketConnections.Dec()
	}
	h.clients = make(map[*Client]struct{})
	h.perAcct = make(map[uint]int)
	return nil
}
