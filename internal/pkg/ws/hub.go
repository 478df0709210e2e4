package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks WebSocket clients per tenant. A tenant can hold several
// connections (multiple dashboards, reconnects).
type Hub struct {
	clients map[int64]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	TenantID int64
	Conn     *websocket.Conn
	mu       sync.Mutex // serializes writes on the connection
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.TenantID] == nil {
		h.clients[client.TenantID] = make(map[*Client]struct{})
	}
	h.clients[client.TenantID][client] = struct{}{}

	log.Printf("Tenant %d connected, tenant_conns: %d", client.TenantID, len(h.clients[client.TenantID]))
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.clients[client.TenantID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.TenantID)
		}
	}
	log.Printf("Tenant %d disconnected", client.TenantID)
}

// SendToTenant delivers a message to every connection of one tenant.
func (h *Hub) SendToTenant(tenantID int64, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns, ok := h.clients[tenantID]
	if !ok {
		h.mu.RUnlock()
		return nil
	}
	// Copy references so the lock is not held during writes.
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		err := c.Conn.WriteMessage(websocket.TextMessage, data)
		c.mu.Unlock()
		if err != nil {
			log.Printf("SendToTenant write error for tenant %d: %v", tenantID, err)
		}
	}
	return nil
}

// IsOnline reports whether a tenant has at least one connection.
func (h *Hub) IsOnline(tenantID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[tenantID]
	return ok && len(conns) > 0
}

// ConnectionCount returns the total number of connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
