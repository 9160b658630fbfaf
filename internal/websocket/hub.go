package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Hub tracks a user's open connections and fans sync events out to them.
// Inbound traffic is limited to pings; the sync protocol itself is plain
// HTTP, the socket only tells other sessions "refetch now".
type Hub struct {
	clients        map[string]*Client
	userIndex      map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	maxConnPerUser int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
}

func NewHub(maxConnPerUser int, writeWait, pongWait, pingPeriod time.Duration) *Hub {
	return &Hub{
		clients:        make(map[string]*Client),
		userIndex:      make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		maxConnPerUser: maxConnPerUser,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	if h.userIndex[client.UserID] == nil {
		h.userIndex[client.UserID] = make(map[string]bool)
	}

	if len(h.userIndex[client.UserID]) >= h.maxConnPerUser {
		log.Printf("max connections reached for user %s", client.UserID)
		close(client.Send)
		return
	}

	h.clients[client.ID] = client
	h.userIndex[client.UserID][client.ID] = true

	log.Printf("client registered: %s (user: %s)", client.ID, client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsMutex.Lock()
	defer h.clientsMutex.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		delete(h.userIndex[client.UserID], client.ID)

		if len(h.userIndex[client.UserID]) == 0 {
			delete(h.userIndex, client.UserID)
		}

		close(client.Send)
		log.Printf("client unregistered: %s", client.ID)
	}
}

// NotifyWorkspaceUpdated pushes a workspace_updated event to every open
// connection the user has. Implements service.Notifier.
func (h *Hub) NotifyWorkspaceUpdated(userID string) {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	msg := Message{
		Type:      TypeWorkspaceUpdated,
		Timestamp: time.Now(),
	}

	messageBytes, err := json.Marshal(msg)
	if err != nil {
		log.Printf("error marshaling workspace_updated: %v", err)
		return
	}

	for clientID := range h.userIndex[userID] {
		client := h.clients[clientID]
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("client %s send buffer full, dropping event", clientID)
		}
	}
}

// UserConnections reports how many sockets the user currently has open.
func (h *Hub) UserConnections(userID string) int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()

	return len(h.userIndex[userID])
}
