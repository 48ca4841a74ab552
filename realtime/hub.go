package realtime

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event names sent to clients.
const (
	EventConnected             = "connected"
	EventViolationAlert        = "violation_alert"
	EventViolationAcknowledged = "violation_acknowledged"
	EventLocationStatus        = "location_status"
)

const greeting = "Connected to server"

// Message is the envelope written to every websocket client.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Publisher is implemented by anything that can push domain events to clients.
type Publisher interface {
	Publish(event string, data interface{})
}

// Hub keeps the set of connected clients and fans out published events.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			n := h.closeAllClients()
			h.log.Info("realtime hub stopped", zap.Int("clients_closed", n))
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client connected", zap.String("remote", client.remote), zap.Int("total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client disconnected", zap.String("remote", client.remote), zap.Int("total_clients", total))

		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.log.Warn("dropping slow client", zap.String("remote", client.remote))
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	return n
}

// Publish queues an event for every connected client. It never blocks the
// caller; when the queue is full the event is dropped and logged.
func (h *Hub) Publish(event string, data interface{}) {
	select {
	case h.broadcast <- Message{Event: event, Data: data}:
	default:
		h.log.Warn("broadcast queue full, event dropped", zap.String("event", event))
	}
}

// Attach takes ownership of an upgraded connection: it greets the client,
// registers it and starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn) {
	client := newClient(h, conn)
	client.send <- Message{Event: EventConnected, Data: map[string]string{"message": greeting}}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
