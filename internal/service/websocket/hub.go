package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"posturemonitor/internal/logger"
	"posturemonitor/internal/models"
)

const writeWait = 5 * time.Second

// Client is a registered viewer connection.
type Client struct {
	ID   string
	conn *websocket.Conn
}

// HubService fans logged rows out to connected viewers.
type HubService struct {
	clients    map[string]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for id, client := range h.clients {
				client.conn.Close()
				delete(h.clients, id)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client.ID] = client
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer %s connected. Total: %d", client.ID, count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				client.conn.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer %s disconnected. Total: %d", client.ID, count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for id, client := range h.clients {
				client.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message to %s: %v", id, err)
					delete(h.clients, id)
					client.conn.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Register adds conn as a viewer and returns its client handle.
func (h *HubService) Register(conn *websocket.Conn) *Client {
	client := &Client{ID: uuid.NewString(), conn: conn}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
	}
	return client
}

func (h *HubService) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish encodes ev and queues it for every viewer. It never blocks the
// caller; events are dropped while the queue is full.
func (h *HubService) Publish(ev models.Event) {
	message, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Error encoding event: %v", err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Broadcast queue full, dropping %s event for %s", ev.Action, ev.Row.Side)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
