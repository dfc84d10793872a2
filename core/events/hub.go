package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fader/logger"
)

// Event types pushed to project subscribers.
const (
	MsgTypeVersionCreated  = "version_created"
	MsgTypeMasterChanged   = "master_changed"
	MsgTypeCommentCreated  = "comment_created"
	MsgTypeCommentResolved = "comment_resolved"
	MsgTypeTrackDeleted    = "track_deleted"
)

// Message is the envelope every subscriber receives.
type Message struct {
	Type      string `json:"type"`
	ProjectID int64  `json:"projectId"`
	Payload   any    `json:"payload,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Client is one websocket subscription to a project's events.
type Client struct {
	Hub       *ProjectHub
	Conn      *websocket.Conn
	Send      chan []byte
	ProjectID int64
	UserID    int64
}

// ProjectHub fans catalog change events out to websocket subscribers grouped
// by project. Subscribers are read-mostly; the only inbound traffic is
// keepalive.
type ProjectHub struct {
	projects map[int64]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message

	mu   sync.RWMutex
	done chan struct{}
}

// NewProjectHub creates a hub; call Run in a goroutine to start it.
func NewProjectHub() *ProjectHub {
	return &ProjectHub{
		projects:   make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
	}
}

// Run drives the hub's register/unregister/broadcast loop until Stop.
func (h *ProjectHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastToProject(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop shuts the hub down and disconnects every subscriber.
func (h *ProjectHub) Stop() {
	close(h.done)
}

// Register attaches a client to its project's subscriber set.
func (h *ProjectHub) Register(client *Client) {
	h.register <- client
}

// Unregister detaches a client.
func (h *ProjectHub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish queues an event for a project's subscribers. It never blocks the
// caller; an overflowing hub drops the event.
func (h *ProjectHub) Publish(projectID int64, msgType string, payload any) {
	msg := &Message{
		Type:      msgType,
		ProjectID: projectID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn("event hub broadcast buffer full, dropping event",
			logger.String("type", msgType),
			logger.Int64("project", projectID))
	}
}

// SubscriberCount reports how many clients watch a project.
func (h *ProjectHub) SubscriberCount(projectID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.projects[projectID])
}

func (h *ProjectHub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.projects[client.ProjectID] == nil {
		h.projects[client.ProjectID] = make(map[*Client]bool)
	}
	h.projects[client.ProjectID][client] = true

	logger.Info("event subscriber attached",
		logger.Int64("project", client.ProjectID),
		logger.Int64("user", client.UserID))
}

func (h *ProjectHub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeClient(client)
}

// removeClient requires the lock to be held.
func (h *ProjectHub) removeClient(client *Client) {
	clients, ok := h.projects[client.ProjectID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.projects, client.ProjectID)
	}

	logger.Info("event subscriber detached",
		logger.Int64("project", client.ProjectID),
		logger.Int64("user", client.UserID))
}

func (h *ProjectHub) broadcastToProject(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("failed to encode event", logger.ErrorField(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.projects[msg.ProjectID] {
		select {
		case client.Send <- data:
		default:
			// Send buffer full, the subscriber is too slow to keep.
			h.removeClient(client)
		}
	}
}

func (h *ProjectHub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.projects {
		for client := range clients {
			close(client.Send)
			client.Conn.Close()
		}
	}
	h.projects = make(map[int64]map[*Client]bool)
}

// ReadPump drains inbound frames for keepalive only and unregisters the
// client when the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(1024)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					logger.ErrorField(err),
					logger.Int64("project", c.ProjectID),
					logger.Int64("user", c.UserID))
			}
			return
		}
	}
}

// WritePump pushes queued events to the connection and pings it on an
// interval so intermediaries keep it open.
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
