package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"foundly/pkg/logger"
)

// Client is one connected socket for a user.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
	cancel context.CancelFunc
}

func NewClient(userID string, conn *websocket.Conn, cancel context.CancelFunc) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
		cancel: cancel,
	}
}

// Manager tracks active connections per user so document-store change
// events can be pushed instead of polled.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if old, ok := m.clients[client.UserID]; ok {
					close(old.Send)
					if old.cancel != nil {
						old.cancel()
					}
				}
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				logger.Info("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if current, ok := m.clients[client.UserID]; ok && current == client {
					delete(m.clients, client.UserID)
					close(client.Send)
					if client.cancel != nil {
						client.cancel()
					}
				}
				m.mutex.Unlock()
				logger.Info("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser delivers a payload to the user's socket if connected. A
// slow consumer is dropped rather than blocking the caller.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	m.mutex.RUnlock()

	if !ok {
		return
	}

	select {
	case client.Send <- message:
	default:
		logger.Warn("Dropping slow websocket client: %s", userID)
		m.Unregister <- client
	}
}

func (c *Client) ReadPump(ctx context.Context, m *Manager, events *ClientEventHandler) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error for %s: %v", c.UserID, err)
			}
			break
		}
		if events != nil {
			events.Handle(ctx, c, raw)
		}
	}
}

func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Warn("websocket write error for %s: %v", c.UserID, err)
			return
		}
	}
}
