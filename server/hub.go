package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pulsefeed/pulsefeed-go/utils/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type wsClient struct {
	userID int
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans realtime events out to connected websocket clients. Events arrive
// from the notification bus, clients come and go with their connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}

	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte

	done     chan struct{}
	stopOnce sync.Once
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*wsClient]struct{}),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until Close is called. Call it once in its own
// goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer, drop the event rather than block the hub.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Close stops the Run loop and disconnects every client. Safe to call more
// than once.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast sends payload to every connected client.
func (h *Hub) Broadcast(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Log.WithError(err).Error("marshal broadcast payload")
		return
	}
	h.broadcast <- data
}

// BroadcastToUser sends payload only to connections authenticated as userID.
func (h *Hub) BroadcastToUser(userID int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Log.WithError(err).Error("marshal broadcast payload")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.userID != userID {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}

// HandleConnection registers conn for userID and pumps messages until the
// connection drops.
func (h *Hub) HandleConnection(conn *websocket.Conn, userID int) {
	client := &wsClient{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 16),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump(h)
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// The client never sends application messages; reading here just
		// services pongs and detects the close.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
