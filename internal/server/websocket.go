package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lancetdoc/lancet/core/journal"
	"github.com/lancetdoc/lancet/internal/logging"
)

// Request is one command frame sent by a client.
type Request struct {
	ID      string `json:"id,omitempty"`
	Command string `json:"command"`
}

// Frame is one message pushed to a client. A hello frame greets a new
// connection, a result frame answers that client's own request, and update
// frames fan document changes out to every connection.
type Frame struct {
	Type      string         `json:"type"` // "hello", "result", "update"
	ID        string         `json:"id,omitempty"`
	Output    string         `json:"output,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	ClientID  string         `json:"client_id,omitempty"`
	Event     *journal.Event `json:"event,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Client represents one WebSocket connection.
type Client struct {
	id     string
	server *Server
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks live connections and fans update frames out to all of them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub returns an empty hub. Run must be started before clients arrive.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run handles client registration and broadcasting. It runs for the life of
// the server.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_connected", count, "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			logging.WebSocketEvent("client_disconnected", count, "client_id", client.id)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client cannot keep up. Closing the connection makes
					// both pumps exit; the send channel stays open so late
					// queued frames never hit a closed channel.
					delete(h.clients, client)
					client.conn.Close()
					logging.WebSocketEvent("client_dropped", len(h.clients), "client_id", client.id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastEvent fans one document change out to every connected client.
func (h *Hub) BroadcastEvent(ev journal.Event) {
	frame := Frame{
		Type:      "update",
		Event:     &ev,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		logging.Error("failed to marshal update frame", "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logging.Warn("update queue full, dropping event frame", "event_type", ev.Type)
	}
}

// readPump reads command frames and executes them. It owns deregistration:
// when it returns the client is gone.
func (c *Client) readPump() {
	defer func() {
		c.server.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("websocket closed unexpectedly", "error", err, "client_id", c.id)
			}
			break
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.queue(Frame{Type: "result", Output: "Error: cannot parse request: " + err.Error()})
			continue
		}

		output, quit := c.server.Execute(req.Command)
		c.queue(Frame{Type: "result", ID: req.ID, Output: output})
		if quit {
			break
		}
	}
}

// queue marshals a frame onto the outbound channel without blocking. Frames
// to a client that cannot keep up are dropped.
func (c *Client) queue(frame Frame) {
	frame.Timestamp = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(frame)
	if err != nil {
		logging.Error("failed to marshal frame", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		logging.Warn("client send buffer full, dropping frame")
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Flush any additional queued frames into the same write.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket upgrades the connection and registers the client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(origin, s.cfg.AllowedOrigins)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		server: s,
		conn:   conn,
		send:   make(chan []byte, 256),
	}
	s.hub.register <- client

	client.queue(Frame{Type: "hello", SessionID: s.session.ID, ClientID: client.id})

	go client.writePump()
	go client.readPump()
}
