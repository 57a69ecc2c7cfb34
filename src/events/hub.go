package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/username/cashflow/src/logger"
	"github.com/username/cashflow/src/models"
)

const writeWait = 10 * time.Second

// client is a connection and the owner whose views it receives.
type client struct {
	conn  *websocket.Conn
	owner string
}

// outbound is a message for every client, or only for owner's clients when toOwner is set.
type outbound struct {
	data    []byte
	owner   string
	toOwner bool
}

// Hub pushes store events to every connected websocket client and refreshed
// views to the clients of the owner they belong to.
type Hub struct {
	clients    map[*websocket.Conn]string
	broadcast  chan outbound
	register   chan client
	unregister chan *websocket.Conn
	done       chan struct{}
	mu         sync.Mutex
	upgrader   websocket.Upgrader
	snapshot   func(owner string) *models.View
	identify   func(r *http.Request) string
}

func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan outbound, 64),
		register:   make(chan client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// SetSnapshot sets the source of the view sent to each client when it connects.
func (h *Hub) SetSnapshot(fn func(owner string) *models.View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// SetIdentify sets how the owner of a connecting client is read from its
// upgrade request. Without it every client has the empty owner.
func (h *Hub) SetIdentify(fn func(r *http.Request) string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.identify = fn
}

// Start runs the hub loop until Stop is called.
func (h *Hub) Start() {
	go func() {
		for {
			select {
			case c := <-h.register:
				h.mu.Lock()
				h.clients[c.conn] = c.owner
				n := len(h.clients)
				h.mu.Unlock()
				logger.L.Info("WebSocket client connected", "clients", n)
			case conn := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[conn]; ok {
					delete(h.clients, conn)
					conn.Close()
				}
				n := len(h.clients)
				h.mu.Unlock()
				logger.L.Info("WebSocket client disconnected", "clients", n)
			case message := <-h.broadcast:
				h.mu.Lock()
				for conn, owner := range h.clients {
					if message.toOwner && owner != message.owner {
						continue
					}
					conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := conn.WriteMessage(websocket.TextMessage, message.data); err != nil {
						logger.L.Warn("Error sending message to websocket client", "error", err)
						conn.Close()
						delete(h.clients, conn)
					}
				}
				h.mu.Unlock()
			case <-h.done:
				h.mu.Lock()
				for conn := range h.clients {
					conn.Close()
					delete(h.clients, conn)
				}
				h.mu.Unlock()
				return
			}
		}
	}()
}

func (h *Hub) Stop() {
	close(h.done)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) send(msg outbound, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.L.Error("Failed to marshal websocket message", "error", err)
		return
	}
	msg.data = data
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		logger.L.Warn("WebSocket broadcast buffer full, dropping message")
	}
}

// Publish forwards a store event to every client. It never blocks the publisher.
func (h *Hub) Publish(ev models.Event) {
	h.send(outbound{}, map[string]interface{}{
		"type":  "event",
		"event": ev,
	})
}

// BroadcastView pushes a refreshed view to owner's clients.
func (h *Hub) BroadcastView(owner string, view *models.View) {
	h.send(outbound{owner: owner, toOwner: true}, map[string]interface{}{
		"type": "view",
		"view": view,
	})
}

// ServeWS upgrades the request and keeps the connection registered until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L.Warn("Failed to upgrade to WebSocket", "error", err)
		return
	}
	// Drop the read deadline inherited from the server's ReadTimeout.
	conn.SetReadDeadline(time.Time{})

	h.mu.Lock()
	snapshot, identify := h.snapshot, h.identify
	h.mu.Unlock()
	var owner string
	if identify != nil {
		owner = identify(r)
	}
	if snapshot != nil {
		if view := snapshot(owner); view != nil {
			// Not registered yet, so this write cannot race the broadcast loop.
			if data, err := json.Marshal(map[string]interface{}{"type": "view", "view": view}); err == nil {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.TextMessage, data)
			}
		}
	}

	select {
	case h.register <- client{conn: conn, owner: owner}:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		for {
			// Clients only listen; reads detect disconnects.
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
				return
			}
		}
	}()
}
