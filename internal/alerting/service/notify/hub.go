package notify

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/slopewatch/slopewatch/internal/alerting/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard clients connect from another origin in development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub broadcasts alert transitions to connected websocket dashboards. It is
// itself a notification Handler.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan []byte)}
}

func (h *Hub) Name() string { return "websocket" }

type wsMessage struct {
	Event Event        `json:"event"`
	Alert *model.Alert `json:"alert"`
}

func (h *Hub) Notify(event Event, a *model.Alert) error {
	data, err := json.Marshal(wsMessage{Event: event, Alert: a})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- data:
		default:
			// Slow consumer: drop it rather than block the broadcast.
			close(send)
			delete(h.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// ServeWS upgrades an HTTP request and streams alert events until the client
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	send := make(chan []byte, 16)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()
	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("websocket client connected")

	go h.writeLoop(conn, send)
	go h.readLoop(conn)
}

func (h *Hub) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	for data := range send {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(conn)
			return
		}
	}
}

// readLoop discards inbound frames and detects disconnects.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if send, ok := h.clients[conn]; ok {
		close(send)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
	conn.Close()
}
