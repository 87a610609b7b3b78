package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/tianji-quant/tianji/internal/ledger"
	"github.com/tianji-quant/tianji/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// ProgressHub fans per-day equity points out to websocket subscribers while a
// run is in flight. It implements the engine's progress sink; a full
// broadcast buffer drops points instead of stalling the simulation.
type ProgressHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewProgressHub creates a hub; the caller runs it with Run.
func NewProgressHub(log *logger.Logger) *ProgressHub {
	return &ProgressHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     log,
	}
}

// Run pumps registrations and broadcasts. Call in its own goroutine.
func (h *ProgressHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					delete(h.clients, conn)
					conn.Close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Progress implements backtest.ProgressSink.
func (h *ProgressHub) Progress(point ledger.EquityPoint) {
	data, err := json.Marshal(point)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		// Subscribers lagging; the run must not wait for them.
	}
}

// HandleWS upgrades a connection and subscribes it to progress events.
func (h *ProgressHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	h.register <- conn

	// Drain reads so close frames are processed; clients only listen.
	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
