package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
)

const writeWait = 2 * time.Second

// Hub fans manifest events out to connected pages
type Hub struct {
	mu        sync.Mutex
	wsClients map[*websocket.Conn]struct{}
	logger    logger.Logger
}

// HubStats is a snapshot of hub membership
type HubStats struct {
	WSClients int `json:"ws_clients"`
}

// ManifestEvent is broadcast after the manifest has been replaced
type ManifestEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// NewHub creates an empty hub
func NewHub(log logger.Logger) *Hub {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Hub{
		wsClients: make(map[*websocket.Conn]struct{}),
		logger:    log.WithField("component", "hub"),
	}
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	h.mu.Lock()
	h.wsClients[ws] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.wsClients, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// BroadcastJSON sends v to every client. Clients that cannot keep up are
// dropped.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode hub message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.wsClients {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = ws.Close()
			delete(h.wsClients, ws)
		}
	}
}

func (h *Hub) Stats() HubStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HubStats{WSClients: len(h.wsClients)}
}

// Close disconnects every client. http.Server.Shutdown does not track
// hijacked connections, so this runs on shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.wsClients {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = ws.Close()
		delete(h.wsClients, ws)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The page is served from this same local server or opened from disk
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades the request and keeps the client registered until it
// goes away. Incoming messages are ignored.
func WSHandler(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		// Written before registering so it never races a broadcast
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"welcome","transport":"websocket"}`))
		hub.AddWS(ws)
		hub.logger.Debug("Websocket client connected")

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		hub.logger.Debug("Websocket client disconnected")
	}
}
