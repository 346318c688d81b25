package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"studyroom/internal/coordinator"
	"studyroom/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// TokenValidator resolves a bearer token to a user
type TokenValidator interface {
	ValidateUserToken(token string) (*model.UserClaims, error)
}

// EventSink receives connection lifecycle and inbound client events
type EventSink interface {
	Connect(id coordinator.Identity)
	Disconnect(connID string)
	Handle(connID, event string, payload json.RawMessage)
}

// Handler handles WebSocket connections
type Handler struct {
	hub      *Hub
	auth     TokenValidator
	sink     EventSink
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. An empty origins list or one
// containing "*" accepts any origin.
func NewHandler(hub *Hub, auth TokenValidator, sink EventSink, origins []string) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		sink: sink,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.TrimRight(o, "/")] = true
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

// ServeWS handles GET /v1/ws
// The token comes from ?token= or an Authorization: Bearer header.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ValidateUserToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(uuid.NewString(), claims.UserID, claims.Username)
	h.hub.Register(conn)
	h.sink.Connect(coordinator.Identity{
		ConnID:   conn.ID,
		UserID:   conn.UserID,
		Username: conn.Username,
	})

	log.Info().Str("conn_id", conn.ID).Str("user_id", conn.UserID).Msg("websocket connected")

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.sink.Disconnect(conn.ID)
		h.hub.Unregister(conn)
		wsConn.Close()
		log.Info().Str("conn_id", conn.ID).Msg("websocket disconnected")
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("conn_id", conn.ID).Msg("websocket read error")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			h.hub.Send(conn.ID, coordinator.EvErrorMessage, coordinator.TextPayload{Text: "malformed message"})
			continue
		}
		h.sink.Handle(conn.ID, msg.Type, msg.Payload)
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
