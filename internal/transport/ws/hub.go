package ws

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message is the WebSocket envelope format, used in both directions
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Connection represents a WebSocket connection
type Connection struct {
	ID       string
	UserID   string
	Username string
	Send     chan []byte

	// rooms is only touched by the hub loop
	rooms map[string]struct{}
}

// NewConnection creates a connection with a buffered outbound queue
func NewConnection(id, userID, username string) *Connection {
	return &Connection{
		ID:       id,
		UserID:   userID,
		Username: username,
		Send:     make(chan []byte, sendBuffer),
	}
}

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opSubscribe
	opUnsubscribe
	opSend
	opPublish
)

type op struct {
	kind   opKind
	conn   *Connection
	connID string
	roomID string
	data   []byte
}

// Hub owns every open connection and the room groups they belong to. All
// mutations and deliveries go through one FIFO queue, so a subscribe issued
// before a publish is always applied before it.
type Hub struct {
	clients map[string]*Connection
	groups  map[string]map[string]*Connection

	ops  chan op
	done chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		clients: make(map[string]*Connection),
		groups:  make(map[string]map[string]*Connection),
		ops:     make(chan op, 1024),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

// Close stops the hub and closes every connection's send queue
func (h *Hub) Close() {
	close(h.done)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for id, c := range h.clients {
				close(c.Send)
				delete(h.clients, id)
			}
			return
		case o := <-h.ops:
			h.apply(o)
		}
	}
}

func (h *Hub) apply(o op) {
	switch o.kind {
	case opRegister:
		o.conn.rooms = make(map[string]struct{})
		h.clients[o.conn.ID] = o.conn
		log.Debug().Str("conn_id", o.conn.ID).Str("user_id", o.conn.UserID).Msg("socket registered")

	case opUnregister:
		c, ok := h.clients[o.conn.ID]
		if !ok || c != o.conn {
			return
		}
		for roomID := range c.rooms {
			h.leave(roomID, c.ID)
		}
		delete(h.clients, c.ID)
		close(c.Send)
		log.Debug().Str("conn_id", c.ID).Msg("socket unregistered")

	case opSubscribe:
		c, ok := h.clients[o.connID]
		if !ok {
			return
		}
		if h.groups[o.roomID] == nil {
			h.groups[o.roomID] = make(map[string]*Connection)
		}
		h.groups[o.roomID][c.ID] = c
		c.rooms[o.roomID] = struct{}{}

	case opUnsubscribe:
		if c, ok := h.clients[o.connID]; ok {
			delete(c.rooms, o.roomID)
		}
		h.leave(o.roomID, o.connID)

	case opSend:
		if c, ok := h.clients[o.connID]; ok {
			h.deliver(c, o.data)
		}

	case opPublish:
		for _, c := range h.groups[o.roomID] {
			h.deliver(c, o.data)
		}
	}
}

func (h *Hub) leave(roomID, connID string) {
	members, ok := h.groups[roomID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, roomID)
	}
}

func (h *Hub) deliver(c *Connection, data []byte) {
	select {
	case c.Send <- data:
	default:
		// Drop message if buffer full
		log.Warn().Str("conn_id", c.ID).Msg("send buffer full, dropping message")
	}
}

func (h *Hub) enqueue(o op) {
	select {
	case h.ops <- o:
	case <-h.done:
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.enqueue(op{kind: opRegister, conn: conn})
}

// Unregister removes a connection from every group and closes its queue
func (h *Hub) Unregister(conn *Connection) {
	h.enqueue(op{kind: opUnregister, conn: conn})
}

// Subscribe adds connID to the room's broadcast group
func (h *Hub) Subscribe(roomID, connID string) {
	h.enqueue(op{kind: opSubscribe, roomID: roomID, connID: connID})
}

// Unsubscribe removes connID from the room's broadcast group
func (h *Hub) Unsubscribe(roomID, connID string) {
	h.enqueue(op{kind: opUnsubscribe, roomID: roomID, connID: connID})
}

// Send delivers one event to a single connection
func (h *Hub) Send(connID, event string, payload any) {
	if data, ok := encode(event, payload); ok {
		h.enqueue(op{kind: opSend, connID: connID, data: data})
	}
}

// Publish delivers one event to every member of a room
func (h *Hub) Publish(roomID, event string, payload any) {
	if data, ok := encode(event, payload); ok {
		h.enqueue(op{kind: opPublish, roomID: roomID, data: data})
	}
}

func encode(event string, payload any) ([]byte, bool) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode payload")
		return nil, false
	}
	data, err := json.Marshal(&Message{Type: event, Payload: body})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode message")
		return nil, false
	}
	return data, true
}
