package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// maxMessageSize must clear the largest legal inbound frame: a chat
	// message is capped at 1000 runes, up to 4 bytes each, plus envelope
	// overhead. Frames over this limit close the connection with 1009.
	maxMessageSize = 8192

	sendBufferSize = 256
)

type client struct {
	conn     *websocket.Conn
	connID   string
	userID   string
	username string
	roomID   string // guarded by hub.mu, empty until join_room
	send     chan []byte
}

// enqueue hands a frame to the write pump. Frames for a client whose
// buffer is full are dropped; broadcasts are best-effort, at most once.
func (c *client) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// Hub is the broadcast fanout: it tracks which connection subscribes to
// which room and pushes marshaled frames to each subscriber's write pump.
type Hub struct {
	log *zap.Logger

	mu    sync.RWMutex
	rooms map[string]map[string]*client // roomID -> userID -> client
	users map[string]*client            // userID -> most recent connection
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:   log,
		rooms: make(map[string]map[string]*client),
		users: make(map[string]*client),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users[c.userID] = c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.userID] == c {
		delete(h.users, c.userID)
	}
}

func (h *Hub) joinRoom(roomID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.roomID != "" && c.roomID != roomID {
		h.dropLocked(c)
	}
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*client)
	}
	h.rooms[roomID][c.userID] = c
	c.roomID = roomID
}

func (h *Hub) leaveRoom(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *client) {
	if c.roomID == "" {
		return
	}
	if room, ok := h.rooms[c.roomID]; ok {
		if room[c.userID] == c {
			delete(room, c.userID)
		}
		if len(room) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	c.roomID = ""
}

// RemoveUser unsubscribes whatever connection the user has in the room.
// Used after a kick (the kicked_from_room frame is sent first) and by the
// HTTP leave path, where membership ends without the socket closing.
func (h *Hub) RemoveUser(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[roomID]; ok {
		if c, ok := room[userID]; ok {
			delete(room, userID)
			c.roomID = ""
		}
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// roomOf returns the room the client is currently subscribed to.
func (h *Hub) roomOf(c *client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.roomID
}

// Broadcaster implementation consumed by the sync engine.

func (h *Hub) ToRoom(roomID, event string, payload any) {
	frame, err := marshalEvent(event, payload)
	if err != nil {
		h.log.Error("marshal broadcast failed", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[roomID] {
		if !c.enqueue(frame) {
			h.log.Warn("dropping frame for slow client",
				zap.String("user", c.userID), zap.String("event", event))
		}
	}
}

func (h *Hub) ToOthers(roomID, excludeUserID, event string, payload any) {
	frame, err := marshalEvent(event, payload)
	if err != nil {
		h.log.Error("marshal broadcast failed", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID, c := range h.rooms[roomID] {
		if userID == excludeUserID {
			continue
		}
		if !c.enqueue(frame) {
			h.log.Warn("dropping frame for slow client",
				zap.String("user", c.userID), zap.String("event", event))
		}
	}
}

func (h *Hub) ToUser(userID, event string, payload any) {
	frame, err := marshalEvent(event, payload)
	if err != nil {
		h.log.Error("marshal send failed", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.users[userID]; ok {
		c.enqueue(frame)
	}
}

func marshalEvent(event string, payload any) ([]byte, error) {
	return json.Marshal(outEnvelope{Type: event, Data: payload})
}
