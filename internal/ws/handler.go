package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	roomsync "github.com/AyushDwivedi1230000/Music-Rooms/internal/sync"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, implement proper origin checking
	},
}

// Handler is the connection gateway: it binds an authenticated socket to a
// (room, user) pair, routes inbound events into the sync engine and replies
// through acks. No handler failure ever terminates the connection.
type Handler struct {
	engine *roomsync.Engine
	hub    *Hub
	relay  *events.KafkaClient
	log    *zap.Logger
}

func NewHandler(engine *roomsync.Engine, hub *Hub, relay *events.KafkaClient, log *zap.Logger) *Handler {
	return &Handler{
		engine: engine,
		hub:    hub,
		relay:  relay,
		log:    log,
	}
}

// HandleWebSocket upgrades the request. Identity comes from the verified
// token the auth middleware resolved, never from socket payloads.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")
	username := c.GetString("username")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		conn:     conn,
		connID:   uuid.New().String(),
		userID:   userID,
		username: username,
		send:     make(chan []byte, sendBufferSize),
	}
	h.hub.register(cl)
	go cl.writePump()
	h.readLoop(cl)
}

func (h *Handler) readLoop(cl *client) {
	defer func() {
		if roomID := h.hub.roomOf(cl); roomID != "" {
			h.hub.leaveRoom(cl)
			h.engine.Disconnected(context.Background(), roomID, cl.userID)
		}
		h.hub.unregister(cl)
		close(cl.send)
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket read error", zap.String("user", cl.userID), zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.log.Warn("bad frame", zap.String("user", cl.userID), zap.Error(err))
			continue
		}
		h.route(cl, env)
	}
}

func (h *Handler) route(cl *client, env Envelope) {
	ctx := context.Background()

	switch env.Type {
	case MsgJoinRoom:
		var p roomPayload
		if !h.decode(cl, env, &p) || !h.requireRoom(cl, env, p.RoomID) {
			return
		}
		res, err := h.engine.Join(ctx, p.RoomID, cl.userID, cl.connID)
		if err == nil {
			h.hub.joinRoom(p.RoomID, cl)
		}
		h.ack(cl, env.Ack, res, err)

	case MsgLeaveRoom:
		var p roomPayload
		if !h.decode(cl, env, &p) {
			return
		}
		roomID := p.RoomID
		if roomID == "" {
			roomID = h.hub.roomOf(cl)
		}
		if roomID == "" {
			return
		}
		h.hub.leaveRoom(cl)
		if err := h.engine.Leave(ctx, roomID, cl.userID); err != nil {
			h.log.Debug("leave failed", zap.String("user", cl.userID), zap.Error(err))
		}

	case MsgPlaybackState:
		var p playbackPayload
		if !h.decode(cl, env, &p) || p.RoomID == "" {
			return
		}
		// Fire and forget: no ack for periodic progress reports.
		if err := h.engine.RecordPlayback(ctx, p.RoomID, cl.userID, p.CurrentTime, p.IsPlaying); err != nil {
			h.log.Debug("playback_state rejected", zap.String("user", cl.userID), zap.Error(err))
		}

	case MsgSeek:
		var p seekPayload
		if !h.decode(cl, env, &p) || p.RoomID == "" {
			return
		}
		if err := h.engine.RecordSeek(ctx, p.RoomID, cl.userID, p.CurrentTime); err != nil {
			h.log.Debug("seek rejected", zap.String("user", cl.userID), zap.Error(err))
		}

	case MsgSkip:
		var p roomPayload
		if !h.decode(cl, env, &p) || !h.requireRoom(cl, env, p.RoomID) {
			return
		}
		current, err := h.engine.Skip(ctx, p.RoomID, cl.userID)
		h.ack(cl, env.Ack, gin.H{"currentSong": current}, err)

	case MsgVoteSkip:
		var p roomPayload
		if !h.decode(cl, env, &p) || !h.requireRoom(cl, env, p.RoomID) {
			return
		}
		tally, err := h.engine.VoteSkip(ctx, p.RoomID, cl.userID)
		h.ack(cl, env.Ack, tally, err)

	case MsgChatMessage:
		var p chatPayload
		if !h.decode(cl, env, &p) || !h.requireRoom(cl, env, p.RoomID) {
			return
		}
		msg, err := h.engine.PostMessage(ctx, p.RoomID, cl.userID, cl.username, p.Message)
		h.ack(cl, env.Ack, gin.H{"message": msg}, err)

	case MsgQueueReorder:
		var p reorderPayload
		if !h.decode(cl, env, &p) || !h.requireRoom(cl, env, p.RoomID) {
			return
		}
		if p.SongIDs == nil {
			h.ack(cl, env.Ack, nil, fmt.Errorf("%w: songIds array required", roomsync.ErrInvalidPayload))
			return
		}
		queue, err := h.engine.Reorder(ctx, p.RoomID, cl.userID, p.SongIDs)
		h.ack(cl, env.Ack, gin.H{"queue": queue}, err)

	case MsgRemoveSong:
		var p songPayload
		if !h.decode(cl, env, &p) || !h.requireRoom(cl, env, p.RoomID) {
			return
		}
		if p.SongID == "" {
			h.ack(cl, env.Ack, nil, fmt.Errorf("%w: songId required", roomsync.ErrInvalidPayload))
			return
		}
		err := h.engine.Remove(ctx, p.RoomID, cl.userID, p.SongID)
		h.ack(cl, env.Ack, gin.H{"success": err == nil}, err)

	case MsgSongVote:
		var p songVotePayload
		if !h.decode(cl, env, &p) || !h.requireRoom(cl, env, p.RoomID) {
			return
		}
		counts, err := h.engine.SongVote(ctx, p.RoomID, cl.userID, p.SongID, p.Vote)
		h.ack(cl, env.Ack, counts, err)

	case MsgPromoteUser:
		var p promotePayload
		if !h.decode(cl, env, &p) || !h.requireRoom(cl, env, p.RoomID) {
			return
		}
		role, err := h.engine.Promote(ctx, p.RoomID, cl.userID, p.TargetUserID, p.Role)
		h.ack(cl, env.Ack, gin.H{"role": role}, err)

	case MsgKickUser:
		var p kickPayload
		if !h.decode(cl, env, &p) || !h.requireRoom(cl, env, p.RoomID) {
			return
		}
		err := h.engine.Kick(ctx, p.RoomID, cl.userID, p.TargetUserID)
		if err == nil {
			h.hub.RemoveUser(p.RoomID, p.TargetUserID)
		}
		h.ack(cl, env.Ack, gin.H{"success": err == nil}, err)

	default:
		h.ack(cl, env.Ack, nil, fmt.Errorf("%w: unknown event %q", roomsync.ErrInvalidPayload, env.Type))
	}
}

func (h *Handler) decode(cl *client, env Envelope, out any) bool {
	if len(env.Data) == 0 {
		h.ack(cl, env.Ack, nil, fmt.Errorf("%w: missing payload", roomsync.ErrInvalidPayload))
		return false
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		h.ack(cl, env.Ack, nil, fmt.Errorf("%w: %v", roomsync.ErrInvalidPayload, err))
		return false
	}
	return true
}

func (h *Handler) requireRoom(cl *client, env Envelope, roomID string) bool {
	if roomID == "" {
		h.ack(cl, env.Ack, nil, fmt.Errorf("%w: roomId required", roomsync.ErrInvalidPayload))
		return false
	}
	return true
}

// ack sends the synchronous reply. Internal failures never leak; the
// caller sees a generic message while the detail goes to the log.
func (h *Handler) ack(cl *client, ackID int64, data any, err error) {
	if ackID == 0 {
		return
	}
	if err != nil {
		msg := "internal error"
		if roomsync.IsClientError(err) {
			msg = err.Error()
		} else {
			h.log.Error("handler failed", zap.String("user", cl.userID), zap.Error(err))
		}
		data = gin.H{"error": msg}
	}
	frame, merr := json.Marshal(outEnvelope{Type: "ack", Ack: ackID, Data: data})
	if merr != nil {
		h.log.Error("marshal ack failed", zap.Error(merr))
		return
	}
	cl.enqueue(frame)
}

// StartRelay consumes the room event feed and re-broadcasts events
// produced by other instances, so every room sees a consistent stream no
// matter which instance a socket landed on.
func (h *Handler) StartRelay(ctx context.Context) {
	if h.relay == nil {
		return
	}
	go func() {
		err := h.relay.ConsumeEvents(ctx, func(event events.Event) error {
			if event.Origin == h.relay.Origin() {
				return nil
			}
			h.hub.ToRoom(event.RoomID, event.Type, event.Payload)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			h.log.Error("event relay stopped", zap.Error(err))
		}
	}()
}
