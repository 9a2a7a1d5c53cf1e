package room

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	roomsync "github.com/AyushDwivedi1230000/Music-Rooms/internal/sync"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
)

// Presence unsubscribes a user's live socket from a room's fanout. The ws
// hub implements it; membership changes made over HTTP must reach the
// socket layer too, or the leaver keeps receiving broadcasts.
type Presence interface {
	RemoveUser(roomID, userID string)
}

type Handler struct {
	service  *Service
	engine   *roomsync.Engine
	presence Presence
}

func NewHandler(service *Service, engine *roomsync.Engine, presence Presence) *Handler {
	return &Handler{service: service, engine: engine, presence: presence}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rooms := r.Group("/rooms")
	{
		rooms.POST("/", h.createRoom)
		rooms.GET("/", h.listRooms)
		rooms.GET("/code/:code", h.getRoomByCode)
		rooms.POST("/join", h.joinRoom)
		rooms.GET("/:id", h.getRoom)
		rooms.GET("/:id/state", h.getRoomState)
		rooms.GET("/:id/messages", h.getChatHistory)
		rooms.POST("/:id/songs", h.addSong)
		rooms.PATCH("/:id/settings", h.updateSettings)
		rooms.POST("/:id/leave", h.leaveRoom)
		rooms.DELETE("/:id", h.closeRoom)
	}
}

type CreateRoomRequest struct {
	Name       string `json:"name" binding:"required"`
	Visibility string `json:"visibility"`
}

func (h *Handler) createRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("user_id") // Set by auth middleware
	room, err := h.service.CreateRoom(c.Request.Context(), userID, req.Name, models.Visibility(req.Visibility))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, room)
}

func (h *Handler) listRooms(c *gin.Context) {
	rooms, err := h.service.ListPublicRooms(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *Handler) getRoomByCode(c *gin.Context) {
	room, err := h.service.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

type JoinRoomRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *Handler) joinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	state, err := h.service.JoinByCode(c.Request.Context(), req.Code, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) getRoom(c *gin.Context) {
	room, err := h.service.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handler) getRoomState(c *gin.Context) {
	state, err := h.engine.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) getChatHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	msgs, err := h.service.ChatHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type AddSongRequest struct {
	Title    string  `json:"title" binding:"required"`
	Artist   string  `json:"artist"`
	Duration float64 `json:"duration"`
}

func (h *Handler) addSong(c *gin.Context) {
	var req AddSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	song, err := h.engine.AddSong(c.Request.Context(), c.Param("id"), userID, req.Title, req.Artist, req.Duration)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, song)
}

type UpdateSettingsRequest struct {
	WhoCanUpload string `json:"whoCanUpload" binding:"required"`
}

func (h *Handler) updateSettings(c *gin.Context) {
	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	if err := h.engine.UpdateSettings(c.Request.Context(), c.Param("id"), userID, req.WhoCanUpload); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) leaveRoom(c *gin.Context) {
	userID := c.GetString("user_id")
	roomID := c.Param("id")
	if err := h.engine.Leave(c.Request.Context(), roomID, userID); err != nil {
		h.fail(c, err)
		return
	}
	// Membership is gone; drop the live socket subscription too.
	if h.presence != nil {
		h.presence.RemoveUser(roomID, userID)
	}
	c.Status(http.StatusOK)
}

func (h *Handler) closeRoom(c *gin.Context) {
	userID := c.GetString("user_id")
	if err := h.engine.CloseRoom(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// fail maps the engine's error taxonomy onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roomsync.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, roomsync.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, roomsync.ErrInvalidPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
