package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/database"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/jwt"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/models"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/redis"
)

// Handler issues guest identities: a username is all it takes to get a
// user record plus a signed token. The token is the identity provider for
// the socket gateway and the room API.
type Handler struct {
	db       *database.MySQLDB
	sessions *redis.SessionStore
}

func NewHandler(db *database.MySQLDB, sessions *redis.SessionStore) *Handler {
	return &Handler{db: db, sessions: sessions}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/guest", h.createGuest)
		authGroup.POST("/logout", h.logout)
	}
}

type GuestRequest struct {
	Username string `json:"username" binding:"required"`
}

func (h *Handler) createGuest(c *gin.Context) {
	var req GuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := strings.TrimSpace(req.Username)
	if len(username) < 2 || len(username) > 30 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username must be 2-30 characters"})
		return
	}

	user := &models.User{
		ID:        uuid.New(),
		Username:  username,
		IsGuest:   true,
		LastSeen:  time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.db.CreateUser(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, err := jwt.Sign(user.ID.String(), user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	session := &redis.SessionInfo{
		UserID:   user.ID.String(),
		Username: user.Username,
		IssuedAt: time.Now().UTC(),
	}
	if err := h.sessions.StoreSession(c.Request.Context(), user.ID.String(), session); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store session"})
		return
	}

	c.SetCookie("auth_token", token, int((7 * 24 * time.Hour).Seconds()), "/", "", false, true)
	c.JSON(http.StatusCreated, gin.H{
		"token": token,
		"user":  user,
	})
}

// logout sits on the public group, so the identity comes straight from the
// cookie rather than the auth middleware.
func (h *Handler) logout(c *gin.Context) {
	if token, err := c.Cookie("auth_token"); err == nil && token != "" {
		if claims, err := jwt.ValidateToken(token); err == nil {
			if err := h.sessions.DeleteSession(c.Request.Context(), claims.UserID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end session"})
				return
			}
		}
	}
	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}
