package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/jwt"
	"github.com/AyushDwivedi1230000/Music-Rooms/pkg/redis"
)

// AuthMiddleware resolves the verified (userId, username) pair for a
// request. Token from cookie, Authorization header, or query param (the
// latter for WebSocket clients that cannot set headers).
func AuthMiddleware(sessions *redis.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("auth_token")
		if token == "" {
			if header := c.GetHeader("Authorization"); header != "" {
				token = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no authorization token"})
			return
		}

		claims, err := jwt.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// Token must map to a live session; logout kills it server-side.
		session, err := sessions.GetSession(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session not found"})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", session.Username)
		c.Next()
	}
}
