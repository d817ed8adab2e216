package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"inventaire/internal/session"
)

// SessionCookie is the name of the login session cookie.
const SessionCookie = "app_session"

// AuthRequired resolves the session cookie and stores the user id and
// role in the request context. 401 when the cookie is missing or the
// session is gone.
func AuthRequired(sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(SessionCookie)
		if err != nil || ck.Value == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
			return
		}
		sess, err := sessions.Get(c.Request.Context(), ck.Value)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
			return
		}
		c.Set("userID", sess.UserID)
		c.Set("role", sess.Role)
		c.Next()
	}
}

// RequireRole guards a route group with a role check. AuthRequired must
// run first.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
		c.Next()
	}
}

// CORS allows the configured web origin with credentials (the session
// cookie rides along).
func CORS(origin string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func secureCookie(origin string) bool {
	return strings.HasPrefix(origin, "https://")
}
