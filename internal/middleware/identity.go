package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Identity trusts the user id forwarded by the upstream auth gateway in
// X-User-ID.
func Identity() gin.HandlerFunc {
	return identity(false)
}

// SocketIdentity is Identity for websocket upgrades. Browsers cannot set
// headers on the upgrade request, so the user_id query parameter is accepted
// when the header is absent.
func SocketIdentity() gin.HandlerFunc {
	return identity(true)
}

func identity(queryFallback bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" && queryFallback {
			raw = c.Query("user_id")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
			return
		}

		userID, err := strconv.Atoi(raw)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user identity"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
