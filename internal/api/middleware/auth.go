package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// AuthModeNone allows all requests without authentication
	AuthModeNone = "none"
	// AuthModeGateway trusts X-User-* headers set by an upstream gateway
	AuthModeGateway = "gateway"

	anonymousUser = "anonymous"
)

// Auth selects the authentication middleware for the configured mode
func Auth(mode string) gin.HandlerFunc {
	if mode == AuthModeGateway {
		return GatewayAuth()
	}
	return NoAuth()
}

// NoAuth is a pass-through middleware for when AUTH_MODE=none.
func NoAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Set a dummy user ID for logging purposes
		c.Set("user_id", uint(0))
		c.Set("user_id_str", anonymousUser)
		c.Next()
	}
}

// GatewayAuth trusts user info from gateway headers (X-User-ID, X-User-Email, X-User-Role).
//
// When AUTH_MODE=gateway, the API trusts these headers unconditionally.
// This should ONLY be used behind a gateway with proper network isolation.
func GatewayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDStr := c.GetHeader("X-User-ID")
		if userIDStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Authentication required",
				"details": "Missing X-User-ID header from gateway",
				"kind":    "unauthorized",
			})
			return
		}

		// Parse user ID (could be numeric or string depending on gateway)
		var userID uint
		if id, err := strconv.ParseUint(userIDStr, 10, 64); err == nil {
			userID = uint(id)
		}

		c.Set("user_id", userID)
		c.Set("user_id_str", userIDStr)
		c.Set("user_email", c.GetHeader("X-User-Email"))
		c.Set("user_role", c.GetHeader("X-User-Role"))

		c.Next()
	}
}

// GetUserIDFromGateway retrieves the user ID set by the auth middleware
// Returns the string ID and a boolean indicating if it was found
func GetUserIDFromGateway(c *gin.Context) (string, bool) {
	userIDStr, exists := c.Get("user_id_str")
	if !exists {
		return "", false
	}
	id, ok := userIDStr.(string)
	return id, ok
}
