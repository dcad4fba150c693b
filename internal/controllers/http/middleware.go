package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"agromarket/internal/domain"
)

const userContextKey = "currentUser"

// RequireUser resolves the bearer token to a user and aborts with 401 when
// it cannot.
func (h *Handler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			token = c.GetHeader("X-Auth-Token")
		}

		user, err := h.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) *domain.User {
	u, _ := c.Get(userContextKey)
	user, _ := u.(*domain.User)
	return user
}
