package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/EduCore-2025/exam-engine/internal/identity"
)

const identityContextKey = "identity"

// AuthMiddleware verifies the bearer token and stores the caller's identity in
// the request context.
func AuthMiddleware(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "missing bearer token",
			})
			return
		}

		id, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "invalid or expired token",
			})
			return
		}

		c.Set(identityContextKey, id)
		c.Set("user_id", id.UserID)
		c.Next()
	}
}

// AdminMiddleware rejects callers without an administrative role. Must run
// after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok || !id.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "administrative role required",
			})
			return
		}
		c.Next()
	}
}
