package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const HeaderSweepToken = "X-Sweep-Token"

// SweepTokenMiddleware guards the scheduler endpoints with a shared secret.
// An empty token disables the endpoints entirely.
func SweepTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Not found",
			})
			return
		}
		got := c.GetHeader(HeaderSweepToken)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			unauthorized(c, "Invalid sweep token")
			return
		}
		c.Next()
	}
}
