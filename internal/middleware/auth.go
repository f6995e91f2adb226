package middleware

import (
	"github.com/gin-gonic/gin"
)

// Authentication is a placeholder global middleware. It currently allows all requests.
// Deployment-specific auth (gateway tokens, mTLS) is expected in front of this service.
func Authentication(c *gin.Context) {
	c.Next()
}
