// Package middleware provides the front-door gin middleware: client
// authentication, rate limiting and CORS.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openclaw/bridge/internal/action"
)

// ClientKeyHeader carries the shared extension secret.
const ClientKeyHeader = "X-OpenClaw-Client-Key"

// ClientAuth rejects requests whose client key does not match the configured
// secret. Fail-closed: with no key configured, nothing matches and every
// request is rejected until one is set. The comparison is constant-time.
func ClientAuth(clientKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(ClientKeyHeader)
		if clientKey == "" ||
			subtle.ConstantTimeCompare([]byte(presented), []byte(clientKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":    string(action.StatusFailed),
				"errorCode": string(action.CodeUnauthorizedClient),
			})
			return
		}
		c.Next()
	}
}
