// Package middleware contains Gin middleware functions.
// Middleware in Gin is a handler that runs before (or after) your route handler.
// It calls c.Next() to proceed or c.Abort() to stop the chain.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminKeyAuth guards the operator endpoints (call ledger stats).
// End users are never authenticated; this only keeps credit usage private.
//
// The key is accepted from the X-API-Key header only, never a query
// parameter, so it can't end up in access logs. With no keys configured
// every request is refused.
func AdminKeyAuth(adminKeys []string) gin.HandlerFunc {
	// map[string]struct{} is Go's set idiom; struct{} takes zero bytes.
	keySet := make(map[string]struct{}, len(adminKeys))
	for _, k := range adminKeys {
		if k != "" {
			keySet[k] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing admin API key",
			})
			return
		}

		if _, ok := keySet[key]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid admin API key",
			})
			return
		}

		c.Next()
	}
}
