package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORS applies the configured origin allow-list. The request Origin is
// echoed back only when allow-listed (or a wildcard is configured); the
// fallback is the first configured origin, then the request's own Origin.
// Credentials are always allowed, so the header never carries "*" itself.
// OPTIONS preflights short-circuit with an empty success response.
func CORS(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		h := c.Writer.Header()
		if allow := resolveOrigin(allowed, origin); allow != "" {
			h.Set("Access-Control-Allow-Origin", allow)
		}
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		h.Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func resolveOrigin(allowed []string, origin string) string {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			if origin != "" {
				return origin
			}
			break
		}
	}
	if len(allowed) > 0 && allowed[0] != "*" {
		return allowed[0]
	}
	return origin
}
