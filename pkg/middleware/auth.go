package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Context keys set on successful authentication.
const (
	ContextClaimsKey = "claims"
	ContextUserIDKey = "userID"
)

// AuthMiddleware verifies the bearer credential and stores the stable user
// id (the token's sub claim) in the context. Browser WebSocket clients
// cannot set headers on the upgrade request, so for upgrade requests the
// credential may arrive in the `token` query parameter instead.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := credentialFromRequest(c)
		if err != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err})
			return
		}

		tok, verr := ver.Verify(c.Request.Context(), raw)
		if verr != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var claims map[string]interface{}
		if err := tok.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing subject"})
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextUserIDKey, sub)
		c.Next()
	}
}

// credentialFromRequest extracts the raw bearer token, returning an error
// message when absent or malformed.
func credentialFromRequest(c *gin.Context) (raw string, errMsg string) {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if auth != "" {
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			return "", "invalid Authorization header"
		}
		tok := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
		if tok == "" {
			return "", "invalid Authorization header"
		}
		return tok, ""
	}
	if c.IsWebsocket() {
		if tok := c.Query("token"); tok != "" {
			return tok, ""
		}
	}
	return "", "missing credentials"
}
