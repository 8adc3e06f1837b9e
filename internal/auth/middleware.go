package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voicecall-platform/pkg/logger"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// Authenticator resolves a bearer token to a principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Principal, error)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	raw := strings.TrimSpace(header)
	if !strings.HasPrefix(raw, bearerPrefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
	return tok, tok != ""
}

// RequireSession rejects requests without a live session and injects the
// principal into the request context.
func RequireSession(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := BearerToken(c.GetHeader(authorizationHeader))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		p, err := a.Authenticate(c.Request.Context(), tok)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				logger.FromGin(c).Error("session lookup failed", slog.Any("err", err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}

		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Set("user_id", p.UserID)
		c.Next()
	}
}
