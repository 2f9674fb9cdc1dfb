package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/joegen/opalvoip-opal/internal/audit"
	"github.com/joegen/opalvoip-opal/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireAccessToken verifies an access token and injects identity into request context.
// It does not perform RBAC checks; those belong to internal/rbac.
//
// The audit actor (operator and client IP) and a logger tagged with the
// operator are attached as well, so commands submitted by the handler are
// attributed without further plumbing.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), claims.UserID, claims.Role)
		ctx = audit.WithActor(ctx, audit.Actor{UserID: claims.UserID, Role: claims.Role, IP: c.ClientIP()})
		l := logger.FromGin(c).With("user_id", claims.UserID)
		ctx = logger.With(ctx, l)
		c.Request = c.Request.WithContext(ctx)

		// Also store on gin context for handler convenience.
		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("logger", l)

		c.Next()
	}
}
