package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/joegen/opalvoip-opal/internal/audit"
	"github.com/joegen/opalvoip-opal/internal/auth"
	"github.com/joegen/opalvoip-opal/internal/endpoint"
	"github.com/joegen/opalvoip-opal/internal/events"
	"github.com/joegen/opalvoip-opal/internal/rbac"
	"github.com/joegen/opalvoip-opal/internal/reporting"
	"github.com/joegen/opalvoip-opal/internal/routing"
	"github.com/joegen/opalvoip-opal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth *auth.Manager
	// BootstrapSecret gates token issuance. Empty disables it.
	BootstrapSecret string

	Endpoint  *endpoint.Handle
	Hub       *events.Hub
	Reports   *reporting.Service
	Overrides *routing.MemoryOverrideStore
	Audit     *audit.Service

	// PollMax caps the timeout of a single event poll.
	PollMax time.Duration
	Now     func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h Handlers) Health(c *gin.Context) {
	if h.Endpoint == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"version":      h.Endpoint.Version(),
		"capabilities": h.Endpoint.Capabilities().String(),
		"outstanding":  h.Endpoint.Outstanding(),
	})
}

// --- Auth ---

type tokenRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Secret string `json:"secret"`
}

// IssueToken issues a JWT pair to an operator presenting the bootstrap secret.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Auth == nil || h.BootstrapSecret == "" {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "token issuance disabled"})
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(h.BootstrapSecret)) != 1 {
		logger.FromGin(c).Warn("token request with bad secret", "user_id", req.UserID)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if req.UserID == "" || !rbac.Known(req.Role) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id and a known role required"})
		return
	}
	pair, err := h.Auth.IssuePair(h.now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}
