package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/joegen/opalvoip-opal/internal/routing"
	"github.com/joegen/opalvoip-opal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Routing overrides are only reachable by super_admin and the hidden
// maintenance role. Every change is audited.

type overrideRequest struct {
	Match      string    `json:"match"`
	ForwardTo  string    `json:"forward_to"`
	ExpiresAt  time.Time `json:"expires_at"`
	TTLSeconds int       `json:"ttl_seconds,omitempty"`
	Metadata   string    `json:"metadata,omitempty"`
}

func (h Handlers) ListOverrides(c *gin.Context) {
	if h.Overrides == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "overrides not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"overrides": h.Overrides.List(h.now())})
}

func (h Handlers) PutOverride(c *gin.Context) {
	if h.Overrides == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "overrides not configured"})
		return
	}
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	now := h.now()
	if req.TTLSeconds > 0 {
		req.ExpiresAt = now.Add(time.Duration(req.TTLSeconds) * time.Second)
	}
	if !req.ExpiresAt.After(now) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "override must expire in the future"})
		return
	}
	o := routing.Override{
		ID:        c.Param("id"),
		Match:     req.Match,
		ForwardTo: req.ForwardTo,
		ExpiresAt: req.ExpiresAt,
		Metadata:  req.Metadata,
	}
	if err := h.Overrides.Put(o); err != nil {
		if errors.Is(err, routing.ErrInvalidOverride) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "match and forward_to required"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "override store failed"})
		return
	}
	h.auditAdmin(c, "override set: "+o.ID, o.Metadata)
	c.JSON(http.StatusOK, o)
}

func (h Handlers) DeleteOverride(c *gin.Context) {
	if h.Overrides == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "overrides not configured"})
		return
	}
	id := c.Param("id")
	h.Overrides.Delete(id)
	h.auditAdmin(c, "override deleted: "+id, "")
	c.Status(http.StatusNoContent)
}

func (h Handlers) auditAdmin(c *gin.Context, msg, metadata string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.LogAdminAction(c.Request.Context(), msg, metadata); err != nil {
		logger.FromGin(c).Error("audit append failed", "err", err)
	}
}
