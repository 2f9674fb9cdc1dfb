package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/joegen/opalvoip-opal/internal/auth"
	"github.com/joegen/opalvoip-opal/internal/endpoint"
	"github.com/joegen/opalvoip-opal/internal/events"
	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/internal/rbac"
	"github.com/joegen/opalvoip-opal/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultPollMax = 30 * time.Second

// Commands that reconfigure the endpoint rather than control a call.
var adminKinds = map[message.Kind]bool{
	message.KindSetGeneralParameters:  true,
	message.KindSetProtocolParameters: true,
	message.KindRegistration:          true,
}

// PostMessage submits one command envelope and returns the response envelope.
func (h Handlers) PostMessage(c *gin.Context) {
	if h.Endpoint == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "endpoint not ready"})
		return
	}
	var env message.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if adminKinds[env.Kind] {
		role, _ := auth.Role(c.Request.Context())
		if role != rbac.RoleAdmin && !rbac.IsSuperAdmin(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}

	resp := h.Endpoint.SendMessage(c.Request.Context(), env)
	status := http.StatusOK
	if ce, ok := resp.Payload.(message.CommandError); ok {
		status = statusForCode(ce.Code)
		logger.FromGin(c).Info("command refused", "kind", env.Kind.String(), "token", env.CallToken(), "code", ce.Code.String())
	}
	c.JSON(status, resp)
}

func statusForCode(code message.ErrorCode) int {
	switch code {
	case message.CodeInvalidPayload:
		return http.StatusBadRequest
	case message.CodeStaleToken:
		return http.StatusNotFound
	case message.CodeDuplicateToken, message.CodeRejected:
		return http.StatusConflict
	case message.CodeCapacity:
		return http.StatusTooManyRequests
	case message.CodeShuttingDown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// PollEvent takes the next event off the application queue and releases it,
// waiting up to timeout_ms (capped at PollMax). 204 means nothing arrived in
// time. Releasing a CallCleared forgets the call.
func (h Handlers) PollEvent(c *gin.Context) {
	if h.Endpoint == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "endpoint not ready"})
		return
	}
	timeout := time.Duration(0)
	if q := c.Query("timeout_ms"); q != "" {
		ms, err := strconv.Atoi(q)
		if err != nil || ms < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "timeout_ms must be a non-negative integer"})
			return
		}
		timeout = time.Duration(ms) * time.Millisecond
	}
	limit := h.PollMax
	if limit <= 0 {
		limit = defaultPollMax
	}
	if timeout > limit {
		timeout = limit
	}

	err := h.Endpoint.Receive(c.Request.Context(), timeout, func(m *endpoint.Message) error {
		c.JSON(http.StatusOK, m.Delivery)
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, events.ErrTimeout):
		c.Status(http.StatusNoContent)
	case errors.Is(err, events.ErrShuttingDown):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
	default:
		// Client went away while waiting.
		logger.FromGin(c).Debug("event poll ended", "err", err)
		c.Status(http.StatusNoContent)
	}
}

// StreamEvents upgrades to a websocket that mirrors every delivered event.
func (h Handlers) StreamEvents(c *gin.Context) {
	if h.Hub == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "event stream not available"})
		return
	}
	h.Hub.ServeWS(c.Writer, c.Request)
}
