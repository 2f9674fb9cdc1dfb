package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/joegen/opalvoip-opal/internal/calls"
	"github.com/joegen/opalvoip-opal/internal/reporting"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListCalls(c *gin.Context) {
	if h.Endpoint == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "endpoint not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": h.Endpoint.Calls()})
}

func (h Handlers) GetCall(c *gin.Context) {
	if h.Endpoint == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "endpoint not ready"})
		return
	}
	st, err := h.Endpoint.Call(c.Param("token"))
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) ListRegistrations(c *gin.Context) {
	if h.Endpoint == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "endpoint not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registrations": h.Endpoint.Registrations()})
}

// CallsReport summarises call detail records. from/to are RFC 3339 and
// default to the last 24 hours.
func (h Handlers) CallsReport(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "reporting not configured"})
		return
	}
	to := h.now()
	from := to.Add(-24 * time.Hour)
	if q := c.Query("to"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		to = t
	}
	if q := c.Query("from"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		from = t
	}

	sum, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		Range:     reporting.TimeRange{From: from, To: to},
		Direction: calls.Direction(c.Query("direction")),
		Protocol:  c.Query("protocol"),
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, sum)
}
