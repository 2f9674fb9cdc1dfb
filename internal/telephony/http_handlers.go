package telephony

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joegen/opalvoip-opal/internal/message"
	"github.com/joegen/opalvoip-opal/pkg/logger"
)

// SimulatorHandler plays the remote side of calls on a Loopback engine over HTTP.
//
// No call control here: the resulting events reach the application through
// the normal event queue.
type SimulatorHandler struct {
	Engine *Loopback
}

func (h SimulatorHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/incoming", h.Incoming)
	rg.POST("/calls/:token/answer", h.Answer)
	rg.POST("/calls/:token/clear", h.Clear)
	rg.POST("/calls/:token/input", h.UserInput)
}

func (h SimulatorHandler) Incoming(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "simulator not available"})
		return
	}

	form, err := ParseIncomingCall(c.Request)
	if err != nil {
		log.Warn("simulator request parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.Engine.InjectIncoming(form.From, form.To)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	log.Info("simulated incoming call", "token", token, "from", form.From)
	c.JSON(http.StatusAccepted, gin.H{"call_token": token})
}

func (h SimulatorHandler) Answer(c *gin.Context) {
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "simulator not available"})
		return
	}
	if err := h.Engine.RemoteAnswer(c.Param("token")); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h SimulatorHandler) Clear(c *gin.Context) {
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "simulator not available"})
		return
	}
	reason := message.EndedByRemoteUser
	if q := c.Query("reason"); q != "" {
		if err := reason.UnmarshalText([]byte(q)); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid reason"})
			return
		}
	}
	if err := h.Engine.RemoteClear(c.Param("token"), reason); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// UserInput plays DTMF from the remote party, taken from the "input" query
// or form value.
func (h SimulatorHandler) UserInput(c *gin.Context) {
	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "simulator not available"})
		return
	}
	input := c.PostForm("input")
	if input == "" {
		input = c.Query("input")
	}
	if input == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "input required"})
		return
	}
	if err := h.Engine.RemoteUserInput(c.Param("token"), input); err != nil {
		writeEngineError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownCall):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown call"})
	case errors.Is(err, ErrPrefixDisabled), errors.Is(err, message.ErrUnknownPrefix):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotStarted):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "engine not running"})
	default:
		logger.FromGin(c).Error("simulator failed", "err", err)
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	}
}
