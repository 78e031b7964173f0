package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatline/internal/chatview"
)

const pingInterval = 15 * time.Second

// EventsHandler publica por SSE los cambios de chats del usuario.
type EventsHandler struct {
	logger *zap.Logger
	push   chatview.PushChannel
}

func NewEventsHandler(logger *zap.Logger, push chatview.PushChannel) *EventsHandler {
	return &EventsHandler{logger: logger, push: push}
}

// Stream maneja GET /chats/events.
func (h *EventsHandler) Stream(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	sub, err := h.push.Subscribe(ctx, owner)
	if err != nil {
		h.logger.Error("subscribe chat events failed", zap.Error(err), zap.String("owner_id", owner))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not subscribe"})
		return
	}
	defer sub.Close()

	sse, ok := startSSE(c)
	if !ok {
		return
	}
	_ = sse.writeJSON("ready", gin.H{"type": "ready"})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	events := sub.Events()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := sse.writeJSON("change", event); err != nil {
				h.logger.Debug("chat events client gone", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := sse.writeJSON("ping", gin.H{"type": "ping", "ts": time.Now().Unix()}); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
