package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatline/internal/chatview"
	"chatline/internal/llm"
	"chatline/internal/service"
)

// AIHandler expone la respuesta del modelo por SSE y la generacion de titulos.
type AIHandler struct {
	logger  *zap.Logger
	stream  llm.StreamClient
	titler  chatview.Titler
	chats   chatview.Persistence
	history chatview.HistoryBuilder
	limiter service.GenerationLimiter
}

func NewAIHandler(
	logger *zap.Logger,
	stream llm.StreamClient,
	titler chatview.Titler,
	chats chatview.Persistence,
	history chatview.HistoryBuilder,
	limiter service.GenerationLimiter,
) *AIHandler {
	return &AIHandler{
		logger:  logger,
		stream:  stream,
		titler:  titler,
		chats:   chats,
		history: history,
		limiter: limiter,
	}
}

// Stream maneja POST /ai. Emite `data: {"chunk": ...}` por fragmento y
// termina con `data: [DONE]`.
func (h *AIHandler) Stream(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt"`
		ChatID string `json:"chat_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prompt is required"})
		return
	}
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if h.limiter != nil && !h.limiter.Allow(owner) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}
	if h.stream == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "llm not configured"})
		return
	}

	ctx := c.Request.Context()
	var history []llm.Turn
	if req.ChatID != "" && h.chats != nil && h.history != nil {
		if _, err := h.chats.GetSession(ctx, req.ChatID, owner); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		messages, err := h.chats.ListMessages(ctx, req.ChatID)
		if err != nil {
			h.logger.Warn("load chat history failed", zap.Error(err), zap.String("chat_id", req.ChatID))
		} else {
			history = h.history.Build(messages)
		}
	}

	sse, ok := startSSE(c)
	if !ok {
		return
	}

	chunks, errs := h.stream.GenerateStream(ctx, req.Prompt, history)
	for chunk := range chunks {
		if err := sse.writeJSON("", gin.H{"chunk": chunk}); err != nil {
			h.logger.Debug("ai stream client gone", zap.Error(err))
			return
		}
	}
	if err := <-errs; err != nil {
		h.logger.Error("ai stream failed", zap.Error(err), zap.String("owner_id", owner))
		_ = sse.writeJSON("", gin.H{"error": "Streaming error"})
		return
	}
	_ = sse.writeRaw("", sseDone)
}

// ChatName maneja POST /chat-name. Nunca falla por el modelo: usa el titulo por defecto.
func (h *AIHandler) ChatName(c *gin.Context) {
	var req struct {
		FirstMessage string `json:"firstMessage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.FirstMessage) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "First message is required"})
		return
	}
	owner, _ := ownerID(c)
	if h.limiter != nil && !h.limiter.Allow(owner) {
		c.JSON(http.StatusOK, gin.H{"chatName": service.DefaultChatTitle})
		return
	}
	if h.titler == nil {
		c.JSON(http.StatusOK, gin.H{"chatName": service.DefaultChatTitle})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatName": h.titler.GenerateTitle(c.Request.Context(), req.FirstMessage)})
}
