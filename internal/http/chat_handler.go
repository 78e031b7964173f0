package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatline/internal/chatview"
	"chatline/internal/service"
)

// ChatHandler expone sesiones y mensajes del usuario autenticado.
type ChatHandler struct {
	logger *zap.Logger
	chats  chatview.Persistence
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chats chatview.Persistence) *ChatHandler {
	return &ChatHandler{logger: logger, chats: chats}
}

// CreateChat maneja POST /chats.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	session, err := h.chats.CreateSession(c.Request.Context(), owner)
	if err != nil {
		h.fail(c, "create chat failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chat": session})
}

// ListChats maneja GET /chats.
func (h *ChatHandler) ListChats(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	sessions, err := h.chats.ListSessions(c.Request.Context(), owner)
	if err != nil {
		h.fail(c, "list chats failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": sessions})
}

// GetChat maneja GET /chats/:id.
func (h *ChatHandler) GetChat(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	session, err := h.chats.GetSession(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		h.fail(c, "get chat failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": session})
}

// RenameChat maneja PATCH /chats/:id.
func (h *ChatHandler) RenameChat(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid rename chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !h.authorize(c) {
		return
	}
	session, err := h.chats.RenameSession(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		h.fail(c, "rename chat failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": session})
}

// DeleteChat maneja DELETE /chats/:id.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err := h.chats.DeleteSession(c.Request.Context(), c.Param("id"), owner); err != nil {
		h.fail(c, "delete chat failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateMessageCount maneja PUT /chats/:id/count.
func (h *ChatHandler) UpdateMessageCount(c *gin.Context) {
	var req struct {
		Count *int `json:"number_of_messages" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid message count request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !h.authorize(c) {
		return
	}
	session, err := h.chats.UpdateMessageCount(c.Request.Context(), c.Param("id"), *req.Count)
	if err != nil {
		h.fail(c, "update message count failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": session})
}

// ListMessages maneja GET /chats/:id/messages.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	messages, err := h.chats.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "list messages failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// AddMessage maneja POST /chats/:id/messages.
func (h *ChatHandler) AddMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
		Role    string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid add message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !h.authorize(c) {
		return
	}
	msg, err := h.chats.AddMessage(c.Request.Context(), c.Param("id"), req.Content, req.Role)
	if err != nil {
		h.fail(c, "add message failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// authorize verifica que el chat de la ruta pertenezca al usuario.
func (h *ChatHandler) authorize(c *gin.Context) bool {
	owner, ok := ownerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	if _, err := h.chats.GetSession(c.Request.Context(), c.Param("id"), owner); err != nil {
		h.fail(c, "authorize chat failed", err)
		return false
	}
	return true
}

func (h *ChatHandler) fail(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
	case errors.Is(err, service.ErrChatInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("chat_id", c.Param("id")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
