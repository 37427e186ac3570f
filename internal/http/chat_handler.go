package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-shell/internal/service"
)

// ChatHandler expone la sesión de chat como endpoints JSON.
type ChatHandler struct {
	logger *zap.Logger
	chat   *service.ChatSession
}

func NewChatHandler(logger *zap.Logger, chat *service.ChatSession) *ChatHandler {
	return &ChatHandler{logger: logger, chat: chat}
}

// GetView maneja GET /chat/view.
func (h *ChatHandler) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"view": h.chat.View()})
}

// CreateConversation maneja POST /chat/conversations.
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	id, err := h.chat.CreateConversation()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "view": h.chat.View()})
}

// LoadConversation maneja GET /chat/conversations/:id.
func (h *ChatHandler) LoadConversation(c *gin.Context) {
	if err := h.chat.LoadConversation(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": h.chat.View()})
}

// ClearAll maneja DELETE /chat/conversations?confirm=true.
func (h *ChatHandler) ClearAll(c *gin.Context) {
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	cleared, err := h.chat.ClearAll(c.Request.Context(), service.ConfirmFunc(func(context.Context, string) bool {
		return confirmed
	}))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": cleared, "view": h.chat.View()})
}

// PostMessage maneja POST /chat/messages.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.chat.SubmitMessage(c.Request.Context(), req.Text); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": h.chat.View()})
}

// PostExample maneja POST /chat/examples.
func (h *ChatHandler) PostExample(c *gin.Context) {
	var req struct {
		Prompt string `json:"prompt" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid example request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.chat.SubmitExample(c.Request.Context(), req.Prompt); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": h.chat.View()})
}

func (h *ChatHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReplyInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": "reply in flight"})
	case errors.Is(err, service.ErrReplyFailed):
		// La vista ya contiene el mensaje de error localizado.
		c.JSON(http.StatusBadGateway, gin.H{"error": "reply failed", "view": h.chat.View()})
	case errors.Is(err, service.ErrSessionClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session closed"})
	default:
		h.logger.Error("chat command failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
