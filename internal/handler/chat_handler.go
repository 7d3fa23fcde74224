package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docchat/internal/pkg/errcode"
	"github.com/xxxsen/docchat/internal/pkg/response"
	"github.com/xxxsen/docchat/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.Error(c, errcode.ErrInvalid, "message required")
		return
	}
	result := h.chat.Respond(c.Request.Context(), req.Message, req.ConversationID)
	response.Success(c, result)
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.Error(c, errcode.ErrInvalid, "conversation id required")
		return
	}
	h.chat.DeleteConversation(id)
	response.Success(c, gin.H{"deleted": id})
}
