package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/docchat/internal/pkg/response"
	"github.com/xxxsen/docchat/internal/service"
)

// Index is the slice of the vector store the system endpoints need.
type Index interface {
	Count(ctx context.Context) int
	Clear(ctx context.Context) error
}

type SystemHandler struct {
	version string
	model   string
	index   Index
	chat    *service.ChatService
	ws      *WSHandler
}

func NewSystemHandler(version string, model string, index Index, chat *service.ChatService, ws *WSHandler) *SystemHandler {
	return &SystemHandler{version: version, model: model, index: index, chat: chat, ws: ws}
}

func (h *SystemHandler) Root(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "online",
		"service": "docchat",
		"version": h.version,
	})
}

func (h *SystemHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{
		"status": "healthy",
		"components": gin.H{
			"api":   "ok",
			"index": "ok",
			"model": h.model,
		},
	})
}

func (h *SystemHandler) Stats(c *gin.Context) {
	response.Success(c, gin.H{
		"active_connections": h.ws.ActiveConnections(),
		"documents_count":    h.index.Count(c.Request.Context()),
		"conversations":      h.chat.ConversationCount(),
		"timestamp":          time.Now().Format(time.RFC3339),
	})
}

// Clear wipes the semantic index. Uploaded raw files and conversation
// histories are untouched.
func (h *SystemHandler) Clear(c *gin.Context) {
	if err := h.index.Clear(c.Request.Context()); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "Document index cleared"})
}
