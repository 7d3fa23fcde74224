package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	System *SystemHandler
	Upload *UploadHandler
	Chat   *ChatHandler
	WS     *WSHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/", deps.System.Root)
	api.GET("/health", deps.System.Health)
	api.GET("/stats", deps.System.Stats)
	api.DELETE("/clear", deps.System.Clear)

	api.POST("/upload", deps.Upload.Upload)
	api.POST("/chat", deps.Chat.Chat)
	api.DELETE("/conversations/:id", deps.Chat.DeleteConversation)

	api.GET("/ws/:client_id", deps.WS.Serve)
}
