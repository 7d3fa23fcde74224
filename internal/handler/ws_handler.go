package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/service"
)

const (
	frameTypeSystem        = "system"
	frameTypeVoiceInput    = "voice_input"
	frameTypeVoiceResponse = "voice_response"
	frameTypeTyping        = "typing"
	frameTypePing          = "ping"
	frameTypePong          = "pong"
	frameTypeError         = "error"
)

type wsFrame struct {
	Type           string `json:"type"`
	Transcript     string `json:"transcript,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// WSHandler serves the realtime voice channel. Each connection is handled
// by its own goroutine; frames on one connection are processed in order.
type WSHandler struct {
	chat     *service.ChatService
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

func NewWSHandler(chat *service.ChatService) *WSHandler {
	return &WSHandler{
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*websocket.Conn),
	}
}

// ActiveConnections reports the number of live client connections.
func (h *WSHandler) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHandler) Serve(c *gin.Context) {
	clientID := c.Param("client_id")
	logger := logutil.GetLogger(c.Request.Context()).With(zap.String("client_id", clientID))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	if old, ok := h.clients[clientID]; ok {
		old.Close()
	}
	h.clients[clientID] = conn
	h.mu.Unlock()
	logger.Info("client connected")

	defer func() {
		h.mu.Lock()
		if h.clients[clientID] == conn {
			delete(h.clients, clientID)
		}
		h.mu.Unlock()
		conn.Close()
		logger.Info("client disconnected")
	}()

	h.send(conn, map[string]interface{}{
		"type":      frameTypeSystem,
		"message":   "Connected to document assistant",
		"timestamp": time.Now().Format(time.RFC3339),
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame wsFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			h.send(conn, map[string]interface{}{
				"type":    frameTypeError,
				"message": "invalid frame",
			})
			continue
		}
		h.handleFrame(conn, logger, frame)
	}
}

func (h *WSHandler) handleFrame(conn *websocket.Conn, logger *zap.Logger, frame wsFrame) {
	switch frame.Type {
	case frameTypeVoiceInput:
		h.send(conn, map[string]interface{}{"type": frameTypeTyping, "status": true})
		// Detached from the request context so an HTTP-level cancellation
		// does not abort an in-flight completion.
		result := h.chat.Respond(context.Background(), frame.Transcript, frame.ConversationID)
		if result.Error != "" {
			logger.Warn("voice response degraded", zap.String("error", result.Error))
		}
		h.send(conn, map[string]interface{}{
			"type":            frameTypeVoiceResponse,
			"transcript":      frame.Transcript,
			"response":        result.Response,
			"conversation_id": result.ConversationID,
			"timestamp":       time.Now().Format(time.RFC3339),
		})
		h.send(conn, map[string]interface{}{"type": frameTypeTyping, "status": false})
	case frameTypePing:
		h.send(conn, map[string]interface{}{
			"type":      frameTypePong,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	default:
		h.send(conn, map[string]interface{}{
			"type":    frameTypeError,
			"message": "unknown message type",
		})
	}
}

func (h *WSHandler) send(conn *websocket.Conn, payload map[string]interface{}) {
	if err := conn.WriteJSON(payload); err != nil {
		logutil.GetLogger(context.Background()).Debug("websocket write failed", zap.Error(err))
	}
}
