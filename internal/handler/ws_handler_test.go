package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/repo"
	"github.com/xxxsen/docchat/internal/service"
)

func dialTestWS(t *testing.T, handler *WSHandler) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ws/:client_id", handler.Serve)
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/test-client"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestWSVoiceRoundtrip(t *testing.T) {
	chat := service.NewChatService(staticChatter{answer: "spoken answer"}, emptyRetriever{}, repo.NewConversationRepo(), time.Second)
	handler := NewWSHandler(chat)
	conn := dialTestWS(t, handler)

	welcome := readFrame(t, conn)
	assert.Equal(t, "system", welcome["type"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":       "voice_input",
		"transcript": "what is in the document?",
	}))

	typing := readFrame(t, conn)
	assert.Equal(t, "typing", typing["type"])
	assert.Equal(t, true, typing["status"])

	resp := readFrame(t, conn)
	require.Equal(t, "voice_response", resp["type"])
	assert.Equal(t, "what is in the document?", resp["transcript"])
	assert.Equal(t, "spoken answer", resp["response"])
	assert.NotEmpty(t, resp["conversation_id"])

	done := readFrame(t, conn)
	assert.Equal(t, "typing", done["type"])
	assert.Equal(t, false, done["status"])
}

func TestWSPingPong(t *testing.T) {
	chat := service.NewChatService(staticChatter{answer: "x"}, emptyRetriever{}, repo.NewConversationRepo(), time.Second)
	handler := NewWSHandler(chat)
	conn := dialTestWS(t, handler)

	readFrame(t, conn) // welcome

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping"}))
	pong := readFrame(t, conn)
	assert.Equal(t, "pong", pong["type"])
}

func TestWSUnknownType(t *testing.T) {
	chat := service.NewChatService(staticChatter{answer: "x"}, emptyRetriever{}, repo.NewConversationRepo(), time.Second)
	handler := NewWSHandler(chat)
	conn := dialTestWS(t, handler)

	readFrame(t, conn) // welcome

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "mystery"}))
	errFrame := readFrame(t, conn)
	assert.Equal(t, "error", errFrame["type"])
}

func TestWSActiveConnections(t *testing.T) {
	chat := service.NewChatService(staticChatter{answer: "x"}, emptyRetriever{}, repo.NewConversationRepo(), time.Second)
	handler := NewWSHandler(chat)

	assert.Equal(t, 0, handler.ActiveConnections())
	conn := dialTestWS(t, handler)
	readFrame(t, conn) // welcome confirms registration completed
	assert.Equal(t, 1, handler.ActiveConnections())
}
