package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/repo"
	"github.com/xxxsen/docchat/internal/service"
)

type staticChatter struct {
	answer string
	err    error
}

func (s staticChatter) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	return s.answer, s.err
}

func (s staticChatter) ModelName() string { return "test-model" }

type emptyRetriever struct{}

func (emptyRetriever) Search(ctx context.Context, query string, k int) []string { return nil }

type fakeIndex struct {
	count    int
	clearErr error
	cleared  bool
}

func (f *fakeIndex) Count(ctx context.Context) int { return f.count }

func (f *fakeIndex) Clear(ctx context.Context) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = true
	return nil
}

type envelope struct {
	Code    uint32          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, chatter ai.IChatter, index *fakeIndex) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	chat := service.NewChatService(chatter, emptyRetriever{}, repo.NewConversationRepo(), time.Second)
	chatHandler := NewChatHandler(chat)
	ws := NewWSHandler(chat)
	system := NewSystemHandler("1.0.0", "test-model", index, chat, ws)

	engine := gin.New()
	RegisterRoutes(engine.Group("/"), RouterDeps{
		System: system,
		Upload: NewUploadHandler(nil, 1024),
		Chat:   chatHandler,
		WS:     ws,
	})
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestChatEndpoint(t *testing.T) {
	engine := newTestRouter(t, staticChatter{answer: "the answer"}, &fakeIndex{})

	rec, env := doJSON(t, engine, http.MethodPost, "/chat", gin.H{"message": "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, env.Code, "body: %s", rec.Body.String())

	var data struct {
		Response       string `json:"response"`
		ConversationID string `json:"conversation_id"`
		Model          string `json:"model"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "the answer", data.Response)
	assert.NotEmpty(t, data.ConversationID)
	assert.Equal(t, "test-model", data.Model)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	engine := newTestRouter(t, staticChatter{answer: "x"}, &fakeIndex{})

	rec, env := doJSON(t, engine, http.MethodPost, "/chat", gin.H{"message": "   "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, env.Code)
}

func TestChatEndpointDegradesOnFailure(t *testing.T) {
	engine := newTestRouter(t, staticChatter{err: fmt.Errorf("down")}, &fakeIndex{})

	rec, env := doJSON(t, engine, http.MethodPost, "/chat", gin.H{"message": "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, env.Code)

	var data struct {
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Contains(t, data.Response, "I apologize")
	assert.NotEmpty(t, data.Error)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	engine := newTestRouter(t, staticChatter{answer: "x"}, &fakeIndex{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("plain text"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotZero(t, env.Code)
	assert.Contains(t, env.Message, "PDF")
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	engine := newTestRouter(t, staticChatter{answer: "x"}, &fakeIndex{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "big.pdf")
	require.NoError(t, err)
	_, _ = fw.Write(bytes.Repeat([]byte("a"), 2048))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotZero(t, env.Code)
}

func TestStatsEndpoint(t *testing.T) {
	engine := newTestRouter(t, staticChatter{answer: "x"}, &fakeIndex{count: 7})

	rec, env := doJSON(t, engine, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, env.Code)

	var data struct {
		ActiveConnections int    `json:"active_connections"`
		DocumentsCount    int    `json:"documents_count"`
		Conversations     int    `json:"conversations"`
		Timestamp         string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 0, data.ActiveConnections)
	assert.Equal(t, 7, data.DocumentsCount)
	assert.NotEmpty(t, data.Timestamp)
}

func TestClearEndpoint(t *testing.T) {
	index := &fakeIndex{count: 3}
	engine := newTestRouter(t, staticChatter{answer: "x"}, index)

	rec, env := doJSON(t, engine, http.MethodDelete, "/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, env.Code)
	assert.True(t, index.cleared)
}

func TestDeleteConversationEndpoint(t *testing.T) {
	chatter := staticChatter{answer: "x"}
	gin.SetMode(gin.TestMode)
	conversations := repo.NewConversationRepo()
	chat := service.NewChatService(chatter, emptyRetriever{}, conversations, time.Second)
	ws := NewWSHandler(chat)
	engine := gin.New()
	RegisterRoutes(engine.Group("/"), RouterDeps{
		System: NewSystemHandler("1.0.0", "test-model", &fakeIndex{}, chat, ws),
		Upload: NewUploadHandler(nil, 1024),
		Chat:   NewChatHandler(chat),
		WS:     ws,
	})

	chat.Respond(context.Background(), "hello", "conv-1")
	require.Equal(t, 1, conversations.Count())

	rec, env := doJSON(t, engine, http.MethodDelete, "/conversations/conv-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, env.Code)
	assert.Equal(t, 0, conversations.Count())
}
