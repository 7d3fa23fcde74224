package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/docchat/internal/ai"
	"github.com/xxxsen/docchat/internal/model"
	"github.com/xxxsen/docchat/internal/pkg/errs"
	"github.com/xxxsen/docchat/internal/repo"
)

const (
	historyWindow = 6
	retrievalTopK = 3
)

const fallbackAnswer = "I apologize, but I'm having trouble connecting to my AI service. Please try again in a moment."

const systemPrompt = `You are an intelligent AI assistant that helps users analyze and understand PDF documents through natural conversation.

Your capabilities:
- Answer questions about uploaded PDF documents with high accuracy
- Provide summaries and insights from document content
- Engage in natural, friendly conversation
- Cite specific information from the documents when relevant

Guidelines:
- Be concise but informative
- If you don't know something, admit it honestly
- When answering from documents, mention that you're referencing the uploaded content
- Be helpful, friendly, and professional

Remember: You're designed to make document analysis easy and conversational.`

const contextualQuestion = `Based on the following document excerpts, please answer the question.

Document Context:
%s

Question: %s

Please provide a clear, accurate answer based on the document content. If the answer isn't in the documents, let me know.`

// Retriever supplies relevant document chunks for a query. Implementations
// degrade to an empty result on failure.
type Retriever interface {
	Search(ctx context.Context, query string, k int) []string
}

// ChatService assembles the conversation context for each incoming message:
// persona, a bounded history window, retrieved document excerpts, then the
// message itself. Completion failures degrade to a fixed apologetic answer;
// a result is returned in every case.
type ChatService struct {
	chatter       ai.IChatter
	retriever     Retriever
	conversations *repo.ConversationRepo
	timeout       time.Duration
}

func NewChatService(chatter ai.IChatter, retriever Retriever, conversations *repo.ConversationRepo, timeout time.Duration) *ChatService {
	return &ChatService{
		chatter:       chatter,
		retriever:     retriever,
		conversations: conversations,
		timeout:       timeout,
	}
}

func (s *ChatService) Respond(ctx context.Context, message string, conversationID string) *model.ChatResult {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	logger := logutil.GetLogger(ctx).With(zap.String("conversation_id", conversationID))

	var contextDocs []string
	if s.retriever != nil {
		contextDocs = s.retriever.Search(ctx, message, retrievalTopK)
	}

	history := s.conversations.Recent(conversationID, historyWindow)
	messages := buildMessages(history, message, contextDocs)

	cctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	answer, err := s.chatter.Chat(cctx, messages)
	if err == nil && strings.TrimSpace(answer) == "" {
		err = fmt.Errorf("empty completion response")
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", errs.ErrCompletion, err)
		// History stays untouched so a retry sees the same context.
		logger.Error("completion failed", zap.Error(err))
		return &model.ChatResult{
			Response:       fallbackAnswer,
			ConversationID: conversationID,
			Model:          s.chatter.ModelName(),
			Error:          err.Error(),
		}
	}

	s.conversations.AppendExchange(conversationID, message, answer)
	logger.Debug("response generated", zap.Int("context_chunks", len(contextDocs)), zap.Int("history_turns", len(history)))
	return &model.ChatResult{
		Response:       answer,
		ConversationID: conversationID,
		Model:          s.chatter.ModelName(),
	}
}

// DeleteConversation drops a conversation's history; the token behaves as
// new afterwards.
func (s *ChatService) DeleteConversation(conversationID string) {
	s.conversations.Delete(conversationID)
}

// ConversationCount reports the number of live conversations.
func (s *ChatService) ConversationCount() int {
	return s.conversations.Count()
}

func buildMessages(history []model.Turn, message string, contextDocs []string) []ai.Message {
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.Message{Role: model.RoleSystem, Content: systemPrompt})
	for _, turn := range history {
		messages = append(messages, ai.Message{Role: turn.Role, Content: turn.Content})
	}

	userContent := message
	if len(contextDocs) > 0 {
		excerpts := make([]string, 0, len(contextDocs))
		for _, doc := range contextDocs {
			excerpts = append(excerpts, "Document excerpt:\n"+doc)
		}
		userContent = fmt.Sprintf(contextualQuestion, strings.Join(excerpts, "\n\n"), message)
	}
	return append(messages, ai.Message{Role: model.RoleUser, Content: userContent})
}
