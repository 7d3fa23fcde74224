// Package repo holds the process-local storage layer. Conversations live in
// memory for the process lifetime; there is no persistence and no TTL, only
// explicit deletion.
package repo

import (
	"sync"

	"github.com/xxxsen/docchat/internal/model"
)

type conversation struct {
	mu    sync.Mutex
	turns []model.Turn
}

// ConversationRepo maps conversation tokens to turn histories. Histories are
// created lazily on first append; the user+assistant pair of one exchange is
// appended under the conversation's own lock so concurrent messages for the
// same token can interleave exchanges but never split a pair.
type ConversationRepo struct {
	mu    sync.RWMutex
	items map[string]*conversation
}

func NewConversationRepo() *ConversationRepo {
	return &ConversationRepo{items: make(map[string]*conversation)}
}

func (r *ConversationRepo) get(id string) *conversation {
	r.mu.RLock()
	conv := r.items[id]
	r.mu.RUnlock()
	return conv
}

func (r *ConversationRepo) getOrCreate(id string) *conversation {
	if conv := r.get(id); conv != nil {
		return conv
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv := r.items[id]; conv != nil {
		return conv
	}
	conv := &conversation{}
	r.items[id] = conv
	return conv
}

// Recent returns up to n of the most recent turns, oldest first. An unknown
// token yields an empty history, the same as a brand-new conversation.
func (r *ConversationRepo) Recent(id string, n int) []model.Turn {
	conv := r.get(id)
	if conv == nil || n <= 0 {
		return nil
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	start := len(conv.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]model.Turn, len(conv.turns)-start)
	copy(out, conv.turns[start:])
	return out
}

// AppendExchange records one user message and its assistant answer as an
// atomic pair.
func (r *ConversationRepo) AppendExchange(id string, userMsg string, assistantMsg string) {
	conv := r.getOrCreate(id)
	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.turns = append(conv.turns,
		model.Turn{Role: model.RoleUser, Content: userMsg},
		model.Turn{Role: model.RoleAssistant, Content: assistantMsg},
	)
}

// Len reports the number of turns recorded for a token.
func (r *ConversationRepo) Len(id string) int {
	conv := r.get(id)
	if conv == nil {
		return 0
	}
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return len(conv.turns)
}

// Delete removes the conversation entirely; reusing the token afterwards
// behaves like a new conversation.
func (r *ConversationRepo) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

// Count reports the number of live conversations.
func (r *ConversationRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
