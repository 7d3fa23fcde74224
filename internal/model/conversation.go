package model

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single message inside a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResult is what the assembler returns for every message. Error is set
// when the completion service failed and Response carries the fallback
// answer; a result is produced in both cases.
type ChatResult struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	Model          string `json:"model"`
	Error          string `json:"error,omitempty"`
}
