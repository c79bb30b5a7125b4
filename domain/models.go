// Package domain defines the core domain models for the gateway.
package domain

import (
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session represents a conversation session.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsActive     bool      `json:"is_active"`
	MessageCount int       `json:"message_count"`
}

// Message represents a single message in a session. Messages are immutable
// once created; the autoincrement ID is the conversation order.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ContextMessage is one entry of the bounded context window fed to the model.
type ContextMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SearchResult is one ranked snippet from the web search provider.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// GenerateRequest is the client request for one generation turn.
type GenerateRequest struct {
	Prompt             string   `json:"prompt"`
	Model              string   `json:"model"`
	SessionID          string   `json:"session_id,omitempty"`
	MaxContextMessages int      `json:"max_context_messages,omitempty"`
	WebSearch          bool     `json:"web_search,omitempty"`
	Images             []string `json:"images,omitempty"`
}

// StreamEvent is one SSE frame sent to the caller. Exactly one of the
// fields is set; Done and Error are terminal.
type StreamEvent struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CreateSessionRequest is the client request to create a session.
type CreateSessionRequest struct {
	Model string `json:"model"`
	Title string `json:"title,omitempty"`
}

// UpdateSessionRequest is the client request to rename a session.
type UpdateSessionRequest struct {
	Title string `json:"title"`
}
