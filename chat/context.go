// Package chat composes the context assembler, inference client and web
// search into the streaming generation pipeline.
package chat

import (
	"context"
	"strings"

	"github.com/hweng329/llamagate/domain"
	"github.com/hweng329/llamagate/store"
)

// promptPreamble instructs the model to use the conversation history. The
// rendered layout below, including the role labels and line breaks, is a
// protocol contract with the upstream model family and must not change.
const promptPreamble = "You are a helpful AI assistant. Use the conversation history below to provide contextually relevant responses."

// Assembler builds bounded conversation context windows from stored history.
type Assembler struct {
	store store.Store
}

// NewAssembler creates a new context assembler.
func NewAssembler(st store.Store) *Assembler {
	return &Assembler{store: st}
}

// BuildContext returns up to maxMessages most recent messages for a session
// in conversation order, oldest first, reduced to role/content pairs.
func (a *Assembler) BuildContext(ctx context.Context, sessionID string, maxMessages int) ([]domain.ContextMessage, error) {
	messages, err := a.store.GetHistory(ctx, sessionID, maxMessages)
	if err != nil {
		return nil, err
	}

	window := make([]domain.ContextMessage, 0, len(messages))
	for _, msg := range messages {
		window = append(window, domain.ContextMessage{Role: msg.Role, Content: msg.Content})
	}
	return window, nil
}

// RenderPrompt renders the context window and the current user text into one
// prompt string. With no context the current text is returned verbatim so
// single-turn sessions hit the model without any wrapping.
func RenderPrompt(contextMessages []domain.ContextMessage, currentUserText string) string {
	if len(contextMessages) == 0 {
		return currentUserText
	}

	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\nConversation History:")

	for _, msg := range contextMessages {
		b.WriteString("\n")
		b.WriteString(roleLabel(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}

	b.WriteString("\nHuman: ")
	b.WriteString(currentUserText)
	b.WriteString("\nAssistant:")

	return b.String()
}

func roleLabel(role domain.Role) string {
	if role == domain.RoleUser {
		return "Human"
	}
	return "Assistant"
}
