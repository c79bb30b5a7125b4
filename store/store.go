// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/hweng329/llamagate/domain"
)

// Store defines the interface for conversation persistence.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, model, title string) (*domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	ListActiveSessions(ctx context.Context, limit int) ([]domain.Session, error)
	UpdateSessionTitle(ctx context.Context, sessionID, title string) (*domain.Session, error)
	DeleteSession(ctx context.Context, sessionID string) (bool, error)

	// Message operations
	AppendMessage(ctx context.Context, sessionID string, role domain.Role, content string) (*domain.Message, error)
	GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)
	SearchMessages(ctx context.Context, query string, limit int) ([]domain.Message, error)

	// Lifecycle
	Close() error
}
