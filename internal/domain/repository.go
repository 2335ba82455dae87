package domain

import (
	"context"
)

// SessionRepository archives finished sessions
// This is a PORT - adapters (SQLite, Memory) will implement it
type SessionRepository interface {
	// SaveSession persists a session and all of its samples, assigning its ID
	SaveSession(ctx context.Context, session *Session) error

	// GetSession retrieves a specific session by ID
	GetSession(ctx context.Context, id int64) (*Session, error)

	// GetLatestSession retrieves the most recently started session
	GetLatestSession(ctx context.Context) (*Session, error)
}
