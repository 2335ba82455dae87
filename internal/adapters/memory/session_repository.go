package memory

import (
	"context"
	"sync"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

// SessionRepository implements domain.SessionRepository with in-memory storage
// Sessions live as long as the process, which is useful for development and tests
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[int64]*domain.Session
	nextID   int64
}

// NewSessionRepository creates an empty in-memory repository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[int64]*domain.Session),
		nextID:   1,
	}
}

// SaveSession stores a copy of the session in memory
func (r *SessionRepository) SaveSession(ctx context.Context, session *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Assign ID if not set
	if session.ID == 0 {
		session.ID = r.nextID
		r.nextID++
	}

	r.sessions[session.ID] = clone(session)
	return nil
}

// GetSession retrieves a session by ID
func (r *SessionRepository) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrSessionNotFound
	}

	return clone(session), nil
}

// GetLatestSession returns the most recently started session
func (r *SessionRepository) GetLatestSession(ctx context.Context) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sessions) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	var latest *domain.Session
	for _, session := range r.sessions {
		if latest == nil || session.StartedAt.After(latest.StartedAt) ||
			(session.StartedAt.Equal(latest.StartedAt) && session.ID > latest.ID) {
			latest = session
		}
	}

	return clone(latest), nil
}

func clone(s *domain.Session) *domain.Session {
	c := *s
	c.Samples = append([]domain.Sample(nil), s.Samples...)
	return &c
}
