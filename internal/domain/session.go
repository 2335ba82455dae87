package domain

import "time"

// Session is one acquisition run, archived once at shutdown
type Session struct {
	ID        int64
	Port      string
	Protocol  string
	StartedAt time.Time
	EndedAt   time.Time
	Samples   []Sample
}

// Duration returns how long the session streamed
func (s *Session) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}
