package ports

import (
	"sync"

	"github.com/quentinrf/plant-monitor/services/temperature-service/internal/domain"
)

// LiveView holds the most recently published window for readers outside
// the acquisition loop, such as the gRPC service
type LiveView struct {
	mu   sync.RWMutex
	view domain.View
}

// NewLiveView creates an empty holder
func NewLiveView() *LiveView {
	return &LiveView{}
}

// Publish replaces the current snapshot
func (l *LiveView) Publish(v domain.View) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.view = v
}

// Snapshot returns the current snapshot
// Views are never mutated after publishing, so sharing the slices is safe.
func (l *LiveView) Snapshot() domain.View {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.view
}
