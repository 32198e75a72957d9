package health

import (
	"sync"

	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

// Store holds the latest bucket view published by the driver.
type Store struct {
	mu   sync.RWMutex
	view tracker.View
	set  bool
}

func NewStore() *Store { return &Store{} }

// Publish replaces the stored view. It matches tracker.Options.Publish.
func (s *Store) Publish(v tracker.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view, s.set = v, true
}

// View returns the latest view, or false before the first cycle finished.
func (s *Store) View() (tracker.View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view, s.set
}
