package feed

import (
	"sync"

	"github.com/pauljones0/artist-push-bot/internal/models"
)

// Store holds the most recent novel posts, newest first, capped at a fixed
// size. Entries that age past the cap are discarded, not archived. Only the
// cycle orchestrator writes to it.
type Store struct {
	mu      sync.RWMutex
	cap     int
	entries []models.FeedEntry
}

func New(cap int) *Store {
	return &Store{cap: cap}
}

// Prepend inserts a batch of entries at the front, preserving the batch's
// own order, then truncates anything beyond the cap.
func (s *Store) Prepend(batch []models.FeedEntry) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make([]models.FeedEntry, 0, len(batch)+len(s.entries))
	merged = append(merged, batch...)
	merged = append(merged, s.entries...)
	if len(merged) > s.cap {
		merged = merged[:s.cap]
	}
	s.entries = merged
}

// Snapshot returns a point-in-time copy of the feed, safe to hold across
// concurrent prepends.
func (s *Store) Snapshot() []models.FeedEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FeedEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the current number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
