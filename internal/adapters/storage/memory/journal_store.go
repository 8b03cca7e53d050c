package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

// JournalStore keeps journal entries per user in insertion order. Entries are
// copied on the way in and out so callers never share them.
type JournalStore struct {
	mu     sync.RWMutex
	byUser map[domain.UserID][]domain.JournalEntry
}

func NewJournalStore() *JournalStore {
	return &JournalStore{byUser: make(map[domain.UserID][]domain.JournalEntry)}
}

func cloneEntry(e domain.JournalEntry) *domain.JournalEntry {
	e.Sensations = slices.Clone(e.Sensations)
	return &e
}

// AppendJournalEntry stores a copy of entry, assigning an id if it has none.
func (s *JournalStore) AppendJournalEntry(ctx context.Context, entry *domain.JournalEntry) error {
	if entry == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = domain.JournalEntryID(uuid.NewString())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[entry.UserID] = append(s.byUser[entry.UserID], *cloneEntry(*entry))
	return nil
}

// ListJournalEntriesByUser returns the last limit entries, oldest first.
// A non-positive limit returns everything.
func (s *JournalStore) ListJournalEntriesByUser(_ context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byUser[userID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}

	out := make([]*domain.JournalEntry, 0, limit)
	for _, e := range all[len(all)-limit:] {
		out = append(out, cloneEntry(e))
	}
	return out, nil
}
