package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

// JourneyStore keeps journeys in a map. Records are cloned on the way in and
// out so callers never share memory with the store.
type JourneyStore struct {
	mu       sync.RWMutex
	journeys map[domain.JourneyID]*domain.Journey
}

func NewJourneyStore() *JourneyStore {
	return &JourneyStore{
		journeys: make(map[domain.JourneyID]*domain.Journey),
	}
}

func (s *JourneyStore) CreateJourney(_ context.Context, j *domain.Journey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.journeys[j.ID]; exists {
		return errors.New("journey already exists")
	}

	s.journeys[j.ID] = j.Clone()
	return nil
}

func (s *JourneyStore) SaveJourney(_ context.Context, j *domain.Journey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.journeys[j.ID]; !exists {
		return fmt.Errorf("journey %s: %w", j.ID, domain.ErrNotFound)
	}

	s.journeys[j.ID] = j.Clone()
	return nil
}

func (s *JourneyStore) GetJourney(_ context.Context, id domain.JourneyID) (*domain.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.journeys[id]
	if !ok {
		return nil, fmt.Errorf("journey %s: %w", id, domain.ErrNotFound)
	}

	return j.Clone(), nil
}

// ListJourneysByUser returns the user's journeys, newest first.
func (s *JourneyStore) ListJourneysByUser(_ context.Context, userID domain.UserID, limit int) ([]*domain.Journey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Journey
	for _, j := range s.journeys {
		if j.UserID == userID {
			result = append(result, j.Clone())
		}
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.After(result[k].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}
