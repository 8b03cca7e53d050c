package journal

import (
	"context"
	"fmt"
	"sort"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

const defaultLimit = 20

// Service reads the journal written when journeys complete.
type Service struct {
	store domain.JournalStore
}

func NewService(store domain.JournalStore) *Service {
	return &Service{store: store}
}

// GetUserJournal returns the last limit entries for a user, oldest first.
// A non-positive limit means defaultLimit.
func (s *Service) GetUserJournal(ctx context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	if s.store == nil {
		return []*domain.JournalEntry{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	entries, err := s.store.ListJournalEntriesByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal for %s: %w", userID, err)
	}
	if entries == nil {
		entries = []*domain.JournalEntry{}
	}
	return entries, nil
}

// Overview aggregates a run of journal entries.
type Overview struct {
	Completed      int            `json:"completed"`
	AverageScale   int            `json:"average_scale"`
	LowestCounts   map[string]int `json:"lowest_counts"`
	RecurringLow   string         `json:"recurring_low,omitempty"`
	LastGoal       string         `json:"last_goal,omitempty"`
	TotalAdvice    int            `json:"total_advice"`
	SensationsSeen []string       `json:"sensations_seen"`
}

// Summarize builds an Overview from entries ordered oldest first.
// RecurringLow is the category most often scored lowest; ties go to the
// alphabetically first name.
func Summarize(entries []*domain.JournalEntry) Overview {
	ov := Overview{
		LowestCounts:   make(map[string]int),
		SensationsSeen: []string{},
	}
	if len(entries) == 0 {
		return ov
	}

	seen := make(map[string]struct{})
	scaleSum := 0
	for _, e := range entries {
		ov.Completed++
		scaleSum += e.AdjustedScale
		ov.TotalAdvice += e.AdviceCount
		if e.LowestCategory != "" {
			ov.LowestCounts[e.LowestCategory]++
		}
		for _, s := range e.Sensations {
			if _, ok := seen[s]; !ok {
				seen[s] = struct{}{}
				ov.SensationsSeen = append(ov.SensationsSeen, s)
			}
		}
	}
	ov.AverageScale = scaleSum / ov.Completed
	ov.LastGoal = entries[len(entries)-1].Goal
	sort.Strings(ov.SensationsSeen)

	best := 0
	for cat, n := range ov.LowestCounts {
		if n > best || (n == best && cat < ov.RecurringLow) {
			best = n
			ov.RecurringLow = cat
		}
	}
	return ov
}

// UserOverview summarizes the last limit entries of a user.
func (s *Service) UserOverview(ctx context.Context, userID domain.UserID, limit int) (Overview, error) {
	entries, err := s.GetUserJournal(ctx, userID, limit)
	if err != nil {
		return Overview{}, err
	}
	return Summarize(entries), nil
}
