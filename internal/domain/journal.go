package domain

import (
	"context"
	"time"
)

// JournalEntryID identifies a journal entry
type JournalEntryID string

// JournalEntry is the long-term summary written when a journey completes.
type JournalEntry struct {
	ID        JournalEntryID `json:"id"`
	JourneyID JourneyID      `json:"journey_id"`
	UserID    UserID         `json:"user_id"`

	CreatedAt time.Time `json:"created_at"`

	Goal           string   `json:"goal"`
	TargetDate     string   `json:"target_date,omitempty"`
	PositionLetter string   `json:"position_letter"`
	LowestCategory string   `json:"lowest_category,omitempty"`
	AdviceCount    int      `json:"advice_count"`
	AdjustedScale  int      `json:"adjusted_scale"`
	Sensations     []string `json:"sensations,omitempty"`
}

// JournalStore defines the minimum operations to persist the journal
type JournalStore interface {
	AppendJournalEntry(ctx context.Context, entry *JournalEntry) error
	ListJournalEntriesByUser(ctx context.Context, userID UserID, limit int) ([]*JournalEntry, error)
}
