package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

// JournalTool uses a domain.JournalStore to keep a summary of every
// completed journey.
type JournalTool struct {
	store domain.JournalStore
	now   func() time.Time
}

// NewJournalTool creates a new JournalTool.
// store can be an in-memory, SQLite or Firestore implementation.
func NewJournalTool(store domain.JournalStore) *JournalTool {
	return &JournalTool{
		store: store,
		now:   time.Now,
	}
}

func (t *JournalTool) Name() string {
	return "journal_store"
}

// Call expects an input with this shape:
//
//	{
//	  "goal": "Launch new product line",
//	  "target_date": "2026-11-16",
//	  "position_letter": "K",
//	  "lowest_category": "safety",
//	  "advice_count": 2,
//	  "adjusted_scale": 60,
//	  "sensations": ["calm", "excited"]
//	}
//
// UserID and JourneyID come in ToolContext.
func (t *JournalTool) Call(
	ctx context.Context,
	tctx ToolContext,
	input map[string]any,
) (map[string]any, error) {

	if tctx.UserID == "" || tctx.JourneyID == "" {
		return nil, fmt.Errorf("journal_store: missing UserID or JourneyID in ToolContext")
	}

	now := t.now()

	entry := &domain.JournalEntry{
		ID:             domain.JournalEntryID(uuid.NewString()),
		JourneyID:      domain.JourneyID(tctx.JourneyID),
		UserID:         domain.UserID(tctx.UserID),
		CreatedAt:      now,
		Goal:           getString(input, "goal"),
		TargetDate:     getString(input, "target_date"),
		PositionLetter: getString(input, "position_letter"),
		LowestCategory: getString(input, "lowest_category"),
		AdviceCount:    getInt(input, "advice_count"),
		AdjustedScale:  getInt(input, "adjusted_scale"),
		Sensations:     getStrings(input, "sensations"),
	}

	if err := t.store.AppendJournalEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("journal_store: append failed: %w", err)
	}

	return map[string]any{
		"status":     "ok",
		"entry_id":   string(entry.ID),
		"journey_id": string(entry.JourneyID),
		"user_id":    string(entry.UserID),
		"created_at": entry.CreatedAt,
	}, nil
}

// JourneySummary builds the JournalTool input for a finished journey.
func JourneySummary(j *domain.Journey) map[string]any {
	in := map[string]any{
		"goal":            j.Goal,
		"position_letter": domain.Letter(j.CurrentPosition),
		"advice_count":    len(j.LatestAIAdvice),
		"adjusted_scale":  j.Adjustment.Scale,
		"sensations":      j.Sensations(),
	}
	if j.TargetDate != nil {
		in["target_date"] = j.TargetDate.Format(time.DateOnly)
	}

	lowest, lowestScore := domain.Category(""), domain.MaxLikertScore+1
	for _, c := range domain.Categories {
		if s := j.LikertScores[c]; s < lowestScore {
			lowest, lowestScore = c, s
		}
	}
	if lowestScore <= domain.AdviceThreshold {
		in["lowest_category"] = string(lowest)
	}
	return in
}

// --- internal helpers --- //

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func getStrings(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
