package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-journey/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-journey/internal/domain"
)

func TestJourneySummary(t *testing.T) {
	j := domain.NewJourney("j1", "u1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	j.Goal = "Open a bakery"
	j.CurrentPosition = 10
	target := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	j.TargetDate = &target
	j.LikertScores[domain.CategoryBelief] = 1
	j.LikertScores[domain.CategorySafety] = 2
	j.LatestAIAdvice[domain.CategoryBelief] = "Start tiny."
	j.SelectedSensations["nervous"] = struct{}{}

	in := JourneySummary(j)
	require.Equal(t, "Open a bakery", in["goal"])
	require.Equal(t, "K", in["position_letter"])
	require.Equal(t, "2025-06-01", in["target_date"])
	require.Equal(t, "belief", in["lowest_category"])
	require.Equal(t, 1, in["advice_count"])
	require.Equal(t, []string{"nervous"}, in["sensations"])
}

func TestJourneySummaryWithoutLowScores(t *testing.T) {
	j := domain.NewJourney("j1", "u1", time.Now())
	in := JourneySummary(j)
	_, ok := in["lowest_category"]
	require.False(t, ok)
	_, ok = in["target_date"]
	require.False(t, ok)
}

func TestJournalToolCall(t *testing.T) {
	ctx := context.Background()
	store := memory.NewJournalStore()
	tool := NewJournalTool(store)

	_, err := tool.Call(ctx, ToolContext{UserID: "u1"}, nil)
	require.Error(t, err)

	out, err := tool.Call(ctx, ToolContext{UserID: "u1", JourneyID: "j1"}, map[string]any{
		"goal":           "Open a bakery",
		"adjusted_scale": float64(60),
		"sensations":     []any{"calm", 3},
	})
	require.NoError(t, err)
	require.Equal(t, "ok", out["status"])

	entries, err := store.ListJournalEntriesByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, domain.JourneyID("j1"), entries[0].JourneyID)
	require.Equal(t, 60, entries[0].AdjustedScale)
	require.Equal(t, []string{"calm"}, entries[0].Sensations)
}
