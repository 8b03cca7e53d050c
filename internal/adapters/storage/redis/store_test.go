package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

// newStore connects to JOURNEY_TEST_REDIS_ADDR and skips when it is unset
// or unreachable.
func newStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("JOURNEY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("JOURNEY_TEST_REDIS_ADDR not set")
	}
	s, err := NewStore(addr, time.Minute)
	require.NoError(t, err)
	if err := s.Ping(context.Background()); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	s.prefix = "journey-test-" + uuid.NewString()
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewStoreRequiresAddr(t *testing.T) {
	_, err := NewStore("", 0)
	require.Error(t, err)
}

func TestRedisJourneyLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	j := domain.NewJourney("j1", "u1", base)
	j.Goal = "Learn the cello"
	require.NoError(t, s.CreateJourney(ctx, j))
	require.Error(t, s.CreateJourney(ctx, j))

	j.LatestAIAdvice[domain.CategoryOpenness] = "Book one lesson."
	require.NoError(t, s.SaveJourney(ctx, j))

	got, err := s.GetJourney(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, "Book one lesson.", got.LatestAIAdvice[domain.CategoryOpenness])

	require.NoError(t, s.CreateJourney(ctx, domain.NewJourney("j2", "u1", base.Add(time.Hour))))
	list, err := s.ListJourneysByUser(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, domain.JourneyID("j2"), list[0].ID)

	_, err = s.GetJourney(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.ErrorIs(t, s.SaveJourney(ctx, domain.NewJourney("missing", "u1", base)), domain.ErrNotFound)
}
