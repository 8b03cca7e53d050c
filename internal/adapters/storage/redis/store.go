package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

// Store keeps each journey as a JSON value under journey:<id> and indexes
// a user's journeys in a sorted set scored by creation time. Keys expire
// after ttl; zero keeps them forever.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ domain.JourneyStore = &Store{}

func NewStore(addr string, ttl time.Duration) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis store: empty addr")
	}
	return &Store{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		prefix: "journey",
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) journeyKey(id domain.JourneyID) string {
	return s.prefix + ":" + string(id)
}

func (s *Store) userKey(id domain.UserID) string {
	return s.prefix + ":user:" + string(id)
}

func (s *Store) CreateJourney(ctx context.Context, j *domain.Journey) error {
	body, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("redis store: encode journey: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.journeyKey(j.ID), body, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis store: create journey %s: %w", j.ID, err)
	}
	if !ok {
		return fmt.Errorf("redis store: journey %s already exists", j.ID)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, s.userKey(j.UserID), redis.Z{
		Score:  float64(j.CreatedAt.UnixMilli()),
		Member: string(j.ID),
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.userKey(j.UserID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store: index journey %s: %w", j.ID, err)
	}
	return nil
}

func (s *Store) SaveJourney(ctx context.Context, j *domain.Journey) error {
	body, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("redis store: encode journey: %w", err)
	}

	ok, err := s.client.SetXX(ctx, s.journeyKey(j.ID), body, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis store: save journey %s: %w", j.ID, err)
	}
	if !ok {
		return fmt.Errorf("journey %s: %w", j.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) GetJourney(ctx context.Context, id domain.JourneyID) (*domain.Journey, error) {
	body, err := s.client.Get(ctx, s.journeyKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("journey %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis store: get journey %s: %w", id, err)
	}

	var j domain.Journey
	if err := json.Unmarshal(body, &j); err != nil {
		return nil, fmt.Errorf("redis store: decode journey %s: %w", id, err)
	}
	return &j, nil
}

// ListJourneysByUser returns the user's journeys, newest first. Index
// entries whose journey has expired are skipped.
func (s *Store) ListJourneysByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Journey, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.userKey(userID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: list journeys: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.journeyKey(domain.JourneyID(id))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: load journeys: %w", err)
	}

	out := make([]*domain.Journey, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var j domain.Journey
		if err := json.Unmarshal([]byte(str), &j); err != nil {
			return nil, fmt.Errorf("redis store: decode journey: %w", err)
		}
		out = append(out, &j)
	}
	return out, nil
}
