package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

type Store struct {
	client *firestore.Client
}

var (
	_ domain.JourneyStore = &Store{}
	_ domain.JournalStore = &Store{}
)

// NewStore creates a Firestore store for projectID.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) journeysCol() *firestore.CollectionRef {
	return s.client.Collection("journeys")
}

func (s *Store) journeyDoc(id domain.JourneyID) *firestore.DocumentRef {
	return s.journeysCol().Doc(string(id))
}

func (s *Store) journalCol() *firestore.CollectionRef {
	return s.client.Collection("journal_entries")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type adjustmentDoc struct {
	Scale          int    `firestore:"scale"`
	LetterPosition int    `firestore:"letter_position"`
	AIResponse     string `firestore:"ai_response"`
}

type journeyDoc struct {
	UserID          string            `firestore:"user_id"`
	CreatedAt       time.Time         `firestore:"created_at"`
	UpdatedAt       time.Time         `firestore:"updated_at"`
	Goal            string            `firestore:"goal"`
	TargetDate      *time.Time        `firestore:"target_date"`
	DaysUntilTarget int               `firestore:"days_until_target"`
	CurrentPosition int               `firestore:"current_position"`
	Sensations      []string          `firestore:"sensations"`
	LikertScores    map[string]int    `firestore:"likert_scores"`
	LatestAIAdvice  map[string]string `firestore:"latest_ai_advice"`
	Adjustment      adjustmentDoc     `firestore:"adjustment"`
	Step            int               `firestore:"step"`
	Completed       bool              `firestore:"completed"`
}

type journalDoc struct {
	JourneyID      string    `firestore:"journey_id"`
	UserID         string    `firestore:"user_id"`
	CreatedAt      time.Time `firestore:"created_at"`
	Goal           string    `firestore:"goal"`
	TargetDate     string    `firestore:"target_date"`
	PositionLetter string    `firestore:"position_letter"`
	LowestCategory string    `firestore:"lowest_category"`
	AdviceCount    int       `firestore:"advice_count"`
	AdjustedScale  int       `firestore:"adjusted_scale"`
	Sensations     []string  `firestore:"sensations"`
}

func toJourneyDoc(j *domain.Journey) journeyDoc {
	scores := make(map[string]int, len(j.LikertScores))
	for k, v := range j.LikertScores {
		scores[string(k)] = v
	}
	advice := make(map[string]string, len(j.LatestAIAdvice))
	for k, v := range j.LatestAIAdvice {
		advice[string(k)] = v
	}
	return journeyDoc{
		UserID:          string(j.UserID),
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
		Goal:            j.Goal,
		TargetDate:      j.TargetDate,
		DaysUntilTarget: j.DaysUntilTarget,
		CurrentPosition: j.CurrentPosition,
		Sensations:      j.Sensations(),
		LikertScores:    scores,
		LatestAIAdvice:  advice,
		Adjustment: adjustmentDoc{
			Scale:          j.Adjustment.Scale,
			LetterPosition: j.Adjustment.LetterPosition,
			AIResponse:     j.Adjustment.AIResponse,
		},
		Step:      j.Step,
		Completed: j.Completed,
	}
}

func fromJourneyDoc(id string, doc journeyDoc) *domain.Journey {
	j := &domain.Journey{
		ID:                 domain.JourneyID(id),
		UserID:             domain.UserID(doc.UserID),
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
		Goal:               doc.Goal,
		TargetDate:         doc.TargetDate,
		DaysUntilTarget:    doc.DaysUntilTarget,
		CurrentPosition:    doc.CurrentPosition,
		SelectedSensations: make(map[string]struct{}, len(doc.Sensations)),
		LikertScores:       make(map[domain.Category]int, len(doc.LikertScores)),
		LatestAIAdvice:     make(map[domain.Category]string, len(doc.LatestAIAdvice)),
		Adjustment: domain.Adjustment{
			Scale:          doc.Adjustment.Scale,
			LetterPosition: doc.Adjustment.LetterPosition,
			AIResponse:     doc.Adjustment.AIResponse,
		},
		Step:      doc.Step,
		Completed: doc.Completed,
	}
	for _, s := range doc.Sensations {
		j.SelectedSensations[s] = struct{}{}
	}
	for k, v := range doc.LikertScores {
		j.LikertScores[domain.Category(k)] = v
	}
	for k, v := range doc.LatestAIAdvice {
		j.LatestAIAdvice[domain.Category(k)] = v
	}
	j.Normalize()
	return j
}

// ─────────────────────────────────────────
// JourneyStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateJourney(ctx context.Context, j *domain.Journey) error {
	_, err := s.journeyDoc(j.ID).Create(ctx, toJourneyDoc(j))
	if err != nil {
		return fmt.Errorf("firestore CreateJourney: %w", err)
	}
	return nil
}

// SaveJourney replaces the document of an existing journey.
func (s *Store) SaveJourney(ctx context.Context, j *domain.Journey) error {
	ref := s.journeyDoc(j.ID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, toJourneyDoc(j))
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("journey %s: %w", j.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("firestore SaveJourney: %w", err)
	}
	return nil
}

func (s *Store) GetJourney(ctx context.Context, id domain.JourneyID) (*domain.Journey, error) {
	snap, err := s.journeyDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("journey %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("firestore GetJourney: %w", err)
	}

	var doc journeyDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetJourney decode: %w", err)
	}
	return fromJourneyDoc(snap.Ref.ID, doc), nil
}

func (s *Store) ListJourneysByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Journey, error) {
	q := s.journeysCol().Where("user_id", "==", string(userID)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Journey
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListJourneysByUser: %w", err)
		}

		var doc journeyDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode journeyDoc: %w", err)
		}
		out = append(out, fromJourneyDoc(snap.Ref.ID, doc))
	}
	return out, nil
}

// ─────────────────────────────────────────
// JournalStore implementation
// ─────────────────────────────────────────

func (s *Store) AppendJournalEntry(ctx context.Context, entry *domain.JournalEntry) error {
	if entry == nil {
		return nil
	}

	doc := journalDoc{
		JourneyID:      string(entry.JourneyID),
		UserID:         string(entry.UserID),
		CreatedAt:      entry.CreatedAt,
		Goal:           entry.Goal,
		TargetDate:     entry.TargetDate,
		PositionLetter: entry.PositionLetter,
		LowestCategory: entry.LowestCategory,
		AdviceCount:    entry.AdviceCount,
		AdjustedScale:  entry.AdjustedScale,
		Sensations:     entry.Sensations,
	}

	ref := s.journalCol().NewDoc()
	if entry.ID != "" {
		ref = s.journalCol().Doc(string(entry.ID))
	}
	if _, err := ref.Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendJournalEntry: %w", err)
	}
	entry.ID = domain.JournalEntryID(ref.ID)
	return nil
}

// ListJournalEntriesByUser returns the newest `limit` entries, oldest first.
func (s *Store) ListJournalEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	q := s.journalCol().Where("user_id", "==", string(userID)).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []*domain.JournalEntry{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListJournalEntriesByUser: %w", err)
		}

		var doc journalDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode journalDoc: %w", err)
		}
		out = append(out, &domain.JournalEntry{
			ID:             domain.JournalEntryID(snap.Ref.ID),
			JourneyID:      domain.JourneyID(doc.JourneyID),
			UserID:         domain.UserID(doc.UserID),
			CreatedAt:      doc.CreatedAt,
			Goal:           doc.Goal,
			TargetDate:     doc.TargetDate,
			PositionLetter: doc.PositionLetter,
			LowestCategory: doc.LowestCategory,
			AdviceCount:    doc.AdviceCount,
			AdjustedScale:  doc.AdjustedScale,
			Sensations:     doc.Sensations,
		})
	}

	for i, k := 0, len(out)-1; i < k; i, k = i+1, k-1 {
		out[i], out[k] = out[k], out[i]
	}
	return out, nil
}
