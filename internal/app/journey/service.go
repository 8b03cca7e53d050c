package journey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/farum-journey/internal/app/suggestion"
	"github.com/PabloGalante/farum-journey/internal/app/tools"
	"github.com/PabloGalante/farum-journey/internal/clock"
	"github.com/PabloGalante/farum-journey/internal/domain"
	"github.com/PabloGalante/farum-journey/internal/observability"
)

type Options struct {
	Clock clock.Clock
	// AlignmentDelay and AdjustmentDelay are the debounce windows for the
	// alignment sliders and the belief-adjustment controls.
	AlignmentDelay  time.Duration
	AdjustmentDelay time.Duration
	// FetchTimeout bounds one suggestion call. Zero means no timeout.
	FetchTimeout time.Duration
	// SummaryConcurrency caps parallel calls made by Summarize.
	SummaryConcurrency int
}

// Service owns the live journeys. Each journey has its own lock; suggestion
// results land on timer goroutines and take the same lock before touching
// the record.
type Service struct {
	store       domain.JourneyStore
	client      domain.SuggestionClient
	journalTool tools.Tool
	exporter    domain.Exporter
	opts        Options

	mu       sync.Mutex
	sessions map[domain.JourneyID]*session
}

type session struct {
	mu         sync.Mutex
	flow       *Flow
	adjustment *Adjustment
	alignment  *suggestion.Fetcher
	adjust     *suggestion.Fetcher
	// Requests made while a change is applied wait here until it is saved.
	alignQ   *heldRequests
	adjustQ  *heldRequests
	finished bool
	notice   string
	exited   bool
}

// heldRequests queues fetch requests until the change that caused them has
// been stored. Guarded by the session lock.
type heldRequests struct {
	target Requester
	ops    []func()
}

func (h *heldRequests) Request(key string, req domain.SuggestionRequest) {
	h.ops = append(h.ops, func() { h.target.Request(key, req) })
}

func (h *heldRequests) Cancel(key string) {
	h.ops = append(h.ops, func() { h.target.Cancel(key) })
}

func (h *heldRequests) flush() {
	ops := h.ops
	h.ops = nil
	for _, op := range ops {
		op()
	}
}

// begin marks the start of a change and returns a copy to roll back to.
func (sess *session) begin() *domain.Journey {
	sess.notice = ""
	sess.finished = false
	return sess.flow.Record().Clone()
}

// commit sends the queued requests and hands back a completed record, if
// this change completed the journey.
func (sess *session) commit() *domain.Journey {
	sess.alignQ.flush()
	sess.adjustQ.flush()
	if !sess.finished {
		return nil
	}
	sess.finished = false
	return sess.flow.Record().Clone()
}

// rollback restores the record in place and drops the queued requests.
func (sess *session) rollback(before *domain.Journey) {
	*sess.flow.Record() = *before
	sess.alignQ.ops = nil
	sess.adjustQ.ops = nil
	sess.finished = false
}

func NewService(
	store domain.JourneyStore,
	client domain.SuggestionClient,
	journalTool tools.Tool,
	exporter domain.Exporter,
	opts Options,
) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.SummaryConcurrency <= 0 {
		opts.SummaryConcurrency = 3
	}
	return &Service{
		store:       store,
		client:      client,
		journalTool: journalTool,
		exporter:    exporter,
		opts:        opts,
		sessions:    make(map[domain.JourneyID]*session),
	}
}

// Snapshot is a consistent copy of a journey plus its fetch state.
type Snapshot struct {
	Journey   *domain.Journey              `json:"journey"`
	Step      string                       `json:"step"`
	StepIndex int                          `json:"step_index"`
	StepCount int                          `json:"step_count"`
	MaxLetter int                          `json:"max_letter_position"`
	Fetch     map[string]suggestion.Status `json:"fetch"`
	Notice    string                       `json:"notice,omitempty"`
	Exited    bool                         `json:"exited"`
}

// Patch holds the main-flow fields a client may change in one call.
type Patch struct {
	Goal             *string
	TargetDate       *time.Time
	CurrentPosition  *int
	ToggleSensations []string
}

func (s *Service) Create(ctx context.Context, userID domain.UserID) (*Snapshot, error) {
	log := observability.LoggerFromContext(ctx).With("user_id", userID)

	j := domain.NewJourney(domain.JourneyID(uuid.NewString()), userID, s.opts.Clock.Now())
	if err := s.store.CreateJourney(ctx, j); err != nil {
		log.Error("failed to create journey", "error", err)
		return nil, err
	}

	sess := s.newSession(j)
	s.mu.Lock()
	s.sessions[j.ID] = sess
	s.mu.Unlock()

	log.Info("journey started", "journey_id", j.ID)
	return s.snapshot(sess), nil
}

func (s *Service) Get(ctx context.Context, id domain.JourneyID) (*Snapshot, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(sess), nil
}

// Update applies a patch. Invalid fields abort the whole patch.
func (s *Service) Update(ctx context.Context, id domain.JourneyID, p Patch) (*Snapshot, error) {
	if p.CurrentPosition != nil && (*p.CurrentPosition < 0 || *p.CurrentPosition > domain.MaxPosition) {
		return nil, fmt.Errorf("current position %d: %w", *p.CurrentPosition, domain.ErrOutOfRange)
	}
	return s.mutate(ctx, id, func(sess *session) error {
		if p.Goal != nil {
			sess.flow.SetGoal(*p.Goal)
		}
		if p.TargetDate != nil {
			sess.flow.SetTargetDate(*p.TargetDate)
		}
		if p.CurrentPosition != nil {
			if err := sess.flow.SetCurrentPosition(*p.CurrentPosition); err != nil {
				return err
			}
		}
		for _, t := range p.ToggleSensations {
			sess.flow.ToggleSensation(t)
		}
		return nil
	})
}

func (s *Service) SetScore(ctx context.Context, id domain.JourneyID, cat domain.Category, score int) (*Snapshot, error) {
	return s.mutate(ctx, id, func(sess *session) error {
		return sess.flow.SetLikertScore(cat, score)
	})
}

// SetAdjustment applies scale and letter together. The letter is checked
// against the new scale and nothing changes unless both are valid.
func (s *Service) SetAdjustment(ctx context.Context, id domain.JourneyID, scale, letter *int) (*Snapshot, error) {
	return s.mutate(ctx, id, func(sess *session) error {
		return sess.adjustment.Set(scale, letter)
	})
}

// Advance returns domain.ErrGoalRequired with the snapshot (carrying the
// notice) when the goal step blocks the transition.
func (s *Service) Advance(ctx context.Context, id domain.JourneyID) (*Snapshot, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	before := sess.begin()
	advErr := sess.flow.Advance(ctx)
	var (
		saveErr  error
		finished *domain.Journey
	)
	if advErr == nil {
		if saveErr = s.store.SaveJourney(ctx, sess.flow.Record().Clone()); saveErr != nil {
			sess.rollback(before)
		} else {
			finished = sess.commit()
		}
	}
	sess.mu.Unlock()

	if saveErr != nil {
		observability.LoggerFromContext(ctx).Error("failed to save journey", "journey_id", id, "error", saveErr)
		return nil, saveErr
	}
	if finished != nil {
		s.complete(ctx, finished)
	}
	return s.snapshot(sess), advErr
}

func (s *Service) Retreat(ctx context.Context, id domain.JourneyID) (*Snapshot, error) {
	return s.mutate(ctx, id, func(sess *session) error {
		sess.flow.Retreat(ctx)
		return nil
	})
}

const defaultListLimit = 20

// ListByUser returns a user's journeys, newest first. Journeys live in this
// process are reported from memory. A non-positive limit means 20.
func (s *Service) ListByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Journey, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	stored, err := s.store.ListJourneysByUser(ctx, userID, limit)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to list journeys", "user_id", userID, "error", err)
		return nil, err
	}

	out := make([]*domain.Journey, 0, len(stored))
	for _, j := range stored {
		s.mu.Lock()
		sess, ok := s.sessions[j.ID]
		s.mu.Unlock()
		if ok {
			sess.mu.Lock()
			j = sess.flow.Record().Clone()
			sess.mu.Unlock()
		}
		out = append(out, j)
	}
	return out, nil
}

// Summarize fetches advice, in parallel, for every low-scored category that
// has none yet. Failed calls leave their category without advice.
func (s *Service) Summarize(ctx context.Context, id domain.JourneyID) (*Snapshot, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	log := observability.LoggerFromContext(ctx).With("journey_id", id)

	sess.mu.Lock()
	reqs := make(map[domain.Category]domain.SuggestionRequest)
	for _, c := range domain.Categories {
		rec := sess.flow.Record()
		if rec.LikertScores[c] <= domain.AdviceThreshold && rec.LatestAIAdvice[c] == "" {
			reqs[c] = sess.flow.AlignmentRequest(c)
		}
	}
	sess.mu.Unlock()

	var (
		resMu   sync.Mutex
		results = make(map[domain.Category]string, len(reqs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.SummaryConcurrency)
	for cat, req := range reqs {
		g.Go(func() error {
			text, err := s.client.Suggest(gctx, req)
			if err != nil {
				log.Warn("summary suggestion failed", "category", cat, "error", err)
				return nil
			}
			resMu.Lock()
			results[cat] = text
			resMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return s.mutate(ctx, id, func(sess *session) error {
		for cat, text := range results {
			if sess.flow.Record().LatestAIAdvice[cat] == "" {
				sess.flow.ApplyAdvice(cat, text)
			}
		}
		return nil
	})
}

// Export writes the document for the journey to w.
func (s *Service) Export(ctx context.Context, id domain.JourneyID, w io.Writer) error {
	if s.exporter == nil {
		return errors.New("no exporter configured")
	}
	sess, err := s.session(ctx, id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	rec := sess.flow.Record().Clone()
	sess.mu.Unlock()

	return s.exporter.Export(ctx, w, rec)
}

// ExportContentType is the media type Export writes.
func (s *Service) ExportContentType() string {
	if s.exporter == nil {
		return "application/octet-stream"
	}
	return s.exporter.ContentType()
}

// Advice returns the latest advice for a category.
func (s *Service) Advice(ctx context.Context, id domain.JourneyID, cat domain.Category) (string, error) {
	if !cat.Valid() {
		return "", fmt.Errorf("category %q: %w", cat, domain.ErrUnknownCategory)
	}
	sess, err := s.session(ctx, id)
	if err != nil {
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.flow.Record().LatestAIAdvice[cat], nil
}

// Wait blocks until the suggestion calls already sent for the journey have
// returned. Pending debounced calls are not waited for.
func (s *Service) Wait(id domain.JourneyID) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		sess.alignment.Wait()
		sess.adjust.Wait()
	}
}

// Close stops every live journey's fetchers.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[domain.JourneyID]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.alignment.Close()
		sess.adjust.Close()
	}
}

func (s *Service) mutate(ctx context.Context, id domain.JourneyID, fn func(*session) error) (*Snapshot, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	before := sess.begin()
	exited := sess.exited
	sess.exited = false
	if err := fn(sess); err != nil {
		sess.rollback(before)
		sess.exited = exited
		sess.mu.Unlock()
		return nil, err
	}
	if err := s.store.SaveJourney(ctx, sess.flow.Record().Clone()); err != nil {
		sess.rollback(before)
		sess.exited = exited
		sess.mu.Unlock()
		observability.LoggerFromContext(ctx).Error("failed to save journey", "journey_id", id, "error", err)
		return nil, err
	}
	sess.commit()
	sess.mu.Unlock()

	return s.snapshot(sess), nil
}

// session returns the live session for id, loading it from the store when
// this process has not seen it yet.
func (s *Service) session(ctx context.Context, id domain.JourneyID) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	j, err := s.store.GetJourney(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	sess = s.newSession(j)
	s.sessions[id] = sess
	observability.LoggerFromContext(ctx).Info("journey restored", "journey_id", id)
	return sess, nil
}

func (s *Service) newSession(j *domain.Journey) *session {
	sess := &session{}
	now := s.opts.Clock.Now

	sess.alignment = suggestion.NewFetcher(s.client, func(key, text string) {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.flow.ApplyAdvice(domain.Category(key), text) {
			s.persistResult(sess.flow.Record().Clone())
		}
	}, suggestion.Options{Clock: s.opts.Clock, Delay: s.opts.AlignmentDelay, Timeout: s.opts.FetchTimeout})

	sess.adjust = suggestion.NewFetcher(s.client, func(_, text string) {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		sess.adjustment.ApplyResponse(text)
		s.persistResult(sess.flow.Record().Clone())
	}, suggestion.Options{Clock: s.opts.Clock, Delay: s.opts.AdjustmentDelay, Timeout: s.opts.FetchTimeout})

	hooks := Hooks{
		OnBack: func(ctx context.Context) {
			sess.exited = true
			observability.LoggerFromContext(ctx).Info("left journey from first step", "journey_id", j.ID)
		},
		// The journal is written by Advance once the completed record is saved.
		OnComplete: func(context.Context, *domain.Journey) {
			sess.finished = true
		},
		Notify: func(_ context.Context, msg string) {
			sess.notice = msg
		},
	}

	sess.alignQ = &heldRequests{target: sess.alignment}
	sess.adjustQ = &heldRequests{target: sess.adjust}
	sess.flow = NewFlow(j, sess.alignQ, hooks, now)
	sess.adjustment = NewAdjustment(j, sess.adjustQ, now)
	return sess
}

func (s *Service) complete(ctx context.Context, j *domain.Journey) {
	if s.journalTool == nil {
		return
	}
	log := observability.LoggerFromContext(ctx).With("journey_id", j.ID)
	tctx := tools.ToolContext{
		UserID:    string(j.UserID),
		JourneyID: string(j.ID),
		RequestID: observability.RequestID(ctx),
	}
	if _, err := s.journalTool.Call(ctx, tctx, tools.JourneySummary(j)); err != nil {
		log.Error("failed to write journal entry", "error", err)
		return
	}
	log.Info("journal entry written", "tool", s.journalTool.Name())
}

// persistResult saves a suggestion that arrived outside any request.
func (s *Service) persistResult(j *domain.Journey) {
	if err := s.store.SaveJourney(context.Background(), j); err != nil {
		observability.Logger().Error("failed to save suggestion", "journey_id", j.ID, "error", err)
	}
}

func (s *Service) snapshot(sess *session) *Snapshot {
	sess.mu.Lock()
	snap := &Snapshot{
		Journey:   sess.flow.Record().Clone(),
		Step:      sess.flow.Step().String(),
		StepIndex: sess.flow.Index(),
		StepCount: sess.flow.Len(),
		MaxLetter: sess.adjustment.MaxLetterPosition(),
		Notice:    sess.notice,
		Exited:    sess.exited,
	}
	sess.mu.Unlock()

	// Fetcher state is read outside the session lock: result callbacks take
	// the session lock while holding the fetcher's.
	snap.Fetch = sess.alignment.Statuses()
	if st, ok := sess.adjust.Statuses()[AdjustmentKey]; ok {
		snap.Fetch[AdjustmentKey] = st
	}
	return snap
}
