package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/farum-journey/internal/app/journal"
	"github.com/PabloGalante/farum-journey/internal/app/journey"
	"github.com/PabloGalante/farum-journey/internal/app/presentation"
	"github.com/PabloGalante/farum-journey/internal/clock"
	"github.com/PabloGalante/farum-journey/internal/domain"
	"github.com/PabloGalante/farum-journey/internal/observability"
)

type Options struct {
	// RevealTick is the typewriter interval on the reveal socket.
	RevealTick time.Duration
	// RevealPoll is how often the reveal socket checks for newer advice.
	RevealPoll time.Duration
	Clock      clock.Clock
}

type Server struct {
	journeys  *journey.Service
	journal   *journal.Service
	generator domain.SuggestionClient
	opts      Options
}

// NewServer wires the routes. generator backs POST /api/generate and may be
// nil, in which case the endpoint answers 503.
func NewServer(journeys *journey.Service, journalSvc *journal.Service, generator domain.SuggestionClient, opts Options) http.Handler {
	if opts.RevealPoll <= 0 {
		opts.RevealPoll = 500 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	s := &Server{journeys: journeys, journal: journalSvc, generator: generator, opts: opts}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /api/generate → text generation (POST)
	mux.HandleFunc("/api/generate", s.handleGenerate)

	// /journeys → create journey (POST)
	mux.HandleFunc("/journeys", s.handleJourneys)

	// /journeys/{id}                           → GET, PATCH
	// /journeys/{id}/scores/{category}         → PUT
	// /journeys/{id}/adjustment                → PUT
	// /journeys/{id}/advance, /retreat         → POST
	// /journeys/{id}/export.pdf                → GET
	// /journeys/{id}/advice/{category}/reveal  → GET (websocket)
	mux.HandleFunc("/journeys/", s.handleJourneyWithID)

	// /users/{id}/journeys          → GET
	// /users/{id}/journal           → GET
	// /users/{id}/journal/overview  → GET
	mux.HandleFunc("/users/", s.handleUsers)

	mux.HandleFunc("/styles/reveal.css", s.handleStylesheet)

	return chainMiddlewares(mux, withCORS, withLogging)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createJourneyRequest struct {
	UserID string `json:"user_id"`
}

type patchJourneyRequest struct {
	Goal            *string  `json:"goal,omitempty"`
	TargetDate      *string  `json:"target_date,omitempty"`
	CurrentPosition *int     `json:"current_position,omitempty"`
	ToggleSensation []string `json:"toggle_sensation,omitempty"`
}

type scoreRequest struct {
	Score *int `json:"score"`
}

type adjustmentRequest struct {
	Scale          *int `json:"scale,omitempty"`
	LetterPosition *int `json:"letter_position,omitempty"`
}

type blockedResponse struct {
	Error   string            `json:"error"`
	Journey *journey.Snapshot `json:"journey"`
}

type journeysResponse struct {
	UserID   string            `json:"user_id"`
	Journeys []*domain.Journey `json:"journeys"`
}

type journalResponse struct {
	UserID  string                 `json:"user_id"`
	Entries []*domain.JournalEntry `json:"entries"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /journeys
func (s *Server) handleJourneys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJourney(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleJourneyWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/journeys/")
	parts := strings.Split(path, "/")
	id := domain.JourneyID(parts[0])
	if id == "" {
		http.NotFound(w, r)
		return
	}
	r = r.WithContext(observability.WithJourneyID(r.Context(), string(id)))

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			s.handleGetJourney(w, r, id)
		case http.MethodPatch:
			s.handlePatchJourney(w, r, id)
		default:
			methodNotAllowed(w)
		}

	case len(parts) == 3 && parts[1] == "scores":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		s.handleSetScore(w, r, id, domain.Category(parts[2]))

	case len(parts) == 2 && parts[1] == "adjustment":
		if r.Method != http.MethodPut {
			methodNotAllowed(w)
			return
		}
		s.handleSetAdjustment(w, r, id)

	case len(parts) == 2 && (parts[1] == "advance" || parts[1] == "retreat"):
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if parts[1] == "advance" {
			s.handleAdvance(w, r, id)
		} else {
			s.handleRetreat(w, r, id)
		}

	case len(parts) == 2 && parts[1] == "export.pdf":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleExport(w, r, id)

	case len(parts) == 4 && parts[1] == "advice" && parts[3] == "reveal":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleReveal(w, r, id, domain.Category(parts[2]))

	default:
		http.NotFound(w, r)
	}
}

// /users/{id}/journeys, /users/{id}/journal and /users/{id}/journal/overview
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	userID := domain.UserID(parts[0])

	var handle func(http.ResponseWriter, *http.Request, domain.UserID, int)
	switch {
	case len(parts) == 2 && parts[1] == "journeys":
		handle = s.handleUserJourneys
	case len(parts) == 2 && parts[1] == "journal":
		handle = s.handleUserJournal
	case len(parts) == 3 && parts[1] == "journal" && parts[2] == "overview":
		handle = s.handleUserOverview
	default:
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	handle(w, r, userID, limit)
}

func (s *Server) handleUserJourneys(w http.ResponseWriter, r *http.Request, userID domain.UserID, limit int) {
	journeys, err := s.journeys.ListByUser(r.Context(), userID, limit)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, journeysResponse{UserID: string(userID), Journeys: journeys})
}

func (s *Server) handleUserJournal(w http.ResponseWriter, r *http.Request, userID domain.UserID, limit int) {
	entries, err := s.journal.GetUserJournal(r.Context(), userID, limit)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, journalResponse{UserID: string(userID), Entries: entries})
}

func (s *Server) handleUserOverview(w http.ResponseWriter, r *http.Request, userID domain.UserID, limit int) {
	ov, err := s.journal.UserOverview(r.Context(), userID, limit)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	css := presentation.Stylesheet()
	if css == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(css))
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateJourney(w http.ResponseWriter, r *http.Request) {
	var req createJourneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		badRequest(w, "user_id is required")
		return
	}

	snap, err := s.journeys.Create(r.Context(), domain.UserID(req.UserID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetJourney(w http.ResponseWriter, r *http.Request, id domain.JourneyID) {
	snap, err := s.journeys.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePatchJourney(w http.ResponseWriter, r *http.Request, id domain.JourneyID) {
	var req patchJourneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	patch := journey.Patch{
		Goal:             req.Goal,
		CurrentPosition:  req.CurrentPosition,
		ToggleSensations: req.ToggleSensation,
	}
	if req.TargetDate != nil {
		t, err := parseDate(*req.TargetDate)
		if err != nil {
			badRequest(w, "target_date must be YYYY-MM-DD or RFC 3339")
			return
		}
		patch.TargetDate = &t
	}

	snap, err := s.journeys.Update(r.Context(), id, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSetScore(w http.ResponseWriter, r *http.Request, id domain.JourneyID, cat domain.Category) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Score == nil {
		badRequest(w, "score is required")
		return
	}

	snap, err := s.journeys.SetScore(r.Context(), id, cat, *req.Score)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSetAdjustment(w http.ResponseWriter, r *http.Request, id domain.JourneyID) {
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.Scale == nil && req.LetterPosition == nil {
		badRequest(w, "scale or letter_position is required")
		return
	}

	snap, err := s.journeys.SetAdjustment(r.Context(), id, req.Scale, req.LetterPosition)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request, id domain.JourneyID) {
	snap, err := s.journeys.Advance(r.Context(), id)
	if errors.Is(err, domain.ErrGoalRequired) && snap != nil {
		writeJSON(w, http.StatusUnprocessableEntity, blockedResponse{Error: snap.Notice, Journey: snap})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request, id domain.JourneyID) {
	snap, err := s.journeys.Retreat(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleExport fills in missing advice first unless ?summarize=false.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, id domain.JourneyID) {
	ctx := r.Context()

	if r.URL.Query().Get("summarize") != "false" {
		if _, err := s.journeys.Summarize(ctx, id); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := s.journeys.Export(ctx, id, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", s.journeys.ExportContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="journey-%s.pdf"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// writeError maps domain errors to status codes. Anything unknown is a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "journey not found"})
	case errors.Is(err, domain.ErrOutOfRange), errors.Is(err, domain.ErrUnknownCategory):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrGoalRequired):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": journey.GoalRequiredMessage})
	default:
		internalError(w, r, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
