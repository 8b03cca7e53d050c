package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-journey/internal/adapters/export"
	httpadapter "github.com/PabloGalante/farum-journey/internal/adapters/http"
	"github.com/PabloGalante/farum-journey/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-journey/internal/app/journal"
	"github.com/PabloGalante/farum-journey/internal/app/journey"
	"github.com/PabloGalante/farum-journey/internal/app/presentation"
	"github.com/PabloGalante/farum-journey/internal/app/suggestion"
	"github.com/PabloGalante/farum-journey/internal/app/tools"
	"github.com/PabloGalante/farum-journey/internal/app/typewriter"
	"github.com/PabloGalante/farum-journey/internal/clock"
	"github.com/PabloGalante/farum-journey/internal/domain"
)

type stubClient struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []domain.SuggestionRequest
}

func (c *stubClient) Suggest(_ context.Context, req domain.SuggestionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)
	return c.reply, c.err
}

func (c *stubClient) set(reply string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reply, c.err = reply, err
}

type testEnv struct {
	handler http.Handler
	svc     *journey.Service
	clock   *clock.Manual
	client  *stubClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	c := clock.NewManual(time.Now())
	client := &stubClient{reply: "Start with a small pilot."}
	journals := memory.NewJournalStore()

	svc := journey.NewService(memory.NewJourneyStore(), client, tools.NewJournalTool(journals),
		export.NewPDFExporter(), journey.Options{Clock: c})
	t.Cleanup(svc.Close)

	h := httpadapter.NewServer(svc, journal.NewService(journals), client, httpadapter.Options{
		RevealTick: time.Millisecond,
		RevealPoll: 10 * time.Millisecond,
	})
	return &testEnv{handler: h, svc: svc, clock: c, client: client}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) create(t *testing.T) domain.JourneyID {
	t.Helper()
	w := e.do(t, http.MethodPost, "/journeys", `{"user_id":"test-user"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[journey.Snapshot](t, w).Journey.ID
}

func (e *testEnv) settle(id domain.JourneyID) {
	e.clock.Advance(time.Second)
	e.svc.Wait(id)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodOptions, "/journeys", "")

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateRequiresUser(t *testing.T) {
	env := newTestEnv(t)

	require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/journeys", `{}`).Code)
	require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/journeys", `nope`).Code)
	require.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodGet, "/journeys", "").Code)
}

func TestJourneyFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t)
	base := "/journeys/" + string(id)

	w := env.do(t, http.MethodPost, base+"/advance", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	blocked := decode[struct {
		Error   string           `json:"error"`
		Journey journey.Snapshot `json:"journey"`
	}](t, w)
	require.Equal(t, journey.GoalRequiredMessage, blocked.Error)
	require.Equal(t, 0, blocked.Journey.StepIndex)

	target := time.Now().AddDate(0, 0, 30).Format(time.RFC3339)
	w = env.do(t, http.MethodPatch, base, `{"goal":"Launch new product line","target_date":"`+target+`","current_position":4,"toggle_sensation":["calm"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[journey.Snapshot](t, w)
	require.Equal(t, "Launch new product line", snap.Journey.Goal)
	require.Equal(t, []string{"calm"}, snap.Journey.Sensations())
	require.Equal(t, 4, snap.Journey.CurrentPosition)

	w = env.do(t, http.MethodPut, base+"/scores/safety", `{"score":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env.settle(id)

	w = env.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[journey.Snapshot](t, w)
	require.Equal(t, "Start with a small pilot.", snap.Journey.LatestAIAdvice[domain.CategorySafety])
	require.Nil(t, snap.Fetch["safety"].Error)
	require.False(t, snap.Fetch["safety"].Loading)

	for i := 0; i < len(journey.MainSteps); i++ {
		w = env.do(t, http.MethodPost, base+"/advance", "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	require.True(t, decode[journey.Snapshot](t, w).Journey.Completed)

	w = env.do(t, http.MethodPost, base+"/retreat", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "reflection", decode[journey.Snapshot](t, w).Step)

	w = env.do(t, http.MethodGet, "/users/test-user/journal", "")
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[struct {
		Entries []domain.JournalEntry `json:"entries"`
	}](t, w).Entries
	require.Len(t, entries, 1)
	require.Equal(t, "Launch new product line", entries[0].Goal)
	require.Equal(t, "safety", entries[0].LowestCategory)

	w = env.do(t, http.MethodGet, "/users/test-user/journal/overview", "")
	require.Equal(t, http.StatusOK, w.Code)
	ov := decode[journal.Overview](t, w)
	require.Equal(t, 1, ov.Completed)
	require.Equal(t, "safety", ov.RecurringLow)

	w = env.do(t, http.MethodGet, "/users/test-user/journal/other", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListUserJourneys(t *testing.T) {
	env := newTestEnv(t)
	first := env.create(t)
	second := env.create(t)

	w := env.do(t, http.MethodPatch, "/journeys/"+string(second), `{"goal":"Learn to sail"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/users/test-user/journeys", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[struct {
		UserID   string           `json:"user_id"`
		Journeys []domain.Journey `json:"journeys"`
	}](t, w)
	require.Equal(t, "test-user", got.UserID)
	require.Len(t, got.Journeys, 2)

	goals := map[domain.JourneyID]string{}
	for _, j := range got.Journeys {
		goals[j.ID] = j.Goal
	}
	require.Equal(t, "", goals[first])
	require.Equal(t, "Learn to sail", goals[second])

	w = env.do(t, http.MethodGet, "/users/test-user/journeys?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decode[struct {
		Journeys []domain.Journey `json:"journeys"`
	}](t, w).Journeys, 1)

	w = env.do(t, http.MethodGet, "/users/nobody/journeys", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"user_id":"nobody","journeys":[]}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/users/test-user/journeys?limit=-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/users/test-user/journeys", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestFetchFailureIsReportedInSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.client.set("", errors.New("text generation returned 500"))
	id := env.create(t)

	w := env.do(t, http.MethodPut, "/journeys/"+string(id)+"/scores/belief", `{"score":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	env.settle(id)

	snap := decode[journey.Snapshot](t, env.do(t, http.MethodGet, "/journeys/"+string(id), ""))
	require.Empty(t, snap.Journey.LatestAIAdvice)
	require.False(t, snap.Fetch["belief"].Loading)
	require.NotNil(t, snap.Fetch["belief"].Error)
	require.Equal(t, suggestion.FailureMessage, *snap.Fetch["belief"].Error)
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t)
	base := "/journeys/" + string(id)

	require.Equal(t, http.StatusUnprocessableEntity, env.do(t, http.MethodPut, base+"/scores/safety", `{"score":6}`).Code)
	require.Equal(t, http.StatusUnprocessableEntity, env.do(t, http.MethodPut, base+"/scores/courage", `{"score":2}`).Code)
	require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, base+"/scores/safety", `{}`).Code)
	require.Equal(t, http.StatusUnprocessableEntity, env.do(t, http.MethodPatch, base, `{"current_position":26}`).Code)
	require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPatch, base, `{"target_date":"soon"}`).Code)
	require.Equal(t, http.StatusUnprocessableEntity, env.do(t, http.MethodPut, base+"/adjustment", `{"scale":55}`).Code)
	require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, base+"/adjustment", `{}`).Code)
	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/journeys/missing", "").Code)
	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, base+"/unknown", "").Code)
	require.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodDelete, base, "").Code)
}

func TestAdjustmentOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.client.set("Keep half and aim for letter F.", nil)
	id := env.create(t)
	base := "/journeys/" + string(id)

	w := env.do(t, http.MethodPut, base+"/adjustment", `{"scale":50,"letter_position":5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	snap := decode[journey.Snapshot](t, w)
	require.Equal(t, 12, snap.MaxLetter)
	require.Equal(t, 5, snap.Journey.Adjustment.LetterPosition)

	env.settle(id)
	snap = decode[journey.Snapshot](t, env.do(t, http.MethodGet, base, ""))
	require.Equal(t, "Keep half and aim for letter F.", snap.Journey.Adjustment.AIResponse)
}

func TestExportPDF(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t)
	base := "/journeys/" + string(id)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPatch, base, `{"goal":"Write a book"}`).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, base+"/scores/openness", `{"score":2}`).Code)

	w := env.do(t, http.MethodGet, base+"/export.pdf", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "journey-"+string(id)+".pdf")
	require.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	snap := decode[journey.Snapshot](t, env.do(t, http.MethodGet, base, ""))
	require.Equal(t, "Start with a small pilot.", snap.Journey.LatestAIAdvice[domain.CategoryOpenness])

	require.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/journeys/missing/export.pdf", "").Code)
}

func TestGenerateEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/generate", `{"journeyData":{"goal":"Launch new product line","category":"safety","score":2}}`)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[struct {
		Message string `json:"message"`
		Success bool   `json:"success"`
	}](t, w)
	require.True(t, out.Success)
	require.Equal(t, "Start with a small pilot.", out.Message)
	require.Equal(t, domain.CategorySafety, env.client.calls[0].Category)

	env.client.set("", errors.New("quota exceeded"))
	w = env.do(t, http.MethodPost, "/api/generate", `{"journeyData":{"message":"hi"}}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.False(t, decode[struct {
		Success bool `json:"success"`
	}](t, w).Success)
	require.NotContains(t, w.Body.String(), "quota")

	require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/generate", `{`).Code)
	require.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodGet, "/api/generate", "").Code)
}

func TestStylesheet(t *testing.T) {
	env := newTestEnv(t)
	presentation.Register()

	w := env.do(t, http.MethodGet, "/styles/reveal.css", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/css; charset=utf-8", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), "@keyframes")
}

func TestRevealStreamsAdvice(t *testing.T) {
	env := newTestEnv(t)
	env.client.set("Go slow.", nil)
	id := env.create(t)

	w := env.do(t, http.MethodPut, "/journeys/"+string(id)+"/scores/belief", `{"score":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	env.settle(id)

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/journeys/" + string(id) + "/advice/belief/reveal"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var frames []string
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var f struct {
			Category string `json:"category"`
			Visible  string `json:"visible"`
			Done     bool   `json:"done"`
		}
		require.NoError(t, conn.ReadJSON(&f))
		require.Equal(t, "belief", f.Category)
		if f.Done {
			require.Equal(t, "Go slow.", f.Visible)
			break
		}
		frames = append(frames, f.Visible)
	}
	require.Equal(t, []string{" ", "G", "Go", "Go ", "Go s", "Go sl", "Go slo", "Go slow", "Go slow."}, frames)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func TestRevealUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	id := env.create(t)

	w := env.do(t, http.MethodGet, "/journeys/"+string(id)+"/advice/mood/reveal", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
