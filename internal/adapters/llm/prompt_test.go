package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

func TestBuildAlignmentPromptPerCategory(t *testing.T) {
	seen := map[string]domain.Category{}
	for _, c := range domain.Categories {
		p := BuildAlignmentPrompt(c, 2, "Launch new product line")
		require.Contains(t, p, "2 out of 5")
		require.Contains(t, p, `"Launch new product line"`)

		prev, dup := seen[p]
		require.False(t, dup, "%s and %s share a template", c, prev)
		seen[p] = c
	}
}

func TestBuildAlignmentPromptFallback(t *testing.T) {
	p := BuildAlignmentPrompt("courage", 1, "Run a marathon")
	require.Contains(t, p, `"courage"`)
	require.Contains(t, p, `"Run a marathon"`)
	require.NotContains(t, p, "out of 5")
}

func TestPromptFor(t *testing.T) {
	days, pos := 30, 10

	p := PromptFor(domain.SuggestionRequest{
		Goal:            "Launch new product line",
		Category:        domain.CategorySafety,
		Score:           2,
		Sensations:      []string{"calm", "tight chest"},
		CurrentPosition: &pos,
		DaysUntilTarget: &days,
	})
	require.Equal(t, BuildSystemPrompt(), p.System)
	require.True(t, strings.HasPrefix(p.User, BuildAlignmentPrompt(domain.CategorySafety, 2, "Launch new product line")))
	require.Contains(t, p.User, "calm, tight chest")
	require.Contains(t, p.User, "A to Z scale: K.")
	require.Contains(t, p.User, "Days until the target date: 30.")

	letter := 6
	p = PromptFor(domain.SuggestionRequest{Goal: "Write a book", Scale: 60, LetterPosition: &letter})
	require.Equal(t, BuildAdjustmentPrompt("Write a book", 60, 6), p.User)
	require.Contains(t, p.User, "60%")
	require.Contains(t, p.User, "letter G")

	p = PromptFor(domain.SuggestionRequest{Message: "Say hi", Goal: "ignored"})
	require.Equal(t, "Say hi", p.User)
}

func TestMockLLM(t *testing.T) {
	reply, err := NewMockLLM().GenerateReply(context.Background(), domain.Prompt{User: "first line\nsecond"})
	require.NoError(t, err)
	require.Contains(t, reply, "first line")
	require.NotContains(t, reply, "second")
}

func TestOpenAIClient(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" Start with a small pilot. "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAIClient("test-key", "gpt-test", srv.URL)
	require.NoError(t, err)

	reply, err := c.GenerateReply(context.Background(), domain.Prompt{System: "sys", User: "usr"})
	require.NoError(t, err)
	require.Equal(t, "Start with a small pilot.", reply)
	require.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	require.Equal(t, "system", got.Messages[0].Role)
	require.Equal(t, "usr", got.Messages[1].Content)
}

func TestOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", "")
	require.Error(t, err)
}

func TestMockLLMIsDeterministic(t *testing.T) {
	m := NewMockLLM()
	p := PromptFor(domain.SuggestionRequest{Category: domain.CategorySafety, Score: 2, Goal: "Move abroad"})

	a, err := m.GenerateReply(context.Background(), p)
	require.NoError(t, err)
	b, err := m.GenerateReply(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.GenerateReply(ctx, p)
	require.ErrorIs(t, err, context.Canceled)
}

func TestVertexGenerationConfig(t *testing.T) {
	s := defaultVertexSettings()
	WithTemperature(0.2)(&s)
	WithMaxOutputTokens(256)(&s)
	WithMaxOutputTokens(0)(&s)

	cfg := s.generationConfig(domain.Prompt{System: "coach", User: "hi"})
	require.Equal(t, float32(0.2), *cfg.Temperature)
	require.Equal(t, int32(256), cfg.MaxOutputTokens)
	require.NotNil(t, cfg.SystemInstruction)

	cfg = s.generationConfig(domain.Prompt{User: "hi"})
	require.Nil(t, cfg.SystemInstruction)
}
