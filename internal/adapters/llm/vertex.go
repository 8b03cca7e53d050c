package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

const defaultVertexModel = "gemini-2.5-flash"

// VertexClient generates advice with Gemini on Vertex AI.
type VertexClient struct {
	client    *genai.Client
	modelName string
	settings  vertexSettings
}

type vertexSettings struct {
	temperature float32
	topP        float32
	maxTokens   int32
}

// VertexOption tunes generation.
type VertexOption func(*vertexSettings)

func WithTemperature(t float32) VertexOption {
	return func(s *vertexSettings) { s.temperature = t }
}

// WithMaxOutputTokens caps reply length. Advice is short, so the default
// is well under the model limit.
func WithMaxOutputTokens(n int32) VertexOption {
	return func(s *vertexSettings) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

func defaultVertexSettings() vertexSettings {
	return vertexSettings{temperature: 0.7, topP: 0.9, maxTokens: 1024}
}

func NewVertexClient(ctx context.Context, projectID, location, modelName string, opts ...VertexOption) (*VertexClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("vertex: project and location must be set")
	}
	if modelName == "" {
		modelName = defaultVertexModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	settings := defaultVertexSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	return &VertexClient{client: client, modelName: modelName, settings: settings}, nil
}

func (s vertexSettings) generationConfig(prompt domain.Prompt) *genai.GenerateContentConfig {
	temp, topP := s.temperature, s.topP
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		TopP:            &topP,
		MaxOutputTokens: s.maxTokens,
	}
	if strings.TrimSpace(prompt.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}
	return cfg
}

// GenerateReply implements domain.LLMClient.
func (v *VertexClient) GenerateReply(ctx context.Context, prompt domain.Prompt) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt.User, genai.RoleUser),
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, v.settings.generationConfig(prompt))
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", fmt.Errorf("vertex returned empty text")
	}
	return text, nil
}
