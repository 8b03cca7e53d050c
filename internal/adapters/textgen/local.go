package textgen

import (
	"context"
	"fmt"

	"github.com/PabloGalante/farum-journey/internal/adapters/llm"
	"github.com/PabloGalante/farum-journey/internal/domain"
)

// LocalClient answers suggestion requests in process: it renders the prompt
// and hands it to an LLM. The /api/generate endpoint and the journey
// service share it when no remote endpoint is configured.
type LocalClient struct {
	llm domain.LLMClient
}

func NewLocalClient(llmClient domain.LLMClient) *LocalClient {
	return &LocalClient{llm: llmClient}
}

func (c *LocalClient) Suggest(ctx context.Context, req domain.SuggestionRequest) (string, error) {
	text, err := c.llm.GenerateReply(ctx, llm.PromptFor(req))
	if err != nil {
		return "", fmt.Errorf("generate suggestion: %w", err)
	}
	return text, nil
}
