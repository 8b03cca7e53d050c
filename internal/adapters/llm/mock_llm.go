package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/PabloGalante/farum-journey/internal/domain"
)

var mockAdvice = []string{
	"Take one small step today.",
	"Name the smallest version of this goal you would still be proud of.",
	"Write down what would make tomorrow's step feel safe.",
	"Ask one person you trust what they see in you here.",
}

// MockLLM answers locally so the journey can run without credentials.
// The same prompt always gets the same reply.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) GenerateReply(ctx context.Context, prompt domain.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	first, _, _ := strings.Cut(strings.TrimSpace(prompt.User), "\n")

	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt.User))
	advice := mockAdvice[h.Sum32()%uint32(len(mockAdvice))]

	return fmt.Sprintf("%s (%s)", advice, first), nil
}
