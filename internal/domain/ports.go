package domain

import (
	"context"
	"io"
)

// Prompt represents the system prompt + the content to send as "user".
type Prompt struct {
	System string
	User   string
}

// LLMClient defines how the core application interacts with an LLM service.
type LLMClient interface {
	GenerateReply(ctx context.Context, prompt Prompt) (string, error)
}

// SuggestionRequest is the journeyData payload understood by the
// text-generation service. Zero fields are omitted on the wire.
type SuggestionRequest struct {
	Goal            string   `json:"goal,omitempty"`
	Category        Category `json:"category,omitempty"`
	Score           int      `json:"score,omitempty"`
	Message         string   `json:"message,omitempty"`
	Sensations      []string `json:"sensations,omitempty"`
	CurrentPosition *int     `json:"currentPosition,omitempty"`
	DaysUntilTarget *int     `json:"daysUntilTarget,omitempty"`
	Scale           int      `json:"scale,omitempty"`
	LetterPosition  *int     `json:"letterPosition,omitempty"`
}

// SuggestionClient is the client side of the text-generation service.
type SuggestionClient interface {
	Suggest(ctx context.Context, req SuggestionRequest) (string, error)
}

// JourneyStore defines journey persistence
type JourneyStore interface {
	CreateJourney(ctx context.Context, j *Journey) error
	SaveJourney(ctx context.Context, j *Journey) error
	GetJourney(ctx context.Context, id JourneyID) (*Journey, error)
	ListJourneysByUser(ctx context.Context, userID UserID, limit int) ([]*Journey, error)
}

// Exporter renders a finished journey into a downloadable document.
type Exporter interface {
	ContentType() string
	Export(ctx context.Context, w io.Writer, j *Journey) error
}
