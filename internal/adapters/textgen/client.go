package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/PabloGalante/farum-journey/internal/domain"
	"github.com/PabloGalante/farum-journey/internal/observability"
)

// GenerateRequest is the body accepted by the text-generation endpoint.
type GenerateRequest struct {
	JourneyData domain.SuggestionRequest `json:"journeyData"`
}

// GenerateResponse is the body it answers with.
type GenerateResponse struct {
	Message string `json:"message,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// HTTPClient calls a remote text-generation endpoint. It implements
// domain.SuggestionClient.
type HTTPClient struct {
	url  string
	http *http.Client
}

// NewHTTPClient returns a client posting to url. A nil hc gets a pooled
// client from go-cleanhttp.
func NewHTTPClient(url string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = cleanhttp.DefaultPooledClient()
	}
	return &HTTPClient{url: url, http: hc}
}

func (c *HTTPClient) Suggest(ctx context.Context, req domain.SuggestionRequest) (string, error) {
	log := observability.LoggerFromContext(ctx).With("category", req.Category)

	body, err := json.Marshal(GenerateRequest{JourneyData: req})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("text generation request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("text generation failed", "status", resp.StatusCode)
		return "", fmt.Errorf("text generation returned %d", resp.StatusCode)
	}

	var out GenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		return "", errors.New("text generation reported failure")
	}
	if strings.TrimSpace(out.Message) == "" {
		return "", errors.New("text generation returned no message")
	}

	return out.Message, nil
}
