package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/PabloGalante/farum-journey/internal/adapters/textgen"
	"github.com/PabloGalante/farum-journey/internal/observability"
)

// handleGenerate is the text-generation endpoint: {journeyData} in,
// {message, success} out. Upstream failures surface as a generic 502.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.generator == nil {
		writeJSON(w, http.StatusServiceUnavailable, textgen.GenerateResponse{Error: "text generation is not configured"})
		return
	}

	var req textgen.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, textgen.GenerateResponse{Error: "invalid JSON body"})
		return
	}

	text, err := s.generator.Suggest(r.Context(), req.JourneyData)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("text generation failed",
			"category", req.JourneyData.Category, "error", err)
		writeJSON(w, http.StatusBadGateway, textgen.GenerateResponse{Error: "failed to generate text"})
		return
	}

	writeJSON(w, http.StatusOK, textgen.GenerateResponse{Message: text, Success: true})
}
