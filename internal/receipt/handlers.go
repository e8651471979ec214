package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/robertomiguez/lastprice-llm/internal/extraction"
)

// maxReceiptChars bounds the inbound receipt text
const maxReceiptChars = 10000

// ValidationError reports a rejected request body
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// extractRequest is the inbound payload. receiptText is accepted as a
// legacy alias for prompt.
type extractRequest struct {
	Prompt      string `json:"prompt"`
	ReceiptText string `json:"receiptText"`
	MaxRetries  *int   `json:"maxRetries"`
}

// errorResponse is the client-facing shape for every failure
type errorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// parseExtractRequest validates the body and returns the trimmed receipt
// text plus the retry override (-1 when the client did not set one)
func parseExtractRequest(body io.Reader) (string, int, error) {
	var req extractRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return "", 0, &ValidationError{Message: "request body must be a JSON object"}
		}
		return "", 0, fmt.Errorf("decoding request body: %w", err)
	}

	// Prefer prompt when both fields are present.
	text := req.Prompt
	if strings.TrimSpace(text) == "" {
		text = req.ReceiptText
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, &ValidationError{Message: "a non-empty prompt or receiptText field is required"}
	}
	if len(text) > maxReceiptChars {
		return "", 0, &ValidationError{Message: fmt.Sprintf("receipt text exceeds %d characters", maxReceiptChars)}
	}

	maxRetries := -1
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		maxRetries = *req.MaxRetries
	}
	return text, maxRetries, nil
}

// handleHealth reports liveness without touching the provider
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExtract handles the extraction endpoint, including method dispatch
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	text, maxRetries, err := parseExtractRequest(r.Body)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			slog.Warn("Rejected request", "error", err)
			writeError(w, validationErr.Message, http.StatusBadRequest)
			return
		}
		slog.Error("Error reading request body", "error", err)
		writeError(w, "Invalid request body", http.StatusInternalServerError)
		return
	}

	summary, err := s.service.Process(r.Context(), text, maxRetries)
	if err != nil {
		// Log with full context before reducing to a generic message.
		slog.Error("Error processing receipt",
			"text_length", len(text),
			"max_retries", maxRetries,
			"error", err,
		)

		var authErr *extraction.AuthError
		var configErr *extraction.ConfigError
		switch {
		case errors.As(err, &authErr):
			writeError(w, "Invalid API key", http.StatusUnauthorized)
		case errors.As(err, &configErr):
			writeError(w, "Service is not configured", http.StatusServiceUnavailable)
		default:
			writeError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, errorResponse{
		Error:     message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
