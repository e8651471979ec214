package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const groqChatURL = "https://api.groq.com/openai/v1/chat/completions"

// backoffUnit is the linear backoff step: the delay before retry k is
// backoffUnit * k.
const backoffUnit = 1000 * time.Millisecond

// Config carries the fixed request parameters for the Groq client
type Config struct {
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
	TopP        float64
}

// DefaultConfig returns the model and sampling parameters used in production.
// Temperature and top_p are kept low so extraction stays deterministic.
func DefaultConfig() Config {
	return Config{
		Model:       "llama-3.3-70b-versatile",
		BaseURL:     groqChatURL,
		Timeout:     30 * time.Second,
		MaxRetries:  2,
		Temperature: 0.1,
		TopP:        0.2,
	}
}

// Groq implements the Extractor interface against Groq's OpenAI-compatible
// chat-completions endpoint
type Groq struct {
	apiKey string
	cfg    Config
	client *http.Client
	sleep  func(time.Duration)
}

// NewGroq creates a new Groq Extractor instance. An empty apiKey is
// accepted here; Extract reports it as a configuration failure so the
// server can answer service-unavailable instead of refusing to start.
func NewGroq(apiKey string, cfg Config) *Groq {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.TopP == 0 {
		cfg.TopP = def.TopP
	}

	return &Groq{
		apiKey: apiKey,
		cfg:    cfg,
		// Per-attempt deadlines come from the request context, so the
		// client itself carries no timeout.
		client: &http.Client{},
		sleep:  time.Sleep,
	}
}

// chatRequest is the request body for the chat-completions endpoint
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response from the chat-completions endpoint
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// attemptKind classifies the outcome of a single model call
type attemptKind int

const (
	attemptSuccess attemptKind = iota
	attemptRetryable
	attemptTerminal
)

type attemptResult struct {
	kind    attemptKind
	content string
	err     error
}

// Extract asks the model for structured items, retrying transient failures.
// maxRetries is the number of additional attempts after the first; a
// negative value selects the configured default. The delay before retry k
// is backoffUnit * k, linear rather than exponential.
func (g *Groq) Extract(ctx context.Context, receiptText string, maxRetries int) ([]Item, error) {
	if g.apiKey == "" {
		return nil, &ConfigError{Message: "groq api key is not configured"}
	}
	if maxRetries < 0 {
		maxRetries = g.cfg.MaxRetries
	}

	for attempt := 0; ; attempt++ {
		result := g.attempt(ctx, receiptText)
		switch result.kind {
		case attemptSuccess:
			return ParseItems(result.content), nil
		case attemptTerminal:
			return nil, result.err
		}

		if attempt == maxRetries {
			return nil, fmt.Errorf("model call failed after %d attempts: %w", attempt+1, result.err)
		}

		delay := time.Duration(attempt+1) * backoffUnit
		slog.Warn("Retrying model call",
			"attempt", attempt,
			"delay", delay,
			"error", result.err,
		)
		g.sleep(delay)
	}
}

// attempt issues one bounded call to the provider and classifies the
// outcome. The timeout cancels only this call; the retry loop above
// decides whether the sequence continues.
func (g *Groq) attempt(ctx context.Context, receiptText string) attemptResult {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: receiptText},
		},
		Temperature: g.cfg.Temperature,
		TopP:        g.cfg.TopP,
	})
	if err != nil {
		return attemptResult{kind: attemptTerminal, err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return attemptResult{kind: attemptTerminal, err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// Timeouts and transport faults are worth another attempt.
		return attemptResult{kind: attemptRetryable, err: fmt.Errorf("calling groq API: %w", err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return attemptResult{kind: attemptRetryable, err: fmt.Errorf("reading groq response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return attemptResult{kind: attemptTerminal, err: &AuthError{Message: "groq rejected the api key"}}
	case resp.StatusCode >= 500:
		return attemptResult{kind: attemptRetryable, err: fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, raw)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return attemptResult{kind: attemptTerminal, err: fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, raw)}
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return attemptResult{kind: attemptTerminal, err: fmt.Errorf("decoding groq response: %w", err)}
	}
	if chat.Error != nil {
		return attemptResult{kind: attemptTerminal, err: fmt.Errorf("groq error (%s): %s", chat.Error.Type, chat.Error.Message)}
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return attemptResult{kind: attemptTerminal, err: errors.New("empty response from groq")}
	}

	return attemptResult{kind: attemptSuccess, content: chat.Choices[0].Message.Content}
}

// Close closes the Groq client (no-op for HTTP client)
func (g *Groq) Close() error {
	return nil
}
