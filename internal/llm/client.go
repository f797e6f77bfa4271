// Package llm is the text-generation client used by the coach service.
//
// It talks to the OpenAI Responses API (or any compatible endpoint) and
// returns the assistant's output text. Callers own prompt construction and
// parsing of the returned text.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobmate/coach-service/internal/logger"
)

// Client generates free-form text from a single prompt.
type Client interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Options configures an OpenAI client.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	Timeout    time.Duration
	// InitialBackoff is the first retry delay; it doubles on every attempt.
	InitialBackoff time.Duration
}

// DefaultInitialBackoff is the first retry delay when Options leaves it unset.
const DefaultInitialBackoff = time.Second

// RetryBudget is the longest GenerateText can run: every attempt timing out
// plus every backoff sleep in between.
func RetryBudget(timeout time.Duration, maxRetries int, initialBackoff time.Duration) time.Duration {
	if initialBackoff <= 0 {
		initialBackoff = DefaultInitialBackoff
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	total := timeout * time.Duration(maxRetries+1)
	backoff := initialBackoff
	for i := 0; i < maxRetries; i++ {
		total += backoff
		backoff *= 2
	}
	return total
}

// ErrEmptyOutput is returned when the provider answers without any output text.
var ErrEmptyOutput = errors.New("no output_text found in response")

// HTTPError is a non-2xx answer from the provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if sent again.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type openAIClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
}

// NewOpenAIClient returns a Client for the Responses API.
func NewOpenAIClient(opts Options, log *logger.Logger) (Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4.1-mini"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = DefaultInitialBackoff
	}
	if log == nil {
		log = logger.Nop()
	}

	return &openAIClient{
		log:        log.With("component", "llm"),
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		model:      model,
		maxRetries: opts.MaxRetries,
		backoff:    backoff,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type responsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

// GenerateText sends prompt to POST /v1/responses and returns the
// concatenated assistant output_text.
func (c *openAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(responsesRequest{Model: c.model, Input: prompt})
	if err != nil {
		return "", err
	}

	raw, err := c.doWithRetry(ctx, "/v1/responses", body)
	if err != nil {
		return "", err
	}

	var resp responsesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("openai decode error: %w", err)
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", resp.Refusal)
	}

	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyOutput
	}
	return text, nil
}

func (c *openAIClient) doWithRetry(ctx context.Context, path string, body []byte) ([]byte, error) {
	backoff := c.backoff
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			return raw, nil
		}
		if !isRetryable(err) || attempt >= c.maxRetries {
			return nil, err
		}

		c.log.Warn("openai request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", backoff.String(),
			"error", err.Error(),
		)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
}

func (c *openAIClient) doOnce(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// isRetryable treats transport failures, 429 and 5xx as transient. Context
// cancellation is never retried.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Retryable()
	}
	return true
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type != "message" || item.Role != "assistant" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != "" {
				out.WriteString(c.Text)
			}
		}
	}
	return out.String()
}
