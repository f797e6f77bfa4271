package llm

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outputBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"output": []map[string]any{{
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "output_text", "text": text},
			},
		}},
	})
	return string(b)
}

func newTestClient(t *testing.T, url string, retries int) Client {
	t.Helper()
	c, err := NewOpenAIClient(Options{
		APIKey:         "sk-test",
		BaseURL:        url,
		Model:          "gpt-test",
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestGenerateText_SendsModelAndPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req responsesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Equal(t, "analyze fintech", req.Input)

		w.Write([]byte(outputBody(`{"growthRate": 4}`)))
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv.URL, 0).GenerateText(t.Context(), "analyze fintech")
	require.NoError(t, err)
	assert.Equal(t, `{"growthRate": 4}`, text)
}

func TestGenerateText_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(outputBody("ok")))
	}))
	defer srv.Close()

	text, err := newTestClient(t, srv.URL, 3).GenerateText(t.Context(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateText_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 3).GenerateText(t.Context(), "p")
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusUnauthorized, he.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateText_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 2).GenerateText(t.Context(), "p")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateText_EmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": []}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, 0).GenerateText(t.Context(), "p")
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(Options{}, nil)
	assert.Error(t, err)
}

func TestRetryBudget(t *testing.T) {
	cases := []struct {
		timeout time.Duration
		retries int
		backoff time.Duration
		want    time.Duration
	}{
		{60 * time.Second, 3, 0, 247 * time.Second},
		{60 * time.Second, 0, 0, 60 * time.Second},
		{10 * time.Second, 2, 500 * time.Millisecond, 31500 * time.Millisecond},
		{10 * time.Second, -1, 0, 10 * time.Second},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, RetryBudget(c.timeout, c.retries, c.backoff),
			"RetryBudget(%v, %d, %v)", c.timeout, c.retries, c.backoff)
	}
}
