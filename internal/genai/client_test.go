package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portlink-orchestrator/internal/common/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&Config{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
	}, logger.NewTestLogger(t))
}

func TestParseIntent_Success(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(IntentResult{
			Intent:     "bookings",
			Confidence: 0.88,
			Entities:   map[string]string{"terminalName": "Terminal A"},
			Reasoning:  "user asks to create a booking",
		})
	})

	result, err := client.ParseIntent(context.Background(), "book a slot at Terminal A", map[string]interface{}{"role": "carrier"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/api/ai/parse-intent", gotPath)
	assert.Equal(t, "book a slot at Terminal A", gotBody["query"])
	assert.NotNil(t, gotBody["context"])

	assert.Equal(t, "bookings", result.Intent)
	assert.Equal(t, 0.88, result.Confidence)
	assert.Equal(t, "Terminal A", result.Entities["terminalName"])
}

func TestParseIntent_RetriesOn5xx(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(IntentResult{Intent: "slots_availability", Confidence: 0.9})
	})

	result, err := client.ParseIntent(context.Background(), "what slots are available?", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, "slots_availability", result.Intent)
}

func TestParseIntent_NoRetryOn4xx(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.ParseIntent(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParseIntentFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestParseIntent_ExhaustedRetries(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.ParseIntent(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParseIntentFailed)
	assert.Contains(t, err.Error(), "status 502")
}

func TestParseIntent_ContextTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(IntentResult{Intent: "bookings"})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.ParseIntent(ctx, "hello", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderTimeout)
}

func TestGenerate_Success(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Your booking is confirmed for tomorrow morning.",
		})
	})

	result, err := client.Generate(context.Background(), "summarize the booking", map[string]interface{}{
		"type": "object",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/ai/generate", gotPath)
	assert.Equal(t, "summarize the booking", gotBody["prompt"])
	assert.NotNil(t, gotBody["responseSchema"])
	assert.Equal(t, "Your booking is confirmed for tomorrow morning.", result["message"])
}

func TestGenerate_DecodeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := client.Generate(context.Background(), "prompt", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}
