package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
)

func staticToken(token string) TokenSource {
	return func(ctx context.Context) (string, error) {
		return token, nil
	}
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewHTTPProvider(HTTPProviderConfig{
		Name:    AgentBookingOps,
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	}, staticToken("tok-123"), logger.NewTestLogger(t))
}

func TestHTTPProvider_Call(t *testing.T) {
	var gotPath, gotAuth string
	var gotArgs map[string]interface{}

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotArgs)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"bookingId": "BK-1001",
			"status":    "confirmed",
		})
	})

	result, err := provider.Call(context.Background(), "createBooking", map[string]interface{}{
		"terminalId": "term-a",
		"date":       "2026-09-01",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/tools/createBooking", gotPath)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "term-a", gotArgs["terminalId"])
	assert.Equal(t, "BK-1001", result["bookingId"])
}

func TestHTTPProvider_ServerErrorIsRetryable(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := provider.Call(context.Background(), "getBookingStatus", nil)
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeToolCallFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestHTTPProvider_ClientErrorIsPermanent(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	_, err := provider.Call(context.Background(), "createBooking", nil)
	require.Error(t, err)

	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.False(t, stdErr.Retryable)
}

func TestHTTPProvider_TooManyRequestsIsRetryable(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := provider.Call(context.Background(), "listBookings", nil)
	require.Error(t, err)
	assert.True(t, stderrors.IsRetryable(err))
}

func TestHTTPProvider_NoTokenSource(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{})
	}))
	t.Cleanup(server.Close)

	provider := NewHTTPProvider(HTTPProviderConfig{
		Name:    AgentCapacityAnalytics,
		BaseURL: server.URL,
		Timeout: time.Second,
	}, nil, logger.NewNoOpLogger())

	_, err := provider.Call(context.Background(), "getCapacityAnalysis", nil)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
	})
	registry.Register(provider)

	got, err := registry.Get(AgentBookingOps)
	require.NoError(t, err)
	assert.Equal(t, AgentBookingOps, got.Name())

	_, err = registry.Get("unknown_agent")
	assert.Error(t, err)

	result, err := registry.Call(context.Background(), AgentBookingOps, "getAllTerminals", nil)
	require.NoError(t, err)
	assert.Equal(t, true, result["ok"])

	assert.ElementsMatch(t, []string{AgentBookingOps}, registry.Names())
}
