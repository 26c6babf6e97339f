package audit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/models"
)

type capturedIndex struct {
	path string
	body map[string]interface{}
}

func newFakeES(t *testing.T, status int, captured *capturedIndex) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil && r.Method == http.MethodPut {
			captured.path = r.URL.Path
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &captured.body)
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(status)
		w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestSink_Write(t *testing.T) {
	var captured capturedIndex
	client := newFakeES(t, http.StatusCreated, &captured)
	sink := NewSink(client, "orchestrator-audit", logger.NewTestLogger(t))
	sink.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

	rec := &Record{
		RequestID:  "req-1",
		UserID:     "user-1",
		UserRole:   "carrier",
		Intent:     models.IntentBookings,
		Confidence: 0.82,
		Status:     "success",
		DurationMs: 120,
	}
	require.NoError(t, sink.Write(context.Background(), rec))

	assert.NotEmpty(t, rec.RecordID)
	assert.True(t, strings.HasPrefix(captured.path, "/orchestrator-audit-2026.03.14/"), "path was %s", captured.path)
	assert.Equal(t, "req-1", captured.body["requestId"])
	assert.Equal(t, "bookings", captured.body["intent"])
	assert.Equal(t, "success", captured.body["status"])
}

func TestSink_WriteRejected(t *testing.T) {
	client := newFakeES(t, http.StatusServiceUnavailable, nil)
	sink := NewSink(client, "", logger.NewNoOpLogger())

	err := sink.Write(context.Background(), &Record{RequestID: "req-2", Status: "failed"})
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeAuditWriteFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestSink_DefaultsPrefixAndTimestamp(t *testing.T) {
	var captured capturedIndex
	client := newFakeES(t, http.StatusCreated, &captured)
	sink := NewSink(client, "", logger.NewNoOpLogger())

	rec := &Record{RequestID: "req-3", Status: "success"}
	require.NoError(t, sink.Write(context.Background(), rec))

	assert.False(t, rec.Timestamp.IsZero())
	assert.True(t, strings.HasPrefix(captured.path, "/orchestrator-audit-"), "path was %s", captured.path)
}
