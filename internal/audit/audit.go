// internal/audit/audit.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/models"
)

// Record is one pipeline run written to the audit index.
type Record struct {
	RecordID          string        `json:"recordId"`
	RequestID         string        `json:"requestId"`
	UserID            string        `json:"userId"`
	UserRole          string        `json:"userRole"`
	SessionID         string        `json:"sessionId,omitempty"`
	Intent            models.Intent `json:"intent,omitempty"`
	Confidence        float64       `json:"confidence,omitempty"`
	InjectionPatterns []string      `json:"injectionPatterns,omitempty"`
	PlanID            string        `json:"planId,omitempty"`
	TaskCount         int           `json:"taskCount,omitempty"`
	FailedTasks       []string      `json:"failedTasks,omitempty"`
	ViolationCount    int           `json:"violationCount,omitempty"`
	Status            string        `json:"status"`
	ErrorCode         string        `json:"errorCode,omitempty"`
	DurationMs        int64         `json:"durationMs"`
	Timestamp         time.Time     `json:"timestamp"`
}

// Sink writes audit records to a dated Elasticsearch index. Writes are best
// effort: a failed write is logged and never fails the request.
type Sink struct {
	client      *elasticsearch.Client
	indexPrefix string
	logger      logger.Logger
	now         func() time.Time
}

// NewSink creates an audit sink writing to "<prefix>-YYYY.MM.DD" indices.
func NewSink(client *elasticsearch.Client, indexPrefix string, log logger.Logger) *Sink {
	if indexPrefix == "" {
		indexPrefix = "orchestrator-audit"
	}
	return &Sink{
		client:      client,
		indexPrefix: indexPrefix,
		logger:      log,
		now:         time.Now,
	}
}

// Write indexes one record. The returned error is informational only; callers
// are expected to log and move on.
func (s *Sink) Write(ctx context.Context, rec *Record) error {
	if rec.RecordID == "" {
		rec.RecordID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return stderrors.NewAuditWriteFailedError(err)
	}

	index := fmt.Sprintf("%s-%s", s.indexPrefix, rec.Timestamp.Format("2006.01.02"))
	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: rec.RecordID,
		Body:       strings.NewReader(string(body)),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		s.logger.Warn("Audit write failed", map[string]interface{}{
			"requestId": rec.RequestID,
			"error":     err.Error(),
		})
		return stderrors.NewAuditWriteFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		err := fmt.Errorf("index request error: %s", res.Status())
		s.logger.Warn("Audit write rejected", map[string]interface{}{
			"requestId": rec.RequestID,
			"status":    res.Status(),
		})
		return stderrors.NewAuditWriteFailedError(err)
	}

	s.logger.Debug("Audit record written", map[string]interface{}{
		"requestId": rec.RequestID,
		"index":     index,
	})
	return nil
}
