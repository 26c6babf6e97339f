// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"time"

	"portlink-orchestrator/internal/audit"
	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/common/metrics"
	"portlink-orchestrator/internal/common/observability"
	"portlink-orchestrator/internal/models"
	"portlink-orchestrator/internal/pipeline/classify"
	"portlink-orchestrator/internal/pipeline/decompose"
	"portlink-orchestrator/internal/pipeline/execute"
	"portlink-orchestrator/internal/pipeline/redact"
	"portlink-orchestrator/internal/pipeline/sanitize"
	"portlink-orchestrator/internal/pipeline/synthesize"
)

// Stage names as reported in metrics and response metadata.
const (
	StageSanitize   = "sanitize"
	StageClassify   = "classify"
	StageDecompose  = "decompose"
	StageExecute    = "execute"
	StageSynthesize = "synthesize"
	StageValidate   = "validate"
)

// Deps lists the pipeline stages plus the optional supporting services.
// Audit and Observability may be nil; the pipeline runs without them.
type Deps struct {
	Sanitizer     *sanitize.Sanitizer
	Classifier    *classify.Classifier
	Decomposer    *decompose.Decomposer
	Executor      *execute.Executor
	Synthesizer   *synthesize.Synthesizer
	Validator     *redact.Validator
	Audit         *audit.Sink
	Observability *observability.Observability
}

// Pipeline runs the six processing stages in order. Each stage strictly
// gates the next; a stage failure halts the run with a typed error while
// the already computed intermediate state stays available in the response
// debug payload.
type Pipeline struct {
	deps   Deps
	logger logger.Logger
	now    func() time.Time
}

func New(deps Deps, log logger.Logger) *Pipeline {
	return &Pipeline{
		deps:   deps,
		logger: log,
		now:    time.Now,
	}
}

// Process runs one request through the full pipeline. It never returns a Go
// error: halting failures are reported inside the response with the typed
// error code, partial tool failures are data inside the output.
func (p *Pipeline) Process(ctx context.Context, req *models.OrchestrationRequest) *models.OrchestrationResponse {
	start := p.now()
	debug := &models.DebugInfo{}
	var steps []string

	log := p.logger.With(map[string]interface{}{
		"userId":   req.UserID,
		"userRole": req.UserRole,
	})

	// Stage 1: sanitize.
	stageStart := p.now()
	sanitized, err := p.deps.Sanitizer.Sanitize(req)
	p.observeStage(StageSanitize, stageStart)
	if err != nil {
		return p.fail(ctx, req, StageSanitize, err, debug, steps, start)
	}
	steps = append(steps, StageSanitize)
	debug.Sanitized = sanitized
	log = log.With(map[string]interface{}{"requestId": sanitized.Metadata.RequestID})

	// Stage 2: classify.
	stageStart = p.now()
	classification, err := p.deps.Classifier.Classify(ctx, sanitized)
	p.observeStage(StageClassify, stageStart)
	if err != nil {
		return p.fail(ctx, req, StageClassify, err, debug, steps, start)
	}
	steps = append(steps, StageClassify)
	debug.Classification = classification

	// Low confidence turns into a question back to the caller, not an error.
	if classification.RequiresClarification {
		log.Info("classification needs clarification", map[string]interface{}{
			"intent":     classification.Intent,
			"confidence": classification.Confidence,
		})
		return p.clarify(ctx, req, sanitized, classification, debug, steps, start)
	}

	// Stage 3: decompose.
	stageStart = p.now()
	plan, err := p.deps.Decomposer.Decompose(classification, sanitized.SanitizedText)
	p.observeStage(StageDecompose, stageStart)
	if err != nil {
		return p.fail(ctx, req, StageDecompose, err, debug, steps, start)
	}
	steps = append(steps, StageDecompose)
	debug.Plan = plan

	// Stage 4: execute.
	stageStart = p.now()
	aggregated, err := p.deps.Executor.Execute(ctx, plan)
	p.observeStage(StageExecute, stageStart)
	if err != nil {
		return p.fail(ctx, req, StageExecute, err, debug, steps, start)
	}
	steps = append(steps, StageExecute)
	debug.Aggregated = aggregated

	// Stage 5: synthesize. Never fails; provider errors fall back to the
	// deterministic template inside the stage.
	stageStart = p.now()
	synthesized := p.deps.Synthesizer.Synthesize(ctx, req.UserRole, classification, aggregated)
	p.observeStage(StageSynthesize, stageStart)
	steps = append(steps, StageSynthesize)

	// Stage 6: validate. Fails only in strict mode.
	stageStart = p.now()
	validated, err := p.deps.Validator.Validate(synthesized)
	p.observeStage(StageValidate, stageStart)
	if err != nil {
		return p.fail(ctx, req, StageValidate, err, debug, steps, start)
	}
	steps = append(steps, StageValidate)

	elapsed := p.now().Sub(start)
	status := "success"
	if aggregated.PartialFailure {
		status = "partial"
	}
	metrics.PipelineRequests.WithLabelValues(status).Inc()
	p.recordObservability(ctx, status, elapsed)
	p.writeAudit(ctx, &audit.Record{
		RequestID:         sanitized.Metadata.RequestID,
		UserID:            req.UserID,
		UserRole:          req.UserRole,
		SessionID:         req.SessionID,
		Intent:            classification.Intent,
		Confidence:        classification.Confidence,
		InjectionPatterns: sanitized.RemovedPatterns,
		PlanID:            plan.PlanID,
		TaskCount:         len(plan.Tasks),
		FailedTasks:       aggregated.FailedTasks,
		ViolationCount:    len(validated.Check.Violations),
		Status:            status,
		DurationMs:        elapsed.Milliseconds(),
	})

	log.Info("request processed", map[string]interface{}{
		"intent":         classification.Intent,
		"taskCount":      len(plan.Tasks),
		"failedTasks":    len(aggregated.FailedTasks),
		"partialFailure": aggregated.PartialFailure,
		"durationMs":     elapsed.Milliseconds(),
	})

	return &models.OrchestrationResponse{
		Success:  true,
		Output:   validated,
		Metadata: p.metadata(sanitized.Metadata.RequestID, steps, elapsed),
		Debug:    debug,
	}
}

// Chat is the simplified entry point for conversational callers. The reply
// is the carrier message, or the dashboard summary for dashboard roles.
func (p *Pipeline) Chat(ctx context.Context, message, userID, userRole string) (string, error) {
	if userRole == "" {
		userRole = models.RoleCarrier
	}
	resp := p.Process(ctx, &models.OrchestrationRequest{
		Message:  message,
		UserID:   userID,
		UserRole: userRole,
	})
	if !resp.Success {
		return "", &stderrors.StandardError{
			Code:      stderrors.ErrorCode(resp.Code),
			Message:   resp.Error,
			Timestamp: p.now().UTC(),
		}
	}

	out := resp.Output
	switch {
	case out.Carrier != nil:
		return out.Carrier.Message, nil
	case out.Dashboard != nil:
		if out.Dashboard.Summary != "" {
			return out.Dashboard.Summary, nil
		}
		return out.Dashboard.Title, nil
	default:
		return "", nil
	}
}

// clarify answers a low-confidence classification with the question itself.
// The response is successful; no plan is built and no tools run.
func (p *Pipeline) clarify(ctx context.Context, req *models.OrchestrationRequest, sanitized *models.SanitizedInput, classification *models.IntentClassification, debug *models.DebugInfo, steps []string, start time.Time) *models.OrchestrationResponse {
	output := &models.ValidatedOutput{
		Kind: models.OutputKindCarrier,
		Carrier: &models.CarrierOutput{
			Message: classification.ClarificationQuestion,
		},
		Check: &models.ConfidentialityCheck{Passed: true, CheckedAt: p.now().UTC()},
	}
	if models.IsDashboardRole(req.UserRole) {
		output.Kind = models.OutputKindDashboard
		output.Carrier = nil
		output.Dashboard = &models.DashboardOutput{
			Title:   "Clarification Needed",
			Summary: classification.ClarificationQuestion,
		}
	}

	elapsed := p.now().Sub(start)
	metrics.PipelineRequests.WithLabelValues("clarification").Inc()
	p.recordObservability(ctx, "clarification", elapsed)
	p.writeAudit(ctx, &audit.Record{
		RequestID:         sanitized.Metadata.RequestID,
		UserID:            req.UserID,
		UserRole:          req.UserRole,
		SessionID:         req.SessionID,
		Intent:            classification.Intent,
		Confidence:        classification.Confidence,
		InjectionPatterns: sanitized.RemovedPatterns,
		Status:            "clarification",
		DurationMs:        elapsed.Milliseconds(),
	})

	return &models.OrchestrationResponse{
		Success:  true,
		Output:   output,
		Metadata: p.metadata(sanitized.Metadata.RequestID, steps, elapsed),
		Debug:    debug,
	}
}

// fail builds the halting-error response for a stage failure. Intermediate
// state computed before the failure stays in the debug payload.
func (p *Pipeline) fail(ctx context.Context, req *models.OrchestrationRequest, stage string, err error, debug *models.DebugInfo, steps []string, start time.Time) *models.OrchestrationResponse {
	stdErr := stderrors.Normalize(err)
	elapsed := p.now().Sub(start)

	metrics.PipelineStageFailures.WithLabelValues(stage, string(stdErr.Code)).Inc()
	metrics.PipelineRequests.WithLabelValues("error").Inc()
	p.recordObservability(ctx, "error", elapsed)

	requestID := ""
	var injectionPatterns []string
	if debug.Sanitized != nil {
		requestID = debug.Sanitized.Metadata.RequestID
		injectionPatterns = debug.Sanitized.RemovedPatterns
	}
	rec := &audit.Record{
		RequestID:         requestID,
		UserID:            req.UserID,
		UserRole:          req.UserRole,
		SessionID:         req.SessionID,
		InjectionPatterns: injectionPatterns,
		Status:            "error",
		ErrorCode:         string(stdErr.Code),
		DurationMs:        elapsed.Milliseconds(),
	}
	if debug.Classification != nil {
		rec.Intent = debug.Classification.Intent
		rec.Confidence = debug.Classification.Confidence
	}
	if debug.Plan != nil {
		rec.PlanID = debug.Plan.PlanID
		rec.TaskCount = len(debug.Plan.Tasks)
	}
	if debug.Aggregated != nil {
		rec.FailedTasks = debug.Aggregated.FailedTasks
	}
	p.writeAudit(ctx, rec)

	p.logger.WithError(stdErr).Error("pipeline halted", map[string]interface{}{
		"stage":     stage,
		"errorCode": stdErr.Code,
		"requestId": requestID,
	})

	return &models.OrchestrationResponse{
		Success:  false,
		Error:    stdErr.Message,
		Code:     string(stdErr.Code),
		Metadata: p.metadata(requestID, steps, elapsed),
		Debug:    debug,
	}
}

func (p *Pipeline) metadata(requestID string, steps []string, elapsed time.Duration) *models.ResponseMetadata {
	return &models.ResponseMetadata{
		RequestID:      requestID,
		ProcessingTime: elapsed,
		PipelineSteps:  steps,
		Timestamp:      p.now().UTC(),
	}
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(p.now().Sub(start).Seconds())
}

func (p *Pipeline) recordObservability(ctx context.Context, status string, elapsed time.Duration) {
	if p.deps.Observability == nil {
		return
	}
	p.deps.Observability.RecordRequestProcessed(ctx, status)
	p.deps.Observability.RecordRequestDuration(ctx, elapsed, status)
}

// writeAudit is best effort. A failed write never fails the request.
func (p *Pipeline) writeAudit(ctx context.Context, rec *audit.Record) {
	if p.deps.Audit == nil {
		return
	}
	rec.Timestamp = p.now().UTC()
	if err := p.deps.Audit.Write(ctx, rec); err != nil {
		p.logger.WithError(err).Warn("audit write failed", map[string]interface{}{
			"requestId": rec.RequestID,
		})
	}
}
