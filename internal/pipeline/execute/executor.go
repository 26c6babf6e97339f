// internal/pipeline/execute/executor.go
package execute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
	"portlink-orchestrator/internal/common/metrics"
	"portlink-orchestrator/internal/common/retry"
	"portlink-orchestrator/internal/models"
)

// CallRouter routes a tool call to the capability provider for an agent.
type CallRouter interface {
	Call(ctx context.Context, agent, toolName string, args map[string]interface{}) (map[string]interface{}, error)
}

// Executor walks a TaskPlan, running every ready task concurrently, retrying
// transient failures, and aggregating results. The whole run races a single
// overall deadline.
type Executor struct {
	router  CallRouter
	policy  *retry.Policy
	timeout time.Duration
	logger  logger.Logger
}

func New(router CallRouter, policy *retry.Policy, timeout time.Duration, log logger.Logger) *Executor {
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	return &Executor{
		router:  router,
		policy:  policy,
		timeout: timeout,
		logger:  log,
	}
}

// Execute runs the plan to completion or to the overall deadline. In-flight
// provider calls are not aborted on timeout; the step as a whole reports
// EXECUTION_TIMEOUT instead. The scheduling loop works on a private copy of
// the tasks and commits statuses back only when the caller is still waiting,
// so an abandoned run never touches the plan the caller holds.
func (e *Executor) Execute(ctx context.Context, plan *models.TaskPlan) (*models.AggregatedResponse, error) {
	working := clonePlan(plan)
	resultCh := make(chan *models.AggregatedResponse, 1)

	var mu sync.Mutex
	abandoned := false

	go func() {
		aggregated := e.runPlan(ctx, working)
		mu.Lock()
		if !abandoned {
			commitTaskState(plan, working)
		}
		mu.Unlock()
		resultCh <- aggregated
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case aggregated := <-resultCh:
		return aggregated, nil
	case <-timer.C:
		mu.Lock()
		abandoned = true
		mu.Unlock()
		e.logger.Error("plan execution timed out", map[string]interface{}{
			"planId":  plan.PlanID,
			"timeout": e.timeout.String(),
		})
		return nil, stderrors.NewExecutionTimeoutError(e.timeout)
	case <-ctx.Done():
		mu.Lock()
		abandoned = true
		mu.Unlock()
		if errors.Is(ctx.Err(), context.Canceled) {
			e.logger.Warn("plan execution canceled by caller", map[string]interface{}{
				"planId": plan.PlanID,
			})
			return nil, fmt.Errorf("plan execution canceled: %w", ctx.Err())
		}
		return nil, stderrors.NewExecutionTimeoutError(e.timeout)
	}
}

// clonePlan copies the plan with fresh Task structs so the scheduling loop
// can update statuses without sharing them. Args and dependency slices are
// read-only during a run and stay shared.
func clonePlan(plan *models.TaskPlan) *models.TaskPlan {
	cloned := *plan
	cloned.Tasks = make([]*models.Task, len(plan.Tasks))
	for i, task := range plan.Tasks {
		copied := *task
		cloned.Tasks[i] = &copied
	}
	return &cloned
}

// commitTaskState applies the statuses and retry counts from the finished run
// back onto the caller's plan.
func commitTaskState(dst, src *models.TaskPlan) {
	for _, ran := range src.Tasks {
		if task := dst.TaskByID(ran.ID); task != nil {
			task.Status = ran.Status
			task.RetryCount = ran.RetryCount
		}
	}
}

// runPlan is the ready-set scheduling loop. Each task writes its own unique
// key into the results map from this goroutine only, so no locking is needed
// around the map itself.
func (e *Executor) runPlan(ctx context.Context, plan *models.TaskPlan) *models.AggregatedResponse {
	results := make(map[string]*models.ToolCallResult, len(plan.Tasks))
	succeeded := make(map[string]bool, len(plan.Tasks))
	inFlight := make(map[string]bool)
	doneCh := make(chan *models.ToolCallResult)

	for {
		ready := e.readyTasks(plan, results, succeeded, inFlight)

		for _, task := range ready {
			task.Status = models.TaskRunning
			inFlight[task.ID] = true
			metrics.TasksActive.WithLabelValues(task.ToolName).Inc()
			go func(task *models.Task) {
				doneCh <- e.runTask(ctx, task)
			}(task)
		}

		if len(inFlight) == 0 {
			break
		}

		result := <-doneCh
		delete(inFlight, result.TaskID)
		metrics.TasksActive.WithLabelValues(result.ToolName).Dec()
		results[result.TaskID] = result
		if result.Success {
			succeeded[result.TaskID] = true
		}
		if task := plan.TaskByID(result.TaskID); task != nil {
			if result.Success {
				task.Status = models.TaskSucceeded
			} else {
				task.Status = models.TaskFailed
			}
			task.RetryCount = result.RetryAttempt
		}
	}

	// Tasks never launched are permanently blocked behind a failed
	// dependency; surface them as failed without executing them.
	for _, task := range plan.Tasks {
		if _, done := results[task.ID]; done {
			continue
		}
		task.Status = models.TaskFailed
		results[task.ID] = &models.ToolCallResult{
			TaskID:   task.ID,
			ToolName: task.ToolName,
			Success:  false,
			Error:    "dependency failed",
		}
		e.logger.Warn("task blocked by failed dependency", map[string]interface{}{
			"taskId": task.ID,
			"tool":   task.ToolName,
		})
	}

	return aggregate(plan, results)
}

func (e *Executor) readyTasks(plan *models.TaskPlan, results map[string]*models.ToolCallResult, succeeded, inFlight map[string]bool) []*models.Task {
	var ready []*models.Task
	for _, id := range plan.ExecutionOrder {
		task := plan.TaskByID(id)
		if task == nil {
			continue
		}
		if _, done := results[task.ID]; done || inFlight[task.ID] {
			continue
		}
		depsMet := true
		for _, dep := range task.Dependencies {
			if !succeeded[dep] {
				depsMet = false
				break
			}
		}
		if depsMet {
			ready = append(ready, task)
		}
	}
	return ready
}

func (e *Executor) runTask(ctx context.Context, task *models.Task) *models.ToolCallResult {
	start := time.Now()

	var data map[string]interface{}
	attempts := 0
	policy := e.policy.WithMaxAttempts(task.MaxRetries + 1)

	err := retry.Do(ctx, policy, func(attempt int) error {
		attempts = attempt
		var callErr error
		data, callErr = e.router.Call(ctx, task.Agent, task.ToolName, task.ToolArgs)
		return callErr
	})

	duration := time.Since(start)
	metrics.ToolCallDuration.WithLabelValues(task.ToolName).Observe(duration.Seconds())

	result := &models.ToolCallResult{
		TaskID:       task.ID,
		ToolName:     task.ToolName,
		Duration:     duration,
		RetryAttempt: attempts,
	}

	if err != nil {
		result.Error = err.Error()
		metrics.ToolCalls.WithLabelValues(task.ToolName, "failed").Inc()
		e.logger.Warn("task failed", map[string]interface{}{
			"taskId":   task.ID,
			"tool":     task.ToolName,
			"attempts": attempts + 1,
			"error":    err.Error(),
		})
		return result
	}

	result.Success = true
	result.Data = data
	metrics.ToolCalls.WithLabelValues(task.ToolName, "succeeded").Inc()
	e.logger.Debug("task completed", map[string]interface{}{
		"taskId":   task.ID,
		"tool":     task.ToolName,
		"duration": duration.String(),
	})
	return result
}

// aggregate folds per-task results into the stage output. partialFailure is
// true exactly when some tasks failed and some completed.
func aggregate(plan *models.TaskPlan, results map[string]*models.ToolCallResult) *models.AggregatedResponse {
	var failed, completed []string
	for _, id := range plan.ExecutionOrder {
		result, ok := results[id]
		if !ok {
			continue
		}
		if result.Success {
			completed = append(completed, id)
		} else {
			failed = append(failed, id)
		}
	}

	return &models.AggregatedResponse{
		Success:        len(failed) == 0,
		Results:        results,
		PartialFailure: len(failed) > 0 && len(completed) > 0,
		FailedTasks:    failed,
		CompletedTasks: completed,
	}
}
