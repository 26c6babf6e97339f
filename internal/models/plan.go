// internal/models/plan.go
package models

import "time"

// TaskStatus tracks a plan task through execution.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// Task is a single tool call inside a plan. Dependencies reference other
// task IDs within the same plan.
type Task struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	Agent        string                 `json:"agent"`
	ToolName     string                 `json:"toolName"`
	ToolArgs     map[string]interface{} `json:"toolArgs,omitempty"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Status       TaskStatus             `json:"status"`
	RetryCount   int                    `json:"retryCount"`
	MaxRetries   int                    `json:"maxRetries"`
}

// TaskPlan is the decomposer stage output. ExecutionOrder is a topological
// ordering of the task IDs.
type TaskPlan struct {
	PlanID            string        `json:"planId"`
	Intent            Intent        `json:"intent"`
	Tasks             []*Task       `json:"tasks"`
	ExecutionOrder    []string      `json:"executionOrder"`
	EstimatedDuration time.Duration `json:"estimatedDuration"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// TaskByID returns the task with the given ID, or nil.
func (p *TaskPlan) TaskByID(id string) *Task {
	for _, t := range p.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// ToolCallResult is the outcome of one executed task.
type ToolCallResult struct {
	TaskID       string                 `json:"taskId"`
	ToolName     string                 `json:"toolName"`
	Success      bool                   `json:"success"`
	Data         map[string]interface{} `json:"data,omitempty"`
	Error        string                 `json:"error,omitempty"`
	Duration     time.Duration          `json:"duration"`
	RetryAttempt int                    `json:"retryAttempt"`
}

// AggregatedResponse is the executor stage output. PartialFailure is true
// exactly when some tasks failed and some completed.
type AggregatedResponse struct {
	Success        bool                       `json:"success"`
	Results        map[string]*ToolCallResult `json:"results"`
	PartialFailure bool                       `json:"partialFailure"`
	FailedTasks    []string                   `json:"failedTasks,omitempty"`
	CompletedTasks []string                   `json:"completedTasks,omitempty"`
}
