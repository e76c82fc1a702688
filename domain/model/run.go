package model

import "time"

// RunStatus is the outcome of a recorded run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded deploy or destroy of a stack.
type Run struct {
	ID         string
	Stack      string
	Operation  string // deploy | destroy
	Backend    Backend
	Status     RunStatus
	Changes    int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}
