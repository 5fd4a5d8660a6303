package model

import (
	"encoding/json"
	"time"
)

// RunStatus is the state of one recorded stage invocation.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunRecord is one row of the run ledger.
type RunRecord struct {
	ID         string          `json:"id"`
	Stage      string          `json:"stage"`
	Status     RunStatus       `json:"status"`
	OutputDir  string          `json:"output_dir"`
	Stats      json.RawMessage `json:"stats,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
