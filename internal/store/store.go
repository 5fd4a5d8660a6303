// Package store records pipeline stage runs.
package store

import (
	"context"

	"github.com/sells-group/community-ingest/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Stage  string          `json:"stage,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the run ledger.
type Store interface {
	CreateRun(ctx context.Context, stage, outputDir string) (*model.RunRecord, error)
	FinishRun(ctx context.Context, runID string, stats any, runErr error) error
	GetRun(ctx context.Context, runID string) (*model.RunRecord, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}
