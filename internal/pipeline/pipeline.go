// Package pipeline runs the ingest stages over a shared output directory and
// records every invocation in the run ledger.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/community-ingest/internal/config"
	"github.com/sells-group/community-ingest/internal/extract"
	"github.com/sells-group/community-ingest/internal/model"
	"github.com/sells-group/community-ingest/internal/stagefile"
	"github.com/sells-group/community-ingest/internal/store"
)

// Pipeline orchestrates extract, process, generate and load.
type Pipeline struct {
	cfg         *config.Config
	store       store.Store
	oracle      extract.Oracle
	extractOpts []extract.Option
	now         func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithStore records runs in st. Without a store, runs are only logged.
func WithStore(st store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithOracle sets the extraction oracle used by Extract.
func WithOracle(o extract.Oracle) Option {
	return func(p *Pipeline) { p.oracle = o }
}

// WithExtractOptions passes options through to the extractor.
func WithExtractOptions(opts ...extract.Option) Option {
	return func(p *Pipeline) { p.extractOpts = append(p.extractOpts, opts...) }
}

// WithClock replaces time.Now for generated timestamps.
func WithClock(fn func() time.Time) Option {
	return func(p *Pipeline) { p.now = fn }
}

// New creates a Pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(p)
	}
	return p
}

// begin opens a run for stage, recording it in the ledger when one is set.
func (p *Pipeline) begin(ctx context.Context, stage string) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		Stage:     stage,
		OutputDir: p.cfg.Paths.OutputDir,
		StartedAt: p.now(),
	}
	if p.store != nil {
		rec, err := p.store.CreateRun(ctx, stage, run.OutputDir)
		if err != nil {
			zap.L().Warn("pipeline: failed to record run", zap.String("stage", stage), zap.Error(err))
		} else {
			run.ID = rec.ID
			run.StartedAt = rec.StartedAt
		}
	}
	run.Log = zap.L().With(zap.String("stage", stage), zap.String("run_id", run.ID))
	return run
}

// track runs fn inside a ledger entry for stage. The stats fn returns are
// stored with the outcome even when fn fails.
func (p *Pipeline) track(ctx context.Context, stage string, fn func(run *Run) (any, error)) error {
	run := p.begin(ctx, stage)
	run.Log.Info("pipeline: stage started", zap.String("output_dir", run.OutputDir))

	start := time.Now()
	stats, err := fn(run)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		run.Log.Error("pipeline: stage failed", zap.Int64("duration_ms", duration), zap.Error(err))
	} else {
		run.Log.Info("pipeline: stage complete", zap.Int64("duration_ms", duration))
	}

	if p.store != nil {
		// Detached so a cancelled stage still gets its outcome recorded.
		if ferr := p.store.FinishRun(context.WithoutCancel(ctx), run.ID, stats, err); ferr != nil {
			run.Log.Warn("pipeline: failed to finish run", zap.Error(ferr))
		}
	}
	return err
}

// LoadMessages reads the raw message export at path. A missing file is an
// error: nothing downstream can run without it.
func LoadMessages(path string) ([]model.RawMessage, error) {
	var msgs []model.RawMessage
	if err := stagefile.ReadJSON(path, &msgs); err != nil {
		return nil, eris.Wrap(err, "pipeline: load messages")
	}
	return msgs, nil
}
