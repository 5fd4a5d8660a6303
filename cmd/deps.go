package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/community-ingest/internal/extract"
	"github.com/sells-group/community-ingest/internal/pipeline"
	"github.com/sells-group/community-ingest/internal/store"
	anthropicpkg "github.com/sells-group/community-ingest/pkg/anthropic"
)

// initStore opens and migrates the SQLite run ledger.
func initStore(ctx context.Context) (store.Store, error) {
	path := cfg.Store.SQLitePath
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "create store dir %s", dir)
		}
	}
	st, err := store.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newOracle builds the Claude-backed extraction oracle from config.
func newOracle() *extract.AnthropicOracle {
	var opts []option.RequestOption
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	client := anthropicpkg.NewClient(cfg.Anthropic.Key, opts...)
	return extract.NewAnthropicOracle(client, extract.OracleConfig{
		Model:             cfg.Anthropic.Model,
		MaxTokens:         cfg.Anthropic.MaxTokens,
		RequestsPerMinute: cfg.Anthropic.RequestsPerMinute,
		RetryAttempts:     cfg.Anthropic.RetryAttempts,
		CacheTTL:          cfg.Anthropic.CacheTTL,
	})
}

// withPipeline validates config for stage, opens the run ledger and hands a
// pipeline to fn. The ledger is optional: if it cannot be opened the stage
// still runs.
func withPipeline(ctx context.Context, stage string, fn func(p *pipeline.Pipeline) error, opts ...pipeline.Option) error {
	if err := cfg.Validate(stage); err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("run ledger unavailable, runs will not be recorded", zap.Error(err))
	} else {
		defer st.Close() //nolint:errcheck
		opts = append(opts, pipeline.WithStore(st))
	}

	return fn(pipeline.New(cfg, opts...))
}
