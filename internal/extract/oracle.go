package extract

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/community-ingest/internal/resilience"
	"github.com/sells-group/community-ingest/pkg/anthropic"
)

// Oracle turns a system instruction and a user payload into a text reply that
// should contain the extraction JSON object.
type Oracle interface {
	Extract(ctx context.Context, system, user string) (string, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context, system, user string) (string, error)

// Extract calls f.
func (f OracleFunc) Extract(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// OracleConfig configures the Anthropic-backed oracle.
type OracleConfig struct {
	Model             string
	MaxTokens         int64
	RequestsPerMinute int
	RetryAttempts     int
	CacheTTL          string
}

// AnthropicOracle implements Oracle with the Messages API. Calls are paced by a
// token-bucket limiter and transient failures are retried with backoff.
type AnthropicOracle struct {
	client  anthropic.Client
	cfg     OracleConfig
	limiter *rate.Limiter
	retry   resilience.RetryConfig

	mu    sync.Mutex
	usage anthropic.TokenUsage
	calls int
}

// NewAnthropicOracle wraps client.
func NewAnthropicOracle(client anthropic.Client, cfg OracleConfig) *AnthropicOracle {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8000
	}
	if cfg.CacheTTL == "" {
		cfg.CacheTTL = "5m"
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}

	retry := resilience.DefaultRetryConfig()
	if cfg.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.RetryAttempts
	}
	retry.ShouldRetry = func(err error) bool {
		return anthropic.IsRetryable(err) || resilience.IsTransient(err)
	}
	retry.OnRetry = resilience.RetryLogger("anthropic", "extract")

	return &AnthropicOracle{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		retry:   retry,
	}
}

// Extract sends one batch to the model at temperature 0.
func (o *AnthropicOracle) Extract(ctx context.Context, system, user string) (string, error) {
	temp := 0.0
	req := anthropic.MessageRequest{
		Model:       o.cfg.Model,
		MaxTokens:   o.cfg.MaxTokens,
		System:      anthropic.BuildCachedSystemBlocks(system, o.cfg.CacheTTL),
		Messages:    []anthropic.Message{{Role: "user", Content: user}},
		Temperature: &temp,
	}

	resp, err := resilience.DoVal(ctx, o.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limiter")
		}
		return o.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	o.usage.Add(resp.Usage)
	o.calls++
	o.mu.Unlock()

	if resp.Truncated() {
		zap.L().Warn("extract: oracle reply hit max_tokens",
			zap.String("model", o.cfg.Model),
			zap.Int64("max_tokens", o.cfg.MaxTokens),
		)
	}
	return resp.Text(), nil
}

// Usage returns the accumulated token usage and call count.
func (o *AnthropicOracle) Usage() (anthropic.TokenUsage, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.usage, o.calls
}

// LogUsage logs accumulated usage with estimated cost.
func (o *AnthropicOracle) LogUsage() {
	usage, _ := o.Usage()
	usage.LogCost(o.cfg.Model, "extract")
}
