// Package extract turns batches of raw chat messages into candidate events,
// places and services by calling an extraction oracle, and checkpoints its
// progress so an interrupted run resumes at the first unprocessed message.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/community-ingest/internal/model"
	"github.com/sells-group/community-ingest/internal/resilience"
	"github.com/sells-group/community-ingest/internal/stagefile"
)

// ProgressFile is the checkpoint file name inside the output directory.
const ProgressFile = "progress.json"

// EntityPath returns the JSON file holding one kind's candidates.
func EntityPath(dir string, kind model.Kind) string {
	return stagefile.EntityPath(dir, kind)
}

// ProgressPath returns the checkpoint path inside dir.
func ProgressPath(dir string) string {
	return filepath.Join(dir, ProgressFile)
}

// Config holds extractor tuning.
type Config struct {
	BatchSize              int
	MinMessageLength       int
	RateLimitDelay         time.Duration
	FailureDelayMultiplier int
}

// DefaultConfig returns the standard extractor settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:              20,
		MinMessageLength:       20,
		RateLimitDelay:         500 * time.Millisecond,
		FailureDelayMultiplier: 3,
	}
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithSleeper replaces the pause used between batches.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(x *Extractor) { x.sleep = fn }
}

// WithIDGenerator replaces the candidate id generator.
func WithIDGenerator(fn func() string) Option {
	return func(x *Extractor) { x.newID = fn }
}

// Extractor runs the batch extraction stage against one output directory.
type Extractor struct {
	oracle Oracle
	dir    string
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration) error
	newID  func() string
	log    *zap.Logger
}

// New creates an Extractor that writes candidates and checkpoints to dir.
func New(oracle Oracle, dir string, cfg Config, opts ...Option) *Extractor {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MinMessageLength < 0 {
		cfg.MinMessageLength = 0
	}
	if cfg.FailureDelayMultiplier <= 0 {
		cfg.FailureDelayMultiplier = def.FailureDelayMultiplier
	}
	x := &Extractor{
		oracle: oracle,
		dir:    dir,
		cfg:    cfg,
		sleep:  resilience.Sleep,
		newID:  func() string { return uuid.New().String() },
		log:    zap.L().With(zap.String("stage", "extract")),
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Result summarizes one extractor invocation.
type Result struct {
	Eligible      int
	Batches       int
	FailedBatches int
	Added         model.ExtractStats
	Progress      *model.ProgressState
}

// state is the in-memory view of the output directory.
type state struct {
	progress *model.ProgressState
	entities *model.Entities
}

// Run processes every eligible message after the last checkpoint.
func (x *Extractor) Run(ctx context.Context, msgs []model.RawMessage) (*Result, error) {
	eligible := model.FilterByTextLength(msgs, x.cfg.MinMessageLength)
	st, err := x.load()
	if err != nil {
		return nil, err
	}

	start := st.progress.NextIndex()
	if start > 0 {
		x.log.Info("resuming extraction",
			zap.Int("from_index", start),
			zap.Int("eligible", len(eligible)),
		)
	}

	var batches []batchSpan
	for i := start; i < len(eligible); i += x.cfg.BatchSize {
		end := min(i+x.cfg.BatchSize, len(eligible))
		batches = append(batches, batchSpan{start: i, msgs: eligible[i:end]})
	}

	res := &Result{Eligible: len(eligible)}
	err = x.runBatches(ctx, st, batches, true, res)
	res.Progress = st.progress
	return res, err
}

// RetryFailed re-sends only the messages recorded as failed by earlier runs.
// The resume index is left unchanged.
func (x *Extractor) RetryFailed(ctx context.Context, msgs []model.RawMessage) (*Result, error) {
	st, err := x.load()
	if err != nil {
		return nil, err
	}

	failed := make(map[string]bool, len(st.progress.FailedMessageIDs))
	for _, id := range st.progress.FailedMessageIDs {
		failed[id] = true
	}
	var pending []model.RawMessage
	for _, m := range msgs {
		if failed[m.ID] {
			pending = append(pending, m)
		}
	}

	var batches []batchSpan
	for i := 0; i < len(pending); i += x.cfg.BatchSize {
		end := min(i+x.cfg.BatchSize, len(pending))
		batches = append(batches, batchSpan{start: -1, msgs: pending[i:end]})
	}

	res := &Result{Eligible: len(pending)}
	err = x.runBatches(ctx, st, batches, false, res)
	res.Progress = st.progress
	return res, err
}

type batchSpan struct {
	start int
	msgs  []model.RawMessage
}

func (x *Extractor) runBatches(ctx context.Context, st *state, batches []batchSpan, advance bool, res *Result) error {
	for n, b := range batches {
		log := x.log.With(zap.Int("batch", n+1), zap.Int("batches", len(batches)))

		pending := b.msgs
		if advance {
			pending = pending[:0:0]
			for _, m := range b.msgs {
				if !st.progress.IsProcessed(m.ID) {
					pending = append(pending, m)
				}
			}
		}

		var added *model.Entities
		var batchErr error
		if len(pending) > 0 {
			res.Batches++
			added, batchErr = x.extractBatch(ctx, pending)
		} else {
			added = &model.Entities{}
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := x.cfg.RateLimitDelay
		if batchErr != nil {
			res.FailedBatches++
			log.Warn("batch failed", zap.Error(batchErr), zap.Int("messages", len(pending)))
			st.progress.Stats.Errors++
			st.progress.MarkFailed(messageIDs(pending))
			if err := x.saveProgress(st.progress); err != nil {
				return err
			}
			delay *= time.Duration(x.cfg.FailureDelayMultiplier)
		} else {
			if err := x.commit(st, added, pending); err != nil {
				return err
			}
			if advance {
				st.progress.LastProcessedIndex = b.start + len(b.msgs) - 1
			}
			if err := x.saveProgress(st.progress); err != nil {
				return err
			}
			res.Added.Events += len(added.Events)
			res.Added.Places += len(added.Places)
			res.Added.Services += len(added.Services)
			log.Info("batch committed",
				zap.Int("events", len(added.Events)),
				zap.Int("places", len(added.Places)),
				zap.Int("services", len(added.Services)),
			)
		}

		if len(pending) > 0 && n < len(batches)-1 {
			if err := x.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}

	x.log.Info("extraction finished",
		zap.Int("events", st.progress.Stats.Events),
		zap.Int("places", st.progress.Stats.Places),
		zap.Int("services", st.progress.Stats.Services),
		zap.Int("errors", st.progress.Stats.Errors),
	)
	return nil
}

// extractBatch calls the oracle for one batch and decodes the reply.
func (x *Extractor) extractBatch(ctx context.Context, batch []model.RawMessage) (*model.Entities, error) {
	text, err := x.oracle.Extract(ctx, SystemPrompt(), RenderBatch(batch))
	if err != nil {
		return nil, eris.Wrap(err, "extract: oracle call")
	}

	resp := ParseResponse(text)
	if resp.Outcome != OutcomeOK {
		return nil, eris.Wrapf(resp.Err, "extract: %s", resp.Outcome)
	}
	if resp.Skipped > 0 {
		x.log.Warn("skipped non-object candidates", zap.Int("skipped", resp.Skipped))
	}

	ids := make(map[string]bool, len(batch))
	for _, m := range batch {
		ids[m.ID] = true
	}

	out := &model.Entities{}
	for _, raw := range resp.Candidates[model.KindEvent] {
		e := model.DecodeEvent(raw)
		x.assign(&e.Common, ids, batch)
		out.Events = append(out.Events, e)
	}
	for _, raw := range resp.Candidates[model.KindPlace] {
		p := model.DecodePlace(raw)
		x.assign(&p.Common, ids, batch)
		out.Places = append(out.Places, p)
	}
	for _, raw := range resp.Candidates[model.KindService] {
		s := model.DecodeService(raw)
		x.assign(&s.Common, ids, batch)
		out.Services = append(out.Services, s)
	}
	return out, nil
}

// assign gives the candidate a fresh id and checks its back-reference against
// the batch that produced it.
func (x *Extractor) assign(c *model.Common, ids map[string]bool, batch []model.RawMessage) {
	c.ID = x.newID()
	if ids[c.OriginalMessageID] {
		return
	}
	if len(batch) == 1 {
		c.OriginalMessageID = batch[0].ID
		return
	}
	if c.OriginalMessageID == "" {
		c.AddIssue("missing original_message_id")
	} else {
		c.AddIssue(fmt.Sprintf("original_message_id %q not in batch", c.OriginalMessageID))
		c.OriginalMessageID = ""
	}
}

// commit appends the batch's candidates to the output files. Entity files are
// written before the checkpoint; load truncates anything a crash left beyond
// the checkpointed counts.
func (x *Extractor) commit(st *state, added *model.Entities, batch []model.RawMessage) error {
	st.entities.Events = append(st.entities.Events, added.Events...)
	st.entities.Places = append(st.entities.Places, added.Places...)
	st.entities.Services = append(st.entities.Services, added.Services...)

	if len(added.Events) > 0 {
		if err := stagefile.WriteJSON(EntityPath(x.dir, model.KindEvent), st.entities.Events); err != nil {
			return err
		}
	}
	if len(added.Places) > 0 {
		if err := stagefile.WriteJSON(EntityPath(x.dir, model.KindPlace), st.entities.Places); err != nil {
			return err
		}
	}
	if len(added.Services) > 0 {
		if err := stagefile.WriteJSON(EntityPath(x.dir, model.KindService), st.entities.Services); err != nil {
			return err
		}
	}

	st.progress.Stats.Events += len(added.Events)
	st.progress.Stats.Places += len(added.Places)
	st.progress.Stats.Services += len(added.Services)
	st.progress.MarkProcessed(messageIDs(batch))
	return nil
}

func (x *Extractor) saveProgress(p *model.ProgressState) error {
	return stagefile.WriteJSON(ProgressPath(x.dir), p)
}

// load reads the checkpoint and entity files and reconciles them.
func (x *Extractor) load() (*state, error) {
	st := &state{
		progress: model.NewProgressState(),
		entities: &model.Entities{Events: []*model.Event{}, Places: []*model.Place{}, Services: []*model.Service{}},
	}
	if _, err := stagefile.ReadJSONOptional(ProgressPath(x.dir), st.progress); err != nil {
		return nil, err
	}
	st.progress.Normalize()
	if err := readOptional(EntityPath(x.dir, model.KindEvent), &st.entities.Events); err != nil {
		return nil, err
	}
	if err := readOptional(EntityPath(x.dir, model.KindPlace), &st.entities.Places); err != nil {
		return nil, err
	}
	if err := readOptional(EntityPath(x.dir, model.KindService), &st.entities.Services); err != nil {
		return nil, err
	}

	changed := Reconcile(st.progress, st.entities)
	for _, kind := range changed {
		x.log.Warn("truncated uncommitted candidates", zap.String("kind", string(kind)))
		var err error
		switch kind {
		case model.KindEvent:
			err = stagefile.WriteJSON(EntityPath(x.dir, kind), st.entities.Events)
		case model.KindPlace:
			err = stagefile.WriteJSON(EntityPath(x.dir, kind), st.entities.Places)
		case model.KindService:
			err = stagefile.WriteJSON(EntityPath(x.dir, kind), st.entities.Services)
		}
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Reconcile trims each collection to the committed count in the checkpoint.
// When a file holds fewer candidates than the checkpoint claims, the count is
// lowered to match. It returns the kinds whose collections were truncated.
func Reconcile(p *model.ProgressState, ents *model.Entities) []model.Kind {
	var changed []model.Kind
	fix := func(kind model.Kind, have int, committed *int, truncate func(n int)) {
		switch {
		case have > *committed:
			truncate(*committed)
			changed = append(changed, kind)
		case have < *committed:
			zap.L().Warn("extract: checkpoint count exceeds stored candidates",
				zap.String("kind", string(kind)),
				zap.Int("committed", *committed),
				zap.Int("stored", have),
			)
			*committed = have
		}
	}
	fix(model.KindEvent, len(ents.Events), &p.Stats.Events, func(n int) { ents.Events = ents.Events[:n] })
	fix(model.KindPlace, len(ents.Places), &p.Stats.Places, func(n int) { ents.Places = ents.Places[:n] })
	fix(model.KindService, len(ents.Services), &p.Stats.Services, func(n int) { ents.Services = ents.Services[:n] })
	return changed
}

func readOptional[T any](path string, dst *[]T) error {
	ok, err := stagefile.ReadJSONOptional(path, dst)
	if err != nil {
		return err
	}
	if !ok || *dst == nil {
		*dst = []T{}
	}
	return nil
}

func messageIDs(msgs []model.RawMessage) []string {
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	return ids
}
