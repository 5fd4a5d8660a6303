package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/community-ingest/internal/config"
	"github.com/sells-group/community-ingest/internal/db"
	"github.com/sells-group/community-ingest/internal/extract"
	"github.com/sells-group/community-ingest/internal/finalize"
	"github.com/sells-group/community-ingest/internal/geo"
	"github.com/sells-group/community-ingest/internal/link"
	"github.com/sells-group/community-ingest/internal/merge"
	"github.com/sells-group/community-ingest/internal/model"
	"github.com/sells-group/community-ingest/internal/sqlgen"
	"github.com/sells-group/community-ingest/internal/stagefile"
)

// ExtractSummary is the ledger view of an extract run.
type ExtractSummary struct {
	Eligible      int                `json:"eligible"`
	Batches       int                `json:"batches"`
	FailedBatches int                `json:"failed_batches"`
	Added         model.ExtractStats `json:"added"`
	Failed        int                `json:"failed_messages"`
	RetryFailed   bool               `json:"retry_failed,omitempty"`
}

// ProcessSummary is the ledger view of a process run.
type ProcessSummary struct {
	Input        model.ExtractStats `json:"input"`
	Duplicates   int                `json:"duplicates"`
	Link         link.Stats         `json:"link"`
	Geo          geo.Stats          `json:"geo"`
	GeoSkipped   bool               `json:"geo_skipped,omitempty"`
	Finalize     finalize.Report    `json:"finalize"`
	OutputCounts model.ExtractStats `json:"output"`
}

// GenerateSummary is the ledger view of a generate run.
type GenerateSummary struct {
	Files []sqlgen.File `json:"files"`
}

// LoadSummary is the ledger view of a load run.
type LoadSummary struct {
	Direct   bool              `json:"direct"`
	Scripts  []db.ScriptResult `json:"scripts,omitempty"`
	Inserted int64             `json:"inserted,omitempty"`
	Batches  int               `json:"batches,omitempty"`
}

func counts(ents *model.Entities) model.ExtractStats {
	return model.ExtractStats{
		Events:   len(ents.Events),
		Places:   len(ents.Places),
		Services: len(ents.Services),
	}
}

// Extract sends the message export through the extraction oracle, resuming
// from the last checkpoint. With retryFailed it re-sends only messages from
// batches that failed earlier.
func (p *Pipeline) Extract(ctx context.Context, retryFailed bool) (*ExtractSummary, error) {
	if p.oracle == nil {
		return nil, eris.New("pipeline: no extraction oracle configured")
	}

	var sum *ExtractSummary
	err := p.track(ctx, config.StageExtract, func(run *Run) (any, error) {
		msgs, err := LoadMessages(p.cfg.Paths.MessagesFile)
		if err != nil {
			return nil, err
		}

		x := extract.New(p.oracle, run.Dir(DirExtracted), p.extractConfig(), p.extractOpts...)
		var res *extract.Result
		if retryFailed {
			res, err = x.RetryFailed(ctx, msgs)
		} else {
			res, err = x.Run(ctx, msgs)
		}
		if res != nil {
			sum = &ExtractSummary{
				Eligible:      res.Eligible,
				Batches:       res.Batches,
				FailedBatches: res.FailedBatches,
				Added:         res.Added,
				RetryFailed:   retryFailed,
			}
			if res.Progress != nil {
				sum.Failed = len(res.Progress.FailedMessageIDs)
			}
		}
		if err != nil {
			return sum, eris.Wrap(err, "pipeline: extract")
		}
		return sum, nil
	})
	return sum, err
}

func (p *Pipeline) extractConfig() extract.Config {
	return extract.Config{
		BatchSize:              p.cfg.Extract.BatchSize,
		MinMessageLength:       p.cfg.Extract.MinMessageLength,
		RateLimitDelay:         time.Duration(p.cfg.Extract.RateLimitDelayMS) * time.Millisecond,
		FailureDelayMultiplier: p.cfg.Extract.FailureDelayMultiplier,
	}
}

// Process runs merge, link, geocode and finalize over the extracted
// candidates. Each step writes its full output to its own directory before
// the next one starts.
func (p *Pipeline) Process(ctx context.Context) (*ProcessSummary, error) {
	sum := &ProcessSummary{}
	err := p.track(ctx, config.StageProcess, func(run *Run) (any, error) {
		ents, err := stagefile.ReadEntities(run.Dir(DirExtracted))
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: read extracted candidates")
		}
		sum.Input = counts(ents)

		msgs, err := LoadMessages(p.cfg.Paths.MessagesFile)
		if err != nil {
			return sum, err
		}

		// Merge
		merged, dupes := merge.All(ents)
		sum.Duplicates = dupes.Total()
		if err := stagefile.WriteEntities(run.Dir(DirMerged), merged); err != nil {
			return sum, err
		}
		if err := stagefile.WriteJSON(filepath.Join(run.Dir(DirMerged), DuplicatesFile), dupes); err != nil {
			return sum, err
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		// Link
		sum.Link = link.NewLinker(msgs).Link(merged)
		if err := stagefile.WriteEntities(run.Dir(DirLinked), merged); err != nil {
			return sum, err
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		// Geocode
		gaz, err := p.loadGazetteer(run)
		if err != nil {
			return sum, err
		}
		sum.GeoSkipped = gaz == nil
		sum.Geo = geo.NewResolver(gaz, p.center()).Apply(merged)
		if err := stagefile.WriteEntities(run.Dir(DirGeocoded), merged); err != nil {
			return sum, err
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		// Finalize
		sum.Finalize = finalize.Finalize(merged, finalize.Options{
			ProfileID:    p.cfg.Finalize.ProfileID,
			CreatedBy:    p.cfg.Finalize.CreatedBy,
			CityID:       p.cfg.Finalize.CityID,
			LocalityName: p.cfg.Finalize.LocalityName,
		})
		if err := stagefile.WriteEntities(run.Dir(DirFinal), merged); err != nil {
			return sum, err
		}
		if err := stagefile.WriteJSON(filepath.Join(run.Dir(DirFinal), ReportFile), sum.Finalize); err != nil {
			return sum, err
		}
		sum.OutputCounts = counts(merged)

		run.Log.Info("processed entities",
			zap.Int("duplicates", sum.Duplicates),
			zap.Int("events", sum.OutputCounts.Events),
			zap.Int("places", sum.OutputCounts.Places),
			zap.Int("services", sum.OutputCounts.Services),
			zap.Bool("geo_skipped", sum.GeoSkipped),
		)
		return sum, nil
	})
	return sum, err
}

// loadGazetteer returns nil without error when the landmark file is absent,
// which leaves every entity without coordinates.
func (p *Pipeline) loadGazetteer(run *Run) (*geo.Gazetteer, error) {
	path := p.cfg.Paths.LandmarksFile
	if path == "" {
		run.Log.Warn("pipeline: no landmark file configured, skipping coordinate resolution")
		return nil, nil
	}
	gaz, err := geo.LoadGazetteer(path, p.bbox())
	if errors.Is(err, geo.ErrNoGazetteer) {
		run.Log.Warn("pipeline: landmark file not found, skipping coordinate resolution", zap.String("path", path))
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load gazetteer")
	}
	return gaz, nil
}

func (p *Pipeline) bbox() geo.BBox {
	var b geo.BBox
	if len(p.cfg.Geo.BBox) == len(b) {
		copy(b[:], p.cfg.Geo.BBox)
	}
	return b
}

func (p *Pipeline) center() geo.Point {
	if p.cfg.Geo.DefaultLat == 0 && p.cfg.Geo.DefaultLng == 0 {
		return geo.DefaultCenter
	}
	return geo.Point{Lat: p.cfg.Geo.DefaultLat, Lng: p.cfg.Geo.DefaultLng}
}

// Generate renders the finalized entities as SQL scripts, one file per kind
// and completeness bucket.
func (p *Pipeline) Generate(ctx context.Context) (*GenerateSummary, error) {
	sum := &GenerateSummary{}
	err := p.track(ctx, config.StageGenerate, func(run *Run) (any, error) {
		ents, err := stagefile.ReadEntities(run.Dir(DirFinal))
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: read finalized entities")
		}
		files, err := sqlgen.WriteScripts(ctx, run.Dir(DirSQL), ents, p.sqlOptions())
		if err != nil {
			return sum, err
		}
		sum.Files = files
		return sum, nil
	})
	return sum, err
}

func (p *Pipeline) sqlOptions() sqlgen.Options {
	return sqlgen.Options{OnConflictDoNothing: p.cfg.SQL.OnConflictDoNothing, Now: p.now}
}

// All runs extract, process and generate in order, stopping at the first
// stage that fails.
func (p *Pipeline) All(ctx context.Context) error {
	if _, err := p.Extract(ctx, false); err != nil {
		return err
	}
	if _, err := p.Process(ctx); err != nil {
		return err
	}
	_, err := p.Generate(ctx)
	return err
}

// Load writes output to Postgres through pool. By default it applies the
// generated SQL scripts; with direct it inserts the finalized entities with
// parameterized statements instead.
func (p *Pipeline) Load(ctx context.Context, pool db.Pool, direct bool) (*LoadSummary, error) {
	sum := &LoadSummary{Direct: direct}
	err := p.track(ctx, config.StageLoad, func(run *Run) (any, error) {
		if direct {
			ents, err := stagefile.ReadEntities(run.Dir(DirFinal))
			if err != nil {
				return nil, eris.Wrap(err, "pipeline: read finalized entities")
			}
			batches, err := sqlgen.Batches(ents, p.sqlOptions())
			if err != nil {
				return nil, err
			}
			sum.Batches = len(batches)
			sum.Inserted, err = db.InsertBatches(ctx, pool, batches)
			return sum, err
		}

		paths, err := sqlgen.ListScripts(run.Dir(DirSQL))
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return sum, eris.Errorf("pipeline: no SQL scripts in %s", run.Dir(DirSQL))
		}
		sum.Scripts, err = db.ApplyScripts(ctx, pool, paths)
		return sum, err
	})
	return sum, err
}
