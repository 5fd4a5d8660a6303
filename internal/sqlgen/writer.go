package sqlgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/community-ingest/internal/model"
	"github.com/sells-group/community-ingest/internal/stagefile"
)

// Options control rendering.
type Options struct {
	OnConflictDoNothing bool
	Now                 func() time.Time
}

// Batch is the validated inserts for one (kind, bucket) pair, loaded or
// written as one transaction.
type Batch struct {
	Kind    model.Kind
	Bucket  model.Completeness
	Inserts []Insert
}

// IDs returns the id of every insert in the batch.
func (b Batch) IDs() []string {
	ids := make([]string, len(b.Inserts))
	for i, in := range b.Inserts {
		ids[i] = in.ID()
	}
	return ids
}

// File describes one written script.
type File struct {
	Name   string             `json:"name"`
	Kind   model.Kind         `json:"kind"`
	Bucket model.Completeness `json:"bucket"`
	Count  int                `json:"count"`
}

// FileName returns the script name for a (kind, bucket) pair. Numbers are
// fixed per pair so names stay stable when a bucket is empty.
func FileName(k model.Kind, c model.Completeness) string {
	n := 0
	for ki, kind := range model.Kinds {
		for bi, bucket := range model.Buckets {
			if kind == k && bucket == c {
				n = ki*len(model.Buckets) + bi + 1
			}
		}
	}
	return fmt.Sprintf("%02d_%s_%s.sql", n, k, c)
}

// bucketOf treats an entity that was never finalized as sparse.
func bucketOf(e model.Entity) model.Completeness {
	if c := e.Base().Completeness; c != "" {
		return c
	}
	return model.CompletenessSparse
}

// KindBatches builds the non-empty batches for one kind in bucket order.
func KindBatches(ents *model.Entities, k model.Kind, opts Options) ([]Batch, error) {
	grouped := make(map[model.Completeness][]Insert, len(model.Buckets))
	for _, e := range ents.OfKind(k) {
		in, err := Build(e, opts.OnConflictDoNothing)
		if err != nil {
			return nil, err
		}
		c := bucketOf(e)
		grouped[c] = append(grouped[c], in)
	}

	var out []Batch
	for _, c := range model.Buckets {
		if len(grouped[c]) == 0 {
			continue
		}
		out = append(out, Batch{Kind: k, Bucket: c, Inserts: grouped[c]})
	}
	return out, nil
}

// Batches builds every non-empty batch across kinds in output order.
func Batches(ents *model.Entities, opts Options) ([]Batch, error) {
	var out []Batch
	for _, k := range model.Kinds {
		b, err := KindBatches(ents, k, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// RenderScript renders a batch as a transaction-wrapped script followed by a
// query counting the inserted rows.
func RenderScript(b Batch, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "-- %s: %s records (%d total)\n", strings.ToUpper(string(b.Kind)), b.Bucket, len(b.Inserts))
	fmt.Fprintf(&sb, "-- Generated: %s\n\n", now.UTC().Format(time.RFC3339))
	sb.WriteString("BEGIN;\n\n")
	for i, in := range b.Inserts {
		fmt.Fprintf(&sb, "-- %d. %s\n", i+1, label(in))
		sb.WriteString(in.Literal())
		sb.WriteString("\n\n")
	}
	sb.WriteString("COMMIT;\n\n")
	sb.WriteString(VerifyQuery(b))
	sb.WriteString("\n")
	return sb.String()
}

// VerifyQuery counts how many of the batch's ids exist in the target table.
func VerifyQuery(b Batch) string {
	ids := b.IDs()
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "  " + Quote(id)
	}
	name := string(b.Kind)
	if t, err := TableFor(b.Kind); err == nil {
		name = t.Name
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id IN (\n%s\n);", name, strings.Join(quoted, ",\n"))
}

// label is the title or name column, flattened to one line so the comment
// cannot spill into SQL.
func label(in Insert) string {
	if len(in.Values) < 2 {
		return in.ID()
	}
	s, _ := in.Values[1].(string)
	return strings.Join(strings.Fields(s), " ")
}

// WriteScripts renders every non-empty batch to dir as NN_<kind>_<bucket>.sql,
// replacing any scripts left from an earlier run. Kinds render concurrently.
func WriteScripts(ctx context.Context, dir string, ents *model.Entities, opts Options) ([]File, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := removeScripts(dir); err != nil {
		return nil, err
	}
	now := opts.Now()

	var (
		mu    sync.Mutex
		files []File
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range model.Kinds {
		g.Go(func() error {
			batches, err := KindBatches(ents, k, opts)
			if err != nil {
				return err
			}
			for _, b := range batches {
				if err := gctx.Err(); err != nil {
					return err
				}
				name := FileName(b.Kind, b.Bucket)
				if err := stagefile.WriteFile(filepath.Join(dir, name), []byte(RenderScript(b, now))); err != nil {
					return err
				}
				mu.Lock()
				files = append(files, File{Name: name, Kind: b.Kind, Bucket: b.Bucket, Count: len(b.Inserts)})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "sqlgen: write scripts")
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	for _, f := range files {
		zap.L().Info("wrote sql script",
			zap.String("stage", "generate"),
			zap.String("file", f.Name),
			zap.Int("records", f.Count),
		)
	}
	return files, nil
}

// ListScripts returns the .sql files in dir in lexicographic order.
func ListScripts(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlgen: list %s", dir)
	}
	sort.Strings(matches)
	return matches, nil
}

func removeScripts(dir string) error {
	old, err := ListScripts(dir)
	if err != nil {
		return err
	}
	for _, p := range old {
		if err := os.Remove(p); err != nil {
			return eris.Wrapf(err, "sqlgen: remove %s", p)
		}
	}
	return nil
}
