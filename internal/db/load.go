package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/community-ingest/internal/sqlgen"
)

// LockNamespace serializes concurrent loaders against one database.
const LockNamespace = "community-ingest:load"

const loadsMigration = `CREATE TABLE IF NOT EXISTS ingest_loads (
	filename   TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL,
	row_count  BIGINT NOT NULL DEFAULT 0,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureLoadsTable creates the applied-script ledger if needed.
func EnsureLoadsTable(ctx context.Context, pool Pool) error {
	if _, err := pool.Exec(ctx, loadsMigration); err != nil {
		return eris.Wrap(err, "db: create ingest_loads")
	}
	return nil
}

// ScriptResult reports what happened to one script.
type ScriptResult struct {
	Name     string `json:"name"`
	Skipped  bool   `json:"skipped"`
	Verified int64  `json:"verified"`
}

// Script is a generated SQL file split into its insert body and its
// verification query.
type Script struct {
	Name     string
	Checksum string
	Body     string
	Verify   string
}

// ParseScript splits generated script text at its BEGIN and COMMIT lines.
// The body excludes the transaction statements so the loader can run it in
// its own transaction.
func ParseScript(name, text string) (Script, error) {
	sum := sha256.Sum256([]byte(text))
	s := Script{Name: name, Checksum: hex.EncodeToString(sum[:])}

	begin := strings.Index(text, "\nBEGIN;\n")
	commit := strings.LastIndex(text, "\nCOMMIT;\n")
	if begin < 0 || commit < 0 || commit < begin {
		return Script{}, eris.Errorf("db: %s: missing BEGIN/COMMIT", name)
	}
	s.Body = strings.TrimSpace(text[begin+len("\nBEGIN;\n") : commit])
	s.Verify = strings.TrimSpace(text[commit+len("\nCOMMIT;\n"):])
	s.Verify = strings.TrimSuffix(s.Verify, ";")
	if s.Body == "" {
		return Script{}, eris.Errorf("db: %s: empty script", name)
	}
	return s, nil
}

// ApplyScripts runs the scripts in paths, in lexicographic order, each in its
// own transaction under an advisory lock. Scripts already recorded in
// ingest_loads are skipped.
func ApplyScripts(ctx context.Context, pool Pool, paths []string) ([]ScriptResult, error) {
	if err := EnsureLoadsTable(ctx, pool); err != nil {
		return nil, err
	}

	var results []ScriptResult
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return results, eris.Wrapf(err, "db: read %s", p)
		}
		script, err := ParseScript(filepath.Base(p), string(data))
		if err != nil {
			return results, err
		}
		res, err := applyScript(ctx, pool, script)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func applyScript(ctx context.Context, pool Pool, s Script) (ScriptResult, error) {
	log := zap.L().With(zap.String("stage", "load"), zap.String("file", s.Name))
	res := ScriptResult{Name: s.Name}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return res, eris.Wrapf(err, "db: begin %s", s.Name)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockTx(ctx, tx, LockNamespace); err != nil {
		return res, err
	}

	var applied bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM ingest_loads WHERE filename = $1)`, s.Name).Scan(&applied); err != nil {
		return res, eris.Wrapf(err, "db: check %s", s.Name)
	}
	if applied {
		log.Info("script already applied, skipping")
		res.Skipped = true
		return res, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, s.Body); err != nil {
		return res, eris.Wrapf(err, "db: apply %s", s.Name)
	}
	if s.Verify != "" {
		if err := tx.QueryRow(ctx, s.Verify).Scan(&res.Verified); err != nil {
			return res, eris.Wrapf(err, "db: verify %s", s.Name)
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO ingest_loads (filename, checksum, row_count) VALUES ($1, $2, $3)`,
		s.Name, s.Checksum, res.Verified,
	); err != nil {
		return res, eris.Wrapf(err, "db: record %s", s.Name)
	}
	if err := tx.Commit(ctx); err != nil {
		return res, eris.Wrapf(err, "db: commit %s", s.Name)
	}

	log.Info("applied script", zap.Int64("verified_rows", res.Verified))
	return res, nil
}

// InsertBatches writes each batch with parameterized statements, one
// transaction per batch. Returns the number of rows inserted.
func InsertBatches(ctx context.Context, pool Pool, batches []sqlgen.Batch) (int64, error) {
	var total int64
	for _, b := range batches {
		n, err := insertBatch(ctx, pool, b)
		if err != nil {
			return total, err
		}
		total += n
		zap.L().Info("inserted batch",
			zap.String("stage", "load"),
			zap.String("kind", string(b.Kind)),
			zap.String("bucket", string(b.Bucket)),
			zap.Int("records", len(b.Inserts)),
			zap.Int64("inserted", n),
		)
	}
	return total, nil
}

func insertBatch(ctx context.Context, pool Pool, b sqlgen.Batch) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: begin %s/%s", b.Kind, b.Bucket)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockTx(ctx, tx, LockNamespace); err != nil {
		return 0, err
	}

	var n int64
	for _, in := range b.Inserts {
		sql, args := in.Parameterized()
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return 0, eris.Wrapf(err, "db: insert %s %s", in.Table, in.ID())
		}
		n += tag.RowsAffected()
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: commit %s/%s", b.Kind, b.Bucket)
	}
	return n, nil
}
