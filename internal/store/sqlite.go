package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/community-ingest/internal/model"
)

// ErrRunNotFound is returned when a run id has no ledger row.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	stage       TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	output_dir  TEXT NOT NULL DEFAULT '',
	stats       TEXT,
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, stage, outputDir string) (*model.RunRecord, error) {
	r := &model.RunRecord{
		ID:        uuid.New().String(),
		Stage:     stage,
		Status:    model.RunStatusRunning,
		OutputDir: outputDir,
		StartedAt: s.now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, stage, status, output_dir, started_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Stage, string(r.Status), r.OutputDir, r.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return r, nil
}

// FinishRun marks a run succeeded, or failed when runErr is non-nil, and
// stores stats as JSON.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, stats any, runErr error) error {
	var statsJSON sql.NullString
	if stats != nil {
		data, err := json.Marshal(stats)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal stats")
		}
		statsJSON = sql.NullString{String: string(data), Valid: true}
	}

	status, msg := model.RunStatusSucceeded, ""
	if runErr != nil {
		status, msg = model.RunStatusFailed, runErr.Error()
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), statsJSON, msg, s.now(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, stage, status, output_dir, stats, error, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error) {
	query := `SELECT id, stage, status, output_dir, stats, error, started_at, finished_at FROM runs WHERE 1=1`
	var args []any

	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, filter.Stage)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrRunNotFound, "sqlite: %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.RunRecord, error) {
	var (
		r        model.RunRecord
		stats    sql.NullString
		finished sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Stage, &r.Status, &r.OutputDir, &stats, &r.Error, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrRunNotFound, "sqlite: get run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if stats.Valid {
		r.Stats = json.RawMessage(stats.String)
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
