// Package tracking records trained model runs, their cutoffs and their
// production status in a SQLite database.
//
// A Store is an explicit handle: open one and pass it to whatever needs to
// save or promote runs. There is no process-wide tracking context.
package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	experiment    TEXT NOT NULL,
	submodel      TEXT NOT NULL,
	major         INTEGER NOT NULL,
	minor         INTEGER NOT NULL,
	micro         INTEGER NOT NULL,
	status        INTEGER NOT NULL,
	test_fraction REAL NOT NULL,
	artifact_uri  TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_params (
	run_id TEXT NOT NULL REFERENCES runs(id),
	key    TEXT NOT NULL,
	value  TEXT NOT NULL,
	PRIMARY KEY (run_id, key)
);
CREATE TABLE IF NOT EXISTS run_metrics (
	run_id TEXT NOT NULL REFERENCES runs(id),
	key    TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, key)
);
CREATE TABLE IF NOT EXISTS run_cutoffs (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	class     TEXT NOT NULL,
	threshold REAL NOT NULL,
	PRIMARY KEY (run_id, class)
);
CREATE INDEX IF NOT EXISTS runs_lookup ON runs (experiment, major, minor, micro, status);
`

// Run is one recorded model.
type Run struct {
	ID           string
	Experiment   string
	Submodel     string
	Version      Version
	Status       Status
	TestFraction float64
	ArtifactURI  string
	CreatedAt    time.Time

	Params  map[string]string  // immutable metadata
	Metrics map[string]float64 // mutable metadata
	Cutoffs map[string]float64 // per-class decision thresholds
}

// RunSpec describes a run to save. Submodel defaults to Experiment.
type RunSpec struct {
	Experiment  string
	Submodel    string
	Version     Version
	ArtifactURI string
	Params      map[string]string
	Metrics     map[string]float64
	Cutoffs     map[string]float64
}

// Filter selects runs of one experiment and version. Zero-valued optional
// fields match everything.
type Filter struct {
	Experiment string
	Version    Version
	Status     *Status
	Submodel   string
	Params     map[string]string
	Metrics    map[string]float64
}

// WithStatus returns a copy of f restricted to status s.
func (f Filter) WithStatus(s Status) Filter {
	f.Status = &s
	return f
}

// Store persists runs in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the run database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY inside transactions.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun records a new run with status New and test fraction 0.
func (s *Store) SaveRun(ctx context.Context, spec RunSpec) (Run, error) {
	if spec.Experiment == "" {
		return Run{}, ErrNoExperiment
	}
	run := Run{
		ID:          uuid.NewString(),
		Experiment:  spec.Experiment,
		Submodel:    spec.Submodel,
		Version:     spec.Version,
		Status:      New,
		ArtifactURI: spec.ArtifactURI,
		CreatedAt:   s.now(),
		Params:      copyMap(spec.Params),
		Metrics:     copyMap(spec.Metrics),
		Cutoffs:     copyMap(spec.Cutoffs),
	}
	if run.Submodel == "" {
		run.Submodel = run.Experiment
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // No-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, experiment, submodel, major, minor, micro, status, test_fraction, artifact_uri, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Experiment, run.Submodel,
		run.Version.Major, run.Version.Minor, run.Version.Micro,
		int(run.Status), run.TestFraction, run.ArtifactURI, run.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	for k, v := range run.Params {
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_params (run_id, key, value) VALUES (?, ?, ?)`, run.ID, k, v); err != nil {
			return Run{}, fmt.Errorf("insert param %s: %w", k, err)
		}
	}
	for k, v := range run.Metrics {
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_metrics (run_id, key, value) VALUES (?, ?, ?)`, run.ID, k, v); err != nil {
			return Run{}, fmt.Errorf("insert metric %s: %w", k, err)
		}
	}
	for class, threshold := range run.Cutoffs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_cutoffs (run_id, class, threshold) VALUES (?, ?, ?)`, run.ID, class, threshold); err != nil {
			return Run{}, fmt.Errorf("insert cutoff %s: %w", class, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("run saved", "id", run.ID, "experiment", run.Experiment, "version", run.Version.String())
	return run, nil
}

// GetRun loads one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	runs, err := s.queryRuns(ctx, `SELECT id, experiment, submodel, major, minor, micro, status, test_fraction, artifact_uri, created_at
		FROM runs WHERE id = ?`, id)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return runs[0], nil
}

// ListRuns returns the runs matching f, newest first.
func (s *Store) ListRuns(ctx context.Context, f Filter) ([]Run, error) {
	if f.Experiment == "" {
		return nil, ErrNoExperiment
	}

	where := []string{"experiment = ?", "major = ?", "minor = ?", "micro = ?"}
	args := []any{f.Experiment, f.Version.Major, f.Version.Minor, f.Version.Micro}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, int(*f.Status))
	}
	if f.Submodel != "" {
		where = append(where, "submodel = ?")
		args = append(args, f.Submodel)
	}
	for k, v := range f.Params {
		where = append(where, "EXISTS (SELECT 1 FROM run_params p WHERE p.run_id = runs.id AND p.key = ? AND p.value = ?)")
		args = append(args, k, v)
	}
	for k, v := range f.Metrics {
		where = append(where, "EXISTS (SELECT 1 FROM run_metrics m WHERE m.run_id = runs.id AND m.key = ? AND m.value = ?)")
		args = append(args, k, v)
	}

	query := `SELECT id, experiment, submodel, major, minor, micro, status, test_fraction, artifact_uri, created_at
		FROM runs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC, rowid DESC`
	return s.queryRuns(ctx, query, args...)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var r Run
		var status int
		var created int64
		if err := rows.Scan(&r.ID, &r.Experiment, &r.Submodel,
			&r.Version.Major, &r.Version.Minor, &r.Version.Micro,
			&status, &r.TestFraction, &r.ArtifactURI, &created); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = Status(status)
		r.CreatedAt = time.Unix(0, created)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	_ = rows.Close()

	// Attributes are loaded after the run cursor is closed; the pool has one connection.
	for i := range runs {
		if err := s.loadAttributes(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) loadAttributes(ctx context.Context, r *Run) error {
	r.Params = map[string]string{}
	r.Metrics = map[string]float64{}
	r.Cutoffs = map[string]float64{}

	if err := scanPairs(ctx, s.db, `SELECT key, value FROM run_params WHERE run_id = ?`, r.ID, func(rows *sql.Rows) error {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		r.Params[k] = v
		return nil
	}); err != nil {
		return fmt.Errorf("load params: %w", err)
	}
	if err := scanPairs(ctx, s.db, `SELECT key, value FROM run_metrics WHERE run_id = ?`, r.ID, func(rows *sql.Rows) error {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		r.Metrics[k] = v
		return nil
	}); err != nil {
		return fmt.Errorf("load metrics: %w", err)
	}
	if err := scanPairs(ctx, s.db, `SELECT class, threshold FROM run_cutoffs WHERE run_id = ?`, r.ID, func(rows *sql.Rows) error {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return err
		}
		r.Cutoffs[k] = v
		return nil
	}); err != nil {
		return fmt.Errorf("load cutoffs: %w", err)
	}
	return nil
}

func scanPairs(ctx context.Context, db *sql.DB, query, id string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ChangeStatus sets a run's production status and test fraction.
func (s *Store) ChangeStatus(ctx context.Context, id string, status Status, fraction float64) error {
	return s.changeStatus(ctx, s.db, id, status, fraction)
}

func (s *Store) changeStatus(ctx context.Context, db execer, id string, status Status, fraction float64) error {
	res, err := db.ExecContext(ctx, `UPDATE runs SET status = ?, test_fraction = ? WHERE id = ?`, int(status), fraction, id)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	s.logger.Info("run status changed", "id", id, "status", status.String(), "test_fraction", fraction)
	return nil
}

// Enable puts a run fully into production.
func (s *Store) Enable(ctx context.Context, id string) error {
	return s.ChangeStatus(ctx, id, Active, 1.0)
}

// Disable takes a run out of production.
func (s *Store) Disable(ctx context.Context, id string) error {
	return s.ChangeStatus(ctx, id, Disabled, 0.0)
}

// Canary marks a run for shadow predictions.
func (s *Store) Canary(ctx context.Context, id string) error {
	return s.ChangeStatus(ctx, id, Canary, 0.0)
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// inTx runs fn inside a transaction.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}
