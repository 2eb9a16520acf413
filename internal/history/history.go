// Package history records scenario run results in a SQLite database so
// repeated runs can be compared.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/pulse/internal/log"
	"github.com/zjrosen/pulse/internal/scenario"
)

// schemaVersion is stored in PRAGMA user_version once the schema is applied.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT NOT NULL UNIQUE,
	scenario TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	steps INTEGER NOT NULL,
	failures INTEGER NOT NULL,
	processed INTEGER NOT NULL,
	delivered INTEGER NOT NULL,
	discarded INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS failures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL,
	step INTEGER NOT NULL,
	message TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario, created_at);
`

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one recorded scenario result.
type Run struct {
	ID        int64
	GUID      string
	Scenario  string
	Path      string
	Steps     int
	Failures  int
	Processed uint64
	Delivered uint64
	Discarded uint64
	CreatedAt time.Time
}

// Passed reports whether the run had no failures.
func (r Run) Passed() bool {
	return r.Failures == 0
}

// Store is a SQLite-backed run history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path, creating parent directories
// and applying the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	log.Debug(log.CatDB, "Opening history database", "path", path)
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=foreign_keys(1)")
	if err != nil {
		log.ErrorErr(log.CatDB, "Failed to open database", err, "path", path)
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		log.ErrorErr(log.CatDB, "Failed to ping database", err, "path", path)
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info(log.CatDB, "Connected to history database", "path", path)
	return s, nil
}

func (s *Store) migrate() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("writing schema version: %w", err)
	}
	log.Info(log.CatDB, "Applied history schema", "from", version, "to", schemaVersion)
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores res and its failures in one transaction.
func (s *Store) Record(res *scenario.Result) (Run, error) {
	run := Run{
		GUID:      uuid.NewString(),
		Scenario:  res.Name,
		Path:      res.Path,
		Steps:     res.Steps,
		Failures:  len(res.Failures),
		Processed: res.Stats.Processed,
		Delivered: res.Stats.Delivered,
		Discarded: res.Stats.Discarded,
		CreatedAt: s.now().UTC().Truncate(time.Second),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Run{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(
		`INSERT INTO runs (guid, scenario, path, steps, failures, processed, delivered, discarded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.GUID, run.Scenario, run.Path, run.Steps, run.Failures,
		toInt64(run.Processed), toInt64(run.Delivered), toInt64(run.Discarded), run.CreatedAt.Unix(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}
	run.ID, err = result.LastInsertId()
	if err != nil {
		return Run{}, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for _, f := range res.Failures {
		if _, err := tx.Exec(
			"INSERT INTO failures (run_id, step, message) VALUES (?, ?, ?)",
			run.ID, f.Step, f.Message,
		); err != nil {
			return Run{}, fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("committing run: %w", err)
	}
	log.Debug(log.CatDB, "Recorded run", "guid", run.GUID, "scenario", run.Scenario, "failures", run.Failures)
	return run, nil
}

func toInt64(n uint64) int64 {
	return int64(min(n, math.MaxInt64)) //nolint:gosec // G115: clamped above
}

const runColumns = `id, guid, scenario, path, steps, failures, processed, delivered, discarded, created_at`

func scanRun(scanner interface{ Scan(...any) error }) (Run, error) {
	var run Run
	var processed, delivered, discarded, created int64
	err := scanner.Scan(
		&run.ID, &run.GUID, &run.Scenario, &run.Path, &run.Steps, &run.Failures,
		&processed, &delivered, &discarded, &created,
	)
	run.Processed = uint64(processed) //nolint:gosec // G115: stored from uint64
	run.Delivered = uint64(delivered) //nolint:gosec // G115: stored from uint64
	run.Discarded = uint64(discarded) //nolint:gosec // G115: stored from uint64
	run.CreatedAt = time.Unix(created, 0).UTC()
	return run, err
}

// Recent returns up to limit runs, newest first. An empty name matches
// every scenario.
func (s *Store) Recent(name string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := "SELECT " + runColumns + " FROM runs"
	args := []any{}
	if name != "" {
		query += " WHERE scenario = ?"
		args = append(args, name)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns the run with guid.
func (s *Store) Get(guid string) (Run, error) {
	row := s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE guid = ?", guid)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, guid)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// Failures returns the recorded failures of a run, in step order.
func (s *Store) Failures(runID int64) ([]scenario.Failure, error) {
	rows, err := s.db.Query(
		"SELECT step, message FROM failures WHERE run_id = ? ORDER BY step, id", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []scenario.Failure
	for rows.Next() {
		var f scenario.Failure
		if err := rows.Scan(&f.Step, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
