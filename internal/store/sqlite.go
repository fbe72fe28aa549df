package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/silicon/internal/models"
)

// startedAtFormat is fixed width so started_at sorts lexically.
const startedAtFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite store: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// CreateRun inserts a run row.
func (s *SQLiteStore) CreateRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, tau, seed, config) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(startedAtFormat), run.Tau, int64(run.Seed), run.Config)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// GetRun fetches a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, tau, seed, config FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// LatestRun fetches the run with the newest start time.
func (s *SQLiteStore) LatestRun(ctx context.Context) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, tau, seed, config FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, tau, seed, config FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run     Run
		started string
		seed    int64
		config  sql.NullString
	)
	if err := row.Scan(&run.ID, &started, &run.Tau, &seed, &config); err != nil {
		return nil, err
	}
	t, err := time.Parse(startedAtFormat, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = t
	run.Seed = uint64(seed)
	run.Config = config.String
	return &run, nil
}

// RecordSpikes inserts spikes in a single transaction.
func (s *SQLiteStore) RecordSpikes(ctx context.Context, runID string, spikes []models.Spike) error {
	if len(spikes) == 0 {
		return nil
	}
	return s.insertBatch(ctx, "record spikes",
		`INSERT INTO spikes (run_id, time, neuron) VALUES (?, ?, ?)`,
		len(spikes), func(i int) []any {
			return []any{runID, spikes[i].Time, int64(spikes[i].Neuron)}
		})
}

// RecordWeights inserts weight samples in a single transaction.
func (s *SQLiteStore) RecordWeights(ctx context.Context, runID string, samples []WeightSample) error {
	if len(samples) == 0 {
		return nil
	}
	return s.insertBatch(ctx, "record weights",
		`INSERT INTO weights (run_id, time, synapse, weight) VALUES (?, ?, ?, ?)`,
		len(samples), func(i int) []any {
			return []any{runID, samples[i].Time, int64(samples[i].Synapse), samples[i].Weight}
		})
}

// RecordReward inserts one reward row.
func (s *SQLiteStore) RecordReward(ctx context.Context, runID string, r RewardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rewards (run_id, time, class, correct, wrong, reward, explored, applied, discarded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.Time, r.Class, r.Correct, r.Wrong, r.Reward, boolToInt(r.Explored), r.Applied, r.Discarded)
	if err != nil {
		return fmt.Errorf("record reward: %w", err)
	}
	return nil
}

func (s *SQLiteStore) insertBatch(ctx context.Context, op, query string, n int, args func(int) []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%s: prepare: %w", op, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

// Spikes returns the spikes of a run ordered by insertion.
func (s *SQLiteStore) Spikes(ctx context.Context, runID string) ([]models.Spike, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT time, neuron FROM spikes WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query spikes: %w", err)
	}
	defer rows.Close()

	var out []models.Spike
	for rows.Next() {
		var (
			sp     models.Spike
			neuron int64
		)
		if err := rows.Scan(&sp.Time, &neuron); err != nil {
			return nil, fmt.Errorf("scan spike: %w", err)
		}
		sp.Neuron = models.NeuronID(neuron)
		out = append(out, sp)
	}
	return out, rows.Err()
}

// Weights returns the weight samples of a run ordered by insertion.
func (s *SQLiteStore) Weights(ctx context.Context, runID string) ([]WeightSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT time, synapse, weight FROM weights WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query weights: %w", err)
	}
	defer rows.Close()

	var out []WeightSample
	for rows.Next() {
		var (
			w   WeightSample
			syn int64
		)
		if err := rows.Scan(&w.Time, &syn, &w.Weight); err != nil {
			return nil, fmt.Errorf("scan weight: %w", err)
		}
		w.Synapse = models.SynapseID(syn)
		out = append(out, w)
	}
	return out, rows.Err()
}

// Rewards returns the rewards of a run ordered by insertion.
func (s *SQLiteStore) Rewards(ctx context.Context, runID string) ([]RewardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT time, class, correct, wrong, reward, explored, applied, discarded
		 FROM rewards WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query rewards: %w", err)
	}
	defer rows.Close()

	var out []RewardRecord
	for rows.Next() {
		var (
			r        RewardRecord
			explored int
		)
		if err := rows.Scan(&r.Time, &r.Class, &r.Correct, &r.Wrong, &r.Reward, &explored, &r.Applied, &r.Discarded); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		r.Explored = explored != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
