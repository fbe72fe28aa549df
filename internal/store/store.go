// Package store records simulation runs: spikes, weight snapshots and
// reward outcomes, keyed by run ID.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/silicon/internal/models"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Store kinds accepted by NewStore.
const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// Run describes one simulation run.
type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Tau       float64   `json:"tau"`
	Seed      uint64    `json:"seed"`

	// Config is the YAML configuration the run was started with.
	Config string `json:"config,omitempty"`
}

// NewRun creates a run with a fresh random ID.
func NewRun(tau float64, seed uint64, config string) Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Tau:       tau,
		Seed:      seed,
		Config:    config,
	}
}

// WeightSample is one synapse weight at a point in simulated time.
type WeightSample struct {
	Time    float64          `json:"time"`
	Synapse models.SynapseID `json:"synapse"`
	Weight  float64          `json:"weight"`
}

// RewardRecord is one applied reward.
type RewardRecord struct {
	Time      float64 `json:"time"`
	Class     int     `json:"class"`
	Correct   float64 `json:"correct"`
	Wrong     float64 `json:"wrong"`
	Reward    float64 `json:"reward"`
	Explored  bool    `json:"explored"`
	Applied   int     `json:"applied"`
	Discarded int     `json:"discarded"`
}

// Store persists run recordings.
type Store interface {
	// CreateRun registers a run. The ID must be unique.
	CreateRun(ctx context.Context, run Run) error

	// GetRun returns ErrRunNotFound for unknown IDs.
	GetRun(ctx context.Context, id string) (*Run, error)

	// LatestRun returns the most recently started run.
	LatestRun(ctx context.Context) (*Run, error)

	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]Run, error)

	RecordSpikes(ctx context.Context, runID string, spikes []models.Spike) error
	RecordWeights(ctx context.Context, runID string, samples []WeightSample) error
	RecordReward(ctx context.Context, runID string, reward RewardRecord) error

	// Spikes, Weights and Rewards return records in insertion order.
	Spikes(ctx context.Context, runID string) ([]models.Spike, error)
	Weights(ctx context.Context, runID string) ([]WeightSample, error)
	Rewards(ctx context.Context, runID string) ([]RewardRecord, error)

	Close() error
}

// NewStore opens a store of the given kind. path is used by sqlite only.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
