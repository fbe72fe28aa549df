package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nvandessel/silicon/internal/models"
)

// MemoryStore implements Store in memory for tests and unrecorded runs.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]Run
	order   []string
	spikes  map[string][]models.Spike
	weights map[string][]WeightSample
	rewards map[string][]RewardRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]Run),
		spikes:  make(map[string][]models.Spike),
		weights: make(map[string][]WeightSample),
		rewards: make(map[string][]RewardRecord),
	}
}

func (s *MemoryStore) CreateRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		return fmt.Errorf("create run: run ID is required")
	}
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("create run: duplicate run ID %s", run.ID)
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	return nil
}

func (s *MemoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	return &run, nil
}

func (s *MemoryStore) LatestRun(ctx context.Context) (*Run, error) {
	runs, _ := s.ListRuns(ctx)
	if len(runs) == 0 {
		return nil, fmt.Errorf("latest run: %w", ErrRunNotFound)
	}
	return &runs[0], nil
}

func (s *MemoryStore) ListRuns(ctx context.Context) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]Run, 0, len(s.order))
	// Newest insertion first; stable sort keeps that order for equal times.
	for i := len(s.order) - 1; i >= 0; i-- {
		runs = append(runs, s.runs[s.order[i]])
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs, nil
}

func (s *MemoryStore) RecordSpikes(ctx context.Context, runID string, spikes []models.Spike) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("record spikes: %w", ErrRunNotFound)
	}
	s.spikes[runID] = append(s.spikes[runID], spikes...)
	return nil
}

func (s *MemoryStore) RecordWeights(ctx context.Context, runID string, samples []WeightSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("record weights: %w", ErrRunNotFound)
	}
	s.weights[runID] = append(s.weights[runID], samples...)
	return nil
}

func (s *MemoryStore) RecordReward(ctx context.Context, runID string, reward RewardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[runID]; !ok {
		return fmt.Errorf("record reward: %w", ErrRunNotFound)
	}
	s.rewards[runID] = append(s.rewards[runID], reward)
	return nil
}

func (s *MemoryStore) Spikes(ctx context.Context, runID string) ([]models.Spike, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Spike(nil), s.spikes[runID]...), nil
}

func (s *MemoryStore) Weights(ctx context.Context, runID string) ([]WeightSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]WeightSample(nil), s.weights[runID]...), nil
}

func (s *MemoryStore) Rewards(ctx context.Context, runID string) ([]RewardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RewardRecord(nil), s.rewards[runID]...), nil
}

func (s *MemoryStore) Close() error { return nil }
