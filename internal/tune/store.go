package tune

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Store persists trials of named studies.
type Store interface {
	Init(ctx context.Context) error
	SaveTrial(ctx context.Context, trial Trial) error
	ListTrials(ctx context.Context, study string) ([]Trial, error)
}

// MemoryStore keeps trials in memory.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	trials      map[string]map[string]Trial
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Init resets the store.
func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.trials = make(map[string]map[string]Trial)
	return nil
}

// SaveTrial inserts or replaces a trial.
func (s *MemoryStore) SaveTrial(_ context.Context, trial Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	study, ok := s.trials[trial.Study]
	if !ok {
		study = make(map[string]Trial)
		s.trials[trial.Study] = study
	}
	study[trial.ID] = trial
	return nil
}

// ListTrials returns the trials of study ordered by index.
func (s *MemoryStore) ListTrials(_ context.Context, study string) ([]Trial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errors.New("store is not initialized")
	}
	out := make([]Trial, 0, len(s.trials[study]))
	for _, t := range s.trials[study] {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}
