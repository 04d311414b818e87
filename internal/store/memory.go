package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"

	"github.com/kplw-group/proposal-cli/internal/model"
)

// MemoryStore keeps run records in process memory with an optional TTL.
// Records are stored as serialized snapshots so readers never observe a
// state the orchestrator is still mutating.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemory creates a MemoryStore. ttl <= 0 keeps records until explicit
// delete.
func NewMemory(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryStore{cache: gocache.New(ttl, 10*time.Minute)}
}

func (s *MemoryStore) SaveState(ctx context.Context, state *model.ProjectState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return eris.Wrap(err, "memory: marshal state")
	}
	s.cache.SetDefault(state.ProjectID, data)
	return nil
}

func (s *MemoryStore) GetState(ctx context.Context, projectID string) (*model.ProjectState, error) {
	raw, ok := s.cache.Get(projectID)
	if !ok {
		return nil, ErrNotFound
	}
	var state model.ProjectState
	if err := json.Unmarshal(raw.([]byte), &state); err != nil {
		return nil, eris.Wrap(err, "memory: unmarshal state")
	}
	return &state, nil
}

func (s *MemoryStore) ListStates(ctx context.Context) ([]*model.ProjectState, error) {
	items := s.cache.Items()
	states := make([]*model.ProjectState, 0, len(items))
	for _, item := range items {
		var state model.ProjectState
		if err := json.Unmarshal(item.Object.([]byte), &state); err != nil {
			return nil, eris.Wrap(err, "memory: unmarshal state")
		}
		states = append(states, &state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].StartedAt.After(states[j].StartedAt) })
	return states, nil
}

func (s *MemoryStore) DeleteState(ctx context.Context, projectID string) error {
	if _, ok := s.cache.Get(projectID); !ok {
		return ErrNotFound
	}
	s.cache.Delete(projectID)
	return nil
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
