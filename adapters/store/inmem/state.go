package inmem

import (
	"context"
	"sort"
	"sync"

	"github.com/yaegashi/iotops/domain"
	"github.com/yaegashi/iotops/domain/model"
)

type stateKey struct{ stack, id string }

// StateRepository is a thread-safe in-memory implementation.
type StateRepository struct {
	mu    sync.RWMutex
	items map[stateKey]*model.ResourceState
}

func NewStateRepository() *StateRepository {
	return &StateRepository{items: make(map[stateKey]*model.ResourceState)}
}

func copyState(s *model.ResourceState) *model.ResourceState {
	cp := *s
	if s.Attributes != nil {
		cp.Attributes = make(map[string]string, len(s.Attributes))
		for k, v := range s.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}

func (r *StateRepository) Get(_ context.Context, stack, id string) (*model.ResourceState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[stateKey{stack, id}]
	if !ok {
		return nil, model.ErrStateNotFound
	}
	return copyState(v), nil
}

func (r *StateRepository) List(_ context.Context, stack string) ([]*model.ResourceState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.ResourceState, 0, len(r.items))
	for k, v := range r.items {
		if k.stack == stack {
			out = append(out, copyState(v))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *StateRepository) Put(_ context.Context, s *model.ResourceState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[stateKey{s.Stack, s.ID}] = copyState(s)
	return nil
}

func (r *StateRepository) Delete(_ context.Context, stack, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := stateKey{stack, id}
	if _, ok := r.items[k]; !ok {
		return model.ErrStateNotFound
	}
	delete(r.items, k)
	return nil
}

var _ domain.StateRepository = (*StateRepository)(nil)
