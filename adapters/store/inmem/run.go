package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/yaegashi/iotops/domain"
	"github.com/yaegashi/iotops/domain/model"
)

// RunRepository is a thread-safe in-memory implementation.
type RunRepository struct {
	mu    sync.RWMutex
	items map[string]*model.Run
}

func NewRunRepository() *RunRepository {
	return &RunRepository{items: make(map[string]*model.Run)}
}

func (r *RunRepository) Create(_ context.Context, run *model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == "" {
		run.ID = "run-" + uuid.NewString()
	}
	if _, dup := r.items[run.ID]; dup {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	cp := *run
	r.items[run.ID] = &cp
	return nil
}

func (r *RunRepository) Update(_ context.Context, run *model.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[run.ID]; !ok {
		return fmt.Errorf("run %s not found", run.ID)
	}
	cp := *run
	r.items[run.ID] = &cp
	return nil
}

func (r *RunRepository) List(_ context.Context, stack string) ([]*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Run, 0, len(r.items))
	for _, v := range r.items {
		if v.Stack == stack {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

var _ domain.RunRepository = (*RunRepository)(nil)
