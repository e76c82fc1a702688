package domain

import (
	"context"

	"github.com/yaegashi/iotops/domain/model"
)

// StateRepository stores converged resource records per stack.
type StateRepository interface {
	// Get returns model.ErrStateNotFound when no record exists.
	Get(ctx context.Context, stack, id string) (*model.ResourceState, error)
	// List returns the records of stack ordered by their recorded apply order.
	List(ctx context.Context, stack string) ([]*model.ResourceState, error)
	// Put creates or replaces a record.
	Put(ctx context.Context, s *model.ResourceState) error
	// Delete returns model.ErrStateNotFound when no record exists.
	Delete(ctx context.Context, stack, id string) error
}

// RunRepository records run history.
type RunRepository interface {
	Create(ctx context.Context, r *model.Run) error
	Update(ctx context.Context, r *model.Run) error
	// List returns the runs of stack, most recent first.
	List(ctx context.Context, stack string) ([]*model.Run, error)
}
