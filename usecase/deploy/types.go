// Package deploy runs the IoT stack end to end: validate the document, declare
// the resource graph for the selected backend and converge it.
package deploy

import (
	"context"

	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/domain"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/converge"
)

// DefaultStack names the state stack when none is given.
const DefaultStack = "iot"

// Repos bundles repository dependencies used by deploy use cases.
type Repos struct {
	State domain.StateRepository
	Run   domain.RunRepository
}

// Target is what an ApplierFactory needs to reach the backend.
type Target struct {
	Backend model.Backend
	Config  *iotcfg.ComponentConfig
	Secrets *iotcfg.Secrets
}

// ApplierFactory connects to the backend and returns appliers per resource kind.
// The returned close function releases connections.
type ApplierFactory interface {
	Appliers(ctx context.Context, t *Target) (map[model.ResourceKind]converge.Applier, func() error, error)
}

// UseCase provides deploy, destroy and inspection of a stack.
type UseCase struct {
	Repos    *Repos
	Appliers ApplierFactory
}

// StackKey scopes stored state by stack name and backend so that switching
// backends never prunes the other backend's resources.
func StackKey(stack string, backend model.Backend) string {
	if stack == "" {
		stack = DefaultStack
	}
	return stack + "/" + string(backend)
}
