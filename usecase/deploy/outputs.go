package deploy

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"

	"github.com/yaegashi/iotops/adapters/kube"
	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/converge"
)

// StackInput selects a stored stack.
type StackInput struct {
	Config  *iotcfg.ComponentConfig `json:"-"`
	Stack   string                  `json:"stack,omitempty"`
	Backend model.Backend           `json:"backend,omitempty"`
}

func (in *StackInput) key() (string, error) {
	backend := in.Backend
	if backend == model.BackendAuto || backend == "" {
		if in.Config == nil {
			return "", fmt.Errorf("%w: document or explicit backend is required", model.ErrConfigInvalid)
		}
		var err error
		if backend, err = in.Config.SelectBackend(backend); err != nil {
			return "", err
		}
	}
	return StackKey(in.Stack, backend), nil
}

// Outputs returns the outputs recorded by the last successful run.
func (u *UseCase) Outputs(ctx context.Context, in *StackInput) (map[string]string, error) {
	stack, err := in.key()
	if err != nil {
		return nil, err
	}
	engine := &converge.Engine{State: u.Repos.State, Stack: stack}
	return engine.Outputs(ctx)
}

// Runs lists recorded runs of the stack, most recent first.
func (u *UseCase) Runs(ctx context.Context, in *StackInput) ([]*model.Run, error) {
	if u.Repos.Run == nil {
		return nil, nil
	}
	stack, err := in.key()
	if err != nil {
		return nil, err
	}
	return u.Repos.Run.List(ctx, stack)
}

// State lists the recorded resources of the stack in apply order.
func (u *UseCase) State(ctx context.Context, in *StackInput) ([]*model.ResourceState, error) {
	stack, err := in.key()
	if err != nil {
		return nil, err
	}
	return u.Repos.State.List(ctx, stack)
}

// Manifest renders the Kubernetes objects the document declares as a
// multi-document YAML with secret values masked.
func Manifest(cfg *iotcfg.ComponentConfig) (string, error) {
	if err := cfg.Validate(model.BackendKubernetes); err != nil {
		return "", err
	}
	secrets, err := cfg.ResolveSecrets()
	if err != nil {
		return "", err
	}
	g, err := BuildGraph(cfg, model.BackendKubernetes, secrets, "")
	if err != nil {
		return "", err
	}
	var objs []runtime.Object
	for _, r := range g.Resources() {
		if s, ok := r.Spec.(*kube.ObjectSpec); ok {
			objs = append(objs, s.Object)
		}
	}
	return kube.BuildCleanManifest(objs)
}
