package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/converge"
	"github.com/yaegashi/iotops/internal/graph"
	"github.com/yaegashi/iotops/internal/logging"
)

// DeployInput holds parameters for Deploy.
type DeployInput struct {
	Config    *iotcfg.ComponentConfig `json:"-"`
	Stack     string                  `json:"stack,omitempty"`
	Backend   model.Backend           `json:"backend,omitempty"`
	AssetsDir string                  `json:"assets_dir,omitempty"`
	DryRun    bool                    `json:"dry_run,omitempty"`
}

// DeployOutput reports the steps taken (or planned) and the outputs.
type DeployOutput struct {
	Backend model.Backend     `json:"backend"`
	Stack   string            `json:"stack"`
	RunID   string            `json:"run_id,omitempty"`
	Steps   []converge.Step   `json:"steps"`
	Outputs map[string]string `json:"outputs"`
}

// Deploy validates the document, declares the graph and converges it.
// Configuration errors are reported before any resource is touched.
func (u *UseCase) Deploy(ctx context.Context, in *DeployInput) (*DeployOutput, error) {
	if in == nil || in.Config == nil {
		return nil, fmt.Errorf("%w: document is required", model.ErrConfigInvalid)
	}
	backend, secrets, err := prepare(in.Config, in.Backend)
	if err != nil {
		return nil, err
	}
	g, err := BuildGraph(in.Config, backend, secrets, in.AssetsDir)
	if err != nil {
		return nil, err
	}
	if instances := in.Config.Instances(); backend == model.BackendLegacy && len(instances) > 0 {
		logging.FromContext(ctx).Warn(ctx, "legacy exporter reads config.yaml from the asset bundle; topic_path is ignored",
			"instance", instances[0].Name, "topic_path", instances[0].TopicPath)
	}
	stack := StackKey(in.Stack, backend)
	return u.converge(ctx, "deploy", stack, &Target{Backend: backend, Config: in.Config, Secrets: secrets}, g, in.DryRun)
}

// DestroyInput holds parameters for Destroy.
type DestroyInput struct {
	Config  *iotcfg.ComponentConfig `json:"-"`
	Stack   string                  `json:"stack,omitempty"`
	Backend model.Backend           `json:"backend,omitempty"`
	DryRun  bool                    `json:"dry_run,omitempty"`
}

// Destroy converges an empty graph, deleting every recorded resource of the stack.
func (u *UseCase) Destroy(ctx context.Context, in *DestroyInput) (*DeployOutput, error) {
	if in == nil || in.Config == nil {
		return nil, fmt.Errorf("%w: document is required", model.ErrConfigInvalid)
	}
	backend, secrets, err := prepare(in.Config, in.Backend)
	if err != nil {
		return nil, err
	}
	stack := StackKey(in.Stack, backend)
	return u.converge(ctx, "destroy", stack, &Target{Backend: backend, Config: in.Config, Secrets: secrets}, graph.New(), in.DryRun)
}

func prepare(cfg *iotcfg.ComponentConfig, requested model.Backend) (model.Backend, *iotcfg.Secrets, error) {
	backend, err := cfg.SelectBackend(requested)
	if err != nil {
		return "", nil, err
	}
	if err := cfg.Validate(backend); err != nil {
		return "", nil, err
	}
	secrets, err := cfg.ResolveSecrets()
	if err != nil {
		return "", nil, err
	}
	return backend, secrets, nil
}

func (u *UseCase) converge(ctx context.Context, op, stack string, t *Target, g *graph.Graph, dryRun bool) (*DeployOutput, error) {
	logger := logging.FromContext(ctx).With("stack", stack, "backend", t.Backend)
	out := &DeployOutput{Backend: t.Backend, Stack: stack}
	engine := &converge.Engine{State: u.Repos.State, Stack: stack}

	if dryRun {
		res, err := engine.Run(ctx, g, converge.RunOptions{DryRun: true})
		if err != nil {
			return nil, err
		}
		out.Steps, out.Outputs = res.Steps, res.Outputs
		return out, nil
	}

	if u.Appliers == nil {
		return nil, errors.New("no applier factory configured")
	}
	appliers, closeFn, err := u.Appliers.Appliers(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("connect %s backend: %w", t.Backend, err)
	}
	defer func() {
		if closeFn == nil {
			return
		}
		if cerr := closeFn(); cerr != nil {
			logger.Warn(ctx, "backend close failed", "err", cerr)
		}
	}()
	engine.Appliers = appliers

	run := &model.Run{Stack: stack, Operation: op, Backend: t.Backend, Status: model.RunStatusRunning, StartedAt: time.Now().UTC()}
	if u.Repos.Run != nil {
		if err := u.Repos.Run.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		out.RunID = run.ID
	}

	res, runErr := engine.Run(ctx, g, converge.RunOptions{})
	if res != nil {
		out.Steps, out.Outputs = res.Steps, res.Outputs
	}
	if u.Repos.Run != nil {
		run.FinishedAt = time.Now().UTC()
		run.Changes = countChanges(out.Steps)
		run.Status = model.RunStatusSucceeded
		if runErr != nil {
			run.Status = model.RunStatusFailed
			run.Error = runErr.Error()
		}
		if err := u.Repos.Run.Update(ctx, run); err != nil {
			logger.Warn(ctx, "record run result failed", "run", run.ID, "err", err)
		}
	}
	if runErr != nil {
		return out, runErr
	}
	return out, nil
}

func countChanges(steps []converge.Step) int {
	n := 0
	for _, s := range steps {
		if s.Action != converge.ActionNoop && s.Action != converge.ActionRead {
			n++
		}
	}
	return n
}
