// Package converge drives a resource graph to its desired state against persisted state.
package converge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yaegashi/iotops/domain"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/graph"
	"github.com/yaegashi/iotops/internal/logging"
	"github.com/yaegashi/iotops/internal/naming"
)

// Action is what a run does to one resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionNoop   Action = "noop"
	ActionRead   Action = "read"
	ActionDelete Action = "delete"
)

// Applier converges resources of one kind. prev is nil on create.
// The returned attributes are persisted and may be referenced by outputs.
type Applier interface {
	Apply(ctx context.Context, r *model.Resource, prev *model.ResourceState) (map[string]string, error)
}

// Deleter is implemented by appliers whose resources must be torn down on prune.
// Kinds without a Deleter are only forgotten.
type Deleter interface {
	Delete(ctx context.Context, st *model.ResourceState) error
}

// Step is one planned or executed action.
type Step struct {
	ID     string
	Kind   model.ResourceKind
	Action Action
	Digest string
}

// Result reports a run.
type Result struct {
	Steps   []Step
	Outputs map[string]string
}

// Changed reports whether any step mutates a resource.
func (r *Result) Changed() bool {
	for _, s := range r.Steps {
		if s.Action != ActionNoop && s.Action != ActionRead {
			return true
		}
	}
	return false
}

// RunOptions tunes Run.
type RunOptions struct {
	DryRun bool
}

// Engine converges graphs of one stack.
type Engine struct {
	State    domain.StateRepository
	Appliers map[model.ResourceKind]Applier
	Stack    string
}

// UnknownValue stands for outputs that cannot be resolved before apply.
const UnknownValue = "(known after apply)"

type plannedStep struct {
	Step
	resource *model.Resource
	prev     *model.ResourceState
	order    int
}

// Run plans g against stored state and, unless opts.DryRun, applies the plan.
// Resources are applied one at a time in topological order; state is persisted
// after each success and the run stops at the first failure.
func (e *Engine) Run(ctx context.Context, g *graph.Graph, opts RunOptions) (*Result, error) {
	logger := logging.FromContext(ctx).With("stack", e.Stack)
	logger.Debug(ctx, "Engine:Run/s", "resources", g.Len(), "dryRun", opts.DryRun)

	if err := g.Validate(); err != nil {
		return nil, err
	}
	sorted, err := g.Sort()
	if err != nil {
		return nil, err
	}
	stored, err := e.State.List(ctx, e.Stack)
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	existing := make(map[string]*model.ResourceState, len(stored))
	for _, st := range stored {
		existing[st.ID] = st
	}

	plan, err := e.plan(sorted, existing)
	if err != nil {
		return nil, err
	}
	stale := staleStates(g, stored)

	res := &Result{Outputs: map[string]string{}}
	attrs := make(map[string]map[string]string, len(existing))
	for id, st := range existing {
		attrs[id] = st.Attributes
	}

	if opts.DryRun {
		for _, p := range plan {
			res.Steps = append(res.Steps, p.Step)
			if p.resource.Kind == model.KindOutput {
				spec, err := outputSpec(p.resource)
				if err != nil {
					return nil, err
				}
				v, err := resolveOutput(spec, attrs)
				if err != nil {
					v = UnknownValue
				}
				res.Outputs[spec.Name] = v
			}
		}
		for _, st := range stale {
			res.Steps = append(res.Steps, Step{ID: st.ID, Kind: st.Kind, Action: ActionDelete, Digest: st.Digest})
		}
		return res, nil
	}

	for _, p := range plan {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r := p.resource
		switch {
		case r.Kind == model.KindOutput:
			spec, err := outputSpec(r)
			if err != nil {
				return res, err
			}
			v, err := resolveOutput(spec, attrs)
			if err != nil {
				return res, fmt.Errorf("output %s: %w", spec.Name, err)
			}
			res.Outputs[spec.Name] = v
			attrs[r.ID] = map[string]string{"name": spec.Name, "value": v}
			if err := e.record(ctx, p, attrs[r.ID]); err != nil {
				return res, err
			}
		case p.Action == ActionNoop:
			if p.prev.Order != p.order {
				if err := e.record(ctx, p, p.prev.Attributes); err != nil {
					return res, err
				}
			}
		default:
			applier, ok := e.Appliers[r.Kind]
			if !ok {
				return res, fmt.Errorf("no applier registered for kind %s", r.Kind)
			}
			logger.Info(ctx, "Engine:Apply/s", "id", r.ID, "kind", r.Kind, "action", p.Action)
			out, err := applier.Apply(ctx, r, p.prev)
			if err != nil {
				err = classify(err)
				logger.Warn(ctx, "Engine:Apply/efail", "id", r.ID, "err", err)
				return res, fmt.Errorf("%s %s: %w", p.Action, r.ID, err)
			}
			logger.Info(ctx, "Engine:Apply/eok", "id", r.ID)
			if out == nil {
				out = map[string]string{}
			}
			attrs[r.ID] = out
			if err := e.record(ctx, p, out); err != nil {
				return res, err
			}
		}
		res.Steps = append(res.Steps, p.Step)
	}

	for _, st := range stale {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		logger.Info(ctx, "Engine:Delete/s", "id", st.ID, "kind", st.Kind)
		if d, ok := e.Appliers[st.Kind].(Deleter); ok {
			if err := d.Delete(ctx, st); err != nil {
				err = classify(err)
				logger.Warn(ctx, "Engine:Delete/efail", "id", st.ID, "err", err)
				return res, fmt.Errorf("delete %s: %w", st.ID, err)
			}
		}
		if err := e.State.Delete(ctx, e.Stack, st.ID); err != nil && !errors.Is(err, model.ErrStateNotFound) {
			return res, fmt.Errorf("delete state %s: %w", st.ID, err)
		}
		logger.Info(ctx, "Engine:Delete/eok", "id", st.ID)
		res.Steps = append(res.Steps, Step{ID: st.ID, Kind: st.Kind, Action: ActionDelete, Digest: st.Digest})
	}
	return res, nil
}

// Outputs returns the stored outputs of the stack.
func (e *Engine) Outputs(ctx context.Context) (map[string]string, error) {
	stored, err := e.State.List(ctx, e.Stack)
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	out := map[string]string{}
	for _, st := range stored {
		if st.Kind == model.KindOutput {
			out[st.Attributes["name"]] = st.Attributes["value"]
		}
	}
	return out, nil
}

func (e *Engine) plan(sorted []*model.Resource, existing map[string]*model.ResourceState) ([]plannedStep, error) {
	plan := make([]plannedStep, 0, len(sorted))
	for i, r := range sorted {
		d, err := Digest(r)
		if err != nil {
			return nil, err
		}
		prev := existing[r.ID]
		action := ActionNoop
		switch {
		case r.Kind == model.KindOutput:
			action = ActionRead
		case prev == nil:
			action = ActionCreate
		case prev.Digest != d || prev.Kind != r.Kind:
			action = ActionUpdate
		}
		plan = append(plan, plannedStep{
			Step:     Step{ID: r.ID, Kind: r.Kind, Action: action, Digest: d},
			resource: r,
			prev:     prev,
			order:    i,
		})
	}
	return plan, nil
}

func (e *Engine) record(ctx context.Context, p plannedStep, attrs map[string]string) error {
	st := &model.ResourceState{
		Stack:      e.Stack,
		ID:         p.ID,
		Kind:       p.Kind,
		Digest:     p.Digest,
		Order:      p.order,
		Attributes: attrs,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := e.State.Put(ctx, st); err != nil {
		return fmt.Errorf("persist state %s: %w", p.ID, err)
	}
	return nil
}

// Digest summarizes a resource from its kind, ID, spec and triggers.
// Dependencies only order the apply; a change reaches a dependent through its
// own spec or an explicit trigger.
func Digest(r *model.Resource) (string, error) {
	spec, err := json.Marshal(r.Spec)
	if err != nil {
		return "", fmt.Errorf("encode spec of %s: %w", r.ID, err)
	}
	parts := [][]byte{[]byte(r.Kind), []byte(r.ID), spec}
	for _, t := range r.Triggers {
		parts = append(parts, []byte("trigger"), []byte(t))
	}
	return naming.Digest(parts...), nil
}

// staleStates returns stored records absent from g, last applied first.
func staleStates(g *graph.Graph, stored []*model.ResourceState) []*model.ResourceState {
	var stale []*model.ResourceState
	for _, st := range stored {
		if _, ok := g.Get(st.ID); !ok {
			stale = append(stale, st)
		}
	}
	sort.SliceStable(stale, func(i, j int) bool { return stale[i].Order > stale[j].Order })
	return stale
}

func outputSpec(r *model.Resource) (*model.OutputSpec, error) {
	switch s := r.Spec.(type) {
	case *model.OutputSpec:
		return s, nil
	case model.OutputSpec:
		return &s, nil
	}
	return nil, fmt.Errorf("resource %s: unexpected spec %T for kind %s", r.ID, r.Spec, r.Kind)
}

func resolveOutput(spec *model.OutputSpec, attrs map[string]map[string]string) (string, error) {
	if spec.From == "" {
		return spec.Value, nil
	}
	v, ok := attrs[spec.From][spec.Attribute]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: attribute %s of %s is not available", model.ErrUpstream, spec.Attribute, spec.From)
	}
	if spec.Format == "" {
		return v, nil
	}
	return fmt.Sprintf(spec.Format, v), nil
}

// classify keeps known error classes and marks everything else as an upstream failure.
func classify(err error) error {
	if errors.Is(err, model.ErrRemoteExec) || errors.Is(err, model.ErrUpstream) ||
		errors.Is(err, model.ErrConfigInvalid) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrUpstream, err)
}
