package converge

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/yaegashi/iotops/adapters/store/inmem"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/graph"
)

// fakeApplier records calls and returns canned attributes.
type fakeApplier struct {
	applied []string
	deleted []string
	attrs   map[string]map[string]string
	fail    map[string]error
}

func newFake() *fakeApplier {
	return &fakeApplier{attrs: map[string]map[string]string{}, fail: map[string]error{}}
}

func (f *fakeApplier) Apply(_ context.Context, r *model.Resource, _ *model.ResourceState) (map[string]string, error) {
	if err := f.fail[r.ID]; err != nil {
		return nil, err
	}
	f.applied = append(f.applied, r.ID)
	return f.attrs[r.ID], nil
}

func (f *fakeApplier) Delete(_ context.Context, st *model.ResourceState) error {
	if err := f.fail[st.ID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, st.ID)
	return nil
}

func legacyGraph(t *testing.T, fingerprint string) *graph.Graph {
	t.Helper()
	g := graph.New()
	err := g.Add(
		&model.Resource{ID: "dir-config", Kind: model.KindRemoteDir, Spec: model.RemoteDirSpec{Path: "/r/mosquitto-config"}},
		&model.Resource{ID: "dir-data", Kind: model.KindRemoteDir, Spec: model.RemoteDirSpec{Path: "/r/mosquitto-data"}},
		&model.Resource{ID: "sync", Kind: model.KindRemoteSync, Spec: model.RemoteSyncSpec{Local: "assets/mosquitto"}, DependsOn: []string{"dir-config"}, Triggers: []string{fingerprint}},
		&model.Resource{ID: "image", Kind: model.KindDockerImage, Spec: model.DockerImageSpec{Ref: "eclipse-mosquitto:2"}},
		&model.Resource{ID: "container", Kind: model.KindDockerContainer, Spec: model.DockerContainerSpec{Name: "mosquitto"}, DependsOn: []string{"image", "dir-config", "dir-data", "sync"}, Triggers: []string{fingerprint}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func newEngine(f *fakeApplier) (*Engine, *inmem.StateRepository) {
	state := inmem.NewStateRepository()
	return &Engine{
		State: state,
		Stack: "test",
		Appliers: map[model.ResourceKind]Applier{
			model.KindRemoteDir:       f,
			model.KindRemoteSync:      f,
			model.KindDockerImage:     f,
			model.KindDockerContainer: f,
			model.KindKubeObject:      f,
		},
	}, state
}

func actions(res *Result) map[string]Action {
	out := map[string]Action{}
	for _, s := range res.Steps {
		out[s.ID] = s.Action
	}
	return out
}

func TestRun_CreateThenNoop(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	e, _ := newEngine(f)

	res, err := e.Run(ctx, legacyGraph(t, "fp1"), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"dir-config", "sync", "dir-data", "image", "container"}
	if !reflect.DeepEqual(f.applied, want) {
		t.Fatalf("applied = %v, want %v", f.applied, want)
	}
	for id, a := range actions(res) {
		if a != ActionCreate {
			t.Errorf("%s: action %s, want create", id, a)
		}
	}

	f.applied = nil
	res, err = e.Run(ctx, legacyGraph(t, "fp1"), RunOptions{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(f.applied) != 0 {
		t.Fatalf("second run applied %v, want nothing", f.applied)
	}
	if res.Changed() {
		t.Errorf("second run must report no changes: %+v", res.Steps)
	}
}

func TestRun_FingerprintChangePropagates(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	e, _ := newEngine(f)
	if _, err := e.Run(ctx, legacyGraph(t, "fp1"), RunOptions{}); err != nil {
		t.Fatal(err)
	}

	f.applied = nil
	res, err := e.Run(ctx, legacyGraph(t, "fp2"), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(f.applied, []string{"sync", "container"}) {
		t.Fatalf("applied = %v, want [sync container]", f.applied)
	}
	got := actions(res)
	if got["sync"] != ActionUpdate || got["container"] != ActionUpdate || got["dir-config"] != ActionNoop {
		t.Errorf("unexpected actions %v", got)
	}
}

func TestRun_DryRunDoesNotApply(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	e, state := newEngine(f)

	res, err := e.Run(ctx, legacyGraph(t, "fp1"), RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.applied) != 0 {
		t.Fatalf("dry run applied %v", f.applied)
	}
	if len(res.Steps) != 5 {
		t.Fatalf("expected 5 planned steps, got %d", len(res.Steps))
	}
	list, _ := state.List(ctx, "test")
	if len(list) != 0 {
		t.Fatalf("dry run persisted state: %v", list)
	}
}

func TestRun_AbortsOnFirstFailure(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.fail["sync"] = fmt.Errorf("rsync: %w", model.ErrRemoteExec)
	e, state := newEngine(f)

	_, err := e.Run(ctx, legacyGraph(t, "fp1"), RunOptions{})
	if !errors.Is(err, model.ErrRemoteExec) {
		t.Fatalf("expected ErrRemoteExec, got %v", err)
	}
	if errors.Is(err, model.ErrUpstream) {
		t.Errorf("classified errors must not be rewrapped: %v", err)
	}
	if !reflect.DeepEqual(f.applied, []string{"dir-config"}) {
		t.Fatalf("applied = %v, want only dir-config", f.applied)
	}
	if _, err := state.Get(ctx, "test", "dir-config"); err != nil {
		t.Errorf("successful resource must be persisted: %v", err)
	}
	if _, err := state.Get(ctx, "test", "container"); !errors.Is(err, model.ErrStateNotFound) {
		t.Errorf("container must not be recorded after abort")
	}
}

func TestRun_UnclassifiedErrorIsUpstream(t *testing.T) {
	f := newFake()
	f.fail["image"] = errors.New("pull access denied")
	e, _ := newEngine(f)
	_, err := e.Run(context.Background(), legacyGraph(t, "fp1"), RunOptions{})
	if !errors.Is(err, model.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestRun_PruneDeletesInReverseOrder(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	e, state := newEngine(f)
	if _, err := e.Run(ctx, legacyGraph(t, "fp1"), RunOptions{}); err != nil {
		t.Fatal(err)
	}

	res, err := e.Run(ctx, graph.New(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"container", "image", "dir-data", "sync", "dir-config"}
	if !reflect.DeepEqual(f.deleted, want) {
		t.Fatalf("deleted = %v, want %v", f.deleted, want)
	}
	for _, s := range res.Steps {
		if s.Action != ActionDelete {
			t.Errorf("%s: action %s, want delete", s.ID, s.Action)
		}
	}
	list, _ := state.List(ctx, "test")
	if len(list) != 0 {
		t.Errorf("state must be empty after prune, got %d records", len(list))
	}
}

func TestRun_Outputs(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	f.attrs["svc"] = map[string]string{"address": "203.0.113.7"}
	e, _ := newEngine(f)

	build := func() *graph.Graph {
		g := graph.New()
		_ = g.Add(
			&model.Resource{ID: "svc", Kind: model.KindKubeObject, Spec: map[string]string{"name": "mosquitto-mqtts"}},
			&model.Resource{ID: "output/url", Kind: model.KindOutput, DependsOn: []string{"svc"},
				Spec: &model.OutputSpec{Name: "url", From: "svc", Attribute: "address", Format: "http://%s:9641/metrics"}},
			&model.Resource{ID: "output/port", Kind: model.KindOutput, Spec: &model.OutputSpec{Name: "port", Value: "8883"}},
		)
		return g
	}

	plan, err := e.Run(ctx, build(), RunOptions{DryRun: true})
	if err != nil {
		t.Fatalf("dry Run: %v", err)
	}
	if plan.Outputs["url"] != UnknownValue || plan.Outputs["port"] != "8883" {
		t.Errorf("unexpected planned outputs %v", plan.Outputs)
	}

	res, err := e.Run(ctx, build(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Outputs["url"] != "http://203.0.113.7:9641/metrics" {
		t.Errorf("url = %q", res.Outputs["url"])
	}

	// A second run resolves from stored attributes without re-applying.
	f.applied = nil
	res, err = e.Run(ctx, build(), RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(f.applied) != 0 || res.Outputs["url"] != "http://203.0.113.7:9641/metrics" {
		t.Errorf("applied=%v outputs=%v", f.applied, res.Outputs)
	}

	stored, err := e.Outputs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stored["port"] != "8883" || stored["url"] == "" {
		t.Errorf("stored outputs %v", stored)
	}
}

func TestRun_MissingApplier(t *testing.T) {
	e := &Engine{State: inmem.NewStateRepository(), Stack: "s", Appliers: map[model.ResourceKind]Applier{}}
	g := graph.New()
	_ = g.Add(&model.Resource{ID: "rec", Kind: model.KindDNSRecord, Spec: model.DNSRecordSet{FQDN: "mqtt.example.com"}})
	if _, err := e.Run(context.Background(), g, RunOptions{}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
}

func TestDigest_IgnoresDependencies(t *testing.T) {
	base := &model.Resource{ID: "c", Kind: model.KindDockerContainer, Spec: model.DockerContainerSpec{Name: "c"}}
	d0, err := Digest(base)
	if err != nil {
		t.Fatal(err)
	}

	withDeps := *base
	withDeps.DependsOn = []string{"a", "b"}
	if d, _ := Digest(&withDeps); d != d0 {
		t.Error("digest must not depend on DependsOn")
	}

	withTrigger := *base
	withTrigger.Triggers = []string{"fp1"}
	d1, _ := Digest(&withTrigger)
	withTrigger.Triggers = []string{"fp2"}
	d2, _ := Digest(&withTrigger)
	if d1 == d0 || d1 == d2 {
		t.Error("digest must change with triggers")
	}

	bad := &model.Resource{ID: "x", Kind: model.KindOutput, Spec: make(chan int)}
	if _, err := Digest(bad); err == nil {
		t.Error("expected error for an unencodable spec")
	}
}

func TestRun_DependencyChangeDoesNotCascade(t *testing.T) {
	ctx := context.Background()
	f := newFake()
	e, _ := newEngine(f)
	if _, err := e.Run(ctx, legacyGraph(t, "fp1"), RunOptions{}); err != nil {
		t.Fatal(err)
	}

	g := legacyGraph(t, "fp1")
	img, _ := g.Get("image")
	img.Spec = model.DockerImageSpec{Ref: "eclipse-mosquitto:3"}

	f.applied = nil
	res, err := e.Run(ctx, g, RunOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(f.applied, []string{"image"}) {
		t.Fatalf("applied = %v, want [image]", f.applied)
	}
	if got := actions(res); got["container"] != ActionNoop {
		t.Errorf("container action = %s, want noop", got["container"])
	}
}
