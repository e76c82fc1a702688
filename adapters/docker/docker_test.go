package docker

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/yaegashi/iotops/domain/model"
)

type fakeAPI struct {
	calls      []string
	containers map[string]bool
	networks   map[string]bool
	created    *container.Config
	host       *container.HostConfig
	netCfg     *network.NetworkingConfig
	startErr   error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{containers: map[string]bool{}, networks: map[string]bool{}}
}

func (f *fakeAPI) ContainerCreate(_ context.Context, cfg *container.Config, host *container.HostConfig, netCfg *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	f.calls = append(f.calls, "create:"+name)
	f.created, f.host, f.netCfg = cfg, host, netCfg
	f.containers[name] = true
	return container.CreateResponse{ID: "c-" + name}, nil
}

func (f *fakeAPI) ContainerStart(_ context.Context, id string, _ types.ContainerStartOptions) error {
	f.calls = append(f.calls, "start:"+id)
	return f.startErr
}

func (f *fakeAPI) ContainerRemove(_ context.Context, id string, opts types.ContainerRemoveOptions) error {
	if !opts.Force {
		return errors.New("remove without force")
	}
	f.calls = append(f.calls, "remove:"+id)
	delete(f.containers, id)
	return nil
}

func (f *fakeAPI) ContainerInspect(_ context.Context, id string) (types.ContainerJSON, error) {
	if !f.containers[id] {
		return types.ContainerJSON{}, errdefs.NotFound(errors.New("no such container"))
	}
	return types.ContainerJSON{}, nil
}

func (f *fakeAPI) ImagePull(_ context.Context, ref string, _ types.ImagePullOptions) (io.ReadCloser, error) {
	f.calls = append(f.calls, "pull:"+ref)
	return io.NopCloser(strings.NewReader(`{"status":"Downloaded"}`)), nil
}

func (f *fakeAPI) ImageInspectWithRaw(_ context.Context, ref string) (types.ImageInspect, []byte, error) {
	return types.ImageInspect{ID: "sha256:" + ref}, nil, nil
}

func (f *fakeAPI) NetworkCreate(_ context.Context, name string, opts types.NetworkCreate) (types.NetworkCreateResponse, error) {
	if opts.Driver != "bridge" {
		return types.NetworkCreateResponse{}, errors.New("unexpected driver " + opts.Driver)
	}
	f.calls = append(f.calls, "netcreate:"+name)
	f.networks[name] = true
	return types.NetworkCreateResponse{ID: "n-" + name}, nil
}

func (f *fakeAPI) NetworkInspect(_ context.Context, name string, _ types.NetworkInspectOptions) (types.NetworkResource, error) {
	if !f.networks[name] {
		return types.NetworkResource{}, errdefs.NotFound(errors.New("no such network"))
	}
	return types.NetworkResource{ID: "n-" + name}, nil
}

func (f *fakeAPI) NetworkRemove(_ context.Context, name string) error {
	if !f.networks[name] {
		return errdefs.NotFound(errors.New("no such network"))
	}
	f.calls = append(f.calls, "netremove:"+name)
	delete(f.networks, name)
	return nil
}

func TestDaemonURL(t *testing.T) {
	if got := DaemonURL("nas.local", "admin"); got != "ssh://admin@nas.local" {
		t.Errorf("DaemonURL = %q", got)
	}
	if got := DaemonURL("nas.local", ""); got != "ssh://nas.local" {
		t.Errorf("DaemonURL without user = %q", got)
	}
}

func TestBuildContainer(t *testing.T) {
	uid := int64(1883)
	in := &model.ServiceIntent{
		Name:    "mosquitto",
		Image:   "eclipse-mosquitto:2.0.18",
		Ports:   []model.PortIntent{{Name: "mqtt", Container: 1883, Host: 1883}, {Name: "internal", Container: 9001}},
		Env:     []model.EnvIntent{{Name: "TZ", Value: "UTC"}},
		Mounts:  []model.MountIntent{{Name: "config", Source: model.MountHostPath, Ref: "/srv/iot/mosquitto-config", Path: "/mosquitto/config", ReadOnly: true}},
		Restart: "always",
		RunAs:   &uid,
	}
	spec, err := BuildContainer(in, "iot", []string{"mosquitto"})
	if err != nil {
		t.Fatalf("BuildContainer: %v", err)
	}
	if spec.Network != "iot" || !reflect.DeepEqual(spec.Aliases, []string{"mosquitto"}) {
		t.Errorf("network/aliases = %q %v", spec.Network, spec.Aliases)
	}
	if !reflect.DeepEqual(spec.Binds, []string{"/srv/iot/mosquitto-config:/mosquitto/config:ro"}) {
		t.Errorf("binds = %v", spec.Binds)
	}
	if len(spec.Ports) != 1 || spec.Ports[0].Host != 1883 {
		t.Errorf("only host-published ports expected, got %v", spec.Ports)
	}
	if !reflect.DeepEqual(spec.Env, []string{"TZ=UTC"}) || spec.User != "1883" {
		t.Errorf("env/user = %v %q", spec.Env, spec.User)
	}
	if spec.Labels[LabelManagedBy] != "iotops" {
		t.Errorf("managed-by label missing: %v", spec.Labels)
	}
}

func TestBuildContainer_Unsupported(t *testing.T) {
	cases := []struct {
		name string
		in   *model.ServiceIntent
	}{
		{"no image", &model.ServiceIntent{Name: "x"}},
		{"secret env", &model.ServiceIntent{Name: "x", Image: "i", Env: []model.EnvIntent{{Name: "P", SecretRef: "s", SecretKey: "k"}}}},
		{"config mount", &model.ServiceIntent{Name: "x", Image: "i", Mounts: []model.MountIntent{{Name: "c", Source: model.MountConfigFile, Ref: "cm", Path: "/c"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := BuildContainer(tc.in, "iot", nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCreateConfig(t *testing.T) {
	spec := &model.DockerContainerSpec{
		Name:    "mosquitto",
		Image:   "eclipse-mosquitto:2.0.18",
		Ports:   []model.PortBinding{{Host: 1883, Container: 1883}},
		Binds:   []string{"/a:/b"},
		Network: "iot",
		Aliases: []string{"mosquitto"},
		Restart: "always",
	}
	cfg, host, netCfg, err := createConfig(spec)
	if err != nil {
		t.Fatalf("createConfig: %v", err)
	}
	port := nat.Port("1883/tcp")
	if _, ok := cfg.ExposedPorts[port]; !ok {
		t.Errorf("exposed ports = %v", cfg.ExposedPorts)
	}
	if got := host.PortBindings[port]; len(got) != 1 || got[0].HostPort != "1883" {
		t.Errorf("port bindings = %v", host.PortBindings)
	}
	if host.RestartPolicy.Name != "always" || string(host.NetworkMode) != "iot" {
		t.Errorf("host config = %+v", host)
	}
	if ep := netCfg.EndpointsConfig["iot"]; ep == nil || !reflect.DeepEqual(ep.Aliases, []string{"mosquitto"}) {
		t.Errorf("endpoints = %v", netCfg.EndpointsConfig)
	}
}

func TestApplier_Lifecycle(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	a := &Applier{API: api}

	steps := []*model.Resource{
		{ID: "net", Kind: model.KindDockerNetwork, Spec: &model.DockerNetworkSpec{Name: "iot"}},
		{ID: "img", Kind: model.KindDockerImage, Spec: &model.DockerImageSpec{Ref: "eclipse-mosquitto:2.0.18"}},
		{ID: "ctr", Kind: model.KindDockerContainer, Spec: &model.DockerContainerSpec{Name: "mosquitto", Image: "eclipse-mosquitto:2.0.18", Network: "iot"}},
	}
	for _, r := range steps {
		if _, err := a.Apply(ctx, r, nil); err != nil {
			t.Fatalf("Apply %s: %v", r.ID, err)
		}
	}
	// A second network apply is a lookup; a second container apply replaces it.
	attrs, err := a.Apply(ctx, steps[0], nil)
	if err != nil || attrs["id"] != "n-iot" {
		t.Fatalf("reapply network: %v %v", attrs, err)
	}
	if _, err := a.Apply(ctx, steps[2], nil); err != nil {
		t.Fatalf("reapply container: %v", err)
	}
	want := []string{
		"netcreate:iot",
		"pull:eclipse-mosquitto:2.0.18",
		"create:mosquitto", "start:c-mosquitto",
		"remove:mosquitto", "create:mosquitto", "start:c-mosquitto",
	}
	if !reflect.DeepEqual(api.calls, want) {
		t.Errorf("calls:\n got %v\nwant %v", api.calls, want)
	}

	api.calls = nil
	for _, st := range []*model.ResourceState{
		{ID: "ctr", Kind: model.KindDockerContainer, Attributes: map[string]string{"name": "mosquitto"}},
		{ID: "img", Kind: model.KindDockerImage, Attributes: map[string]string{"name": "eclipse-mosquitto:2.0.18"}},
		{ID: "net", Kind: model.KindDockerNetwork, Attributes: map[string]string{"name": "iot"}},
		{ID: "net", Kind: model.KindDockerNetwork, Attributes: map[string]string{"name": "iot"}},
	} {
		if err := a.Delete(ctx, st); err != nil {
			t.Fatalf("Delete %s: %v", st.ID, err)
		}
	}
	if want := []string{"remove:mosquitto", "netremove:iot"}; !reflect.DeepEqual(api.calls, want) {
		t.Errorf("delete calls = %v, want %v", api.calls, want)
	}
}

func TestApplier_StartFailure(t *testing.T) {
	api := newFakeAPI()
	api.startErr = errors.New("port is already allocated")
	a := &Applier{API: api}
	r := &model.Resource{ID: "ctr", Kind: model.KindDockerContainer, Spec: &model.DockerContainerSpec{Name: "mosquitto", Image: "x"}}
	if _, err := a.Apply(context.Background(), r, nil); err == nil || !strings.Contains(err.Error(), "already allocated") {
		t.Fatalf("expected start error, got %v", err)
	}
}
