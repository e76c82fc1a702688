package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/errdefs"

	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/converge"
	"github.com/yaegashi/iotops/internal/logging"
)

// Applier converges docker.network, docker.image and docker.container resources.
type Applier struct {
	API API
}

var (
	_ converge.Applier = (*Applier)(nil)
	_ converge.Deleter = (*Applier)(nil)
)

func (a *Applier) Apply(ctx context.Context, r *model.Resource, _ *model.ResourceState) (map[string]string, error) {
	switch s := r.Spec.(type) {
	case *model.DockerNetworkSpec:
		return a.applyNetwork(ctx, s)
	case *model.DockerImageSpec:
		return a.applyImage(ctx, s)
	case *model.DockerContainerSpec:
		return a.applyContainer(ctx, s)
	}
	return nil, fmt.Errorf("resource %s: unexpected spec %T for kind %s", r.ID, r.Spec, r.Kind)
}

// Delete removes containers and networks. Images are left on the host.
func (a *Applier) Delete(ctx context.Context, st *model.ResourceState) error {
	name := st.Attributes["name"]
	if name == "" {
		return nil
	}
	switch st.Kind {
	case model.KindDockerContainer:
		return a.removeContainer(ctx, name)
	case model.KindDockerNetwork:
		if err := a.API.NetworkRemove(ctx, name); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("remove network %s: %w", name, err)
		}
	}
	return nil
}

func (a *Applier) applyNetwork(ctx context.Context, s *model.DockerNetworkSpec) (map[string]string, error) {
	logger := logging.FromContext(ctx).With("network", s.Name)
	nw, err := a.API.NetworkInspect(ctx, s.Name, types.NetworkInspectOptions{})
	if err == nil {
		logger.Debug(ctx, "DockerClient:NetworkExists")
		return map[string]string{"name": s.Name, "id": nw.ID}, nil
	}
	if !errdefs.IsNotFound(err) {
		return nil, fmt.Errorf("inspect network %s: %w", s.Name, err)
	}
	resp, err := a.API.NetworkCreate(ctx, s.Name, types.NetworkCreate{
		CheckDuplicate: true,
		Driver:         "bridge",
		Labels:         map[string]string{LabelManagedBy: "iotops"},
	})
	if err != nil {
		logger.Info(ctx, "DockerClient:NetworkCreate/efail", "err", err)
		return nil, fmt.Errorf("create network %s: %w", s.Name, err)
	}
	logger.Info(ctx, "DockerClient:NetworkCreate/eok", "id", resp.ID)
	return map[string]string{"name": s.Name, "id": resp.ID}, nil
}

func (a *Applier) applyImage(ctx context.Context, s *model.DockerImageSpec) (map[string]string, error) {
	logger := logging.FromContext(ctx).With("image", s.Ref)
	logger.Info(ctx, "DockerClient:ImagePull/s")
	rc, err := a.API.ImagePull(ctx, s.Ref, types.ImagePullOptions{})
	if err != nil {
		logger.Info(ctx, "DockerClient:ImagePull/efail", "err", err)
		return nil, fmt.Errorf("pull %s: %w", s.Ref, err)
	}
	_, err = io.Copy(io.Discard, rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("pull %s: %w", s.Ref, err)
	}
	img, _, err := a.API.ImageInspectWithRaw(ctx, s.Ref)
	if err != nil {
		return nil, fmt.Errorf("inspect image %s: %w", s.Ref, err)
	}
	logger.Info(ctx, "DockerClient:ImagePull/eok", "id", img.ID)
	return map[string]string{"name": s.Ref, "id": img.ID}, nil
}

// applyContainer replaces any container of the same name and starts a new one.
func (a *Applier) applyContainer(ctx context.Context, s *model.DockerContainerSpec) (map[string]string, error) {
	cfg, host, netCfg, err := createConfig(s)
	if err != nil {
		return nil, err
	}
	if err := a.removeContainer(ctx, s.Name); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx).With("container", s.Name)
	resp, err := a.API.ContainerCreate(ctx, cfg, host, netCfg, nil, s.Name)
	if err != nil {
		logger.Info(ctx, "DockerClient:ContainerCreate/efail", "err", err)
		return nil, fmt.Errorf("create container %s: %w", s.Name, err)
	}
	for _, w := range resp.Warnings {
		logger.Warn(ctx, "DockerClient:ContainerCreate/warning", "msg", w)
	}
	if err := a.API.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		logger.Info(ctx, "DockerClient:ContainerStart/efail", "err", err)
		return nil, fmt.Errorf("start container %s: %w", s.Name, err)
	}
	logger.Info(ctx, "DockerClient:ContainerStart/eok", "id", resp.ID)
	return map[string]string{"name": s.Name, "id": resp.ID}, nil
}

func (a *Applier) removeContainer(ctx context.Context, name string) error {
	if _, err := a.API.ContainerInspect(ctx, name); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("inspect container %s: %w", name, err)
	}
	if err := a.API.ContainerRemove(ctx, name, types.ContainerRemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove container %s: %w", name, err)
	}
	logging.FromContext(ctx).Info(ctx, "DockerClient:ContainerRemove/eok", "container", name)
	return nil
}
