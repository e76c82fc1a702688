package docker

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"

	"github.com/yaegashi/iotops/domain/model"
)

// LabelManagedBy marks containers and networks created by iotops.
const LabelManagedBy = "dev.yaegashi.iotops.managed-by"

// BuildContainer translates a service intent into a container spec attached to
// networkName under the intent's aliases plus aliases. Only host-path mounts and
// literal environment values are supported.
func BuildContainer(in *model.ServiceIntent, networkName string, aliases []string) (*model.DockerContainerSpec, error) {
	if in.Name == "" || in.Image == "" {
		return nil, fmt.Errorf("service intent requires name and image")
	}
	spec := &model.DockerContainerSpec{
		Name:    in.Name,
		Image:   in.Image,
		Network: networkName,
		Aliases: append(append([]string(nil), in.Aliases...), aliases...),
		Restart: in.Restart,
		Labels:  map[string]string{LabelManagedBy: "iotops"},
	}
	for k, v := range in.Labels {
		spec.Labels[k] = v
	}
	for _, p := range in.Ports {
		if p.Host == 0 {
			continue
		}
		spec.Ports = append(spec.Ports, model.PortBinding{Host: p.Host, Container: p.Container, Protocol: "tcp"})
	}
	for _, e := range in.Env {
		if e.SecretRef != "" {
			return nil, fmt.Errorf("service %s: env %s references a secret object, which the docker backend cannot resolve", in.Name, e.Name)
		}
		spec.Env = append(spec.Env, e.Name+"="+e.Value)
	}
	for _, m := range in.Mounts {
		if m.Source != model.MountHostPath {
			return nil, fmt.Errorf("service %s: mount %s: source %q is not supported by the docker backend", in.Name, m.Name, m.Source)
		}
		bind := m.Ref + ":" + m.Path
		if m.ReadOnly {
			bind += ":ro"
		}
		spec.Binds = append(spec.Binds, bind)
	}
	if in.RunAs != nil {
		spec.User = strconv.FormatInt(*in.RunAs, 10)
	}
	return spec, nil
}

// createConfig converts a spec into Engine API create parameters.
func createConfig(s *model.DockerContainerSpec) (*container.Config, *container.HostConfig, *network.NetworkingConfig, error) {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range s.Ports {
		proto := p.Protocol
		if proto == "" {
			proto = "tcp"
		}
		port, err := nat.NewPort(proto, strconv.Itoa(p.Container))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("container %s: port %d: %w", s.Name, p.Container, err)
		}
		exposed[port] = struct{}{}
		bindings[port] = append(bindings[port], nat.PortBinding{HostPort: strconv.Itoa(p.Host)})
	}

	labels := make(map[string]string, len(s.Labels))
	for k, v := range s.Labels {
		labels[k] = v
	}
	cfg := &container.Config{
		Image:        s.Image,
		Env:          append([]string(nil), s.Env...),
		ExposedPorts: exposed,
		Labels:       labels,
		User:         s.User,
		Hostname:     s.Hostname,
	}
	host := &container.HostConfig{
		Binds:         append([]string(nil), s.Binds...),
		PortBindings:  bindings,
		RestartPolicy: container.RestartPolicy{Name: s.Restart},
	}
	var netCfg *network.NetworkingConfig
	if s.Network != "" {
		host.NetworkMode = container.NetworkMode(s.Network)
		aliases := append([]string(nil), s.Aliases...)
		sort.Strings(aliases)
		netCfg = &network.NetworkingConfig{EndpointsConfig: map[string]*network.EndpointSettings{
			s.Network: {Aliases: aliases},
		}}
	}
	return cfg, host, netCfg, nil
}
