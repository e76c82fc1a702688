package exporter

import (
	"fmt"

	"github.com/yaegashi/iotops/adapters/docker"
	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/assets"
	"github.com/yaegashi/iotops/internal/naming"
)

// Resource IDs of the legacy exporter.
const (
	IDConfigDir  = "mqtt2prometheus/config-dir"
	IDDataDir    = "mqtt2prometheus/data-dir"
	IDConfigSync = "mqtt2prometheus/config-sync"
	IDImage      = "mqtt2prometheus/image"
	IDContainer  = "mqtt2prometheus/container"
)

// LegacyInput carries what the legacy plan needs beyond the document.
type LegacyInput struct {
	Config  *iotcfg.ComponentConfig
	Secrets *iotcfg.Secrets
	// Bundle is the resolved "mqtt2prometheus" asset bundle.
	Bundle *assets.Bundle
	// NetworkID is the resource ID of the shared Docker network.
	NetworkID   string
	NetworkName string
}

// PlanLegacy declares the single exporter of the Docker host. The host config
// comes from the mirrored bundle, not from the instance's rendered config.
func PlanLegacy(in *LegacyInput) ([]*model.Resource, error) {
	cfg := in.Config
	instances := cfg.Instances()
	if len(instances) == 0 {
		return nil, nil
	}
	if len(instances) > 1 {
		return nil, model.NewConfigError("mqtt2prometheus.instances", "the legacy backend supports at most one instance, got %d", len(instances))
	}
	t := cfg.Target
	if t == nil || t.Host == "" || t.User == "" || t.RootDir == "" {
		return nil, model.NewConfigError("target", "host, user and root_dir are required for the legacy backend")
	}
	if in.Bundle == nil {
		return nil, fmt.Errorf("mqtt2prometheus asset bundle is not resolved")
	}

	configDir := naming.LegacyDir(t.RootDir, "mqtt2prometheus-config")
	dataDir := naming.LegacyDir(t.RootDir, "mqtt2prometheus-data")
	image := Image(cfg.MqttPrometheus.Version)

	ctr, err := docker.BuildContainer(&model.ServiceIntent{
		Name:  naming.ExporterName,
		Image: image,
		Ports: []model.PortIntent{{Name: "exporter", Container: Port, Host: Port}},
		Env: []model.EnvIntent{
			{Name: EnvUser, Value: in.Secrets.ExporterUsername},
			{Name: EnvPassword, Value: in.Secrets.ExporterPassword},
		},
		Mounts: []model.MountIntent{
			{Name: "config", Source: model.MountHostPath, Ref: configDir + "/" + ConfigKey, Path: ConfigPath, ReadOnly: true},
			{Name: "data", Source: model.MountHostPath, Ref: dataDir, Path: DataPath},
		},
		Restart: "always",
	}, in.NetworkName, []string{naming.ExporterName})
	if err != nil {
		return nil, err
	}

	return []*model.Resource{
		{ID: IDConfigDir, Kind: model.KindRemoteDir, Spec: &model.RemoteDirSpec{Host: t.Host, User: t.User, Path: configDir}},
		{ID: IDDataDir, Kind: model.KindRemoteDir, Spec: &model.RemoteDirSpec{Host: t.Host, User: t.User, Path: dataDir}},
		{
			ID:        IDConfigSync,
			Kind:      model.KindRemoteSync,
			Spec:      &model.RemoteSyncSpec{Host: t.Host, User: t.User, Local: in.Bundle.Path, Remote: configDir},
			DependsOn: []string{IDConfigDir},
			Triggers:  []string{in.Bundle.Fingerprint},
		},
		{ID: IDImage, Kind: model.KindDockerImage, Spec: &model.DockerImageSpec{Ref: image}},
		{
			ID:        IDContainer,
			Kind:      model.KindDockerContainer,
			Spec:      ctr,
			DependsOn: []string{IDImage, IDConfigDir, IDDataDir, IDConfigSync, in.NetworkID},
			Triggers:  []string{in.Bundle.Fingerprint},
		},
	}, nil
}
