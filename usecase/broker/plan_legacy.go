package broker

import (
	"fmt"
	"strings"

	"github.com/yaegashi/iotops/adapters/docker"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/naming"
)

// PlanLegacy declares the broker on the Docker host: the DNS alias, the config
// and data directories, the mirrored config bundle, the image and the container.
func PlanLegacy(in *LegacyInput) ([]*model.Resource, error) {
	cfg := in.Config
	t := cfg.Target
	if t == nil || t.Host == "" || t.User == "" || t.RootDir == "" {
		return nil, model.NewConfigError("target", "host, user and root_dir are required for the legacy backend")
	}
	if cfg.Cloudflare == nil || cfg.Cloudflare.Zone == "" {
		return nil, model.NewConfigError("cloudflare.zone", "required for the legacy backend")
	}
	if in.Bundle == nil {
		return nil, fmt.Errorf("mosquitto asset bundle is not resolved")
	}

	zone := strings.TrimSuffix(cfg.Cloudflare.Zone, ".")
	fqdn := DNSLabel + "." + zone
	target := cfg.Cloudflare.CNAMETarget
	if target == "" {
		target = zone
	}
	configDir := naming.LegacyDir(t.RootDir, "mosquitto-config")
	dataDir := naming.LegacyDir(t.RootDir, "mosquitto-data")
	image := Image(cfg.Mosquitto.Version)

	ctr, err := docker.BuildContainer(&model.ServiceIntent{
		Name:  naming.BrokerName,
		Image: image,
		Ports: []model.PortIntent{{Name: "mqtt", Container: MQTTPort, Host: MQTTPort}},
		Mounts: []model.MountIntent{
			{Name: "config", Source: model.MountHostPath, Ref: configDir, Path: "/mosquitto/config"},
			{Name: "data", Source: model.MountHostPath, Ref: dataDir, Path: "/mosquitto/data"},
		},
		Restart: "always",
	}, in.NetworkName, []string{naming.BrokerName})
	if err != nil {
		return nil, err
	}

	return []*model.Resource{
		{
			ID:   IDDNS,
			Kind: model.KindDNSRecord,
			Spec: &model.DNSRecordSet{Zone: zone, FQDN: fqdn, Type: model.DNSRecordTypeCNAME, RData: []string{target}},
		},
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
		{ID: outputID(OutputMQTTHost), Kind: model.KindOutput, Spec: &model.OutputSpec{Name: OutputMQTTHost, Value: fqdn}, DependsOn: []string{IDDNS}},
	}, nil
}
