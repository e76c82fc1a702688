package deploy

import (
	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/assets"
	"github.com/yaegashi/iotops/internal/graph"
	"github.com/yaegashi/iotops/internal/naming"
	"github.com/yaegashi/iotops/usecase/broker"
	"github.com/yaegashi/iotops/usecase/exporter"
)

// DefaultAssetsDir holds the shipped asset bundles.
const DefaultAssetsDir = "assets"

// IDNetwork is the resource ID of the shared Docker network of the legacy backend.
const IDNetwork = "docker/network"

// BuildGraph declares every resource of the stack for backend. cfg must have
// been validated for backend.
func BuildGraph(cfg *iotcfg.ComponentConfig, backend model.Backend, secrets *iotcfg.Secrets, assetsDir string) (*graph.Graph, error) {
	var rs []*model.Resource
	switch backend {
	case model.BackendKubernetes:
		b, err := broker.PlanKube(cfg)
		if err != nil {
			return nil, err
		}
		e, err := exporter.PlanKube(cfg, secrets)
		if err != nil {
			return nil, err
		}
		rs = append(b, e...)
	case model.BackendLegacy:
		if assetsDir == "" {
			assetsDir = DefaultAssetsDir
		}
		mosq, err := assets.Resolve(assetsDir, naming.BrokerName)
		if err != nil {
			return nil, err
		}
		rs = append(rs, &model.Resource{
			ID:   IDNetwork,
			Kind: model.KindDockerNetwork,
			Spec: &model.DockerNetworkSpec{Name: naming.LegacyNetwork},
		})
		b, err := broker.PlanLegacy(&broker.LegacyInput{
			Config:      cfg,
			Bundle:      mosq,
			NetworkID:   IDNetwork,
			NetworkName: naming.LegacyNetwork,
		})
		if err != nil {
			return nil, err
		}
		rs = append(rs, b...)
		if len(cfg.Instances()) > 0 {
			bundle, err := assets.Resolve(assetsDir, naming.ExporterName)
			if err != nil {
				return nil, err
			}
			e, err := exporter.PlanLegacy(&exporter.LegacyInput{
				Config:      cfg,
				Secrets:     secrets,
				Bundle:      bundle,
				NetworkID:   IDNetwork,
				NetworkName: naming.LegacyNetwork,
			})
			if err != nil {
				return nil, err
			}
			rs = append(rs, e...)
		}
	default:
		return nil, model.NewConfigError("backend", "unsupported backend %q", backend)
	}

	g := graph.New()
	if err := g.Add(rs...); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
