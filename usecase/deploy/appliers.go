package deploy

import (
	"context"
	"time"

	"github.com/yaegashi/iotops/adapters/dns/cloudflare"
	"github.com/yaegashi/iotops/adapters/docker"
	"github.com/yaegashi/iotops/adapters/kube"
	"github.com/yaegashi/iotops/adapters/remote"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/converge"
)

// BackendAppliers connects to real backends.
type BackendAppliers struct {
	// Kubeconfig is the kubeconfig path; empty uses the default loading rules.
	Kubeconfig string
	// AddressTimeout bounds the wait for LoadBalancer addresses.
	AddressTimeout time.Duration
	UserAgent      string
}

var _ ApplierFactory = (*BackendAppliers)(nil)

func (b *BackendAppliers) Appliers(ctx context.Context, t *Target) (map[model.ResourceKind]converge.Applier, func() error, error) {
	switch t.Backend {
	case model.BackendKubernetes:
		c, err := kube.NewClientFromKubeconfigPath(ctx, b.Kubeconfig, &kube.Options{UserAgent: b.UserAgent})
		if err != nil {
			return nil, nil, err
		}
		return map[model.ResourceKind]converge.Applier{
			model.KindKubeObject: &kube.Applier{Client: c, AddressTimeout: b.AddressTimeout},
		}, nil, nil
	case model.BackendLegacy:
		tc := t.Config.Target
		cli, err := docker.NewClient(tc.Host, tc.User)
		if err != nil {
			return nil, nil, err
		}
		cfAPI, err := cloudflare.NewAPI(cloudflare.Credentials{
			Email:    t.Config.Cloudflare.Email,
			APIKey:   t.Secrets.CloudflareAPIKey,
			APIToken: t.Secrets.CloudflareAPIToken,
		})
		if err != nil {
			cli.Close()
			return nil, nil, err
		}
		dockerApplier := &docker.Applier{API: cli}
		remoteApplier := &remote.Applier{Provisioner: remote.NewProvisioner()}
		return map[model.ResourceKind]converge.Applier{
			model.KindDockerNetwork:   dockerApplier,
			model.KindDockerImage:     dockerApplier,
			model.KindDockerContainer: dockerApplier,
			model.KindRemoteDir:       remoteApplier,
			model.KindRemoteSync:      remoteApplier,
			model.KindDNSRecord:       &cloudflare.Applier{API: cfAPI},
		}, cli.Close, nil
	}
	return nil, nil, model.NewConfigError("backend", "unsupported backend %q", t.Backend)
}
