package remote

import (
	"context"
	"fmt"

	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/converge"
)

// Applier converges remote.dir and remote.sync resources. Directories and
// mirrored files are left in place when a resource is pruned.
type Applier struct {
	Provisioner *Provisioner
}

var _ converge.Applier = (*Applier)(nil)

func (a *Applier) Apply(ctx context.Context, r *model.Resource, _ *model.ResourceState) (map[string]string, error) {
	switch s := r.Spec.(type) {
	case *model.RemoteDirSpec:
		if err := a.Provisioner.EnsureDir(ctx, s.Host, s.User, s.Path); err != nil {
			return nil, err
		}
		return map[string]string{"host": s.Host, "path": s.Path}, nil
	case *model.RemoteSyncSpec:
		if err := a.Provisioner.Mirror(ctx, s.Local, s.Host, s.User, s.Remote); err != nil {
			return nil, err
		}
		return map[string]string{"host": s.Host, "path": s.Remote}, nil
	}
	return nil, fmt.Errorf("resource %s: unexpected spec %T for kind %s", r.ID, r.Spec, r.Kind)
}
