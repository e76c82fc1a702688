package kube

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/converge"
)

// ObjectClient is the cluster surface the applier needs. *Client implements it.
type ObjectClient interface {
	ApplyObject(ctx context.Context, obj runtime.Object, opts *ApplyOptions) (*unstructured.Unstructured, error)
	DeleteObject(ctx context.Context, ref ObjectRef) error
	CreateNamespace(ctx context.Context, name string, labels map[string]string) error
	WaitServiceAddress(ctx context.Context, namespace, name string, timeout time.Duration) (string, error)
}

var _ ObjectClient = (*Client)(nil)

// Applier converges kube.object resources.
type Applier struct {
	Client         ObjectClient
	AddressTimeout time.Duration
}

var (
	_ converge.Applier = (*Applier)(nil)
	_ converge.Deleter = (*Applier)(nil)
)

func objectSpec(r *model.Resource) (*ObjectSpec, error) {
	s, ok := r.Spec.(*ObjectSpec)
	if !ok || s.Object == nil {
		return nil, fmt.Errorf("resource %s: unexpected spec %T for kind %s", r.ID, r.Spec, r.Kind)
	}
	return s, nil
}

// Apply server-side applies the object. Namespaces are created instead so that an
// existing namespace owned by someone else is left intact.
func (a *Applier) Apply(ctx context.Context, r *model.Resource, prev *model.ResourceState) (map[string]string, error) {
	spec, err := objectSpec(r)
	if err != nil {
		return nil, err
	}
	ref, err := spec.Ref()
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", r.ID, err)
	}

	if ns, ok := spec.Object.(*corev1.Namespace); ok {
		if err := a.Client.CreateNamespace(ctx, ns.Name, ns.Labels); err != nil {
			return nil, err
		}
	} else if _, err := a.Client.ApplyObject(ctx, spec.Object, &ApplyOptions{ForceConflicts: true}); err != nil {
		return nil, err
	}

	if prev != nil {
		if old, ok := refFromAttributes(prev.Attributes); ok && old != ref {
			if err := a.Client.DeleteObject(ctx, old); err != nil {
				return nil, err
			}
		}
	}

	attrs := refAttributes(ref)
	if spec.WaitAddress {
		addr, err := a.Client.WaitServiceAddress(ctx, ref.Namespace, ref.Name, a.AddressTimeout)
		if err != nil {
			return nil, err
		}
		attrs["address"] = addr
	}
	return attrs, nil
}

// Delete removes the object recorded in st.
func (a *Applier) Delete(ctx context.Context, st *model.ResourceState) error {
	ref, ok := refFromAttributes(st.Attributes)
	if !ok {
		return nil
	}
	return a.Client.DeleteObject(ctx, ref)
}
