package kube

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/yaegashi/iotops/internal/logging"
)

// ObjectRef identifies one object in the cluster.
type ObjectRef struct {
	APIVersion string `json:"apiVersion"`
	Kind       string `json:"kind"`
	Namespace  string `json:"namespace,omitempty"`
	Name       string `json:"name"`
}

func (r ObjectRef) String() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s/%s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s/%s/%s", r.Kind, r.Namespace, r.Name)
}

// DeleteObject deletes the referenced object with background propagation.
// A missing object is not an error.
func (c *Client) DeleteObject(ctx context.Context, ref ObjectRef) error {
	if ref.Kind == "Namespace" && ref.APIVersion == "v1" {
		return c.DeleteNamespace(ctx, ref.Name)
	}
	dy, mapper, err := c.dynamicClients()
	if err != nil {
		return err
	}
	gvk := schema.FromAPIVersionAndKind(ref.APIVersion, ref.Kind)
	mapping, err := mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		if meta.IsNoMatchError(err) {
			return nil
		}
		return fmt.Errorf("rest mapping %s: %w", gvk.String(), err)
	}
	ns := ref.Namespace
	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		ns = ""
	}

	logger := logging.FromContext(ctx).With("ns", ns, "kind", ref.Kind, "name", ref.Name)
	propagation := metav1.DeletePropagationBackground
	err = resourceInterfaceFor(dy, mapping.Resource, ns).Delete(ctx, ref.Name, metav1.DeleteOptions{PropagationPolicy: &propagation})
	if err != nil && !apierrors.IsNotFound(err) {
		logger.Info(ctx, "KubeClient:Delete/efail", "err", err)
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	logger.Info(ctx, "KubeClient:Delete/eok")
	return nil
}
