package kube

import (
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// ObjectSpec is the spec of a kube.object resource.
type ObjectSpec struct {
	Object runtime.Object
	// WaitAddress waits for a LoadBalancer address and records it as the
	// "address" attribute.
	WaitAddress bool
}

// MarshalJSON encodes the object in its unstructured form so that the resource
// digest reflects every field.
func (s *ObjectSpec) MarshalJSON() ([]byte, error) {
	u, err := ToUnstructured(s.Object)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Object      map[string]any `json:"object"`
		WaitAddress bool           `json:"waitAddress,omitempty"`
	}{u.Object, s.WaitAddress})
}

// Ref returns the identity of the object.
func (s *ObjectSpec) Ref() (ObjectRef, error) {
	u, err := ToUnstructured(s.Object)
	if err != nil {
		return ObjectRef{}, err
	}
	ref := ObjectRef{APIVersion: u.GetAPIVersion(), Kind: u.GetKind(), Namespace: u.GetNamespace(), Name: u.GetName()}
	if ref.APIVersion == "" || ref.Kind == "" || ref.Name == "" {
		return ObjectRef{}, fmt.Errorf("object is missing apiVersion, kind or name: %+v", ref)
	}
	return ref, nil
}

// Redacted returns a copy of obj safe to print: Secret values are masked.
func Redacted(obj runtime.Object) runtime.Object {
	s, ok := obj.(*corev1.Secret)
	if !ok {
		return obj
	}
	cp := s.DeepCopy()
	for k := range cp.StringData {
		cp.StringData[k] = "****"
	}
	for k := range cp.Data {
		cp.Data[k] = []byte("****")
	}
	return cp
}

func refAttributes(ref ObjectRef) map[string]string {
	return map[string]string{
		"apiVersion": ref.APIVersion,
		"kind":       ref.Kind,
		"namespace":  ref.Namespace,
		"name":       ref.Name,
	}
}

func refFromAttributes(attrs map[string]string) (ObjectRef, bool) {
	ref := ObjectRef{
		APIVersion: attrs["apiVersion"],
		Kind:       attrs["kind"],
		Namespace:  attrs["namespace"],
		Name:       attrs["name"],
	}
	return ref, ref.APIVersion != "" && ref.Kind != "" && ref.Name != ""
}
