package kube

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/runtime"
)

// BuildCleanManifest renders objects as a multi-document YAML stream (each doc
// preceded by ---) without null values, empty maps, creationTimestamp or empty status.
// Secrets are redacted.
func BuildCleanManifest(objs []runtime.Object) (string, error) {
	var buf bytes.Buffer
	for _, obj := range objs {
		if obj == nil {
			continue
		}
		u, err := ToUnstructured(Redacted(obj))
		if err != nil {
			return "", err
		}
		m := u.Object
		pruneMap(m)
		if meta, ok := m["metadata"].(map[string]any); ok {
			delete(meta, "creationTimestamp")
			if len(meta) == 0 {
				delete(m, "metadata")
			}
		}
		if st, ok := m["status"].(map[string]any); ok && len(st) == 0 {
			delete(m, "status")
		}

		var doc bytes.Buffer
		enc := yaml.NewEncoder(&doc)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return "", fmt.Errorf("encode %s: %w", u.GetName(), err)
		}
		_ = enc.Close()
		buf.WriteString("---\n")
		buf.Write(doc.Bytes())
	}
	return buf.String(), nil
}

// pruneMap recursively drops nil values and empty maps in place, keeping empty slices.
func pruneMap(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			switch cv := pruneMap(val).(type) {
			case nil:
				delete(x, k)
			case map[string]any:
				if len(cv) == 0 {
					delete(x, k)
				}
			}
		}
		return x
	case []any:
		for i, it := range x {
			x[i] = pruneMap(it)
		}
		return x
	default:
		return x
	}
}
