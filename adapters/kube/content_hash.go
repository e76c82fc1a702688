package kube

import (
	"sort"
	"strings"

	"github.com/yaegashi/iotops/internal/naming"
)

// ComputeContentHash returns a 6 character hash of kv independent of key order.
func ComputeContentHash(kv map[string]string) string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(kv[k])
		b.WriteByte(0)
	}
	return naming.ShortHash(b.String(), 6)
}
