package model

import "fmt"

// Backend identifies a deployment topology.
type Backend string

const (
	// BackendAuto lets the configuration decide which backend is populated.
	BackendAuto Backend = "auto"
	// BackendKubernetes deploys orchestrated pods through a kubeconfig.
	BackendKubernetes Backend = "kubernetes"
	// BackendLegacy deploys Docker containers on a single host reached over SSH.
	BackendLegacy Backend = "legacy"
)

// ParseBackend converts a flag value into a Backend.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "", "auto":
		return BackendAuto, nil
	case "kubernetes", "k8s", "kube":
		return BackendKubernetes, nil
	case "legacy", "docker":
		return BackendLegacy, nil
	default:
		return "", fmt.Errorf("unknown backend %q (auto|kubernetes|legacy)", s)
	}
}

func (b Backend) String() string { return string(b) }
