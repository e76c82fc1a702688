package model

import "time"

// ResourceKind selects the applier responsible for a resource.
type ResourceKind string

const (
	KindKubeObject      ResourceKind = "kube.object"
	KindRemoteDir       ResourceKind = "remote.dir"
	KindRemoteSync      ResourceKind = "remote.sync"
	KindDockerNetwork   ResourceKind = "docker.network"
	KindDockerImage     ResourceKind = "docker.image"
	KindDockerContainer ResourceKind = "docker.container"
	KindDNSRecord       ResourceKind = "dns.record"
	KindOutput          ResourceKind = "output"
)

// Resource is one node of the desired-state graph.
//
// Spec carries the kind-specific desired state and must be JSON serializable; its
// encoding is part of the resource digest. Triggers are extra digest inputs such as
// an asset bundle fingerprint. DependsOn lists IDs that must converge first and
// does not take part in the digest.
type Resource struct {
	ID        string
	Kind      ResourceKind
	Spec      any
	DependsOn []string
	Triggers  []string
}

// ResourceState is the persisted record of a converged resource.
type ResourceState struct {
	Stack      string
	ID         string
	Kind       ResourceKind
	Digest     string
	Order      int
	Attributes map[string]string
	UpdatedAt  time.Time
}

// RemoteDirSpec ensures a directory exists on a remote host.
type RemoteDirSpec struct {
	Host string `json:"host"`
	User string `json:"user"`
	Path string `json:"path"`
}

// RemoteSyncSpec mirrors a local directory to a remote directory, deleting extraneous files.
type RemoteSyncSpec struct {
	Host   string `json:"host"`
	User   string `json:"user"`
	Local  string `json:"-"` // content is tracked by the bundle fingerprint trigger
	Remote string `json:"remote"`
}

// DockerNetworkSpec declares a user-defined bridge network.
type DockerNetworkSpec struct {
	Name string `json:"name"`
}

// DockerImageSpec declares a pulled image kept on the host.
type DockerImageSpec struct {
	Ref string `json:"ref"`
}

// DockerContainerSpec declares a started container.
type DockerContainerSpec struct {
	Name     string            `json:"name"`
	Image    string            `json:"image"`
	Env      []string          `json:"env,omitempty"`
	Ports    []PortBinding     `json:"ports,omitempty"`
	Binds    []string          `json:"binds,omitempty"`
	Network  string            `json:"network,omitempty"`
	Aliases  []string          `json:"aliases,omitempty"`
	Restart  string            `json:"restart,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
	User     string            `json:"user,omitempty"`
	Hostname string            `json:"hostname,omitempty"`
}

// PortBinding publishes a container port on the host.
type PortBinding struct {
	Host      int    `json:"host"`
	Container int    `json:"container"`
	Protocol  string `json:"protocol,omitempty"`
}

// OutputSpec publishes a named run output. Value is used verbatim when From is
// empty; otherwise the Attribute of resource From is substituted into Format (a
// fmt format with one %s verb, "%s" when empty).
type OutputSpec struct {
	Name      string `json:"name"`
	Value     string `json:"value,omitempty"`
	From      string `json:"from,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	Format    string `json:"format,omitempty"`
}
