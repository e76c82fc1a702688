package model

// ServiceIntent is the backend-agnostic request to run one service: an image with
// ports, mounts and environment. Backend adapters translate it into a Kubernetes
// Deployment or a Docker container.
type ServiceIntent struct {
	Name    string
	Image   string
	Labels  map[string]string
	Ports   []PortIntent
	Mounts  []MountIntent
	Env     []EnvIntent
	RunAs   *int64 // numeric uid and gid; nil keeps the image default
	Restart string // docker restart policy; ignored by kubernetes
	Aliases []string
}

// PortIntent exposes a container port. Host is only used by backends that publish
// ports on the host.
type PortIntent struct {
	Name      string
	Container int
	Host      int
}

// MountSource selects where a mount's content comes from.
type MountSource string

const (
	MountConfigFile MountSource = "config"   // single key of a config artifact
	MountSecretDir  MountSource = "secret"   // all keys of a secret
	MountVolume     MountSource = "volume"   // persistent volume claim
	MountHostPath   MountSource = "hostpath" // directory or file on the host
)

// MountIntent places content at Path inside the container.
type MountIntent struct {
	Name     string
	Source   MountSource
	Ref      string // artifact, secret, claim name, or host path
	Key      string // single file key for MountConfigFile
	Path     string
	ReadOnly bool
	Mode     *int32
}

// EnvIntent sets an environment variable either from a literal value or from a
// key of a credential object.
type EnvIntent struct {
	Name      string
	Value     string
	SecretRef string
	SecretKey string
}
