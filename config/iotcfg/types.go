// Package iotcfg defines the desired-state document (iotops.yml) of the IoT stack.
package iotcfg

// ComponentConfig is the root of iotops.yml.
type ComponentConfig struct {
	Target         *TargetConfig         `yaml:"target,omitempty" json:"target,omitempty"`
	Cloudflare     *CloudflareConfig     `yaml:"cloudflare,omitempty" json:"cloudflare,omitempty"`
	Mosquitto      MosquittoConfig       `yaml:"mosquitto" json:"mosquitto"`
	MqttPrometheus *MqttPrometheusConfig `yaml:"mqtt2prometheus,omitempty" json:"mqtt2prometheus,omitempty"`
}

// TargetConfig locates the legacy Docker host.
type TargetConfig struct {
	Host    string `yaml:"host" json:"host"`
	User    string `yaml:"user" json:"user"`
	RootDir string `yaml:"root_dir" json:"root_dir"` // parent of all service directories
}

// CloudflareConfig holds the DNS zone used by the legacy backend.
type CloudflareConfig struct {
	Zone        string     `yaml:"zone" json:"zone"`
	Email       string     `yaml:"email,omitempty" json:"email,omitempty"`
	APIKey      *SecretRef `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	APIToken    *SecretRef `yaml:"api_token,omitempty" json:"api_token,omitempty"`
	CNAMETarget string     `yaml:"cname_target,omitempty" json:"cname_target,omitempty"` // defaults to the zone apex
}

// MosquittoConfig configures the broker.
type MosquittoConfig struct {
	Version   string   `yaml:"version" json:"version"`
	Hostname  string   `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	Passwords []string `yaml:"passwords,omitempty" json:"passwords,omitempty"` // mosquitto_passwd lines
}

// MqttPrometheusConfig configures the exporter fleet.
type MqttPrometheusConfig struct {
	Version   string                         `yaml:"version" json:"version"`
	Username  *SecretRef                     `yaml:"username,omitempty" json:"username,omitempty"`
	Password  *SecretRef                     `yaml:"password,omitempty" json:"password,omitempty"`
	Instances []MqttPrometheusInstanceConfig `yaml:"instances,omitempty" json:"instances,omitempty"`
}

// MqttPrometheusInstanceConfig is one exporter instance.
type MqttPrometheusInstanceConfig struct {
	Name          string `yaml:"name" json:"name"`
	TopicPath     string `yaml:"topic_path" json:"topic_path"`
	DeviceIDRegex string `yaml:"device_id_regex,omitempty" json:"device_id_regex,omitempty"`
	Metrics       []any  `yaml:"metrics,omitempty" json:"metrics,omitempty"` // opaque mqtt2prometheus rules
}

// Instances returns the exporter instances, or nil when the section is absent.
func (c *ComponentConfig) Instances() []MqttPrometheusInstanceConfig {
	if c.MqttPrometheus == nil {
		return nil
	}
	return c.MqttPrometheus.Instances
}
