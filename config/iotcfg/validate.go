package iotcfg

import (
	"fmt"
	"regexp"

	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/naming"
)

// SelectBackend resolves the requested backend against the document.
// An explicit backend always wins. With auto, a populated target selects legacy;
// a document that also names a broker hostname is ambiguous and rejected.
func (c *ComponentConfig) SelectBackend(requested model.Backend) (model.Backend, error) {
	switch requested {
	case model.BackendKubernetes, model.BackendLegacy:
		return requested, nil
	case model.BackendAuto, "":
	default:
		return "", model.NewConfigError("backend", "unknown backend %q", requested)
	}
	legacy := c.Target != nil && c.Target.Host != ""
	kube := c.Mosquitto.Hostname != ""
	if legacy && kube {
		return "", model.NewConfigError("backend", "both target and mosquitto.hostname are set; choose a backend explicitly")
	}
	if legacy {
		return model.BackendLegacy, nil
	}
	return model.BackendKubernetes, nil
}

// Validate performs semantic validation for the selected backend.
func (c *ComponentConfig) Validate(backend model.Backend) error {
	if c.Mosquitto.Version == "" {
		return model.NewConfigError("mosquitto.version", "required")
	}
	if err := c.validateExporter(); err != nil {
		return err
	}
	if err := c.validateCredentials(); err != nil {
		return err
	}

	switch backend {
	case model.BackendKubernetes:
		return c.validateKubernetes()
	case model.BackendLegacy:
		return c.validateLegacy()
	default:
		return model.NewConfigError("backend", "unsupported backend %q", backend)
	}
}

func (c *ComponentConfig) validateExporter() error {
	mp := c.MqttPrometheus
	if mp == nil {
		return nil
	}
	if mp.Version == "" {
		return model.NewConfigError("mqtt2prometheus.version", "required")
	}
	seen := make(map[string]struct{}, len(mp.Instances))
	for i, in := range mp.Instances {
		field := fmt.Sprintf("mqtt2prometheus.instances[%d]", i)
		if err := naming.ValidateInstanceName(in.Name); err != nil {
			return model.NewConfigError(field+".name", "%v", err)
		}
		if _, dup := seen[in.Name]; dup {
			return model.NewConfigError(field+".name", "duplicate instance name %q", in.Name)
		}
		seen[in.Name] = struct{}{}
		if in.TopicPath == "" {
			return model.NewConfigError(field+".topic_path", "required")
		}
		if in.DeviceIDRegex != "" {
			if _, err := regexp.Compile(in.DeviceIDRegex); err != nil {
				return model.NewConfigError(field+".device_id_regex", "%v", err)
			}
		}
	}
	return nil
}

func (c *ComponentConfig) validateCredentials() error {
	for field, ref := range c.secretRefs() {
		if ref != nil {
			if err := ref.check(field); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *ComponentConfig) secretRefs() map[string]*SecretRef {
	refs := map[string]*SecretRef{}
	if mp := c.MqttPrometheus; mp != nil {
		refs["mqtt2prometheus.username"] = mp.Username
		refs["mqtt2prometheus.password"] = mp.Password
	}
	if cf := c.Cloudflare; cf != nil {
		refs["cloudflare.api_key"] = cf.APIKey
		refs["cloudflare.api_token"] = cf.APIToken
	}
	return refs
}

func (c *ComponentConfig) validateKubernetes() error {
	if c.Mosquitto.Hostname == "" {
		return model.NewConfigError("mosquitto.hostname", "required for the kubernetes backend")
	}
	if err := naming.ValidateHostname(c.Mosquitto.Hostname); err != nil {
		return model.NewConfigError("mosquitto.hostname", "%v", err)
	}
	return nil
}

func (c *ComponentConfig) validateLegacy() error {
	t := c.Target
	if t == nil {
		return model.NewConfigError("target", "required for the legacy backend")
	}
	if t.Host == "" {
		return model.NewConfigError("target.host", "required")
	}
	if t.User == "" {
		return model.NewConfigError("target.user", "required")
	}
	if t.RootDir == "" {
		return model.NewConfigError("target.root_dir", "required")
	}
	if c.Cloudflare == nil || c.Cloudflare.Zone == "" {
		return model.NewConfigError("cloudflare.zone", "required for the legacy backend")
	}
	instances := c.Instances()
	if n := len(instances); n > 1 {
		return model.NewConfigError("mqtt2prometheus.instances", "the legacy backend runs a single exporter, got %d instances", n)
	}
	// The legacy exporter reads config.yaml from the mqtt2prometheus asset bundle.
	// topic_path stays required by the schema but is not used.
	for i, in := range instances {
		field := fmt.Sprintf("mqtt2prometheus.instances[%d]", i)
		if len(in.Metrics) > 0 {
			return model.NewConfigError(field+".metrics", "not supported by the legacy backend; edit the mqtt2prometheus asset bundle instead")
		}
		if in.DeviceIDRegex != "" {
			return model.NewConfigError(field+".device_id_regex", "not supported by the legacy backend; edit the mqtt2prometheus asset bundle instead")
		}
	}
	return nil
}
