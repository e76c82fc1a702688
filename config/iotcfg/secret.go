package iotcfg

import (
	"fmt"
	"os"
	"strings"

	"github.com/yaegashi/iotops/domain/model"
)

// SecretRef points at a credential without embedding it in the document by default.
// Exactly one of Value, Env and File must be set.
type SecretRef struct {
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
	Env   string `yaml:"env,omitempty" json:"env,omitempty"`
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}

func (s *SecretRef) check(field string) error {
	n := 0
	for _, v := range []string{s.Value, s.Env, s.File} {
		if v != "" {
			n++
		}
	}
	if n != 1 {
		return model.NewConfigError(field, "exactly one of value, env or file must be set")
	}
	return nil
}

// Resolve returns the referenced secret. A trailing newline read from a file is trimmed.
func (s *SecretRef) Resolve(field string) (string, error) {
	if s == nil {
		return "", nil
	}
	if err := s.check(field); err != nil {
		return "", err
	}
	switch {
	case s.Env != "":
		v, ok := os.LookupEnv(s.Env)
		if !ok {
			return "", model.NewConfigError(field, "environment variable %s is not set", s.Env)
		}
		return v, nil
	case s.File != "":
		b, err := os.ReadFile(s.File)
		if err != nil {
			return "", model.NewConfigError(field, "read %s: %v", s.File, err)
		}
		return strings.TrimRight(string(b), "\r\n"), nil
	default:
		return s.Value, nil
	}
}

// String redacts the secret.
func (s *SecretRef) String() string {
	switch {
	case s == nil:
		return ""
	case s.Env != "":
		return fmt.Sprintf("env:%s", s.Env)
	case s.File != "":
		return fmt.Sprintf("file:%s", s.File)
	case s.Value != "":
		return "value:****"
	}
	return ""
}

// Secrets holds the credentials resolved for one run.
type Secrets struct {
	ExporterUsername   string
	ExporterPassword   string
	CloudflareAPIKey   string
	CloudflareAPIToken string
}

// ResolveSecrets resolves every SecretRef of the document once.
func (c *ComponentConfig) ResolveSecrets() (*Secrets, error) {
	var s Secrets
	var err error
	if mp := c.MqttPrometheus; mp != nil {
		if s.ExporterUsername, err = mp.Username.Resolve("mqtt2prometheus.username"); err != nil {
			return nil, err
		}
		if s.ExporterPassword, err = mp.Password.Resolve("mqtt2prometheus.password"); err != nil {
			return nil, err
		}
	}
	if cf := c.Cloudflare; cf != nil {
		if s.CloudflareAPIKey, err = cf.APIKey.Resolve("cloudflare.api_key"); err != nil {
			return nil, err
		}
		if s.CloudflareAPIToken, err = cf.APIToken.Resolve("cloudflare.api_token"); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func (s *SecretRef) redacted() *SecretRef {
	if s == nil {
		return nil
	}
	cp := *s
	if cp.Value != "" {
		cp.Value = "****"
	}
	return &cp
}

// Redacted returns a copy of the document with literal secret values and
// password hashes masked. Env and file references are kept.
func (c *ComponentConfig) Redacted() *ComponentConfig {
	cp := *c
	if c.Cloudflare != nil {
		cf := *c.Cloudflare
		cf.APIKey = cf.APIKey.redacted()
		cf.APIToken = cf.APIToken.redacted()
		cp.Cloudflare = &cf
	}
	if len(c.Mosquitto.Passwords) > 0 {
		cp.Mosquitto.Passwords = make([]string, len(c.Mosquitto.Passwords))
		for i, line := range c.Mosquitto.Passwords {
			user, _, _ := strings.Cut(line, ":")
			cp.Mosquitto.Passwords[i] = user + ":****"
		}
	}
	if c.MqttPrometheus != nil {
		mp := *c.MqttPrometheus
		mp.Username = mp.Username.redacted()
		mp.Password = mp.Password.redacted()
		cp.MqttPrometheus = &mp
	}
	return &cp
}
