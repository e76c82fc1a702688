package iotcfg

import (
	"errors"
	"strings"
	"testing"

	"github.com/yaegashi/iotops/domain/model"
)

func legacyConfig() *ComponentConfig {
	return &ComponentConfig{
		Target:     &TargetConfig{Host: "nas.local", User: "admin", RootDir: "/volume1/docker/iot"},
		Cloudflare: &CloudflareConfig{Zone: "example.com", APIToken: &SecretRef{Value: "t"}},
		Mosquitto:  MosquittoConfig{Version: "2.0.18"},
	}
}

func kubeConfig() *ComponentConfig {
	return &ComponentConfig{
		Mosquitto: MosquittoConfig{Version: "2.0.18", Hostname: "mqtt.example.com"},
		MqttPrometheus: &MqttPrometheusConfig{
			Version: "v0.1.7",
			Instances: []MqttPrometheusInstanceConfig{
				{Name: "kitchen", TopicPath: "sensors/kitchen/#"},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     func() *ComponentConfig
		backend model.Backend
		field   string
	}{
		{"kube ok", kubeConfig, model.BackendKubernetes, ""},
		{"legacy ok", legacyConfig, model.BackendLegacy, ""},
		{"legacy without exporter section", func() *ComponentConfig {
			c := legacyConfig()
			c.MqttPrometheus = &MqttPrometheusConfig{Version: "v1"}
			return c
		}, model.BackendLegacy, ""},
		{"missing broker version", func() *ComponentConfig {
			c := kubeConfig()
			c.Mosquitto.Version = ""
			return c
		}, model.BackendKubernetes, "mosquitto.version"},
		{"kube missing hostname", func() *ComponentConfig {
			c := kubeConfig()
			c.Mosquitto.Hostname = ""
			return c
		}, model.BackendKubernetes, "mosquitto.hostname"},
		{"legacy missing target", func() *ComponentConfig {
			c := legacyConfig()
			c.Target = nil
			return c
		}, model.BackendLegacy, "target"},
		{"legacy missing root dir", func() *ComponentConfig {
			c := legacyConfig()
			c.Target.RootDir = ""
			return c
		}, model.BackendLegacy, "target.root_dir"},
		{"legacy missing zone", func() *ComponentConfig {
			c := legacyConfig()
			c.Cloudflare.Zone = ""
			return c
		}, model.BackendLegacy, "cloudflare.zone"},
		{"legacy two instances", func() *ComponentConfig {
			c := legacyConfig()
			c.MqttPrometheus = &MqttPrometheusConfig{Version: "v1", Instances: []MqttPrometheusInstanceConfig{
				{Name: "a", TopicPath: "a/#"}, {Name: "b", TopicPath: "b/#"},
			}}
			return c
		}, model.BackendLegacy, "mqtt2prometheus.instances"},
		{"legacy single instance", func() *ComponentConfig {
			c := legacyConfig()
			c.MqttPrometheus = &MqttPrometheusConfig{Version: "v1", Instances: []MqttPrometheusInstanceConfig{
				{Name: "home", TopicPath: "home/#"},
			}}
			return c
		}, model.BackendLegacy, ""},
		{"legacy instance metrics", func() *ComponentConfig {
			c := legacyConfig()
			c.MqttPrometheus = &MqttPrometheusConfig{Version: "v1", Instances: []MqttPrometheusInstanceConfig{
				{Name: "home", TopicPath: "home/#", Metrics: []any{map[string]any{"prom_name": "t"}}},
			}}
			return c
		}, model.BackendLegacy, "mqtt2prometheus.instances[0].metrics"},
		{"legacy instance device regex", func() *ComponentConfig {
			c := legacyConfig()
			c.MqttPrometheus = &MqttPrometheusConfig{Version: "v1", Instances: []MqttPrometheusInstanceConfig{
				{Name: "home", TopicPath: "home/#", DeviceIDRegex: "dev-(.*)"},
			}}
			return c
		}, model.BackendLegacy, "mqtt2prometheus.instances[0].device_id_regex"},
		{"bad instance name", func() *ComponentConfig {
			c := kubeConfig()
			c.MqttPrometheus.Instances[0].Name = "Kitchen_1"
			return c
		}, model.BackendKubernetes, "mqtt2prometheus.instances[0].name"},
		{"long instance name", func() *ComponentConfig {
			c := kubeConfig()
			c.MqttPrometheus.Instances[0].Name = strings.Repeat("a", 41)
			return c
		}, model.BackendKubernetes, "mqtt2prometheus.instances[0].name"},
		{"duplicate instance", func() *ComponentConfig {
			c := kubeConfig()
			c.MqttPrometheus.Instances = append(c.MqttPrometheus.Instances, c.MqttPrometheus.Instances[0])
			return c
		}, model.BackendKubernetes, "mqtt2prometheus.instances[1].name"},
		{"empty topic", func() *ComponentConfig {
			c := kubeConfig()
			c.MqttPrometheus.Instances[0].TopicPath = ""
			return c
		}, model.BackendKubernetes, "mqtt2prometheus.instances[0].topic_path"},
		{"bad regex", func() *ComponentConfig {
			c := kubeConfig()
			c.MqttPrometheus.Instances[0].DeviceIDRegex = "dev-(("
			return c
		}, model.BackendKubernetes, "mqtt2prometheus.instances[0].device_id_regex"},
		{"missing exporter version", func() *ComponentConfig {
			c := kubeConfig()
			c.MqttPrometheus.Version = ""
			return c
		}, model.BackendKubernetes, "mqtt2prometheus.version"},
		{"secret ref with two sources", func() *ComponentConfig {
			c := kubeConfig()
			c.MqttPrometheus.Password = &SecretRef{Value: "a", File: "/b"}
			return c
		}, model.BackendKubernetes, "mqtt2prometheus.password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg().Validate(tt.backend)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *model.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("field = %q, want %q (%v)", ce.Field, tt.field, err)
			}
			if !errors.Is(err, model.ErrConfigInvalid) {
				t.Errorf("expected ErrConfigInvalid")
			}
		})
	}
}

func TestSelectBackend(t *testing.T) {
	both := legacyConfig()
	both.Mosquitto.Hostname = "mqtt.example.com"

	tests := []struct {
		name      string
		cfg       *ComponentConfig
		requested model.Backend
		want      model.Backend
		wantErr   bool
	}{
		{"auto legacy", legacyConfig(), model.BackendAuto, model.BackendLegacy, false},
		{"auto kube", kubeConfig(), model.BackendAuto, model.BackendKubernetes, false},
		{"empty means auto", kubeConfig(), "", model.BackendKubernetes, false},
		{"explicit wins", both, model.BackendKubernetes, model.BackendKubernetes, false},
		{"explicit legacy", kubeConfig(), model.BackendLegacy, model.BackendLegacy, false},
		{"ambiguous", both, model.BackendAuto, "", true},
		{"unknown", kubeConfig(), model.Backend("nomad"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.SelectBackend(tt.requested)
			if tt.wantErr {
				if !errors.Is(err, model.ErrConfigInvalid) {
					t.Fatalf("expected ErrConfigInvalid, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectBackend: %v", err)
			}
			if got != tt.want {
				t.Errorf("SelectBackend = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveSecrets(t *testing.T) {
	t.Setenv("IOTOPS_TEST_PW", "pw")
	c := kubeConfig()
	c.MqttPrometheus.Username = &SecretRef{Value: "exporter"}
	c.MqttPrometheus.Password = &SecretRef{Env: "IOTOPS_TEST_PW"}
	s, err := c.ResolveSecrets()
	if err != nil {
		t.Fatalf("ResolveSecrets: %v", err)
	}
	if s.ExporterUsername != "exporter" || s.ExporterPassword != "pw" {
		t.Errorf("unexpected secrets %+v", s)
	}
}

func TestRedacted(t *testing.T) {
	c := kubeConfig()
	c.Mosquitto.Passwords = []string{"alice:$7$101$abc"}
	c.MqttPrometheus.Username = &SecretRef{Value: "exporter"}
	c.MqttPrometheus.Password = &SecretRef{Env: "IOTOPS_TEST_PW"}

	r := c.Redacted()
	if r.Mosquitto.Passwords[0] != "alice:****" {
		t.Errorf("password line not masked: %q", r.Mosquitto.Passwords[0])
	}
	if r.MqttPrometheus.Username.Value != "****" {
		t.Errorf("username value not masked: %q", r.MqttPrometheus.Username.Value)
	}
	if r.MqttPrometheus.Password.Env != "IOTOPS_TEST_PW" {
		t.Errorf("env reference should be kept: %+v", r.MqttPrometheus.Password)
	}
	if c.MqttPrometheus.Username.Value != "exporter" || c.Mosquitto.Passwords[0] != "alice:$7$101$abc" {
		t.Error("Redacted modified the original document")
	}
}
