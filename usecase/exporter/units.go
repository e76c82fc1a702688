// Package exporter fans the mqtt2prometheus section out into one exporter per
// instance and declares their resources on either backend.
package exporter

import (
	"fmt"

	"github.com/yaegashi/iotops/adapters/kube"
	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/internal/naming"
	"github.com/yaegashi/iotops/internal/render"
)

const (
	// Port serves /metrics.
	Port = 9641

	ImageRepository = "ghcr.io/hikhvar/mqtt2prometheus"
	DataSize        = "1Gi"
	ConfigKey       = "config.yaml"
	ConfigPath      = "/config.yaml"
	DataPath        = "/var/lib/mqtt2prometheus"

	EnvUser     = "MQTT2PROM_MQTT_USER"
	EnvPassword = "MQTT2PROM_MQTT_PASSWORD"

	IDNamespace   = "mqtt2prometheus/namespace"
	IDCredentials = "mqtt2prometheus/credentials"
)

// Unit is everything derived from one exporter instance.
type Unit struct {
	Instance      string
	Name          string // deployment, service, claim and client id
	ConfigMapName string
	Labels        map[string]string
	Config        string // rendered config.yaml
}

// ID returns the resource ID of the unit's part (pvc, config, deployment, service).
func (u Unit) ID(part string) string {
	return "mqtt2prometheus/" + u.Instance + "/" + part
}

// OutputName is the name of the unit's metrics URL output.
func (u Unit) OutputName() string {
	return u.Name
}

// Image returns the exporter image reference for version.
func Image(version string) string {
	return ImageRepository + ":" + version
}

// Units derives one unit per instance in declaration order. brokerHost is the
// broker the exporters connect to. No section or no instances yield no units.
func Units(cfg *iotcfg.ComponentConfig, brokerHost string) ([]Unit, error) {
	var units []Unit
	for _, in := range cfg.Instances() {
		conf, err := render.ExporterConfig(brokerHost, in)
		if err != nil {
			return nil, err
		}
		name := naming.ExporterInstanceName(in.Name)
		units = append(units, Unit{
			Instance:      in.Name,
			Name:          name,
			ConfigMapName: naming.ExporterConfigMapName(in.Name),
			Labels:        map[string]string{kube.LabelAppSelector: name},
			Config:        string(conf),
		})
	}
	return units, nil
}

func metricsURLFormat() string {
	return fmt.Sprintf("http://%%s:%d/metrics", Port)
}
