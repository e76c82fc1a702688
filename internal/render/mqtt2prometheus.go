package render

import (
	"bytes"
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/internal/naming"
)

// BrokerPort is the TLS listener port of the broker.
const BrokerPort = 8883

// ExporterDocument builds the mqtt2prometheus configuration tree for one instance.
func ExporterDocument(brokerHost string, in iotcfg.MqttPrometheusInstanceConfig) map[string]any {
	mqtt := map[string]any{
		"server":     fmt.Sprintf("mqtts://%s:%d", brokerHost, BrokerPort),
		"qos":        0,
		"topic_path": in.TopicPath,
		"client_id":  naming.ExporterInstanceName(in.Name),
	}
	if in.DeviceIDRegex != "" {
		mqtt["device_id_regex"] = in.DeviceIDRegex
	}
	metrics := in.Metrics
	if metrics == nil {
		metrics = []any{}
	}
	return map[string]any{
		"mqtt":         mqtt,
		"cache":        map[string]any{"timeout": "60m"},
		"json_parsing": map[string]any{"separator": "."},
		"metrics":      metrics,
	}
}

// ExporterConfig renders ExporterDocument as block YAML with sorted keys, a
// 2-space indent and sequences kept at the indentation of their parent key.
func ExporterConfig(brokerHost string, in iotcfg.MqttPrometheusInstanceConfig) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	enc.CompactSeqIndent()
	if err := enc.Encode(ExporterDocument(brokerHost, in)); err != nil {
		return nil, fmt.Errorf("render exporter config %s: %w", in.Name, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render exporter config %s: %w", in.Name, err)
	}
	return buf.Bytes(), nil
}
