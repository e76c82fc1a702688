package render

import (
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"

	"github.com/yaegashi/iotops/config/iotcfg"
)

func TestMosquittoConfig(t *testing.T) {
	conf := MosquittoConfig()
	if n := strings.Count(conf, "listener "); n != 1 {
		t.Fatalf("expected exactly one listener, got %d", n)
	}
	for _, line := range []string{
		"listener 8883",
		"password_file /mosquitto/config/password.txt",
		"persistence_location /mosquitto/data/",
		"keyfile /mosquitto/certs/tls.key",
		"certfile /mosquitto/certs/tls.crt",
	} {
		if !strings.Contains(conf, line+"\n") {
			t.Errorf("missing line %q", line)
		}
	}
}

func TestPasswordFile(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"a:x"}, "a:x"},
		{[]string{"a:x", "b:y"}, "a:x\nb:y"},
	}
	for _, tt := range tests {
		if got := PasswordFile(tt.in); got != tt.want {
			t.Errorf("PasswordFile(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExporterConfig(t *testing.T) {
	kitchen := iotcfg.MqttPrometheusInstanceConfig{Name: "kitchen", TopicPath: "sensors/kitchen/#"}
	garage := iotcfg.MqttPrometheusInstanceConfig{
		Name:          "garage",
		TopicPath:     "sensors/garage/#",
		DeviceIDRegex: "dev-(.*)",
		Metrics:       []any{map[string]any{"prom_name": "temperature", "type": "gauge"}},
	}

	type doc struct {
		MQTT struct {
			Server        string `yaml:"server"`
			QoS           int    `yaml:"qos"`
			TopicPath     string `yaml:"topic_path"`
			ClientID      string `yaml:"client_id"`
			DeviceIDRegex string `yaml:"device_id_regex"`
		} `yaml:"mqtt"`
		Cache struct {
			Timeout string `yaml:"timeout"`
		} `yaml:"cache"`
		JSONParsing struct {
			Separator string `yaml:"separator"`
		} `yaml:"json_parsing"`
		Metrics []map[string]any `yaml:"metrics"`
	}

	parse := func(in iotcfg.MqttPrometheusInstanceConfig) (doc, string) {
		t.Helper()
		b, err := ExporterConfig("mqtt.example.com", in)
		if err != nil {
			t.Fatalf("ExporterConfig: %v", err)
		}
		var d doc
		if err := yaml.Unmarshal(b, &d); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return d, string(b)
	}

	k, kraw := parse(kitchen)
	if k.MQTT.Server != "mqtts://mqtt.example.com:8883" {
		t.Errorf("server = %q", k.MQTT.Server)
	}
	if k.MQTT.ClientID != "mqtt2prometheus-kitchen" {
		t.Errorf("client_id = %q", k.MQTT.ClientID)
	}
	if k.MQTT.TopicPath != "sensors/kitchen/#" {
		t.Errorf("topic_path = %q", k.MQTT.TopicPath)
	}
	if k.Cache.Timeout != "60m" || k.JSONParsing.Separator != "." {
		t.Errorf("unexpected base settings %+v", k)
	}
	if strings.Contains(kraw, "device_id_regex") {
		t.Errorf("device_id_regex must be omitted when unset:\n%s", kraw)
	}
	if !strings.Contains(kraw, "metrics: []") {
		t.Errorf("empty metrics must render as a list:\n%s", kraw)
	}

	g, _ := parse(garage)
	if g.MQTT.ClientID != "mqtt2prometheus-garage" {
		t.Errorf("client_id = %q", g.MQTT.ClientID)
	}
	if g.MQTT.DeviceIDRegex != "dev-(.*)" {
		t.Errorf("device_id_regex = %q", g.MQTT.DeviceIDRegex)
	}
	if len(g.Metrics) != 1 || g.Metrics[0]["prom_name"] != "temperature" {
		t.Errorf("metrics = %v", g.Metrics)
	}
}

func TestExporterConfig_Deterministic(t *testing.T) {
	in := iotcfg.MqttPrometheusInstanceConfig{Name: "a", TopicPath: "t", DeviceIDRegex: "x"}
	a, _ := ExporterConfig("h", in)
	b, _ := ExporterConfig("h", in)
	if string(a) != string(b) {
		t.Fatal("rendering must be deterministic")
	}
}

func TestExporterConfig_Golden(t *testing.T) {
	tests := []struct {
		name string
		in   iotcfg.MqttPrometheusInstanceConfig
		want string
	}{
		{
			name: "minimal",
			in:   iotcfg.MqttPrometheusInstanceConfig{Name: "kitchen", TopicPath: "sensors/kitchen/#"},
			want: `cache:
  timeout: 60m
json_parsing:
  separator: .
metrics: []
mqtt:
  client_id: mqtt2prometheus-kitchen
  qos: 0
  server: mqtts://mqtt.example.com:8883
  topic_path: sensors/kitchen/#
`,
		},
		{
			name: "metrics and device regex",
			in: iotcfg.MqttPrometheusInstanceConfig{
				Name:          "garage",
				TopicPath:     "sensors/garage/#",
				DeviceIDRegex: "dev-(.*)",
				Metrics:       []any{map[string]any{"prom_name": "temperature", "type": "gauge"}},
			},
			want: `cache:
  timeout: 60m
json_parsing:
  separator: .
metrics:
- prom_name: temperature
  type: gauge
mqtt:
  client_id: mqtt2prometheus-garage
  device_id_regex: dev-(.*)
  qos: 0
  server: mqtts://mqtt.example.com:8883
  topic_path: sensors/garage/#
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExporterConfig("mqtt.example.com", tt.in)
			if err != nil {
				t.Fatalf("ExporterConfig: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ExporterConfig mismatch\ngot:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}
