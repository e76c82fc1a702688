package mqttprobe

import (
	"context"
	"testing"
	"time"
)

func TestBuildClientOptions(t *testing.T) {
	o := Options{Host: "mqtt.example.com", Port: 8883, TLS: true, Username: "exporter", Password: "s3cret", ClientID: "probe"}
	opts := buildClientOptions(o)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://mqtt.example.com:8883" {
		t.Errorf("servers = %v", opts.Servers)
	}
	if opts.Username != "exporter" || opts.Password != "s3cret" || opts.ClientID != "probe" {
		t.Errorf("credentials = %q %q %q", opts.Username, opts.Password, opts.ClientID)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.ServerName != "mqtt.example.com" {
		t.Errorf("tls config = %+v", opts.TLSConfig)
	}
	if opts.ConnectTimeout != defaultConnectTimeout || opts.AutoReconnect {
		t.Errorf("timeout=%v autoReconnect=%v", opts.ConnectTimeout, opts.AutoReconnect)
	}

	plain := buildClientOptions(Options{Host: "10.0.0.5", Port: 1883, Timeout: time.Second})
	if plain.Servers[0].String() != "tcp://10.0.0.5:1883" || plain.Username != "" || plain.ConnectTimeout != time.Second {
		t.Errorf("plain options = %v %q %v", plain.Servers, plain.Username, plain.ConnectTimeout)
	}
	if plain.ClientID == "" {
		t.Error("client id must be generated")
	}
}

func TestBrokerURL_IPv6(t *testing.T) {
	if got := (Options{Host: "::1", Port: 1883}).BrokerURL(); got != "tcp://[::1]:1883" {
		t.Errorf("BrokerURL = %q", got)
	}
}

func TestPing_RequiresHostAndPort(t *testing.T) {
	if _, err := Ping(context.Background(), Options{Host: "x"}); err == nil {
		t.Fatal("expected error without port")
	}
}
