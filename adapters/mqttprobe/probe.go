// Package mqttprobe checks that a deployed broker accepts MQTT connections.
package mqttprobe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/yaegashi/iotops/internal/logging"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultKeepAlive      = 30 * time.Second
	disconnectQuiesce     = 250 // milliseconds
	tlsMinVersion         = tls.VersionTLS12
)

// Options selects the broker and the credentials used for the probe.
type Options struct {
	Host     string
	Port     int
	TLS      bool
	Insecure bool // skip certificate verification
	Username string
	Password string
	ClientID string
	Timeout  time.Duration
}

// Result reports a successful probe.
type Result struct {
	Broker  string
	Latency time.Duration
}

// BrokerURL returns ssl:// or tcp:// host:port for paho.
func (o Options) BrokerURL() string {
	scheme := "tcp"
	if o.TLS {
		scheme = "ssl"
	}
	return scheme + "://" + net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

func buildClientOptions(o Options) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(o.BrokerURL())
	clientID := o.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("iotops-probe-%d", time.Now().UnixNano()%100000)
	}
	opts.SetClientID(clientID)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	opts.SetConnectTimeout(timeout)
	opts.SetKeepAlive(defaultKeepAlive)
	if o.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion:         tlsMinVersion,
			ServerName:         o.Host,
			InsecureSkipVerify: o.Insecure,
		})
	}
	return opts
}

// Ping connects to the broker, then disconnects.
func Ping(ctx context.Context, o Options) (*Result, error) {
	if o.Host == "" || o.Port == 0 {
		return nil, errors.New("mqtt probe: host and port are required")
	}
	logger := logging.FromContext(ctx).With("broker", o.BrokerURL())
	opts := buildClientOptions(o)
	client := pahomqtt.NewClient(opts)

	logger.Debug(ctx, "MQTTProbe:Connect/s")
	start := time.Now()
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(opts.ConnectTimeout + time.Second):
		return nil, fmt.Errorf("mqtt probe %s: connect timed out", o.BrokerURL())
	}
	if err := token.Error(); err != nil {
		logger.Info(ctx, "MQTTProbe:Connect/efail", "err", err)
		return nil, fmt.Errorf("mqtt probe %s: %w", o.BrokerURL(), err)
	}
	latency := time.Since(start)
	client.Disconnect(disconnectQuiesce)
	logger.Info(ctx, "MQTTProbe:Connect/eok", "latency", latency)
	return &Result{Broker: o.BrokerURL(), Latency: latency}, nil
}
