// Package broker declares the resources of the Mosquitto broker on either backend.
package broker

import (
	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/internal/assets"
)

const (
	// MQTTSPort is the TLS listener of the orchestrated broker.
	MQTTSPort = 8883
	// MQTTPort is the plaintext listener published by the legacy broker.
	MQTTPort = 1883
	// RunAsID is the uid, gid and fsGroup of the broker process.
	RunAsID int64 = 1883

	ImageRepository = "eclipse-mosquitto"
	ClusterIssuer   = "lets-encrypt"
	DNSLabel        = "mqtt"
	DataSize        = "1Gi"
)

// Output names published by the broker.
const (
	OutputAddress  = "mqtts_address"
	OutputPort     = "mqtts_port"
	OutputHostname = "mqtts_hostname"
	OutputMQTTHost = "mqtt_hostname"
)

// Resource IDs of the broker graph.
const (
	IDNamespace   = "mosquitto/namespace"
	IDCertificate = "mosquitto/certificate"
	IDConfig      = "mosquitto/config"
	IDPassword    = "mosquitto/password"
	IDClaim       = "mosquitto/pvc"
	IDDeployment  = "mosquitto/deployment"
	IDService     = "mosquitto/service"

	IDDNS        = "mosquitto/dns"
	IDConfigDir  = "mosquitto/config-dir"
	IDDataDir    = "mosquitto/data-dir"
	IDConfigSync = "mosquitto/config-sync"
	IDImage      = "mosquitto/image"
	IDContainer  = "mosquitto/container"
)

// LegacyInput carries what the legacy plan needs beyond the document.
type LegacyInput struct {
	Config *iotcfg.ComponentConfig
	// Bundle is the resolved "mosquitto" asset bundle.
	Bundle *assets.Bundle
	// NetworkID is the resource ID of the shared Docker network.
	NetworkID   string
	NetworkName string
}

// Image returns the broker image reference for version.
func Image(version string) string {
	return ImageRepository + ":" + version
}

func outputID(name string) string {
	return "output/" + name
}
