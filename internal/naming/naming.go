// Package naming derives stable names, labels and digests for declared resources.
// Keeping the rules here lets planners and adapters agree on names without
// passing them around.
package naming

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// defaultLength defines the hex length of short hashes (bits ~ length * 4).
const defaultLength = 6

// ShortHash returns the hex SHA1 prefix of length n (clamped to digest size).
func ShortHash(s string, n int) string {
	sum := sha1.Sum([]byte(s))
	h := fmt.Sprintf("%x", sum)
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}

// ContentHash returns the default-length short hash of s.
func ContentHash(s string) string {
	return ShortHash(s, defaultLength)
}

// Digest returns the hex BLAKE3 digest of the given parts. Each part is length
// prefixed so that ("ab", "c") and ("a", "bc") differ.
func Digest(parts ...[]byte) string {
	h := blake3.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DigestStrings is Digest over string parts.
func DigestStrings(parts ...string) string {
	bs := make([][]byte, len(parts))
	for i, p := range parts {
		bs[i] = []byte(p)
	}
	return Digest(bs...)
}

// Fixed names shared by planners and adapters.
const (
	BrokerName        = "mosquitto"
	BrokerNamespace   = "mosquitto"
	BrokerCertName    = "mosquitto"
	BrokerTLSSecret   = "mosquitto-tls"
	BrokerConfigMap   = "mosquitto-config"
	BrokerPasswordMap = "mosquitto-password"
	BrokerClaim       = "mosquitto"
	BrokerService     = "mosquitto-mqtts"

	ExporterName        = "mqtt2prometheus"
	ExporterNamespace   = "mqtt2prometheus"
	ExporterCredentials = "mqtt-credentials"

	LegacyNetwork = "iot"
)

// ExporterInstanceName returns `mqtt2prometheus-<instance>`, used for the
// Deployment, Service, PVC, app label and MQTT client identifier of an instance.
func ExporterInstanceName(instance string) string {
	return ExporterName + "-" + instance
}

// ExporterConfigMapName returns `mqtt2prometheus-config-<instance>`.
func ExporterConfigMapName(instance string) string {
	return ExporterName + "-config-" + instance
}

// LegacyDir returns `<rootDir>/<name>` without a trailing slash.
func LegacyDir(rootDir, name string) string {
	return strings.TrimRight(rootDir, "/") + "/" + name
}
