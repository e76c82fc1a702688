// Package render produces the configuration files handed to the broker and the exporters.
package render

import "strings"

const mosquittoConfig = `persistence true
persistence_location /mosquitto/data/
log_dest stdout

password_file /mosquitto/config/password.txt

# MQTTS listener
listener 8883
protocol mqtt
cafile /etc/ssl/certs/ca-certificates.crt
keyfile /mosquitto/certs/tls.key
certfile /mosquitto/certs/tls.crt
`

// MosquittoConfig returns the broker configuration used on the orchestrated backend.
// It is fixed and does not depend on the document.
func MosquittoConfig() string {
	return mosquittoConfig
}

// PasswordFile joins mosquitto_passwd lines with "\n" in declaration order.
func PasswordFile(passwords []string) string {
	return strings.Join(passwords, "\n")
}
