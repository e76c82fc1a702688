package model

// DNSRecordType represents provider-agnostic DNS record types.
type DNSRecordType string

const (
	DNSRecordTypeA     DNSRecordType = "A"
	DNSRecordTypeAAAA  DNSRecordType = "AAAA"
	DNSRecordTypeCNAME DNSRecordType = "CNAME"
)

// DNSRecordSet describes a single DNS record set identified by FQDN and type.
// It is the spec of a dns.record resource.
type DNSRecordSet struct {
	Zone  string        `json:"zone"`
	FQDN  string        `json:"fqdn"` // Absolute FQDN. Trailing dot is optional.
	Type  DNSRecordType `json:"type"`
	TTL   uint32        `json:"ttl,omitempty"` // TTL in seconds. Use provider default when zero.
	RData []string      `json:"rdata"`         // Presentation-format RDATA.
}
