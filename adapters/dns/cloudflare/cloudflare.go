// Package cloudflare manages DNS record sets in a Cloudflare zone.
package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cf "github.com/cloudflare/cloudflare-go"

	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/converge"
	"github.com/yaegashi/iotops/internal/logging"
)

// autoTTL asks Cloudflare to choose the TTL.
const autoTTL = 1

// API is the subset of the Cloudflare client used by the applier.
type API interface {
	ZoneIDByName(zoneName string) (string, error)
	ListDNSRecords(ctx context.Context, rc *cf.ResourceContainer, params cf.ListDNSRecordsParams) ([]cf.DNSRecord, *cf.ResultInfo, error)
	CreateDNSRecord(ctx context.Context, rc *cf.ResourceContainer, params cf.CreateDNSRecordParams) (cf.DNSRecord, error)
	UpdateDNSRecord(ctx context.Context, rc *cf.ResourceContainer, params cf.UpdateDNSRecordParams) (cf.DNSRecord, error)
	DeleteDNSRecord(ctx context.Context, rc *cf.ResourceContainer, recordID string) error
}

var _ API = (*cf.API)(nil)

// Credentials selects global API key or scoped token authentication.
type Credentials struct {
	Email    string
	APIKey   string
	APIToken string
}

// NewAPI returns a Cloudflare client. A token takes precedence over a key.
func NewAPI(c Credentials) (*cf.API, error) {
	if c.APIToken != "" {
		return cf.NewWithAPIToken(c.APIToken)
	}
	if c.APIKey == "" || c.Email == "" {
		return nil, fmt.Errorf("cloudflare: api_token or api_key with email is required")
	}
	return cf.New(c.APIKey, c.Email)
}

// Applier converges dns.record resources.
type Applier struct {
	API API
}

var (
	_ converge.Applier = (*Applier)(nil)
	_ converge.Deleter = (*Applier)(nil)
)

func (a *Applier) Apply(ctx context.Context, r *model.Resource, _ *model.ResourceState) (map[string]string, error) {
	spec, ok := r.Spec.(*model.DNSRecordSet)
	if !ok {
		return nil, fmt.Errorf("resource %s: unexpected spec %T for kind %s", r.ID, r.Spec, r.Kind)
	}
	rset := *spec
	if err := normalize(&rset); err != nil {
		return nil, fmt.Errorf("resource %s: %w", r.ID, err)
	}
	logger := logging.FromContext(ctx).With("fqdn", rset.FQDN, "type", rset.Type)

	zoneID, err := a.API.ZoneIDByName(rset.Zone)
	if err != nil {
		return nil, fmt.Errorf("lookup zone %s: %w", rset.Zone, err)
	}
	rc := cf.ZoneIdentifier(zoneID)
	existing, _, err := a.API.ListDNSRecords(ctx, rc, cf.ListDNSRecordsParams{Type: string(rset.Type), Name: rset.FQDN})
	if err != nil {
		return nil, fmt.Errorf("list records %s: %w", rset.FQDN, err)
	}

	ttl := int(rset.TTL)
	if ttl == 0 {
		ttl = autoTTL
	}
	proxied := false
	content := strings.TrimSuffix(rset.RData[0], ".")

	var rec cf.DNSRecord
	if len(existing) == 0 {
		rec, err = a.API.CreateDNSRecord(ctx, rc, cf.CreateDNSRecordParams{
			Type: string(rset.Type), Name: rset.FQDN, Content: content, TTL: ttl, Proxied: &proxied,
		})
		if err != nil {
			logger.Info(ctx, "Cloudflare:CreateRecord/efail", "err", err)
			return nil, fmt.Errorf("create record %s: %w", rset.FQDN, err)
		}
		logger.Info(ctx, "Cloudflare:CreateRecord/eok", "id", rec.ID)
	} else {
		rec, err = a.API.UpdateDNSRecord(ctx, rc, cf.UpdateDNSRecordParams{
			ID: existing[0].ID, Type: string(rset.Type), Name: rset.FQDN, Content: content, TTL: ttl, Proxied: &proxied,
		})
		if err != nil {
			logger.Info(ctx, "Cloudflare:UpdateRecord/efail", "err", err)
			return nil, fmt.Errorf("update record %s: %w", rset.FQDN, err)
		}
		logger.Info(ctx, "Cloudflare:UpdateRecord/eok", "id", rec.ID)
	}
	return map[string]string{
		"zone":    rset.Zone,
		"zone_id": zoneID,
		"id":      rec.ID,
		"fqdn":    rset.FQDN,
		"type":    string(rset.Type),
		"content": content,
	}, nil
}

// Delete removes the record created by Apply. A record already gone is not an error.
func (a *Applier) Delete(ctx context.Context, st *model.ResourceState) error {
	zoneID, id := st.Attributes["zone_id"], st.Attributes["id"]
	if zoneID == "" || id == "" {
		return nil
	}
	err := a.API.DeleteDNSRecord(ctx, cf.ZoneIdentifier(zoneID), id)
	if err != nil {
		var nf *cf.NotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("delete record %s: %w", st.Attributes["fqdn"], err)
	}
	logging.FromContext(ctx).Info(ctx, "Cloudflare:DeleteRecord/eok", "fqdn", st.Attributes["fqdn"])
	return nil
}

// normalize validates rset in place. Only A, AAAA and CNAME with one value are supported.
func normalize(rset *model.DNSRecordSet) error {
	if rset.Zone == "" || rset.FQDN == "" {
		return fmt.Errorf("zone and FQDN are required")
	}
	rset.FQDN = strings.TrimSuffix(rset.FQDN, ".")
	zone := strings.TrimSuffix(rset.Zone, ".")
	if rset.FQDN != zone && !strings.HasSuffix(rset.FQDN, "."+zone) {
		return fmt.Errorf("FQDN %s is outside zone %s", rset.FQDN, zone)
	}
	switch rset.Type {
	case model.DNSRecordTypeA, model.DNSRecordTypeAAAA, model.DNSRecordTypeCNAME:
	default:
		return fmt.Errorf("unsupported DNS record type: %s", rset.Type)
	}
	if len(rset.RData) != 1 {
		return fmt.Errorf("%s record must have exactly one RData entry, got %d", rset.Type, len(rset.RData))
	}
	return nil
}
