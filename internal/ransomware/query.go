package ransomware

import (
	"encoding/json"
	"fmt"

	"github.com/aub/blocktrace-chaincode/internal/ledger"
	"github.com/aub/blocktrace-chaincode/internal/txctx"
)

// ByFamily returns the incidents attributed to family.
func ByFamily(ctx *txctx.Context, family string) ([]*Incident, error) {
	return query(ctx, ledger.Where("type", IncidentType).And("ransomwareFamily", family))
}

// ByWallet returns the incidents whose wallet set contains wallet.
func ByWallet(ctx *txctx.Context, wallet string) ([]*Incident, error) {
	return query(ctx, ledger.Where("type", IncidentType).AndContains("walletAddresses", wallet))
}

// All returns every incident.
func All(ctx *txctx.Context) ([]*Incident, error) {
	return query(ctx, ledger.Where("type", IncidentType))
}

func query(ctx *txctx.Context, sel ledger.Selector) ([]*Incident, error) {
	it, err := ctx.Store.Query(sel)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	kvs, err := ledger.Collect[ledger.KV](it)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate incidents: %w", err)
	}

	incidents := make([]*Incident, 0, len(kvs))
	for _, kv := range kvs {
		if !ledger.Incidents.Contains(kv.Key) {
			continue
		}
		var incident Incident
		if err := json.Unmarshal(kv.Value, &incident); err != nil {
			return nil, fmt.Errorf("failed to unmarshal incident %s: %w", kv.Key, err)
		}
		incidents = append(incidents, &incident)
	}
	return incidents, nil
}
