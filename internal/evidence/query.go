package evidence

import (
	"fmt"

	"github.com/aub/blocktrace-chaincode/internal/apperrors"
	"github.com/aub/blocktrace-chaincode/internal/ledger"
	"github.com/aub/blocktrace-chaincode/internal/txctx"
)

// Read returns the evidence record stored under evidenceID.
func Read(ctx *txctx.Context, evidenceID string) (*Record, error) {
	return load(ctx, evidenceID)
}

// All returns every entry of the evidence namespace in key order. Values that
// do not decode as a record are returned raw instead of failing the scan.
func All(ctx *txctx.Context) ([]Entry, error) {
	it, err := ctx.Store.Scan(ledger.Evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to get evidence: %w", err)
	}
	kvs, err := ledger.Collect[ledger.KV](it)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate evidence: %w", err)
	}

	entries := make([]Entry, 0, len(kvs))
	for _, kv := range kvs {
		entries = append(entries, Decode(kv.Key, kv.Value))
	}
	return entries, nil
}

// History returns every version of the evidence key in the order the store
// exposes it.
func History(ctx *txctx.Context, evidenceID string) ([]HistoryEntry, error) {
	if evidenceID == "" {
		return nil, apperrors.Validation("evidenceId is required")
	}
	if ledger.ReservedID(evidenceID) {
		return nil, apperrors.NotFound("Evidence %s does not exist", evidenceID)
	}
	key := ledger.EvidenceKey(evidenceID)
	it, err := ctx.Store.History(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	mods, err := ledger.Collect[ledger.Modification](it)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	history := make([]HistoryEntry, 0, len(mods))
	for _, m := range mods {
		h := HistoryEntry{
			TxID:      m.TxID,
			Timestamp: m.Timestamp.Unix(),
			IsDelete:  m.IsDelete,
		}
		if len(m.Value) > 0 {
			e := Decode(key.String(), m.Value)
			h.Value = &e
		}
		history = append(history, h)
	}
	return history, nil
}

// ByOwner returns the evidence currently held by org.
func ByOwner(ctx *txctx.Context, org string) ([]Entry, error) {
	return query(ctx, ledger.Where("currentOwner", org))
}

// ByHash returns the evidence registered with contentHash.
func ByHash(ctx *txctx.Context, contentHash string) ([]Entry, error) {
	return query(ctx, ledger.Where("hash", contentHash))
}

func query(ctx *txctx.Context, sel ledger.Selector) ([]Entry, error) {
	it, err := ctx.Store.Query(sel)
	if err != nil {
		return nil, fmt.Errorf("failed to query evidence: %w", err)
	}
	kvs, err := ledger.Collect[ledger.KV](it)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate evidence: %w", err)
	}

	entries := make([]Entry, 0, len(kvs))
	for _, kv := range kvs {
		if !ledger.Evidence.Contains(kv.Key) {
			continue
		}
		entries = append(entries, Decode(kv.Key, kv.Value))
	}
	return entries, nil
}
