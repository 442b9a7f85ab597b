package evidence

import (
	"encoding/json"
	"fmt"

	"github.com/aub/blocktrace-chaincode/internal/apperrors"
	"github.com/aub/blocktrace-chaincode/internal/ledger"
	"github.com/aub/blocktrace-chaincode/internal/txctx"
)

// ============================================================================
// REGISTRATION
// ============================================================================

// Register creates a new evidence record owned by the invoking organization.
func Register(ctx *txctx.Context, evidenceID, contentHash, metadataJSON string) (*Record, error) {
	if evidenceID == "" {
		return nil, apperrors.Validation("evidenceId is required")
	}
	if ledger.ReservedID(evidenceID) {
		return nil, apperrors.Validation("evidenceId %s uses a reserved prefix", evidenceID)
	}

	existing, err := ctx.Store.Get(ledger.EvidenceKey(evidenceID))
	if err != nil {
		return nil, fmt.Errorf("failed to read evidence: %w", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("Evidence %s already exists", evidenceID)
	}

	metadata, err := ParseMetadata(metadataJSON)
	if err != nil {
		return nil, err
	}

	algorithm := metadata.Algorithm
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}

	now := ctx.Now()
	owner := ctx.Invoker.MSPID
	record := &Record{
		EvidenceID:    evidenceID,
		ContentHash:   contentHash,
		HashAlgorithm: algorithm,
		CurrentOwner:  owner,
		Status:        StatusRegistered,
		Metadata:      metadata,
		CustodyTrail: []CustodyEntry{{
			From:      owner,
			To:        owner,
			Timestamp: now,
			TxID:      ctx.TxID,
			ActorID:   ctx.Invoker.ID,
		}},
		Annotations: []Annotation{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := save(ctx, record); err != nil {
		return nil, err
	}
	if err := ctx.Emit(EventRegistered, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ParseMetadata decodes the registration metadata argument. An empty string
// is an empty object.
func ParseMetadata(metadataJSON string) (Metadata, error) {
	var m Metadata
	if err := m.UnmarshalJSON([]byte(metadataJSON)); err != nil {
		return Metadata{}, apperrors.InvalidJSON("metadata", err)
	}
	return m, nil
}

// ============================================================================
// CUSTODY
// ============================================================================

type transferEvent struct {
	EvidenceID string `json:"evidenceId"`
	FromOrg    string `json:"fromOrg"`
	ToOrg      string `json:"toOrg"`
	Timestamp  string `json:"timestamp"`
}

// TransferCustody moves ownership from fromOrg to toOrg. Only the current
// owner, invoking as itself, may hand evidence on. An empty timestamp falls
// back to the transaction's logical time.
func TransferCustody(ctx *txctx.Context, evidenceID, fromOrg, toOrg, timestamp string) (*Record, error) {
	if evidenceID == "" {
		return nil, apperrors.Validation("evidenceId is required")
	}
	if toOrg == "" {
		return nil, apperrors.Validation("toOrg is required")
	}

	record, err := load(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if record.CurrentOwner != fromOrg {
		return nil, apperrors.Conflict("Transfer denied. %s is owned by %s", evidenceID, record.CurrentOwner)
	}
	if ctx.Invoker.MSPID != fromOrg {
		return nil, apperrors.Authorization("Invoker MSP %s must match current owner %s", ctx.Invoker.MSPID, fromOrg)
	}

	if timestamp == "" {
		timestamp = ctx.Now()
	}
	record.CurrentOwner = toOrg
	record.Status = StatusInCustody
	record.UpdatedAt = timestamp
	record.CustodyTrail = append(record.CustodyTrail, CustodyEntry{
		From:      fromOrg,
		To:        toOrg,
		Timestamp: timestamp,
		TxID:      ctx.TxID,
		ActorID:   ctx.Invoker.ID,
	})

	if err := save(ctx, record); err != nil {
		return nil, err
	}
	ev := transferEvent{EvidenceID: evidenceID, FromOrg: fromOrg, ToOrg: toOrg, Timestamp: timestamp}
	if err := ctx.Emit(EventTransferred, ev); err != nil {
		return nil, err
	}
	return record, nil
}

// ============================================================================
// VERIFICATION & ANNOTATION
// ============================================================================

// Verify compares providedHash with the stored content hash. It never writes.
func Verify(ctx *txctx.Context, evidenceID, providedHash string) (*Verification, error) {
	record, err := load(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	v := &Verification{
		EvidenceID:   evidenceID,
		ProvidedHash: providedHash,
		ExpectedHash: record.ContentHash,
		Match:        record.ContentHash == providedHash,
		VerifiedAt:   ctx.Now(),
	}
	if err := ctx.Emit(EventVerified, v); err != nil {
		return nil, err
	}
	return v, nil
}

type annotatedEvent struct {
	EvidenceID string     `json:"evidenceId"`
	Annotation Annotation `json:"annotation"`
}

// Annotate appends a note by the invoker. Custody is left untouched.
func Annotate(ctx *txctx.Context, evidenceID, note string) (*Record, error) {
	if note == "" {
		return nil, apperrors.Validation("Annotation note text required")
	}
	record, err := load(ctx, evidenceID)
	if err != nil {
		return nil, err
	}

	annotation := Annotation{
		Author:    ctx.Invoker.ID,
		Org:       ctx.Invoker.MSPID,
		Note:      note,
		Timestamp: ctx.Now(),
	}
	record.Annotations = append(record.Annotations, annotation)
	record.UpdatedAt = annotation.Timestamp

	if err := save(ctx, record); err != nil {
		return nil, err
	}
	if err := ctx.Emit(EventAnnotated, annotatedEvent{EvidenceID: evidenceID, Annotation: annotation}); err != nil {
		return nil, err
	}
	return record, nil
}

// ============================================================================
// HELPERS
// ============================================================================

// Exists reports whether an evidence record is stored under evidenceID.
func Exists(ctx *txctx.Context, evidenceID string) (bool, error) {
	if evidenceID == "" || ledger.ReservedID(evidenceID) {
		return false, nil
	}
	data, err := ctx.Store.Get(ledger.EvidenceKey(evidenceID))
	if err != nil {
		return false, fmt.Errorf("failed to read evidence: %w", err)
	}
	return data != nil, nil
}

func load(ctx *txctx.Context, evidenceID string) (*Record, error) {
	if evidenceID == "" {
		return nil, apperrors.Validation("evidenceId is required")
	}
	if ledger.ReservedID(evidenceID) {
		return nil, apperrors.NotFound("Evidence %s does not exist", evidenceID)
	}
	data, err := ctx.Store.Get(ledger.EvidenceKey(evidenceID))
	if err != nil {
		return nil, fmt.Errorf("failed to read evidence: %w", err)
	}
	if data == nil {
		return nil, apperrors.NotFound("Evidence %s does not exist", evidenceID)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evidence %s: %w", evidenceID, err)
	}
	return &record, nil
}

func save(ctx *txctx.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal evidence: %w", err)
	}
	if err := ctx.Store.Put(ledger.EvidenceKey(record.EvidenceID), data); err != nil {
		return fmt.Errorf("failed to write evidence: %w", err)
	}
	return nil
}
