package ransomware

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aub/blocktrace-chaincode/internal/apperrors"
	"github.com/aub/blocktrace-chaincode/internal/attrs"
	"github.com/aub/blocktrace-chaincode/internal/evidence"
	"github.com/aub/blocktrace-chaincode/internal/ledger"
	"github.com/aub/blocktrace-chaincode/internal/txctx"
)

// ============================================================================
// REGISTRATION
// ============================================================================

type registeredEvent struct {
	IncidentID       string `json:"incidentId"`
	RansomwareFamily string `json:"ransomwareFamily"`
}

// Register opens a new incident reported by the invoker. Missing metadata
// fields take their fixed defaults and duplicate wallets are dropped.
func Register(ctx *txctx.Context, incidentID, family, walletsJSON, metadataJSON string) (*Incident, error) {
	if incidentID == "" {
		return nil, apperrors.Validation("incidentId is required")
	}
	existing, err := ctx.Store.Get(ledger.IncidentKey(incidentID))
	if err != nil {
		return nil, fmt.Errorf("failed to read incident: %w", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("Ransomware incident %s already exists", incidentID)
	}

	var metadata Metadata
	if err := metadata.UnmarshalJSON([]byte(metadataJSON)); err != nil {
		return nil, apperrors.InvalidJSON("metadata", err)
	}
	wallets, err := parseWallets(walletsJSON)
	if err != nil {
		return nil, err
	}

	if family == "" {
		family = DefaultFamily
	}
	now := ctx.Now()
	metadata.applyDefaults(now)

	incident := &Incident{
		IncidentID:       incidentID,
		Type:             IncidentType,
		RansomwareFamily: family,
		Status:           StatusActive,
		WalletAddresses:  wallets,
		InfectedSystems:  []InfectedSystem{},
		EvidenceLinks:    []EvidenceLink{},
		PaymentTrail:     []PaymentRecord{},
		Metadata:         metadata,
		ReportedBy:       ctx.Invoker.MSPID,
		ReporterID:       ctx.Invoker.ID,
		CreatedAt:        now,
		UpdatedAt:        now,
		Timeline:         []TimelineEntry{entry(ctx, ActionRegistered)},
	}

	if err := save(ctx, incident); err != nil {
		return nil, err
	}
	if err := ctx.Emit(EventRegistered, registeredEvent{IncidentID: incidentID, RansomwareFamily: family}); err != nil {
		return nil, err
	}
	return incident, nil
}

// parseWallets decodes a JSON array of addresses, keeping the first
// occurrence of each.
func parseWallets(walletsJSON string) ([]string, error) {
	wallets := []string{}
	if strings.TrimSpace(walletsJSON) == "" {
		return wallets, nil
	}
	var parsed []string
	if err := json.Unmarshal([]byte(walletsJSON), &parsed); err != nil {
		return nil, &apperrors.Error{
			Kind:    apperrors.KindValidation,
			Message: "walletAddresses must be valid JSON array",
			Cause:   err,
		}
	}

	seen := make(map[string]struct{}, len(parsed))
	for _, w := range parsed {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		wallets = append(wallets, w)
	}
	return wallets, nil
}

// ============================================================================
// SUB-COLLECTIONS
// ============================================================================

type systemAddedEvent struct {
	IncidentID string `json:"incidentId"`
	Hostname   string `json:"hostname"`
}

// AddInfectedSystem records a compromised host.
func AddInfectedSystem(ctx *txctx.Context, incidentID, systemJSON string) (*Incident, error) {
	incident, err := load(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	var sys InfectedSystem
	err = parseObject("systemInfo", systemJSON,
		binding{"hostname", &sys.Hostname},
		binding{"ipAddress", &sys.IPAddress},
		binding{"macAddress", &sys.MACAddress},
		binding{"osVersion", &sys.OSVersion},
		binding{"infectionDate", &sys.InfectionDate},
		binding{"filesEncrypted", &sys.FilesEncrypted},
		binding{"recoveryStatus", &sys.RecoveryStatus},
	)
	if err != nil {
		return nil, err
	}

	now := ctx.Now()
	if sys.InfectionDate == "" {
		sys.InfectionDate = now
	}
	if sys.RecoveryStatus == "" {
		sys.RecoveryStatus = DefaultRecoveryStatus
	}
	sys.AddedBy = ctx.Invoker.MSPID
	sys.Timestamp = now

	incident.InfectedSystems = append(incident.InfectedSystems, sys)
	tl := entry(ctx, ActionSystemAdded)
	tl.Hostname = sys.Hostname
	incident.append(tl)

	if err := save(ctx, incident); err != nil {
		return nil, err
	}
	if err := ctx.Emit(EventSystemAdded, systemAddedEvent{IncidentID: incidentID, Hostname: sys.Hostname}); err != nil {
		return nil, err
	}
	return incident, nil
}

type paymentTrackedEvent struct {
	IncidentID      string `json:"incidentId"`
	TransactionHash string `json:"transactionHash"`
}

// TrackPayment records a ransom payment observed on chain.
func TrackPayment(ctx *txctx.Context, incidentID, paymentJSON string) (*Incident, error) {
	incident, err := load(ctx, incidentID)
	if err != nil {
		return nil, err
	}

	var p PaymentRecord
	err = parseObject("paymentInfo", paymentJSON,
		binding{"transactionHash", &p.TransactionHash},
		binding{"fromWallet", &p.FromWallet},
		binding{"toWallet", &p.ToWallet},
		binding{"amount", &p.Amount},
		binding{"currency", &p.Currency},
		binding{"timestamp", &p.Timestamp},
		binding{"blockHeight", &p.BlockHeight},
		binding{"confirmations", &p.Confirmations},
		binding{"notes", &p.Notes},
	)
	if err != nil {
		return nil, err
	}

	now := ctx.Now()
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	if p.Timestamp == "" {
		p.Timestamp = now
	}
	p.TrackedBy = ctx.Invoker.MSPID
	p.RecordedAt = now

	incident.PaymentTrail = append(incident.PaymentTrail, p)
	tl := entry(ctx, ActionPaymentTracked)
	tl.TransactionHash = p.TransactionHash
	amount := p.Amount
	tl.Amount = &amount
	incident.append(tl)

	if err := save(ctx, incident); err != nil {
		return nil, err
	}
	if err := ctx.Emit(EventPaymentTracked, paymentTrackedEvent{IncidentID: incidentID, TransactionHash: p.TransactionHash}); err != nil {
		return nil, err
	}
	return incident, nil
}

type evidenceLinkedEvent struct {
	IncidentID string `json:"incidentId"`
	EvidenceID string `json:"evidenceId"`
}

// LinkEvidence attaches an existing evidence record to the incident. An
// empty relationship is recorded as RELATED.
func LinkEvidence(ctx *txctx.Context, incidentID, evidenceID, relationship string) (*Incident, error) {
	incident, err := load(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if evidenceID == "" {
		return nil, apperrors.Validation("evidenceId is required")
	}
	ok, err := evidence.Exists(ctx, evidenceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("Evidence %s does not exist", evidenceID)
	}

	if relationship == "" {
		relationship = DefaultRelationship
	}
	now := ctx.Now()
	incident.EvidenceLinks = append(incident.EvidenceLinks, EvidenceLink{
		EvidenceID:   evidenceID,
		Relationship: relationship,
		LinkedAt:     now,
		LinkedBy:     ctx.Invoker.MSPID,
	})
	tl := entry(ctx, ActionEvidenceLinked)
	tl.EvidenceID = evidenceID
	tl.Relationship = relationship
	incident.append(tl)

	if err := save(ctx, incident); err != nil {
		return nil, err
	}
	if err := ctx.Emit(EventEvidenceLinked, evidenceLinkedEvent{IncidentID: incidentID, EvidenceID: evidenceID}); err != nil {
		return nil, err
	}
	return incident, nil
}

// ============================================================================
// STATUS
// ============================================================================

type statusUpdatedEvent struct {
	IncidentID string `json:"incidentId"`
	OldStatus  string `json:"oldStatus"`
	NewStatus  string `json:"newStatus"`
}

// UpdateStatus moves the incident to newStatus and records the transition.
func UpdateStatus(ctx *txctx.Context, incidentID, newStatus, notes string) (*Incident, error) {
	incident, err := load(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if !ValidStatus(newStatus) {
		return nil, apperrors.Validation("Invalid status. Must be one of: %s", statusList())
	}

	oldStatus := incident.Status
	incident.Status = newStatus
	tl := entry(ctx, ActionStatusUpdated)
	tl.OldStatus = oldStatus
	tl.NewStatus = newStatus
	tl.Notes = &notes
	incident.append(tl)

	if err := save(ctx, incident); err != nil {
		return nil, err
	}
	ev := statusUpdatedEvent{IncidentID: incidentID, OldStatus: oldStatus, NewStatus: newStatus}
	if err := ctx.Emit(EventStatusUpdated, ev); err != nil {
		return nil, err
	}
	return incident, nil
}

// Get returns the incident stored under incidentID.
func Get(ctx *txctx.Context, incidentID string) (*Incident, error) {
	return load(ctx, incidentID)
}

// ============================================================================
// HELPERS
// ============================================================================

func entry(ctx *txctx.Context, action string) TimelineEntry {
	return TimelineEntry{
		Action:    action,
		Timestamp: ctx.Now(),
		Actor:     ctx.Invoker.ID,
		TxID:      ctx.TxID,
	}
}

func (i *Incident) append(tl TimelineEntry) {
	i.Timeline = append(i.Timeline, tl)
	i.UpdatedAt = tl.Timestamp
}

type binding struct {
	key string
	dst any
}

// parseObject decodes a JSON object argument into the bound fields. Unknown
// keys are ignored.
func parseObject(name, data string, fields ...binding) error {
	if strings.TrimSpace(data) == "" {
		return apperrors.Validation("%s is required", name)
	}
	obj, err := attrs.Parse([]byte(data))
	if err != nil {
		return apperrors.InvalidJSON(name, err)
	}
	for _, f := range fields {
		if err := obj.Take(f.key, f.dst); err != nil {
			return apperrors.InvalidJSON(name, err)
		}
	}
	return nil
}

func load(ctx *txctx.Context, incidentID string) (*Incident, error) {
	if incidentID == "" {
		return nil, apperrors.Validation("incidentId is required")
	}
	data, err := ctx.Store.Get(ledger.IncidentKey(incidentID))
	if err != nil {
		return nil, fmt.Errorf("failed to read incident: %w", err)
	}
	if data == nil {
		return nil, apperrors.NotFound("Ransomware incident %s does not exist", incidentID)
	}

	var incident Incident
	if err := json.Unmarshal(data, &incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident %s: %w", incidentID, err)
	}
	return &incident, nil
}

func save(ctx *txctx.Context, incident *Incident) error {
	data, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident: %w", err)
	}
	if err := ctx.Store.Put(ledger.IncidentKey(incident.IncidentID), data); err != nil {
		return fmt.Errorf("failed to write incident: %w", err)
	}
	return nil
}
