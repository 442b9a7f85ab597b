// Package chaincode exposes the evidence and ransomware transaction functions
// as a Fabric smart contract.
package chaincode

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/v2/contractapi"

	"github.com/aub/blocktrace-chaincode/internal/dispatch"
	"github.com/aub/blocktrace-chaincode/internal/ledger/fabricstore"
	"github.com/aub/blocktrace-chaincode/internal/telemetry"
	"github.com/aub/blocktrace-chaincode/internal/txctx"
)

// ContractName is the name the contract is registered under.
const ContractName = "blocktrace.evidence"

// DefaultEventPrefix namespaces chaincode event names.
const DefaultEventPrefix = "blocktrace."

// BlockTraceContract - chain-of-custody ledger for forensic evidence and
// ransomware incidents
type BlockTraceContract struct {
	contractapi.Contract

	eventPrefix string
	metrics     *telemetry.Metrics
}

// NewContract returns the contract. A nil metrics disables instrumentation.
func NewContract(eventPrefix string, metrics *telemetry.Metrics) *BlockTraceContract {
	c := &BlockTraceContract{eventPrefix: eventPrefix, metrics: metrics}
	c.Name = ContractName
	return c
}

// GetEvaluateTransactions marks the pure queries so clients evaluate rather
// than submit them.
func (c *BlockTraceContract) GetEvaluateTransactions() []string {
	var names []string
	for _, op := range dispatch.Operations() {
		if op.ReadOnly() {
			names = append(names, op.String())
		}
	}
	return names
}

// ==============================================================================
// EVIDENCE
// ==============================================================================

// RegisterEvidence creates an evidence record owned by the invoking MSP
func (c *BlockTraceContract) RegisterEvidence(ctx contractapi.TransactionContextInterface,
	evidenceID string, contentHash string, metadataJSON string) (string, error) {
	return c.invoke(ctx, dispatch.RegisterEvidence, evidenceID, contentHash, metadataJSON)
}

// TransferCustody hands evidence to another organization
func (c *BlockTraceContract) TransferCustody(ctx contractapi.TransactionContextInterface,
	evidenceID string, fromOrg string, toOrg string, timestamp string) (string, error) {
	return c.invoke(ctx, dispatch.TransferCustody, evidenceID, fromOrg, toOrg, timestamp)
}

// VerifyEvidence compares a hash with the registered one
func (c *BlockTraceContract) VerifyEvidence(ctx contractapi.TransactionContextInterface,
	evidenceID string, providedHash string) (string, error) {
	return c.invoke(ctx, dispatch.VerifyEvidence, evidenceID, providedHash)
}

// GetEvidenceHistory returns every version of an evidence record
func (c *BlockTraceContract) GetEvidenceHistory(ctx contractapi.TransactionContextInterface,
	evidenceID string) (string, error) {
	return c.invoke(ctx, dispatch.GetEvidenceHistory, evidenceID)
}

// AnnotateEvidence appends an investigator note
func (c *BlockTraceContract) AnnotateEvidence(ctx contractapi.TransactionContextInterface,
	evidenceID string, note string) (string, error) {
	return c.invoke(ctx, dispatch.AnnotateEvidence, evidenceID, note)
}

// ReadEvidence retrieves evidence by ID
func (c *BlockTraceContract) ReadEvidence(ctx contractapi.TransactionContextInterface,
	evidenceID string) (string, error) {
	return c.invoke(ctx, dispatch.ReadEvidence, evidenceID)
}

// GetAllEvidence returns every evidence entry
func (c *BlockTraceContract) GetAllEvidence(ctx contractapi.TransactionContextInterface) (string, error) {
	return c.invoke(ctx, dispatch.GetAllEvidence)
}

// QueryEvidenceByOwner finds evidence held by an organization
func (c *BlockTraceContract) QueryEvidenceByOwner(ctx contractapi.TransactionContextInterface,
	owner string) (string, error) {
	return c.invoke(ctx, dispatch.QueryEvidenceByOwner, owner)
}

// QueryEvidenceByHash finds evidence by content hash
func (c *BlockTraceContract) QueryEvidenceByHash(ctx contractapi.TransactionContextInterface,
	contentHash string) (string, error) {
	return c.invoke(ctx, dispatch.QueryEvidenceByHash, contentHash)
}

// ==============================================================================
// RANSOMWARE
// ==============================================================================

// RegisterRansomwareIncident opens an incident case file
func (c *BlockTraceContract) RegisterRansomwareIncident(ctx contractapi.TransactionContextInterface,
	incidentID string, family string, walletAddressesJSON string, metadataJSON string) (string, error) {
	return c.invoke(ctx, dispatch.RegisterRansomwareIncident, incidentID, family, walletAddressesJSON, metadataJSON)
}

// AddInfectedSystem records a compromised host on an incident
func (c *BlockTraceContract) AddInfectedSystem(ctx contractapi.TransactionContextInterface,
	incidentID string, systemInfoJSON string) (string, error) {
	return c.invoke(ctx, dispatch.AddInfectedSystem, incidentID, systemInfoJSON)
}

// TrackPayment records a ransom payment on an incident
func (c *BlockTraceContract) TrackPayment(ctx contractapi.TransactionContextInterface,
	incidentID string, paymentInfoJSON string) (string, error) {
	return c.invoke(ctx, dispatch.TrackPayment, incidentID, paymentInfoJSON)
}

// LinkEvidenceToRansomware associates registered evidence with an incident
func (c *BlockTraceContract) LinkEvidenceToRansomware(ctx contractapi.TransactionContextInterface,
	incidentID string, evidenceID string, relationship string) (string, error) {
	return c.invoke(ctx, dispatch.LinkEvidenceToRansomware, incidentID, evidenceID, relationship)
}

// UpdateRansomwareStatus moves an incident to a new status
func (c *BlockTraceContract) UpdateRansomwareStatus(ctx contractapi.TransactionContextInterface,
	incidentID string, newStatus string, notes string) (string, error) {
	return c.invoke(ctx, dispatch.UpdateRansomwareStatus, incidentID, newStatus, notes)
}

// GetRansomwareIncident retrieves an incident by ID
func (c *BlockTraceContract) GetRansomwareIncident(ctx contractapi.TransactionContextInterface,
	incidentID string) (string, error) {
	return c.invoke(ctx, dispatch.GetRansomwareIncident, incidentID)
}

// QueryRansomwareByFamily finds incidents of a ransomware family
func (c *BlockTraceContract) QueryRansomwareByFamily(ctx contractapi.TransactionContextInterface,
	family string) (string, error) {
	return c.invoke(ctx, dispatch.QueryRansomwareByFamily, family)
}

// QueryRansomwareByWallet finds incidents that reference a wallet address
func (c *BlockTraceContract) QueryRansomwareByWallet(ctx contractapi.TransactionContextInterface,
	walletAddress string) (string, error) {
	return c.invoke(ctx, dispatch.QueryRansomwareByWallet, walletAddress)
}

// GetAllRansomwareIncidents returns every incident
func (c *BlockTraceContract) GetAllRansomwareIncidents(ctx contractapi.TransactionContextInterface) (string, error) {
	return c.invoke(ctx, dispatch.GetAllRansomwareIncidents)
}

// ==============================================================================
// EXECUTION
// ==============================================================================

func (c *BlockTraceContract) invoke(ctx contractapi.TransactionContextInterface,
	op dispatch.Operation, args ...string) (string, error) {

	start := time.Now()
	out, err := c.execute(ctx, op, args)
	c.metrics.Observe(op.String(), err, time.Since(start))
	if err != nil {
		return "", err
	}
	logSuccess(op, args)
	return out, nil
}

func (c *BlockTraceContract) execute(ctx contractapi.TransactionContextInterface,
	op dispatch.Operation, args []string) (string, error) {

	tctx, err := c.transactionContext(ctx)
	if err != nil {
		return "", err
	}

	result, err := dispatch.Invoke(tctx, op, args)
	if err != nil {
		return "", err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %v", err)
	}
	return string(resultJSON), nil
}

func (c *BlockTraceContract) transactionContext(ctx contractapi.TransactionContextInterface) (*txctx.Context, error) {
	stub := ctx.GetStub()

	ts, err := stub.GetTxTimestamp()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction timestamp: %v", err)
	}
	mspID, err := ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return nil, fmt.Errorf("failed to get MSP ID: %v", err)
	}
	clientID, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return nil, fmt.Errorf("failed to get client ID: %v", err)
	}

	return &txctx.Context{
		Store:     fabricstore.New(stub),
		Invoker:   txctx.Invoker{MSPID: mspID, ID: clientID},
		Timestamp: ts.AsTime(),
		TxID:      stub.GetTxID(),
		Events:    &eventSink{stub: stub, prefix: c.eventPrefix, metrics: c.metrics},
	}, nil
}

func logSuccess(op dispatch.Operation, args []string) {
	switch op {
	case dispatch.RegisterEvidence:
		fmt.Printf("✓ Evidence registered: %s\n", args[0])
	case dispatch.TransferCustody:
		fmt.Printf("✓ Custody transferred: %s %s -> %s\n", args[0], args[1], args[2])
	case dispatch.AnnotateEvidence:
		fmt.Printf("✓ Evidence annotated: %s\n", args[0])
	case dispatch.RegisterRansomwareIncident:
		fmt.Printf("✓ Ransomware incident registered: %s\n", args[0])
	case dispatch.AddInfectedSystem:
		fmt.Printf("✓ Infected system added to %s\n", args[0])
	case dispatch.TrackPayment:
		fmt.Printf("✓ Payment tracked for %s\n", args[0])
	case dispatch.LinkEvidenceToRansomware:
		fmt.Printf("✓ Evidence %s linked to %s\n", args[1], args[0])
	case dispatch.UpdateRansomwareStatus:
		fmt.Printf("✓ Incident %s status updated to %s\n", args[0], args[1])
	}
}
