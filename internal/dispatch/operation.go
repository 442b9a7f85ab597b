// Package dispatch maps transaction function names and positional string
// arguments onto the evidence and ransomware aggregates.
package dispatch

import (
	"github.com/aub/blocktrace-chaincode/internal/apperrors"
)

// Operation is a transaction function exposed by the chaincode.
type Operation int

const (
	RegisterEvidence Operation = iota + 1
	TransferCustody
	VerifyEvidence
	GetEvidenceHistory
	AnnotateEvidence
	ReadEvidence
	GetAllEvidence
	QueryEvidenceByOwner
	QueryEvidenceByHash
	RegisterRansomwareIncident
	AddInfectedSystem
	TrackPayment
	LinkEvidenceToRansomware
	UpdateRansomwareStatus
	GetRansomwareIncident
	QueryRansomwareByFamily
	QueryRansomwareByWallet
	GetAllRansomwareIncidents
)

type signature struct {
	name     string
	params   []string
	optional int
	readOnly bool
}

var signatures = map[Operation]signature{
	RegisterEvidence:           {name: "RegisterEvidence", params: []string{"evidenceId", "contentHash", "metadataJson"}},
	TransferCustody:            {name: "TransferCustody", params: []string{"evidenceId", "fromOrg", "toOrg", "timestamp"}, optional: 1},
	VerifyEvidence:             {name: "VerifyEvidence", params: []string{"evidenceId", "providedHash"}},
	GetEvidenceHistory:         {name: "GetEvidenceHistory", params: []string{"evidenceId"}, readOnly: true},
	AnnotateEvidence:           {name: "AnnotateEvidence", params: []string{"evidenceId", "note"}},
	ReadEvidence:               {name: "ReadEvidence", params: []string{"evidenceId"}, readOnly: true},
	GetAllEvidence:             {name: "GetAllEvidence", readOnly: true},
	QueryEvidenceByOwner:       {name: "QueryEvidenceByOwner", params: []string{"owner"}, readOnly: true},
	QueryEvidenceByHash:        {name: "QueryEvidenceByHash", params: []string{"contentHash"}, readOnly: true},
	RegisterRansomwareIncident: {name: "RegisterRansomwareIncident", params: []string{"incidentId", "family", "walletAddressesJson", "metadataJson"}},
	AddInfectedSystem:          {name: "AddInfectedSystem", params: []string{"incidentId", "systemInfoJson"}},
	TrackPayment:               {name: "TrackPayment", params: []string{"incidentId", "paymentInfoJson"}},
	LinkEvidenceToRansomware:   {name: "LinkEvidenceToRansomware", params: []string{"incidentId", "evidenceId", "relationship"}, optional: 1},
	UpdateRansomwareStatus:     {name: "UpdateRansomwareStatus", params: []string{"incidentId", "newStatus", "notes"}, optional: 1},
	GetRansomwareIncident:      {name: "GetRansomwareIncident", params: []string{"incidentId"}, readOnly: true},
	QueryRansomwareByFamily:    {name: "QueryRansomwareByFamily", params: []string{"family"}, readOnly: true},
	QueryRansomwareByWallet:    {name: "QueryRansomwareByWallet", params: []string{"walletAddress"}, readOnly: true},
	GetAllRansomwareIncidents:  {name: "GetAllRansomwareIncidents", readOnly: true},
}

var byName = func() map[string]Operation {
	m := make(map[string]Operation, len(signatures))
	for op, sig := range signatures {
		m[sig.name] = op
	}
	return m
}()

// Operations lists every operation in declaration order.
func Operations() []Operation {
	ops := make([]Operation, 0, len(signatures))
	for op := RegisterEvidence; op <= GetAllRansomwareIncidents; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Parse resolves a transaction function name.
func Parse(name string) (Operation, error) {
	op, ok := byName[name]
	if !ok {
		return 0, apperrors.Validation("unknown function %q", name)
	}
	return op, nil
}

func (o Operation) String() string {
	if sig, ok := signatures[o]; ok {
		return sig.name
	}
	return "Operation(?)"
}

// Params names the positional arguments. Trailing optional ones come last.
func (o Operation) Params() []string {
	return append([]string(nil), signatures[o].params...)
}

// ReadOnly reports whether the operation never writes or emits events.
func (o Operation) ReadOnly() bool {
	return signatures[o].readOnly
}

// bind checks the argument count and pads omitted optional arguments with "".
func (o Operation) bind(args []string) ([]string, error) {
	sig, ok := signatures[o]
	if !ok {
		return nil, apperrors.Validation("unknown operation %d", int(o))
	}
	upper := len(sig.params)
	lower := upper - sig.optional
	if len(args) < lower || len(args) > upper {
		if lower == upper {
			return nil, apperrors.Validation("%s expects %d arguments, got %d", sig.name, upper, len(args))
		}
		return nil, apperrors.Validation("%s expects %d to %d arguments, got %d", sig.name, lower, upper, len(args))
	}
	bound, _ := o.Pad(args)
	return bound, nil
}

// Pad fills omitted trailing optional arguments with "". It reports false
// when args cannot be completed that way.
func (o Operation) Pad(args []string) ([]string, bool) {
	sig := signatures[o]
	upper := len(sig.params)
	if len(args) < upper-sig.optional || len(args) > upper {
		return args, false
	}
	padded := make([]string, upper)
	copy(padded, args)
	return padded, true
}
