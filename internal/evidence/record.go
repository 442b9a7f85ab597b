// Package evidence implements the evidence aggregate: registration, custody
// transfers, hash verification and annotations over an append-only custody
// trail.
package evidence

import (
	"encoding/json"

	"github.com/aub/blocktrace-chaincode/internal/attrs"
)

// Evidence statuses.
const (
	StatusRegistered = "REGISTERED"
	StatusInCustody  = "IN_CUSTODY"
)

// DefaultAlgorithm is assumed when metadata names no hash algorithm.
const DefaultAlgorithm = "sha256"

// Event names.
const (
	EventRegistered  = "evidence.registered"
	EventTransferred = "evidence.transferred"
	EventVerified    = "evidence.verified"
	EventAnnotated   = "evidence.annotated"
)

// Record is an evidence item as stored on the ledger.
type Record struct {
	EvidenceID    string         `json:"evidenceId"`
	ContentHash   string         `json:"hash"`
	HashAlgorithm string         `json:"algorithm"`
	CurrentOwner  string         `json:"currentOwner"`
	Status        string         `json:"status"`
	Metadata      Metadata       `json:"metadata"`
	CustodyTrail  []CustodyEntry `json:"custodyTrail"`
	Annotations   []Annotation   `json:"annotations"`
	CreatedAt     string         `json:"createdAt"`
	UpdatedAt     string         `json:"updatedAt"`
}

// CustodyEntry is one hop in the custody trail. The first entry of every
// record is a self-transfer to the registering organization.
type CustodyEntry struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp string `json:"timestamp"`
	TxID      string `json:"txId"`
	ActorID   string `json:"actorId"`
}

// Annotation is a free-text note attached by an investigator.
type Annotation struct {
	Author    string `json:"author"`
	Org       string `json:"org"`
	Note      string `json:"note"`
	Timestamp string `json:"timestamp"`
}

// Verification is the outcome of comparing a provided hash with the stored one.
type Verification struct {
	EvidenceID   string `json:"evidenceId"`
	ProvidedHash string `json:"providedHash"`
	ExpectedHash string `json:"expectedHash"`
	Match        bool   `json:"match"`
	VerifiedAt   string `json:"verifiedAt"`
}

// Metadata holds the registration metadata. Unknown keys are kept in Extra
// and written back unchanged.
type Metadata struct {
	Algorithm    string
	CaseID       string
	Description  string
	EvidenceType string
	FileName     string
	FileSize     int64
	IPFSCID      string
	Extra        map[string]json.RawMessage
}

// MarshalJSON flattens known fields and Extra into one object.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return attrs.Marshal(m.Extra,
		attrs.Field{Key: "algorithm", Value: m.Algorithm, Omit: m.Algorithm == ""},
		attrs.Field{Key: "caseId", Value: m.CaseID, Omit: m.CaseID == ""},
		attrs.Field{Key: "description", Value: m.Description, Omit: m.Description == ""},
		attrs.Field{Key: "evidenceType", Value: m.EvidenceType, Omit: m.EvidenceType == ""},
		attrs.Field{Key: "fileName", Value: m.FileName, Omit: m.FileName == ""},
		attrs.Field{Key: "fileSize", Value: m.FileSize, Omit: m.FileSize == 0},
		attrs.Field{Key: "ipfsCid", Value: m.IPFSCID, Omit: m.IPFSCID == ""},
	)
}

// UnmarshalJSON decodes known fields strictly and keeps the rest in Extra.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	obj, err := attrs.Parse(data)
	if err != nil {
		return err
	}
	var out Metadata
	for _, f := range []struct {
		key string
		dst any
	}{
		{"algorithm", &out.Algorithm},
		{"caseId", &out.CaseID},
		{"description", &out.Description},
		{"evidenceType", &out.EvidenceType},
		{"fileName", &out.FileName},
		{"fileSize", &out.FileSize},
		{"ipfsCid", &out.IPFSCID},
	} {
		if err := obj.Take(f.key, f.dst); err != nil {
			return err
		}
	}
	out.Extra = obj.Rest()
	*m = out
	return nil
}
