// Package ransomware implements ransomware incident case files: infected
// systems, ransom payments and linked evidence, with an audit timeline.
package ransomware

import (
	"encoding/json"
	"strings"

	"github.com/aub/blocktrace-chaincode/internal/attrs"
)

// IncidentType is the discriminator stored in every incident document.
const IncidentType = "RANSOMWARE_INCIDENT"

// Incident statuses.
const (
	StatusActive        = "ACTIVE"
	StatusContained     = "CONTAINED"
	StatusResolved      = "RESOLVED"
	StatusInvestigating = "INVESTIGATING"
	StatusClosed        = "CLOSED"
)

var statuses = []string{StatusActive, StatusContained, StatusResolved, StatusInvestigating, StatusClosed}

// ValidStatus reports whether s is one of the incident statuses.
func ValidStatus(s string) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}

func statusList() string { return strings.Join(statuses, ", ") }

// Defaults applied at creation.
const (
	DefaultFamily         = "UNKNOWN"
	DefaultSeverity       = "CRITICAL"
	DefaultCurrency       = "BTC"
	DefaultRecoveryStatus = "INFECTED"
	DefaultRelationship   = "RELATED"
)

// Timeline actions.
const (
	ActionRegistered     = "INCIDENT_REGISTERED"
	ActionSystemAdded    = "SYSTEM_ADDED"
	ActionPaymentTracked = "PAYMENT_TRACKED"
	ActionEvidenceLinked = "EVIDENCE_LINKED"
	ActionStatusUpdated  = "STATUS_UPDATED"
)

// Event names.
const (
	EventRegistered     = "ransomware.registered"
	EventSystemAdded    = "ransomware.system_added"
	EventPaymentTracked = "ransomware.payment_tracked"
	EventEvidenceLinked = "ransomware.evidence_linked"
	EventStatusUpdated  = "ransomware.status_updated"
)

// Incident is a ransomware case file.
type Incident struct {
	IncidentID       string           `json:"incidentId"`
	Type             string           `json:"type"`
	RansomwareFamily string           `json:"ransomwareFamily"`
	Status           string           `json:"status"`
	WalletAddresses  []string         `json:"walletAddresses"`
	InfectedSystems  []InfectedSystem `json:"infectedSystems"`
	EvidenceLinks    []EvidenceLink   `json:"evidenceLinks"`
	PaymentTrail     []PaymentRecord  `json:"paymentTrail"`
	Metadata         Metadata         `json:"metadata"`
	ReportedBy       string           `json:"reportedBy"`
	ReporterID       string           `json:"reporterId"`
	CreatedAt        string           `json:"createdAt"`
	UpdatedAt        string           `json:"updatedAt"`
	Timeline         []TimelineEntry  `json:"timeline"`
}

// InfectedSystem is a host recorded against an incident.
type InfectedSystem struct {
	Hostname       string `json:"hostname,omitempty"`
	IPAddress      string `json:"ipAddress,omitempty"`
	MACAddress     string `json:"macAddress,omitempty"`
	OSVersion      string `json:"osVersion,omitempty"`
	InfectionDate  string `json:"infectionDate"`
	FilesEncrypted int64  `json:"filesEncrypted"`
	RecoveryStatus string `json:"recoveryStatus"`
	AddedBy        string `json:"addedBy"`
	Timestamp      string `json:"timestamp"`
}

// EvidenceLink ties a registered evidence record to an incident.
type EvidenceLink struct {
	EvidenceID   string `json:"evidenceId"`
	Relationship string `json:"relationship"`
	LinkedAt     string `json:"linkedAt"`
	LinkedBy     string `json:"linkedBy"`
}

// PaymentRecord is a ransom payment observed on chain.
type PaymentRecord struct {
	TransactionHash string  `json:"transactionHash,omitempty"`
	FromWallet      string  `json:"fromWallet,omitempty"`
	ToWallet        string  `json:"toWallet,omitempty"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Timestamp       string  `json:"timestamp"`
	BlockHeight     *int64  `json:"blockHeight,omitempty"`
	Confirmations   int64   `json:"confirmations"`
	TrackedBy       string  `json:"trackedBy"`
	Notes           string  `json:"notes"`
	RecordedAt      string  `json:"recordedAt"`
}

// TimelineEntry is one audit record. Only the fields of its action are set.
type TimelineEntry struct {
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Actor     string `json:"actor"`
	TxID      string `json:"txId"`

	Hostname        string   `json:"hostname,omitempty"`
	TransactionHash string   `json:"transactionHash,omitempty"`
	Amount          *float64 `json:"amount,omitempty"`
	EvidenceID      string   `json:"evidenceId,omitempty"`
	Relationship    string   `json:"relationship,omitempty"`
	OldStatus       string   `json:"oldStatus,omitempty"`
	NewStatus       string   `json:"newStatus,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

// Metadata describes the attack. Every known field carries a value once the
// incident is registered; unknown keys are kept in Extra.
type Metadata struct {
	FirstSeen       string
	Severity        string
	TargetedSectors []string
	RansomNote      string
	EncryptionType  string
	DemandAmount    float64
	DemandCurrency  string
	Extra           map[string]json.RawMessage
}

func (m *Metadata) applyDefaults(now string) {
	if m.FirstSeen == "" {
		m.FirstSeen = now
	}
	if m.Severity == "" {
		m.Severity = DefaultSeverity
	}
	if m.TargetedSectors == nil {
		m.TargetedSectors = []string{}
	}
	if m.DemandCurrency == "" {
		m.DemandCurrency = DefaultCurrency
	}
}

// MarshalJSON writes the known fields followed by the extra ones.
func (m Metadata) MarshalJSON() ([]byte, error) {
	return attrs.Marshal(m.Extra,
		attrs.Field{Key: "firstSeen", Value: m.FirstSeen},
		attrs.Field{Key: "severity", Value: m.Severity},
		attrs.Field{Key: "targetedSectors", Value: m.TargetedSectors},
		attrs.Field{Key: "ransomNote", Value: m.RansomNote},
		attrs.Field{Key: "encryptionType", Value: m.EncryptionType},
		attrs.Field{Key: "demandAmount", Value: m.DemandAmount},
		attrs.Field{Key: "demandCurrency", Value: m.DemandCurrency},
	)
}

// UnmarshalJSON reads the known fields and keeps the rest in Extra.
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
		{"firstSeen", &out.FirstSeen},
		{"severity", &out.Severity},
		{"targetedSectors", &out.TargetedSectors},
		{"ransomNote", &out.RansomNote},
		{"encryptionType", &out.EncryptionType},
		{"demandAmount", &out.DemandAmount},
		{"demandCurrency", &out.DemandCurrency},
	} {
		if err := obj.Take(f.key, f.dst); err != nil {
			return err
		}
	}
	out.Extra = obj.Rest()
	*m = out
	return nil
}
