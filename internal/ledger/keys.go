package ledger

import (
	"strings"
	"unicode/utf8"
)

// IncidentPrefix namespaces ransomware incident keys away from evidence ids.
const IncidentPrefix = "RANSOMWARE_"

// Namespace is a disjoint region of the world state.
type Namespace struct {
	name   string
	prefix string
}

var (
	// Evidence holds evidence records keyed by their raw id.
	Evidence = Namespace{name: "evidence"}
	// Incidents holds ransomware incidents keyed by IncidentPrefix + id.
	Incidents = Namespace{name: "ransomware", prefix: IncidentPrefix}
)

var reservedPrefixes = []string{IncidentPrefix}

func (n Namespace) String() string { return n.name }

// Contains reports whether a raw world-state key belongs to n.
func (n Namespace) Contains(raw string) bool {
	if n.prefix != "" {
		return strings.HasPrefix(raw, n.prefix)
	}
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(raw, p) {
			return false
		}
	}
	return true
}

// Range returns the [start, end) key range covering n. An empty range means
// the whole key space and must be filtered with Contains.
func (n Namespace) Range() (start, end string) {
	if n.prefix == "" {
		return "", ""
	}
	return n.prefix, n.prefix + string(utf8.MaxRune)
}

// Key is a namespaced world-state key. Build it with EvidenceKey or IncidentKey.
type Key struct {
	ns Namespace
	id string
}

// EvidenceKey returns the key of an evidence record.
func EvidenceKey(evidenceID string) Key {
	return Key{ns: Evidence, id: evidenceID}
}

// IncidentKey returns the key of a ransomware incident.
func IncidentKey(incidentID string) Key {
	return Key{ns: Incidents, id: incidentID}
}

// ID is the un-prefixed identifier.
func (k Key) ID() string { return k.id }

// Namespace reports the namespace the key lives in.
func (k Key) Namespace() Namespace { return k.ns }

// String is the raw world-state key.
func (k Key) String() string { return k.ns.prefix + k.id }

// ReservedID reports whether an evidence id would land in another namespace.
func ReservedID(id string) bool {
	return !Evidence.Contains(id)
}
