package ledger

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type matchOp int

const (
	opEqual matchOp = iota
	opContains
)

type condition struct {
	field string
	op    matchOp
	value string
}

// Selector is a conjunction of field predicates over stored JSON documents.
// It renders to a CouchDB Mango query and can be evaluated locally.
type Selector struct {
	conds []condition
}

// Where starts a selector requiring field == value.
func Where(field, value string) Selector {
	return Selector{}.And(field, value)
}

// And adds an exact string match on field.
func (s Selector) And(field, value string) Selector {
	return s.with(condition{field: field, op: opEqual, value: value})
}

// AndContains adds a set-membership match: field is an array holding value.
func (s Selector) AndContains(field, value string) Selector {
	return s.with(condition{field: field, op: opContains, value: value})
}

func (s Selector) with(c condition) Selector {
	conds := make([]condition, len(s.conds), len(s.conds)+1)
	copy(conds, s.conds)
	return Selector{conds: append(conds, c)}
}

// String renders the Mango query, e.g.
// {"selector":{"type":"RANSOMWARE_INCIDENT","walletAddresses":{"$elemMatch":{"$eq":"w1"}}}}.
// Field order follows the order predicates were added.
func (s Selector) String() string {
	q := `{"selector":{}}`
	for _, c := range s.conds {
		path := "selector." + c.field
		var err error
		switch c.op {
		case opContains:
			lit, _ := json.Marshal(c.value)
			q, err = sjson.SetRaw(q, path, `{"$elemMatch":{"$eq":`+string(lit)+`}}`)
		default:
			q, err = sjson.Set(q, path, c.value)
		}
		if err != nil {
			// paths are built from field constants; a failure here is a programming error
			panic("ledger: render selector: " + err.Error())
		}
	}
	return q
}

// Matches evaluates the selector against a JSON document.
func (s Selector) Matches(doc []byte) bool {
	if !gjson.ValidBytes(doc) {
		return false
	}
	for _, c := range s.conds {
		r := gjson.GetBytes(doc, c.field)
		switch c.op {
		case opContains:
			if !r.IsArray() {
				return false
			}
			found := false
			r.ForEach(func(_, v gjson.Result) bool {
				if v.Type == gjson.String && v.Str == c.value {
					found = true
					return false
				}
				return true
			})
			if !found {
				return false
			}
		default:
			if r.Type != gjson.String || r.Str != c.value {
				return false
			}
		}
	}
	return true
}
