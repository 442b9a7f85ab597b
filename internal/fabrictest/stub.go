// Package fabrictest provides in-memory stand-ins for the Fabric peer
// interfaces used by the chaincode.
package fabrictest

import (
	"fmt"
	"sort"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/v2/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/v2/shim"
	"github.com/hyperledger/fabric-protos-go-apiv2/ledger/queryresult"
	"github.com/tidwall/gjson"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/aub/blocktrace-chaincode/internal/ledger"
)

// Event is an event set by a transaction.
type Event struct {
	Name    string
	Payload []byte
}

// Stub is a ChaincodeStubInterface over an in-memory world state. Writes are
// buffered until Commit, so reads never see the current transaction's writes.
// Methods the chaincode does not call panic through the nil embedded interface.
type Stub struct {
	shim.ChaincodeStubInterface

	TxID      string
	Timestamp time.Time
	Function  string
	Params    []string

	state   map[string][]byte
	history map[string][]*queryresult.KeyModification
	writes  map[string][]byte
	events  []Event
}

// NewStub returns an empty world state.
func NewStub() *Stub {
	return &Stub{
		state:   map[string][]byte{},
		history: map[string][]*queryresult.KeyModification{},
		writes:  map[string][]byte{},
	}
}

// Begin starts a new transaction, dropping uncommitted writes and events.
func (s *Stub) Begin(txID string, ts time.Time) {
	s.TxID = txID
	s.Timestamp = ts
	s.writes = map[string][]byte{}
	s.events = nil
}

// Commit applies the buffered writes.
func (s *Stub) Commit() {
	keys := make([]string, 0, len(s.writes))
	for k := range s.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.state[k] = s.writes[k]
		s.history[k] = append(s.history[k], &queryresult.KeyModification{
			TxId:      s.TxID,
			Value:     s.writes[k],
			Timestamp: timestamppb.New(s.Timestamp),
		})
	}
	s.writes = map[string][]byte{}
}

// Events returns the events set in the current transaction.
func (s *Stub) Events() []Event { return s.events }

// Raw returns the committed value of key.
func (s *Stub) Raw(key string) []byte { return s.state[key] }

func (s *Stub) GetTxID() string { return s.TxID }

func (s *Stub) GetFunctionAndParameters() (string, []string) { return s.Function, s.Params }

func (s *Stub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return timestamppb.New(s.Timestamp), nil
}

func (s *Stub) GetState(key string) ([]byte, error) {
	return s.state[key], nil
}

func (s *Stub) PutState(key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key must not be an empty string")
	}
	s.writes[key] = append([]byte(nil), value...)
	return nil
}

func (s *Stub) SetEvent(name string, payload []byte) error {
	if name == "" {
		return fmt.Errorf("event name can not be empty string")
	}
	s.events = append(s.events, Event{Name: name, Payload: payload})
	return nil
}

func (s *Stub) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	var kvs []*queryresult.KV
	for _, k := range s.sortedKeys() {
		if k < startKey || (endKey != "" && k >= endKey) {
			continue
		}
		kvs = append(kvs, &queryresult.KV{Key: k, Value: s.state[k]})
	}
	return &stateIterator{kvs: kvs}, nil
}

// GetQueryResult evaluates the Mango selectors produced by ledger.Selector.
func (s *Stub) GetQueryResult(query string) (shim.StateQueryIteratorInterface, error) {
	sel, err := parseSelector(query)
	if err != nil {
		return nil, err
	}
	var kvs []*queryresult.KV
	for _, k := range s.sortedKeys() {
		if sel.Matches(s.state[k]) {
			kvs = append(kvs, &queryresult.KV{Key: k, Value: s.state[k]})
		}
	}
	return &stateIterator{kvs: kvs}, nil
}

func (s *Stub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	return &historyIterator{mods: s.history[key]}, nil
}

func (s *Stub) sortedKeys() []string {
	keys := make([]string, 0, len(s.state))
	for k := range s.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseSelector(query string) (ledger.Selector, error) {
	if !gjson.Valid(query) {
		return ledger.Selector{}, fmt.Errorf("invalid query: %s", query)
	}
	var (
		sel   ledger.Selector
		first = true
		err   error
	)
	gjson.Get(query, "selector").ForEach(func(field, value gjson.Result) bool {
		switch {
		case value.Type == gjson.String && first:
			sel = ledger.Where(field.String(), value.String())
		case value.Type == gjson.String:
			sel = sel.And(field.String(), value.String())
		case value.Get(`$elemMatch.$eq`).Exists() && !first:
			sel = sel.AndContains(field.String(), value.Get(`$elemMatch.$eq`).String())
		default:
			err = fmt.Errorf("unsupported selector on %s", field.String())
			return false
		}
		first = false
		return true
	})
	return sel, err
}

type stateIterator struct {
	kvs []*queryresult.KV
	pos int
}

func (i *stateIterator) HasNext() bool { return i.pos < len(i.kvs) }

func (i *stateIterator) Next() (*queryresult.KV, error) {
	if !i.HasNext() {
		return nil, fmt.Errorf("no more results")
	}
	kv := i.kvs[i.pos]
	i.pos++
	return kv, nil
}

func (i *stateIterator) Close() error { return nil }

type historyIterator struct {
	mods []*queryresult.KeyModification
	pos  int
}

func (i *historyIterator) HasNext() bool { return i.pos < len(i.mods) }

func (i *historyIterator) Next() (*queryresult.KeyModification, error) {
	if !i.HasNext() {
		return nil, fmt.Errorf("no more results")
	}
	m := i.mods[i.pos]
	i.pos++
	return m, nil
}

func (i *historyIterator) Close() error { return nil }

// Identity is a cid.ClientIdentity with a fixed MSP and id.
type Identity struct {
	cid.ClientIdentity

	MSPID string
	ID    string
}

func (i *Identity) GetMSPID() (string, error) { return i.MSPID, nil }

func (i *Identity) GetID() (string, error) { return i.ID, nil }
