// Package fabricstore adapts a Fabric chaincode stub to ledger.Store.
package fabricstore

import (
	"fmt"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/v2/shim"

	"github.com/aub/blocktrace-chaincode/internal/ledger"
)

// Store runs ledger operations against the world state of the current
// Fabric transaction.
type Store struct {
	stub shim.ChaincodeStubInterface
}

// New returns a Store over stub.
func New(stub shim.ChaincodeStubInterface) *Store {
	return &Store{stub: stub}
}

func (s *Store) Get(key ledger.Key) ([]byte, error) {
	data, err := s.stub.GetState(key.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read from world state: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

func (s *Store) Put(key ledger.Key, value []byte) error {
	if err := s.stub.PutState(key.String(), value); err != nil {
		return fmt.Errorf("failed to put to world state: %w", err)
	}
	return nil
}

// Scan iterates the namespace by key range. Namespaces without a prefix span
// the whole key space, so prefixed keys are skipped.
func (s *Store) Scan(ns ledger.Namespace) (ledger.Iterator[ledger.KV], error) {
	start, end := ns.Range()
	it, err := s.stub.GetStateByRange(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get state by range: %w", err)
	}
	return &stateIterator{it: it, keep: ns.Contains}, nil
}

// Query runs a CouchDB rich query built from sel.
func (s *Store) Query(sel ledger.Selector) (ledger.Iterator[ledger.KV], error) {
	it, err := s.stub.GetQueryResult(sel.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get query result: %w", err)
	}
	return &stateIterator{it: it}, nil
}

func (s *Store) History(key ledger.Key) (ledger.Iterator[ledger.Modification], error) {
	it, err := s.stub.GetHistoryForKey(key.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return &historyIterator{it: it}, nil
}

type stateIterator struct {
	it   shim.StateQueryIteratorInterface
	keep func(string) bool

	next    *ledger.KV
	err     error
	fetched bool
}

func (s *stateIterator) fetch() {
	if s.fetched {
		return
	}
	s.fetched = true
	for s.it.HasNext() {
		kv, err := s.it.Next()
		if err != nil {
			s.err = err
			return
		}
		if s.keep != nil && !s.keep(kv.Key) {
			continue
		}
		s.next = &ledger.KV{Key: kv.Key, Value: kv.Value}
		return
	}
}

func (s *stateIterator) HasNext() bool {
	s.fetch()
	return s.next != nil || s.err != nil
}

func (s *stateIterator) Next() (ledger.KV, error) {
	s.fetch()
	s.fetched = false
	if s.err != nil {
		err := s.err
		s.err = nil
		return ledger.KV{}, err
	}
	if s.next == nil {
		return ledger.KV{}, ledger.ErrIteratorExhausted
	}
	kv := *s.next
	s.next = nil
	return kv, nil
}

func (s *stateIterator) Close() error { return s.it.Close() }

type historyIterator struct {
	it shim.HistoryQueryIteratorInterface
}

func (h *historyIterator) HasNext() bool { return h.it.HasNext() }

func (h *historyIterator) Next() (ledger.Modification, error) {
	m, err := h.it.Next()
	if err != nil {
		return ledger.Modification{}, err
	}
	var ts time.Time
	if m.Timestamp != nil {
		ts = m.Timestamp.AsTime()
	}
	return ledger.Modification{
		TxID:      m.TxId,
		Timestamp: ts,
		IsDelete:  m.IsDelete,
		Value:     m.Value,
	}, nil
}

func (h *historyIterator) Close() error { return h.it.Close() }
