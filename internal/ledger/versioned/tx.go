package versioned

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aub/blocktrace-chaincode/internal/ledger"
)

var errEmptyKey = errors.New("versioned: key must not be empty")

// Tx is the ledger.Store a single transaction runs against.
type Tx struct {
	backend   Backend
	id        string
	timestamp time.Time
	reads     map[string]uint64
	writes    map[string][]byte
	done      bool
}

var _ ledger.Store = (*Tx)(nil)

func newTx(b Backend, id string, ts time.Time) *Tx {
	return &Tx{
		backend:   b,
		id:        id,
		timestamp: ts,
		reads:     make(map[string]uint64),
		writes:    make(map[string][]byte),
	}
}

// ID is the transaction id.
func (t *Tx) ID() string { return t.id }

func (t *Tx) Get(key ledger.Key) ([]byte, error) {
	raw := key.String()
	if raw == "" {
		return nil, errEmptyKey
	}
	snap, ok, err := t.backend.Latest(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", raw, err)
	}
	if !ok {
		t.observe(raw, 0)
		return nil, nil
	}
	t.observe(raw, snap.Seq)
	if snap.IsDelete || len(snap.Value) == 0 {
		return nil, nil
	}
	return snap.Value, nil
}

func (t *Tx) Put(key ledger.Key, value []byte) error {
	raw := key.String()
	if raw == "" {
		return errEmptyKey
	}
	t.writes[raw] = append([]byte(nil), value...)
	return nil
}

func (t *Tx) Scan(ns ledger.Namespace) (ledger.Iterator[ledger.KV], error) {
	start, end := ns.Range()
	snaps, err := t.backend.Range(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", ns, err)
	}
	var kvs []ledger.KV
	for _, s := range snaps {
		if !ns.Contains(s.Key) {
			continue
		}
		t.observe(s.Key, s.Seq)
		kvs = append(kvs, ledger.KV{Key: s.Key, Value: s.Value})
	}
	return ledger.NewSliceIterator(kvs), nil
}

// Query evaluates sel against every live key. Like CouchDB rich queries on a
// peer, results are not added to the read-set.
func (t *Tx) Query(sel ledger.Selector) (ledger.Iterator[ledger.KV], error) {
	snaps, err := t.backend.Range("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	var kvs []ledger.KV
	for _, s := range snaps {
		if sel.Matches(s.Value) {
			kvs = append(kvs, ledger.KV{Key: s.Key, Value: s.Value})
		}
	}
	return ledger.NewSliceIterator(kvs), nil
}

func (t *Tx) History(key ledger.Key) (ledger.Iterator[ledger.Modification], error) {
	snaps, err := t.backend.Versions(key.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %s: %w", key, err)
	}
	mods := make([]ledger.Modification, 0, len(snaps))
	for _, s := range snaps {
		mods = append(mods, ledger.Modification{
			TxID:      s.TxID,
			Timestamp: s.Timestamp,
			IsDelete:  s.IsDelete,
			Value:     s.Value,
		})
	}
	return ledger.NewSliceIterator(mods), nil
}

// Commit validates the read-set and appends the write-set. A Tx can be
// committed once.
func (t *Tx) Commit() error {
	if t.done {
		return fmt.Errorf("versioned: transaction %s already finished", t.id)
	}
	t.done = true
	if len(t.writes) == 0 {
		return nil
	}
	return t.backend.Commit(t.batch())
}

// Discard drops the write-set.
func (t *Tx) Discard() {
	t.done = true
	t.writes = nil
}

func (t *Tx) observe(key string, seq uint64) {
	if _, seen := t.reads[key]; !seen {
		t.reads[key] = seq
	}
}

func (t *Tx) batch() Batch {
	b := Batch{TxID: t.id, Timestamp: t.timestamp}
	for k, seq := range t.reads {
		b.Reads = append(b.Reads, Read{Key: k, Seq: seq})
	}
	sort.Slice(b.Reads, func(i, j int) bool { return b.Reads[i].Key < b.Reads[j].Key })
	for k, v := range t.writes {
		b.Writes = append(b.Writes, Write{Key: k, Value: v})
	}
	sort.Slice(b.Writes, func(i, j int) bool { return b.Writes[i].Key < b.Writes[j].Key })
	return b
}
