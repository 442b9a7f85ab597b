// Package versioned is an in-process execution engine for transaction
// functions. Every key is a sequence of immutable snapshots; the current value
// is the latest one. Transactions buffer their writes, record the versions they
// read and commit atomically after read-set validation, mirroring what a Fabric
// peer does at commit time.
package versioned

import (
	"errors"
	"time"
)

// ErrConflict is returned by Commit when a key read by the transaction was
// changed by another transaction in the meantime.
var ErrConflict = errors.New("versioned: read-set conflict")

// Snapshot is one immutable version of a key. Seq is unique and increasing
// across the whole backend; zero is never a valid Seq.
type Snapshot struct {
	Key       string
	Seq       uint64
	TxID      string
	Timestamp time.Time
	Value     []byte
	IsDelete  bool
}

// Read records the version of a key a transaction observed. Seq zero means the
// key was absent.
type Read struct {
	Key string
	Seq uint64
}

// Write is one entry of a transaction's write-set.
type Write struct {
	Key   string
	Value []byte
}

// Batch is everything a transaction asks the backend to commit.
type Batch struct {
	TxID      string
	Timestamp time.Time
	Reads     []Read
	Writes    []Write
}

// Backend persists snapshots.
type Backend interface {
	// Latest returns the newest snapshot of key.
	Latest(key string) (Snapshot, bool, error)
	// Range returns the newest live snapshot of every key in [start, end),
	// ordered by key. An empty end means no upper bound.
	Range(start, end string) ([]Snapshot, error)
	// Versions returns every snapshot of key, oldest first.
	Versions(key string) ([]Snapshot, error)
	// Commit validates b.Reads against the current versions and appends
	// b.Writes, all or nothing.
	Commit(b Batch) error
}
