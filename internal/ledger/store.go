// Package ledger defines the versioned key-value store the transaction
// functions run against, with typed keys and rich-query selectors.
package ledger

import "time"

// KV is one world-state entry returned by a scan or query.
type KV struct {
	Key   string
	Value []byte
}

// Modification is one historical version of a key.
type Modification struct {
	TxID      string
	Timestamp time.Time
	IsDelete  bool
	Value     []byte
}

// Iterator is a lazy cursor over store results. Callers must Close it.
type Iterator[T any] interface {
	HasNext() bool
	Next() (T, error)
	Close() error
}

// Store is the key-value ledger seen by a single transaction.
//
// Get returns nil for an absent key. Writes made through Put are part of the
// transaction's write-set and are not visible to its own reads.
type Store interface {
	Get(key Key) ([]byte, error)
	Put(key Key, value []byte) error
	Scan(ns Namespace) (Iterator[KV], error)
	Query(sel Selector) (Iterator[KV], error)
	History(key Key) (Iterator[Modification], error)
}

// Collect drains and closes it.
func Collect[T any](it Iterator[T]) ([]T, error) {
	defer it.Close()

	var out []T
	for it.HasNext() {
		v, err := it.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SliceIterator iterates over a materialized slice.
type SliceIterator[T any] struct {
	items []T
	pos   int
}

// NewSliceIterator returns an iterator over items.
func NewSliceIterator[T any](items []T) *SliceIterator[T] {
	return &SliceIterator[T]{items: items}
}

func (s *SliceIterator[T]) HasNext() bool { return s.pos < len(s.items) }

func (s *SliceIterator[T]) Next() (T, error) {
	var zero T
	if s.pos >= len(s.items) {
		return zero, ErrIteratorExhausted
	}
	v := s.items[s.pos]
	s.pos++
	return v, nil
}

func (s *SliceIterator[T]) Close() error { return nil }
