package ledger

import "errors"

// ErrIteratorExhausted is returned by Next past the end of a cursor.
var ErrIteratorExhausted = errors.New("ledger: iterator exhausted")
