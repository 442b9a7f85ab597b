// Package txctx carries the per-invocation inputs of a transaction function.
//
// A Context is built fresh by the execution layer for every call. Transaction
// functions read time, identity and the store only through it; they never touch
// a wall clock, randomness or package-level state.
package txctx

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aub/blocktrace-chaincode/internal/ledger"
)

// TimestampLayout renders logical timestamps, e.g. 2026-01-15T08:30:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Invoker identifies the caller of a transaction.
type Invoker struct {
	MSPID string
	ID    string
}

// Event is a notification emitted by a transaction.
type Event struct {
	Name    string
	Payload []byte
}

// EventSink receives emitted events.
type EventSink interface {
	Emit(name string, payload []byte) error
}

// Context is the explicit parameter object passed to every transaction function.
type Context struct {
	Store     ledger.Store
	Invoker   Invoker
	Timestamp time.Time
	TxID      string
	Events    EventSink
}

// Now formats the logical timestamp of the transaction.
func (c *Context) Now() string {
	return c.Timestamp.UTC().Format(TimestampLayout)
}

// Emit marshals payload and hands it to the event sink.
func (c *Context) Emit(name string, payload any) error {
	if c.Events == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}
	return c.Events.Emit(name, data)
}

// Recorder is an EventSink that keeps events in memory.
type Recorder struct {
	Events []Event
}

// Emit appends the event.
func (r *Recorder) Emit(name string, payload []byte) error {
	r.Events = append(r.Events, Event{Name: name, Payload: payload})
	return nil
}

// Last returns the most recent event, if any.
func (r *Recorder) Last() (Event, bool) {
	if len(r.Events) == 0 {
		return Event{}, false
	}
	return r.Events[len(r.Events)-1], true
}
