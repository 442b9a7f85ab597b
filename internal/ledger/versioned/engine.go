package versioned

import (
	"time"

	"github.com/aub/blocktrace-chaincode/internal/txctx"
)

// Func is a transaction function run by the engine.
type Func func(ctx *txctx.Context) (any, error)

// Invocation is the input the execution layer supplies for one transaction.
type Invocation struct {
	TxID      string
	Timestamp time.Time
	Invoker   txctx.Invoker
}

// Result is the outcome of a committed transaction.
type Result struct {
	Value  any
	Events []txctx.Event
}

// Engine runs transaction functions against a Backend.
type Engine struct {
	backend Backend
}

// NewEngine returns an engine over b.
func NewEngine(b Backend) *Engine {
	return &Engine{backend: b}
}

// Begin opens a transaction.
func (e *Engine) Begin(txID string, ts time.Time) *Tx {
	return newTx(e.backend, txID, ts)
}

// Execute runs fn in a fresh transaction. When fn fails nothing it wrote is
// committed and no events are returned.
func (e *Engine) Execute(inv Invocation, fn Func) (Result, error) {
	tx := e.Begin(inv.TxID, inv.Timestamp)
	rec := &txctx.Recorder{}
	ctx := &txctx.Context{
		Store:     tx,
		Invoker:   inv.Invoker,
		Timestamp: inv.Timestamp,
		TxID:      inv.TxID,
		Events:    rec,
	}

	v, err := fn(ctx)
	if err != nil {
		tx.Discard()
		return Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, err
	}
	return Result{Value: v, Events: rec.Events}, nil
}
