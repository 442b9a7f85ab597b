// Command blocktrace-ledger runs BlockTrace transactions against a local
// ledger without a Fabric network.
//
//	blocktrace-ledger -db trace.db RegisterEvidence EV-1 9f86d0 '{"caseId":"C-1"}'
//	blocktrace-ledger -db trace.db ReadEvidence EV-1
//
// With -batch, each stdin line is a JSON array holding a function name and its
// arguments, which makes the in-memory ledger useful for scripted scenarios.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aub/blocktrace-chaincode/internal/config"
	"github.com/aub/blocktrace-chaincode/internal/dispatch"
	"github.com/aub/blocktrace-chaincode/internal/ledger/sqlitestore"
	"github.com/aub/blocktrace-chaincode/internal/ledger/versioned"
	"github.com/aub/blocktrace-chaincode/internal/txctx"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("blocktrace-ledger: ")

	cfg, err := config.LoadLedger()
	if err != nil {
		log.Fatal(err)
	}

	var batch bool
	flag.StringVar(&cfg.Path, "db", cfg.Path, "path to sqlite ledger (default: BLOCKTRACE_LEDGER_PATH, empty keeps the ledger in memory)")
	flag.StringVar(&cfg.MSPID, "msp", cfg.MSPID, "MSP id of the invoking organization")
	flag.StringVar(&cfg.InvokerID, "invoker", cfg.InvokerID, "id of the invoking client")
	flag.BoolVar(&batch, "batch", false, "read one JSON array invocation per stdin line")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <function> [args...]\n\nFunctions:\n", filepath.Base(os.Args[0]))
		for _, op := range dispatch.Operations() {
			fmt.Fprintf(flag.CommandLine.Output(), "  %s %s\n", op, strings.Join(op.Params(), " "))
		}
		fmt.Fprintln(flag.CommandLine.Output(), "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	if !batch && flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	engine, closeFn, err := openEngine(cfg.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer closeFn()

	invoker := txctx.Invoker{MSPID: cfg.MSPID, ID: cfg.InvokerID}
	if batch {
		err = runBatch(engine, invoker, os.Stdin, os.Stdout)
	} else {
		err = invoke(engine, invoker, flag.Arg(0), flag.Args()[1:], os.Stdout)
	}
	if err != nil {
		closeFn()
		log.Fatal(err)
	}
}

// openEngine selects the sqlite backend when path is set and an in-memory
// arena otherwise.
func openEngine(path string) (*versioned.Engine, func(), error) {
	if path == "" {
		return versioned.NewEngine(versioned.NewArena()), func() {}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	store, err := sqlitestore.Open(path)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			log.Printf("close ledger: %v", err)
		}
	}
	return versioned.NewEngine(store), closeFn, nil
}

func invoke(engine *versioned.Engine, invoker txctx.Invoker, function string, args []string, out io.Writer) error {
	op, err := dispatch.Parse(function)
	if err != nil {
		return err
	}

	txID := uuid.NewString()
	res, err := engine.Execute(versioned.Invocation{
		TxID:      txID,
		Timestamp: time.Now().UTC(),
		Invoker:   invoker,
	}, func(ctx *txctx.Context) (any, error) {
		return dispatch.Invoke(ctx, op, args)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, ev := range res.Events {
		log.Printf("tx %s event %s %s", txID, ev.Name, ev.Payload)
	}
	payload, err := json.Marshal(res.Value)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", op, err)
	}
	_, err = fmt.Fprintln(out, string(payload))
	return err
}

// runBatch executes every line of r, stopping at the first failure.
func runBatch(engine *versioned.Engine, invoker txctx.Invoker, r io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var call []string
		if err := json.Unmarshal([]byte(text), &call); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if len(call) == 0 {
			return fmt.Errorf("line %d: function name is required", line)
		}
		if err := invoke(engine, invoker, call[0], call[1:], out); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read batch: %w", err)
	}
	return nil
}
