package evidence

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aub/blocktrace-chaincode/internal/apperrors"
	"github.com/aub/blocktrace-chaincode/internal/ledger"
	"github.com/aub/blocktrace-chaincode/internal/ledger/versioned"
	"github.com/aub/blocktrace-chaincode/internal/txctx"
)

const (
	forensics = "ForensicsOrgMSP"
	police    = "PoliceOrgMSP"
	court     = "CourtOrgMSP"
)

var t0 = time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC)

type harness struct {
	t *testing.T
	e *versioned.Engine
	n int
}

func newHarness(t *testing.T) *harness {
	return &harness{t: t, e: versioned.NewEngine(versioned.NewArena())}
}

// run executes fn as the next transaction, one minute after the previous one.
func (h *harness) run(msp string, fn versioned.Func) (versioned.Result, error) {
	h.n++
	return h.e.Execute(versioned.Invocation{
		TxID:      fmt.Sprintf("tx%d", h.n),
		Timestamp: t0.Add(time.Duration(h.n) * time.Minute),
		Invoker:   txctx.Invoker{MSPID: msp, ID: "analyst@" + msp},
	}, fn)
}

func (h *harness) mustRun(msp string, fn versioned.Func) versioned.Result {
	h.t.Helper()
	res, err := h.run(msp, fn)
	require.NoError(h.t, err)
	return res
}

func (h *harness) raw(key ledger.Key) []byte {
	h.t.Helper()
	v, err := h.e.Begin("read", t0).Get(key)
	require.NoError(h.t, err)
	return v
}

func (h *harness) record(id string) *Record {
	h.t.Helper()
	data := h.raw(ledger.EvidenceKey(id))
	require.NotNil(h.t, data)
	var r Record
	require.NoError(h.t, json.Unmarshal(data, &r))
	return &r
}

func register(id, hash, metadata string) versioned.Func {
	return func(ctx *txctx.Context) (any, error) { return Register(ctx, id, hash, metadata) }
}

func transfer(id, from, to, ts string) versioned.Func {
	return func(ctx *txctx.Context) (any, error) { return TransferCustody(ctx, id, from, to, ts) }
}

func verify(id, hash string) versioned.Func {
	return func(ctx *txctx.Context) (any, error) { return Verify(ctx, id, hash) }
}

func annotate(id, note string) versioned.Func {
	return func(ctx *txctx.Context) (any, error) { return Annotate(ctx, id, note) }
}

func TestRegisterEvidence(t *testing.T) {
	h := newHarness(t)
	res := h.mustRun(forensics, register("EV-1", "hash-abc", `{"caseId":"CASE-7","fileSize":2048,"lab":{"bench":3}}`))

	rec := res.Value.(*Record)
	assert.Equal(t, "EV-1", rec.EvidenceID)
	assert.Equal(t, "hash-abc", rec.ContentHash)
	assert.Equal(t, DefaultAlgorithm, rec.HashAlgorithm)
	assert.Equal(t, forensics, rec.CurrentOwner)
	assert.Equal(t, StatusRegistered, rec.Status)
	assert.Equal(t, "CASE-7", rec.Metadata.CaseID)
	assert.Equal(t, int64(2048), rec.Metadata.FileSize)
	assert.Equal(t, "2026-01-15T08:31:00.000Z", rec.CreatedAt)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
	assert.Empty(t, rec.Annotations)

	require.Len(t, rec.CustodyTrail, 1)
	assert.Equal(t, CustodyEntry{
		From:      forensics,
		To:        forensics,
		Timestamp: "2026-01-15T08:31:00.000Z",
		TxID:      "tx1",
		ActorID:   "analyst@" + forensics,
	}, rec.CustodyTrail[0])

	var stored map[string]any
	require.NoError(t, json.Unmarshal(h.raw(ledger.EvidenceKey("EV-1")), &stored))
	assert.Equal(t, "hash-abc", stored["hash"])
	assert.Equal(t, "sha256", stored["algorithm"])
	assert.Equal(t, map[string]any{"caseId": "CASE-7", "fileSize": float64(2048), "lab": map[string]any{"bench": float64(3)}}, stored["metadata"])
	assert.Equal(t, []any{}, stored["annotations"])

	require.Len(t, res.Events, 1)
	assert.Equal(t, EventRegistered, res.Events[0].Name)
	assert.JSONEq(t, string(h.raw(ledger.EvidenceKey("EV-1"))), string(res.Events[0].Payload))
}

func TestRegisterUsesMetadataAlgorithm(t *testing.T) {
	h := newHarness(t)
	res := h.mustRun(forensics, register("EV-1", "d41d8cd9", `{"algorithm":"md5"}`))
	assert.Equal(t, "md5", res.Value.(*Record).HashAlgorithm)
}

func TestRegisterTwiceConflicts(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))
	before := h.raw(ledger.EvidenceKey("EV-1"))

	res, err := h.run(police, register("EV-1", "hash-other", `{"caseId":"X"}`))
	require.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Empty(t, res.Events)
	assert.Equal(t, before, h.raw(ledger.EvidenceKey("EV-1")))
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		metadata string
	}{
		{"empty id", "", ""},
		{"reserved prefix", "RANSOMWARE_RW-1", ""},
		{"malformed metadata", "EV-1", "{not json"},
		{"metadata not an object", "EV-1", `["a"]`},
		{"mistyped known field", "EV-1", `{"fileSize":"large"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.run(forensics, register(tt.id, "hash-abc", tt.metadata))
			require.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Nil(t, h.raw(ledger.EvidenceKey("EV-1")))
		})
	}
}

func TestMetadataErrorMessage(t *testing.T) {
	_, err := ParseMetadata("{")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata must be valid JSON")
}

func TestCustodyInvariant(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))

	chain := []string{forensics, police, court, forensics}
	for i := 1; i < len(chain); i++ {
		h.mustRun(chain[i-1], transfer("EV-1", chain[i-1], chain[i], ""))

		rec := h.record("EV-1")
		assert.Len(t, rec.CustodyTrail, i+1)
		assert.Equal(t, rec.CustodyTrail[len(rec.CustodyTrail)-1].To, rec.CurrentOwner)
		assert.Equal(t, chain[i], rec.CurrentOwner)
		assert.Equal(t, StatusInCustody, rec.Status)
	}
}

func TestTransferUsesSuppliedTimestamp(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))
	res := h.mustRun(forensics, transfer("EV-1", forensics, police, "2026-01-14T23:00:00Z"))

	rec := res.Value.(*Record)
	assert.Equal(t, "2026-01-14T23:00:00Z", rec.UpdatedAt)
	assert.Equal(t, "2026-01-14T23:00:00Z", rec.CustodyTrail[1].Timestamp)
	assert.Equal(t, "tx2", rec.CustodyTrail[1].TxID)

	require.Len(t, res.Events, 1)
	assert.Equal(t, EventTransferred, res.Events[0].Name)
	assert.JSONEq(t, `{"evidenceId":"EV-1","fromOrg":"ForensicsOrgMSP","toOrg":"PoliceOrgMSP","timestamp":"2026-01-14T23:00:00Z"}`,
		string(res.Events[0].Payload))
}

func TestTransferFailures(t *testing.T) {
	tests := []struct {
		name    string
		invoker string
		id      string
		from    string
		to      string
		want    error
	}{
		{"unauthorized invoker", court, "EV-1", forensics, police, apperrors.ErrAuthorization},
		{"owner mismatch", police, "EV-1", police, court, apperrors.ErrConflict},
		{"missing evidence", forensics, "EV-404", forensics, police, apperrors.ErrNotFound},
		{"empty id", forensics, "", forensics, police, apperrors.ErrValidation},
		{"empty target", forensics, "EV-1", forensics, "", apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.mustRun(forensics, register("EV-1", "hash-abc", ""))
			before := h.raw(ledger.EvidenceKey("EV-1"))

			_, err := h.run(tt.invoker, transfer(tt.id, tt.from, tt.to, ""))
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, h.raw(ledger.EvidenceKey("EV-1")))
		})
	}
}

func TestTransferDeniedMessage(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))

	_, err := h.run(police, transfer("EV-1", police, court, ""))
	require.Error(t, err)
	assert.Equal(t, "Transfer denied. EV-1 is owned by ForensicsOrgMSP", err.Error())
}

func TestVerifyIsReadOnly(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))
	before := h.raw(ledger.EvidenceKey("EV-1"))

	for _, hash := range []string{"hash-abc", "wrong", "HASH-ABC", ""} {
		res := h.mustRun(court, verify("EV-1", hash))
		require.Len(t, res.Events, 1)
		assert.Equal(t, EventVerified, res.Events[0].Name)
	}
	assert.Equal(t, before, h.raw(ledger.EvidenceKey("EV-1")))

	hist, err := History(&txctx.Context{Store: h.e.Begin("q", t0)}, "EV-1")
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestVerifyMismatch(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))

	res := h.mustRun(police, verify("EV-1", "wrong"))
	v := res.Value.(*Verification)
	assert.False(t, v.Match)
	assert.Equal(t, "hash-abc", v.ExpectedHash)
	assert.Equal(t, "wrong", v.ProvidedHash)
	assert.JSONEq(t,
		`{"evidenceId":"EV-1","providedHash":"wrong","expectedHash":"hash-abc","match":false,"verifiedAt":"2026-01-15T08:32:00.000Z"}`,
		string(res.Events[0].Payload))

	_, err := h.run(police, verify("EV-404", "x"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTransferThenVerifyScenario(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))
	h.mustRun(forensics, transfer("EV-1", forensics, police, ""))

	res := h.mustRun(police, verify("EV-1", "hash-abc"))
	assert.True(t, res.Value.(*Verification).Match)

	rec := h.record("EV-1")
	assert.Equal(t, police, rec.CurrentOwner)
	assert.Len(t, rec.CustodyTrail, 2)
}

func TestAnnotate(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))

	res := h.mustRun(court, annotate("EV-1", "chain of custody reviewed"))
	rec := res.Value.(*Record)
	require.Len(t, rec.Annotations, 1)
	assert.Equal(t, Annotation{
		Author:    "analyst@" + court,
		Org:       court,
		Note:      "chain of custody reviewed",
		Timestamp: "2026-01-15T08:32:00.000Z",
	}, rec.Annotations[0])
	assert.Equal(t, "2026-01-15T08:32:00.000Z", rec.UpdatedAt)
	assert.Equal(t, forensics, rec.CurrentOwner)
	assert.Len(t, rec.CustodyTrail, 1)

	require.Len(t, res.Events, 1)
	assert.Equal(t, EventAnnotated, res.Events[0].Name)
	assert.JSONEq(t,
		`{"evidenceId":"EV-1","annotation":{"author":"analyst@CourtOrgMSP","org":"CourtOrgMSP","note":"chain of custody reviewed","timestamp":"2026-01-15T08:32:00.000Z"}}`,
		string(res.Events[0].Payload))
}

func TestAnnotateFailures(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))

	_, err := h.run(forensics, annotate("EV-1", ""))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	_, err = h.run(forensics, annotate("EV-404", "note"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, h.record("EV-1").Annotations)
}

func TestReadAndHistory(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))
	h.mustRun(forensics, transfer("EV-1", forensics, police, ""))

	ctx := &txctx.Context{Store: h.e.Begin("q", t0)}
	rec, err := Read(ctx, "EV-1")
	require.NoError(t, err)
	assert.Equal(t, police, rec.CurrentOwner)

	_, err = Read(ctx, "EV-404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = Read(ctx, "RANSOMWARE_RW-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	hist, err := History(ctx, "EV-1")
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "tx1", hist[0].TxID)
	assert.Equal(t, t0.Add(time.Minute).Unix(), hist[0].Timestamp)
	assert.False(t, hist[0].IsDelete)
	require.NotNil(t, hist[1].Value)
	require.True(t, hist[1].Value.Decoded())
	assert.Equal(t, police, hist[1].Value.Record.CurrentOwner)

	hist, err = History(ctx, "EV-404")
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestHistoryStaysInEvidenceNamespace(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, func(ctx *txctx.Context) (any, error) {
		return nil, ctx.Store.Put(ledger.IncidentKey("RW-1"), []byte(`{"incidentId":"RW-1","type":"RANSOMWARE_INCIDENT"}`))
	})

	ctx := &txctx.Context{Store: h.e.Begin("q", t0)}
	hist, err := History(ctx, "RANSOMWARE_RW-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, hist)
	assert.Equal(t, "Evidence RANSOMWARE_RW-1 does not exist", err.Error())
}

func TestAllReturnsRawForUndecodableValues(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))
	h.mustRun(forensics, func(ctx *txctx.Context) (any, error) {
		if err := ctx.Store.Put(ledger.EvidenceKey("EV-2"), []byte("not a record")); err != nil {
			return nil, err
		}
		if err := ctx.Store.Put(ledger.EvidenceKey("EV-3"), []byte("null")); err != nil {
			return nil, err
		}
		return nil, ctx.Store.Put(ledger.IncidentKey("RW-1"), []byte(`{"type":"RANSOMWARE_INCIDENT"}`))
	})

	entries, err := All(&txctx.Context{Store: h.e.Begin("q", t0)})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.True(t, entries[0].Decoded())
	assert.Equal(t, "EV-1", entries[0].Record.EvidenceID)

	assert.False(t, entries[1].Decoded())
	assert.Equal(t, "EV-2", entries[1].Key)
	assert.Equal(t, []byte("not a record"), entries[1].Raw)

	out, err := json.Marshal(entries[1])
	require.NoError(t, err)
	assert.Equal(t, `"not a record"`, string(out))

	assert.False(t, entries[2].Decoded())
	assert.Equal(t, "EV-3", entries[2].Key)
	assert.Equal(t, []byte("null"), entries[2].Raw)
}

func TestQueryByOwnerAndHash(t *testing.T) {
	h := newHarness(t)
	h.mustRun(forensics, register("EV-1", "hash-abc", ""))
	h.mustRun(forensics, register("EV-2", "hash-def", ""))
	h.mustRun(forensics, transfer("EV-2", forensics, police, ""))

	ctx := &txctx.Context{Store: h.e.Begin("q", t0)}
	owned, err := ByOwner(ctx, police)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "EV-2", owned[0].Record.EvidenceID)

	byHash, err := ByHash(ctx, "hash-abc")
	require.NoError(t, err)
	require.Len(t, byHash, 1)
	assert.Equal(t, "EV-1", byHash[0].Record.EvidenceID)

	none, err := ByHash(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReplayIsDeterministic(t *testing.T) {
	steps := []struct {
		msp string
		fn  versioned.Func
	}{
		{forensics, register("EV-1", "hash-abc", `{"caseId":"C-1","zeta":[1,2],"alpha":"x"}`)},
		{forensics, transfer("EV-1", forensics, police, "")},
		{police, annotate("EV-1", "imaged")},
		{court, verify("EV-1", "hash-abc")},
	}

	replay := func() ([]byte, [][]byte) {
		h := newHarness(t)
		var events [][]byte
		for _, s := range steps {
			res := h.mustRun(s.msp, s.fn)
			for _, ev := range res.Events {
				events = append(events, append([]byte(ev.Name+":"), ev.Payload...))
			}
		}
		return h.raw(ledger.EvidenceKey("EV-1")), events
	}

	stateA, eventsA := replay()
	stateB, eventsB := replay()
	assert.Equal(t, stateA, stateB)
	assert.Equal(t, eventsA, eventsB)
}
