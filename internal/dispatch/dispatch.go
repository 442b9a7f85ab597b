package dispatch

import (
	"fmt"

	"github.com/aub/blocktrace-chaincode/internal/evidence"
	"github.com/aub/blocktrace-chaincode/internal/ransomware"
	"github.com/aub/blocktrace-chaincode/internal/txctx"
)

// Invoke binds args to op and runs it. The returned value is the JSON-ready
// result of the aggregate function.
func Invoke(ctx *txctx.Context, op Operation, args []string) (any, error) {
	a, err := op.bind(args)
	if err != nil {
		return nil, err
	}

	switch op {
	case RegisterEvidence:
		return evidence.Register(ctx, a[0], a[1], a[2])
	case TransferCustody:
		return evidence.TransferCustody(ctx, a[0], a[1], a[2], a[3])
	case VerifyEvidence:
		return evidence.Verify(ctx, a[0], a[1])
	case GetEvidenceHistory:
		return evidence.History(ctx, a[0])
	case AnnotateEvidence:
		return evidence.Annotate(ctx, a[0], a[1])
	case ReadEvidence:
		return evidence.Read(ctx, a[0])
	case GetAllEvidence:
		return evidence.All(ctx)
	case QueryEvidenceByOwner:
		return evidence.ByOwner(ctx, a[0])
	case QueryEvidenceByHash:
		return evidence.ByHash(ctx, a[0])
	case RegisterRansomwareIncident:
		return ransomware.Register(ctx, a[0], a[1], a[2], a[3])
	case AddInfectedSystem:
		return ransomware.AddInfectedSystem(ctx, a[0], a[1])
	case TrackPayment:
		return ransomware.TrackPayment(ctx, a[0], a[1])
	case LinkEvidenceToRansomware:
		return ransomware.LinkEvidence(ctx, a[0], a[1], a[2])
	case UpdateRansomwareStatus:
		return ransomware.UpdateStatus(ctx, a[0], a[1], a[2])
	case GetRansomwareIncident:
		return ransomware.Get(ctx, a[0])
	case QueryRansomwareByFamily:
		return ransomware.ByFamily(ctx, a[0])
	case QueryRansomwareByWallet:
		return ransomware.ByWallet(ctx, a[0])
	case GetAllRansomwareIncidents:
		return ransomware.All(ctx)
	}
	panic(fmt.Sprintf("dispatch: operation %s has a signature but no handler", op))
}
