package chaincode

import (
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/v2/shim"

	"github.com/aub/blocktrace-chaincode/internal/telemetry"
)

// eventSink publishes transaction events as Fabric chaincode events.
type eventSink struct {
	stub    shim.ChaincodeStubInterface
	prefix  string
	metrics *telemetry.Metrics
}

func (s *eventSink) Emit(name string, payload []byte) error {
	full := s.prefix + name
	if err := s.stub.SetEvent(full, payload); err != nil {
		return fmt.Errorf("failed to set event %s: %v", full, err)
	}
	s.metrics.Event(full)
	return nil
}
