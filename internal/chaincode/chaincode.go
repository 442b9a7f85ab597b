package chaincode

import (
	"strings"

	"github.com/hyperledger/fabric-chaincode-go/v2/shim"
	"github.com/hyperledger/fabric-contract-api-go/v2/contractapi"
	"github.com/hyperledger/fabric-protos-go-apiv2/peer"

	"github.com/aub/blocktrace-chaincode/internal/dispatch"
)

// Chaincode wraps the contract chaincode so that trailing optional arguments
// may be omitted by clients.
type Chaincode struct {
	cc *contractapi.ContractChaincode
}

var _ shim.Chaincode = (*Chaincode)(nil)

// New builds the chaincode around the contract.
func New(contract *BlockTraceContract) (*Chaincode, error) {
	cc, err := contractapi.NewChaincode(contract)
	if err != nil {
		return nil, err
	}
	return &Chaincode{cc: cc}, nil
}

// Start runs the chaincode against the peer that launched it.
func (c *Chaincode) Start() error {
	return shim.Start(c)
}

func (c *Chaincode) Init(stub shim.ChaincodeStubInterface) *peer.Response {
	return c.cc.Init(stub)
}

func (c *Chaincode) Invoke(stub shim.ChaincodeStubInterface) *peer.Response {
	return c.cc.Invoke(padArgs(stub))
}

// paddedStub reports padded function parameters to the contract router.
type paddedStub struct {
	shim.ChaincodeStubInterface
	function string
	params   []string
}

func (p *paddedStub) GetFunctionAndParameters() (string, []string) {
	return p.function, p.params
}

func padArgs(stub shim.ChaincodeStubInterface) shim.ChaincodeStubInterface {
	function, params := stub.GetFunctionAndParameters()
	name := function
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	op, err := dispatch.Parse(name)
	if err != nil {
		return stub
	}
	padded, ok := op.Pad(params)
	if !ok {
		return stub
	}
	return &paddedStub{ChaincodeStubInterface: stub, function: function, params: padded}
}
