package evm

import (
	"fmt"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

const selectorSize = 4

var _ sdk.Decoder = (*Decoder)(nil)

// Decoder decodes action calldata against contract ABIs for human review.
type Decoder struct{}

// NewDecoder returns a new Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes an action's calldata. Deploy actions carry init code rather
// than calldata, so only their identity is filled in; call and set-storage
// actions are resolved to a function name and named arguments.
func (d *Decoder) Decode(action types.Action, contractInterfaces string) (*types.DecodedAction, error) {
	decoded := &types.DecodedAction{
		Address: action.To,
	}

	if len(action.Contracts) > 0 {
		decoded.ReferenceName = action.Contracts[0].FullyQualifiedName
	}

	if action.Type == types.ActionTypeDeployContract {
		decoded.FunctionName = "constructor"

		return decoded, nil
	}

	functionName, variables, err := ParseFunctionCall(contractInterfaces, action.Data)
	if err != nil {
		return nil, err
	}

	decoded.FunctionName = functionName
	decoded.Variables = variables

	return decoded, nil
}

// ParseFunctionCall parses a full data payload (with function selector at the
// front of it) and a full contract ABI into a function name and an array of
// named inputs.
func ParseFunctionCall(fullAbi string, data []byte) (string, []types.Variable, error) {
	if len(data) < selectorSize {
		return "", nil, fmt.Errorf("calldata too short to contain a function selector: %d bytes", len(data))
	}

	parsedAbi, err := gethabi.JSON(strings.NewReader(fullAbi))
	if err != nil {
		return "", nil, err
	}

	method, err := parsedAbi.MethodById(data[:selectorSize])
	if err != nil {
		return "", nil, err
	}

	inputs, err := method.Inputs.UnpackValues(data[selectorSize:])
	if err != nil {
		return "", nil, err
	}

	variables := make([]types.Variable, len(inputs))
	for i, input := range inputs {
		variables[i] = types.Variable{
			Name:  method.Inputs[i].Name,
			Value: input,
		}
	}

	return method.Name, variables, nil
}
