package types //nolint:revive

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ActionType identifies the kind of on-chain work an action performs.
//
// The numeric values are part of the leaf encoding and must not be
// reordered.
type ActionType uint8

const (
	// ActionTypeDeployContract deploys one or more contracts via init code.
	ActionTypeDeployContract ActionType = iota

	// ActionTypeCall invokes a function on an existing contract.
	ActionTypeCall

	// ActionTypeSetStorage writes raw storage slots during a proxy upgrade.
	// Within a chain's action list all set-storage actions come after every
	// deploy and call action.
	ActionTypeSetStorage
)

var actionTypeNames = map[ActionType]string{
	ActionTypeDeployContract: "DEPLOY_CONTRACT",
	ActionTypeCall:           "CALL",
	ActionTypeSetStorage:     "SET_STORAGE",
}

var actionTypeValues = map[string]ActionType{
	"DEPLOY_CONTRACT": ActionTypeDeployContract,
	"CALL":            ActionTypeCall,
	"SET_STORAGE":     ActionTypeSetStorage,
}

// String returns the wire name of the action type.
func (t ActionType) String() string {
	if name, ok := actionTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t ActionType) MarshalText() ([]byte, error) {
	name, ok := actionTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown action type: %d", uint8(t))
	}

	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ActionType) UnmarshalText(text []byte) error {
	val, ok := actionTypeValues[string(text)]
	if !ok {
		return fmt.Errorf("unknown action type: %q", string(text))
	}

	*t = val

	return nil
}

// CallOperation selects how an action's calldata is dispatched.
type CallOperation uint8

const (
	// OperationCall is a regular CALL against the target.
	OperationCall CallOperation = iota

	// OperationDelegateCall runs the target's code in the caller's context.
	OperationDelegateCall
)

var callOperationNames = map[CallOperation]string{
	OperationCall:         "CALL",
	OperationDelegateCall: "DELEGATECALL",
}

var callOperationValues = map[string]CallOperation{
	"CALL":         OperationCall,
	"DELEGATECALL": OperationDelegateCall,
}

// String returns the wire name of the call operation.
func (o CallOperation) String() string {
	if name, ok := callOperationNames[o]; ok {
		return name
	}

	return fmt.Sprintf("UNKNOWN(%d)", uint8(o))
}

// MarshalText implements encoding.TextMarshaler.
func (o CallOperation) MarshalText() ([]byte, error) {
	name, ok := callOperationNames[o]
	if !ok {
		return nil, fmt.Errorf("unknown call operation: %d", uint8(o))
	}

	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *CallOperation) UnmarshalText(text []byte) error {
	val, ok := callOperationValues[string(text)]
	if !ok {
		return fmt.Errorf("unknown call operation: %q", string(text))
	}

	*o = val

	return nil
}

// ContractDeployment records one contract an action deploys.
type ContractDeployment struct {
	Address common.Address `json:"address"`

	// FullyQualifiedName is the artifact lookup key, e.g.
	// "contracts/token/MyToken.sol:MyToken".
	FullyQualifiedName string `json:"fullyQualifiedName"`

	InitCode []byte `json:"initCode"`
}

// Action is one unit of on-chain work. Actions are created once during
// collection and never mutated; at execution time they are matched against
// the on-chain actions-executed counter by Index.
type Action struct {
	// Index is the ordinal position within one chain's action list. Indices
	// are dense and strictly increasing from 0; they define execution order.
	Index uint32 `json:"index"`

	Type ActionType `json:"type"`

	To    common.Address `json:"to"`
	Value *big.Int       `json:"value,omitempty"`

	// Data is the opaque encoded calldata (or packed slot writes for
	// set-storage actions).
	Data []byte `json:"data"`

	// Gas is a static execution gas hint. Batch sizing simulates instead of
	// summing these; the hint only feeds off-chain estimates.
	Gas uint64 `json:"gas"`

	Operation CallOperation `json:"operation"`

	// RequireSuccess aborts the containing batch when the action reverts.
	RequireSuccess bool `json:"requireSuccess"`

	// Contracts lists contracts this action deploys, when any.
	Contracts []ContractDeployment `json:"contracts,omitempty"`

	// Decoded carries the human-readable form of the action. Reporting
	// only; never part of the encoded payload.
	Decoded *DecodedAction `json:"decoded,omitempty"`
}

// RawAction is the execution tuple actually submitted to the chain, with
// all reporting-only fields stripped.
type RawAction struct {
	Index          uint32         `json:"index"`
	Type           ActionType     `json:"type"`
	To             common.Address `json:"to"`
	Value          *big.Int       `json:"value,omitempty"`
	Data           []byte         `json:"data"`
	Gas            uint64         `json:"gas"`
	Operation      CallOperation  `json:"operation"`
	RequireSuccess bool           `json:"requireSuccess"`
}

// Raw strips the Decoded and Contracts fields, yielding the tuple consumed
// by the leaf encoder.
func (a Action) Raw() RawAction {
	return RawAction{
		Index:          a.Index,
		Type:           a.Type,
		To:             a.To,
		Value:          a.Value,
		Data:           a.Data,
		Gas:            a.Gas,
		Operation:      a.Operation,
		RequireSuccess: a.RequireSuccess,
	}
}

// DecodedAction is the human-readable form of an action, produced by a
// calldata decoder at collection time and consumed by Describe.
type DecodedAction struct {
	// ReferenceName is the user-facing name of the target contract.
	ReferenceName string `json:"referenceName"`

	Address common.Address `json:"address"`

	FunctionName string `json:"functionName,omitempty"`

	Variables []Variable `json:"variables,omitempty"`
}

// Variable is one decoded argument or storage value.
type Variable struct {
	Name  string `json:"name,omitempty"`
	Value any    `json:"value"`
}
