package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// LeafType identifies what a Merkle leaf encodes. The numeric values are
// part of the leaf hash preimage and double as the deterministic ordering
// of leaf groups within a chain's slice of the tree.
type LeafType uint8

const (
	// LeafTypeSetup bootstraps a manager's owner set before approval.
	LeafTypeSetup LeafType = iota

	// LeafTypeApprove approves a deployment root. Exactly one per chain.
	LeafTypeApprove

	// LeafTypeAction executes one collected action.
	LeafTypeAction

	// LeafTypeUpgrade starts the proxy upgrade window on a chain.
	LeafTypeUpgrade

	// LeafTypeCancel cancels an active deployment.
	LeafTypeCancel

	// LeafTypePropose marks the proposer towards the approval service. It
	// is never executed on-chain.
	LeafTypePropose
)

var leafTypeNames = map[LeafType]string{
	LeafTypeSetup:   "SETUP",
	LeafTypeApprove: "APPROVE",
	LeafTypeAction:  "ACTION",
	LeafTypeUpgrade: "UPGRADE",
	LeafTypeCancel:  "CANCEL",
	LeafTypePropose: "PROPOSE",
}

var leafTypeValues = map[string]LeafType{
	"SETUP":   LeafTypeSetup,
	"APPROVE": LeafTypeApprove,
	"ACTION":  LeafTypeAction,
	"UPGRADE": LeafTypeUpgrade,
	"CANCEL":  LeafTypeCancel,
	"PROPOSE": LeafTypePropose,
}

// String returns the wire name of the leaf type.
func (t LeafType) String() string {
	if name, ok := leafTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t LeafType) MarshalText() ([]byte, error) {
	name, ok := leafTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown leaf type: %d", uint8(t))
	}

	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *LeafType) UnmarshalText(text []byte) error {
	val, ok := leafTypeValues[string(text)]
	if !ok {
		return fmt.Errorf("unknown leaf type: %q", string(text))
	}

	*t = val

	return nil
}

// Leaf is one element of a deployment's Merkle tree: either an action or a
// control operation. Its identity is the hash of the ABI-encoded
// (type, chainId, index, data) tuple; two leaves sharing that triple must
// carry identical data.
type Leaf struct {
	Type    LeafType `json:"type"`
	ChainID ChainID  `json:"chainId"`

	// Index orders leaves of the same type on the same chain. Action
	// leaves reuse the action's index; control leaves use 0.
	Index uint32 `json:"index"`

	// Data is the ABI-encoded action or control payload.
	Data []byte `json:"data"`
}

// LeafWithProof pairs a leaf with its sibling-hash path to the tree root,
// so executors can verify inclusion without the full tree.
type LeafWithProof struct {
	Leaf

	Proof []common.Hash `json:"proof"`
}
