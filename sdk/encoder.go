package sdk

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/types"
)

// Encoder hashes deployment leaves and encodes their payloads for a chain
// family. Leaf hashes are what the merkle tree is built over, so every
// implementation must match the verification logic of the deployed manager
// contracts bit for bit.
type Encoder interface {
	// HashLeaf computes the domain-separated hash of a single leaf.
	HashLeaf(leaf types.Leaf) (common.Hash, error)

	// EncodeAction encodes a raw action into the Data payload of an ACTION leaf.
	EncodeAction(action types.RawAction) ([]byte, error)

	// EncodeApproval encodes the payload of the APPROVE leaf.
	EncodeApproval(payload types.ApprovalPayload) ([]byte, error)

	// EncodeSetup encodes the payload of the SETUP bootstrap leaf.
	EncodeSetup(payload types.SetupPayload) ([]byte, error)

	// EncodeUpgrade encodes the payload of the UPGRADE leaf.
	EncodeUpgrade(payload types.UpgradePayload) ([]byte, error)

	// EncodeCancel encodes the payload of the CANCEL leaf.
	EncodeCancel(payload types.CancelPayload) ([]byte, error)

	// EncodePropose encodes the payload of the PROPOSE leaf.
	EncodePropose(payload types.ProposePayload) ([]byte, error)
}
