package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	abiUtils "github.com/obelisk-org/obelisk/internal/utils/abi"
	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

// managerDomainSeparatorLeaf is used for domain separation of the leaf values
// stored in the merkle tree. This is defined in the DeploymentManager contract
// and must never change: the deployed verifiers hash leaves with it.
var managerDomainSeparatorLeaf = crypto.Keccak256Hash([]byte("OBELISK_DEPLOYMENT_MANAGER_DOMAIN_SEPARATOR_LEAF"))

var _ sdk.Encoder = (*Encoder)(nil)

// Encoder encodes leaves and their payloads into the format expected by the
// EVM DeploymentManager contract.
type Encoder struct {
	ChainID types.ChainID
}

// NewEncoder returns a new Encoder.
func NewEncoder(chainID types.ChainID) *Encoder {
	return &Encoder{
		ChainID: chainID,
	}
}

// HashLeaf converts the leaf into the tuple hashed by the DeploymentManager
// contract when verifying proofs, and hashes it.
func (e *Encoder) HashLeaf(leaf types.Leaf) (common.Hash, error) {
	tuple := DeploymentManagerLeafTuple{
		LeafType: uint8(leaf.Type),
		ChainId:  new(big.Int).SetUint64(uint64(leaf.ChainID)),
		Index:    leaf.Index,
		Data:     leaf.Data,
	}

	abi := `[{"type":"bytes32"},{"type":"tuple","components":[{"name":"leafType","type":"uint8"},{"name":"chainId","type":"uint256"},{"name":"index","type":"uint32"},{"name":"data","type":"bytes"}]}]`
	encoded, err := abiUtils.ABIEncode(abi, managerDomainSeparatorLeaf, tuple)
	if err != nil {
		return common.Hash{}, err
	}

	return crypto.Keccak256Hash(encoded), nil
}

// EncodeAction encodes a raw action into the payload decoded by the contract's
// executeActions.
func (e *Encoder) EncodeAction(action types.RawAction) ([]byte, error) {
	value := action.Value
	if value == nil {
		value = big.NewInt(0)
	}

	abi := `[{"type":"tuple","components":[{"name":"actionType","type":"uint8"},{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"},{"name":"gas","type":"uint64"},{"name":"operation","type":"uint8"},{"name":"requireSuccess","type":"bool"}]}]`

	return abiUtils.ABIEncode(abi, struct {
		ActionType     uint8
		To             common.Address
		Value          *big.Int
		Data           []byte
		Gas            uint64
		Operation      uint8
		RequireSuccess bool
	}{
		ActionType:     uint8(action.Type),
		To:             action.To,
		Value:          value,
		Data:           action.Data,
		Gas:            action.Gas,
		Operation:      uint8(action.Operation),
		RequireSuccess: action.RequireSuccess,
	})
}

// EncodeApproval encodes the payload of the APPROVE leaf.
func (e *Encoder) EncodeApproval(payload types.ApprovalPayload) ([]byte, error) {
	abi := `[{"type":"tuple","components":[{"name":"manager","type":"address"},{"name":"numInitialActions","type":"uint64"},{"name":"numSetStorageActions","type":"uint64"},{"name":"numLeaves","type":"uint64"},{"name":"overridePrevious","type":"bool"}]}]`

	return abiUtils.ABIEncode(abi, payload)
}

// EncodeSetup encodes the payload of the SETUP bootstrap leaf.
func (e *Encoder) EncodeSetup(payload types.SetupPayload) ([]byte, error) {
	abi := `[{"type":"tuple","components":[{"name":"manager","type":"address"},{"name":"owners","type":"address[]"},{"name":"threshold","type":"uint8"}]}]`

	return abiUtils.ABIEncode(abi, struct {
		Manager   common.Address
		Owners    []common.Address
		Threshold uint8
	}{
		Manager:   payload.Manager,
		Owners:    payload.Config.Owners,
		Threshold: payload.Config.Threshold,
	})
}

// EncodeUpgrade encodes the payload of the UPGRADE leaf.
func (e *Encoder) EncodeUpgrade(payload types.UpgradePayload) ([]byte, error) {
	abi := `[{"type":"tuple","components":[{"name":"manager","type":"address"},{"name":"numSetStorageActions","type":"uint64"}]}]`

	return abiUtils.ABIEncode(abi, payload)
}

// EncodeCancel encodes the payload of the CANCEL leaf.
func (e *Encoder) EncodeCancel(payload types.CancelPayload) ([]byte, error) {
	abi := `[{"type":"tuple","components":[{"name":"manager","type":"address"},{"name":"deploymentId","type":"bytes32"}]}]`

	return abiUtils.ABIEncode(abi, struct {
		Manager      common.Address
		DeploymentId [32]byte
	}{
		Manager:      payload.Manager,
		DeploymentId: payload.DeploymentID,
	})
}

// EncodePropose encodes the payload of the PROPOSE leaf.
func (e *Encoder) EncodePropose(payload types.ProposePayload) ([]byte, error) {
	abi := `[{"type":"tuple","components":[{"name":"proposer","type":"address"}]}]`

	return abiUtils.ABIEncode(abi, payload)
}
