package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// DeploymentManagerMetaData contains the ABI of the DeploymentManager
// contract. The contract decodes every leaf payload itself, so all mutating
// methods take the payload as opaque bytes next to the leaf index and its
// merkle proof.
var DeploymentManagerMetaData = &bind.MetaData{
	ABI: `[
		{"type":"function","name":"setup","stateMutability":"nonpayable","inputs":[{"name":"data","type":"bytes"}],"outputs":[]},
		{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"root","type":"bytes32"},{"name":"validUntil","type":"uint32"},{"name":"index","type":"uint32"},{"name":"data","type":"bytes"},{"name":"proof","type":"bytes32[]"},{"name":"signatures","type":"tuple[]","components":[{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"},{"name":"v","type":"uint8"}]}],"outputs":[]},
		{"type":"function","name":"executeActions","stateMutability":"payable","inputs":[{"name":"phase","type":"uint8"},{"name":"leaves","type":"tuple[]","components":[{"name":"index","type":"uint32"},{"name":"data","type":"bytes"}]},{"name":"proofs","type":"bytes32[][]"}],"outputs":[]},
		{"type":"function","name":"initiateUpgrade","stateMutability":"nonpayable","inputs":[{"name":"index","type":"uint32"},{"name":"data","type":"bytes"},{"name":"proof","type":"bytes32[]"}],"outputs":[]},
		{"type":"function","name":"finalizeUpgrade","stateMutability":"nonpayable","inputs":[],"outputs":[]},
		{"type":"function","name":"cancel","stateMutability":"nonpayable","inputs":[{"name":"root","type":"bytes32"},{"name":"validUntil","type":"uint32"},{"name":"index","type":"uint32"},{"name":"data","type":"bytes"},{"name":"proof","type":"bytes32[]"},{"name":"signatures","type":"tuple[]","components":[{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"},{"name":"v","type":"uint8"}]}],"outputs":[]},
		{"type":"function","name":"getDeploymentState","stateMutability":"view","inputs":[],"outputs":[{"name":"status","type":"uint8"},{"name":"actionsExecuted","type":"uint64"},{"name":"activeDeploymentId","type":"bytes32"}]},
		{"type":"function","name":"getOwnerConfig","stateMutability":"view","inputs":[],"outputs":[{"name":"owners","type":"address[]"},{"name":"threshold","type":"uint8"}]}
	]`,
}

// DeploymentManagerLeaf mirrors the Leaf struct of the DeploymentManager
// contract: the index and the opaque payload submitted for execution.
type DeploymentManagerLeaf struct {
	Index uint32
	Data  []byte
}

// DeploymentManagerSignature mirrors the Signature struct of the
// DeploymentManager contract.
type DeploymentManagerSignature struct {
	R [32]byte
	S [32]byte
	V uint8
}

// DeploymentManagerLeafTuple is the full leaf tuple the contract hashes when
// verifying proofs. ChainId is uint256 on-chain.
type DeploymentManagerLeafTuple struct {
	LeafType uint8
	ChainId  *big.Int
	Index    uint32
	Data     []byte
}

// bindDeploymentManager binds the manager at address to a generic contract
// wrapper backed by client.
func bindDeploymentManager(address common.Address, client ContractDeployBackend) (*bind.BoundContract, error) {
	parsed, err := DeploymentManagerMetaData.GetAbi()
	if err != nil {
		return nil, err
	}

	return bind.NewBoundContract(address, *parsed, client, client, client), nil
}
