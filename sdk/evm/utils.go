package evm

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/types"
)

const (
	SignatureVOffset    = 27
	SignatureVThreshold = 2
)

type ContractDeployBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// transformHashes transforms a slice of common.Hash to a slice of [32]byte.
func transformHashes(hashes []common.Hash) [][32]byte {
	bs := make([][32]byte, 0, len(hashes))
	for _, h := range hashes {
		bs = append(bs, [32]byte(h))
	}

	return bs
}

// transformProofs transforms the proofs of a batch of leaves into the nested
// [32]byte slices the contract expects.
func transformProofs(batch []types.LeafWithProof) [][][32]byte {
	proofs := make([][][32]byte, 0, len(batch))
	for _, leaf := range batch {
		proofs = append(proofs, transformHashes(leaf.Proof))
	}

	return proofs
}

// transformLeaves transforms a batch of leaves into the (index, data) pairs
// the contract expects.
func transformLeaves(batch []types.LeafWithProof) []DeploymentManagerLeaf {
	leaves := make([]DeploymentManagerLeaf, 0, len(batch))
	for _, leaf := range batch {
		leaves = append(leaves, DeploymentManagerLeaf{
			Index: leaf.Index,
			Data:  leaf.Data,
		})
	}

	return leaves
}

// transformSignatures transforms a slice of types.Signature to a slice of
// DeploymentManagerSignature.
func transformSignatures(signatures []types.Signature) []DeploymentManagerSignature {
	sigs := make([]DeploymentManagerSignature, 0, len(signatures))
	for _, sig := range signatures {
		sigs = append(sigs, toManagerSignature(sig))
	}

	return sigs
}

// toManagerSignature converts a types.Signature to a DeploymentManagerSignature.
func toManagerSignature(s types.Signature) DeploymentManagerSignature {
	if s.V < SignatureVThreshold {
		s.V += SignatureVOffset
	}

	return DeploymentManagerSignature{
		R: [32]byte(s.R.Bytes()),
		S: [32]byte(s.S.Bytes()),
		V: s.V,
	}
}
