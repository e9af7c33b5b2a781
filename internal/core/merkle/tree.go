package merkle

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Tree is a binary Merkle tree over a list of leaf hashes.
//
// Parent nodes hash their two children in value-sorted order, so a proof
// verifies without carrying position bits. Layers[0] holds the (possibly
// padded) leaf layer; each following layer halves the previous one until
// the root.
type Tree struct {
	Root   common.Hash
	Layers [][]common.Hash
}

// NewTree builds a tree from leaf hashes. A layer with an odd number of
// nodes is padded by duplicating its last hash. An empty input yields a
// zero root and no layers.
func NewTree(leaves []common.Hash) *Tree {
	layers := make([][]common.Hash, 0)
	if len(leaves) == 0 {
		return &Tree{Layers: layers}
	}

	level := leaves
	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		layers = append(layers, level)

		parents := make([]common.Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			parents[i/2] = hashPair(level[i], level[i+1])
		}

		level = parents
	}

	return &Tree{
		Root:   level[0],
		Layers: layers,
	}
}

// GetProof returns the sibling path that reconstructs the root from the
// given leaf hash. A single-node tree has no layers, so the proof is empty.
func (t *Tree) GetProof(hash common.Hash) ([]common.Hash, error) {
	proof := make([]common.Hash, 0, len(t.Layers))
	current := hash

	for i := range t.Layers {
		found := false

		for j, node := range t.Layers[i] {
			if node != current {
				continue
			}

			sibling := t.Layers[i][j^1]
			proof = append(proof, sibling)
			current = hashPair(current, sibling)
			found = true

			break
		}

		if !found {
			return nil, NewNodeNotFoundError(current)
		}
	}

	return proof, nil
}

// GetProofs returns a proof for every leaf, keyed by leaf hash.
func (t *Tree) GetProofs() (map[common.Hash][]common.Hash, error) {
	if len(t.Layers) == 0 {
		return nil, ErrEmptyTree
	}

	proofs := make(map[common.Hash][]common.Hash, len(t.Layers[0]))
	for _, leaf := range t.Layers[0] {
		proof, err := t.GetProof(leaf)
		if err != nil {
			return nil, err
		}

		proofs[leaf] = proof
	}

	return proofs, nil
}

// VerifyProof reports whether proof reconstructs root from leaf. It is the
// inverse of GetProof and matches on-chain verification.
func VerifyProof(root, leaf common.Hash, proof []common.Hash) bool {
	current := leaf
	for _, sibling := range proof {
		current = hashPair(current, sibling)
	}

	return current == root
}

// NodeNotFoundError indicates that a hash is not a node of the tree.
type NodeNotFoundError struct {
	Hash common.Hash
}

// NewNodeNotFoundError creates a new NodeNotFoundError with the given hash.
func NewNodeNotFoundError(hash common.Hash) *NodeNotFoundError {
	return &NodeNotFoundError{Hash: hash}
}

// Error implements the error interface for NodeNotFoundError.
func (e *NodeNotFoundError) Error() string {
	return "merkle tree does not contain hash: " + e.Hash.String()
}

// ErrEmptyTree indicates that the tree has no layers to prove against.
var ErrEmptyTree = errors.New("merkle tree has no layers")

// hashPair hashes two nodes in value-sorted order so that proof
// verification does not depend on left/right position.
func hashPair(a, b common.Hash) common.Hash {
	if a.Cmp(b) < 0 {
		return combineHash(a, b)
	}

	return combineHash(b, a)
}

func combineHash(a, b common.Hash) common.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])

	return crypto.Keccak256Hash(buf[:])
}
