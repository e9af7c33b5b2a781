package types

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// ChainID is an EVM chain id as defined by EIP-155.
type ChainID uint64

// String returns the decimal representation of the chain id.
func (c ChainID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// ChainMetadata carries the per-chain addresses a deployment needs.
type ChainMetadata struct {
	// Manager is the deployment manager contract the bundle executes
	// against on this chain.
	Manager common.Address `json:"manager"`
}

// ChainStatus summarizes one chain's slice of a cross-chain proposal. Only
// chains contributing at least one action leaf appear.
type ChainStatus struct {
	ChainID   ChainID `json:"chainId"`
	NumLeaves uint64  `json:"numLeaves"`
}
