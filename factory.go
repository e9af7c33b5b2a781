package obelisk

import (
	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/sdk/evm"
	"github.com/obelisk-org/obelisk/types"
)

// newEncoder returns the leaf encoder for the given chain. Every target
// network is an EVM chain; the encoder only depends on the chain id, which
// is part of each leaf's hash preimage.
func newEncoder(chainID types.ChainID) sdk.Encoder {
	return evm.NewEncoder(chainID)
}
