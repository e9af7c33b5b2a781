package sdk

import (
	"github.com/obelisk-org/obelisk/types"
)

// Decoder decodes the calldata of collected actions for human review.
//
// This is only required if the chain supports decoding.
type Decoder interface {
	// Decode decodes an action's calldata.
	//
	// contractInterfaces is the ABI of the contract that the action is
	// interacting with.
	Decode(action types.Action, contractInterfaces string) (*types.DecodedAction, error)
}
