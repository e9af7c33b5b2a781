package sdk

import (
	"context"

	"github.com/obelisk-org/obelisk/types"
)

// Simulator estimates the execution cost of action batches without submitting
// them.
//
// This is only required if the chain supports simulation.
type Simulator interface {
	// PinBlock pins all subsequent estimates to the chain's current head, so
	// that a batch search runs against one consistent snapshot.
	PinBlock(ctx context.Context) error

	// EstimateActions simulates executing the batch as a single transaction
	// and returns the total gas consumed.
	EstimateActions(
		ctx context.Context,
		metadata types.ChainMetadata,
		phase types.ExecutionPhase,
		batch []types.LeafWithProof,
	) (uint64, error)
}
