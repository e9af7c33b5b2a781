package sdk

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/types"
)

// Executor is an interface for executing deployment leaves on a chain.
//
// This must be implemented by any chain family the execution driver supports.
// Every method submits a transaction and waits for its receipt; a nil error
// means the transaction was mined successfully, not that the deployment as a
// whole advanced (callers re-inspect state to learn that).
type Executor interface {
	Inspector

	// Setup executes the SETUP bootstrap leaf on a freshly deployed manager.
	Setup(
		ctx context.Context,
		metadata types.ChainMetadata,
		leaf types.LeafWithProof,
	) (types.TransactionResult, error)

	// Approve submits the bundle root with its owner signatures, activating
	// the deployment on the manager.
	Approve(
		ctx context.Context,
		metadata types.ChainMetadata,
		root common.Hash,
		validUntil uint32,
		leaf types.LeafWithProof,
		sortedSignatures []types.Signature,
	) (types.TransactionResult, error)

	// ExecuteActions submits one contiguous batch of action leaves for the
	// given phase in a single transaction.
	ExecuteActions(
		ctx context.Context,
		metadata types.ChainMetadata,
		phase types.ExecutionPhase,
		batch []types.LeafWithProof,
	) (types.TransactionResult, error)

	// InitiateUpgrade executes the UPGRADE leaf, moving proxies into their
	// storage-mutation window.
	InitiateUpgrade(
		ctx context.Context,
		metadata types.ChainMetadata,
		leaf types.LeafWithProof,
	) (types.TransactionResult, error)

	// FinalizeUpgrade closes the storage-mutation window and completes the
	// active deployment. No leaf is consumed.
	FinalizeUpgrade(
		ctx context.Context,
		metadata types.ChainMetadata,
	) (types.TransactionResult, error)

	// Cancel executes the CANCEL leaf with its owner signatures, aborting the
	// identified active deployment.
	Cancel(
		ctx context.Context,
		metadata types.ChainMetadata,
		root common.Hash,
		validUntil uint32,
		leaf types.LeafWithProof,
		sortedSignatures []types.Signature,
	) (types.TransactionResult, error)
}
