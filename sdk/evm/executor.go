package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

var _ sdk.Executor = (*Executor)(nil)

// Executor is an Executor implementation for EVM chains, submitting
// deployment leaves to the DeploymentManager contract.
type Executor struct {
	*Encoder
	*Inspector
	client ContractDeployBackend
	auth   *bind.TransactOpts
}

// NewExecutor creates a new Executor for EVM chains.
func NewExecutor(encoder *Encoder, client ContractDeployBackend, auth *bind.TransactOpts) *Executor {
	return &Executor{
		Encoder:   encoder,
		Inspector: NewInspector(client),
		client:    client,
		auth:      auth,
	}
}

// Setup executes the SETUP bootstrap leaf on a freshly deployed manager. The
// contract only accepts it while no owner set is configured, so no proof or
// signatures are involved.
func (e *Executor) Setup(
	ctx context.Context,
	metadata types.ChainMetadata,
	leaf types.LeafWithProof,
) (types.TransactionResult, error) {
	return e.transact(ctx, metadata, "setup", leaf.Data)
}

// Approve submits the bundle root with its owner signatures.
func (e *Executor) Approve(
	ctx context.Context,
	metadata types.ChainMetadata,
	root common.Hash,
	validUntil uint32,
	leaf types.LeafWithProof,
	sortedSignatures []types.Signature,
) (types.TransactionResult, error) {
	return e.transact(ctx, metadata, "approve",
		[32]byte(root),
		validUntil,
		leaf.Index,
		leaf.Data,
		transformHashes(leaf.Proof),
		transformSignatures(sortedSignatures),
	)
}

// ExecuteActions submits one contiguous batch of action leaves in a single
// transaction.
func (e *Executor) ExecuteActions(
	ctx context.Context,
	metadata types.ChainMetadata,
	phase types.ExecutionPhase,
	batch []types.LeafWithProof,
) (types.TransactionResult, error) {
	return e.transact(ctx, metadata, "executeActions",
		uint8(phase),
		transformLeaves(batch),
		transformProofs(batch),
	)
}

// InitiateUpgrade executes the UPGRADE leaf.
func (e *Executor) InitiateUpgrade(
	ctx context.Context,
	metadata types.ChainMetadata,
	leaf types.LeafWithProof,
) (types.TransactionResult, error) {
	return e.transact(ctx, metadata, "initiateUpgrade",
		leaf.Index,
		leaf.Data,
		transformHashes(leaf.Proof),
	)
}

// FinalizeUpgrade closes the storage-mutation window, completing the active
// deployment.
func (e *Executor) FinalizeUpgrade(
	ctx context.Context,
	metadata types.ChainMetadata,
) (types.TransactionResult, error) {
	return e.transact(ctx, metadata, "finalizeUpgrade")
}

// Cancel executes the CANCEL leaf with its owner signatures.
func (e *Executor) Cancel(
	ctx context.Context,
	metadata types.ChainMetadata,
	root common.Hash,
	validUntil uint32,
	leaf types.LeafWithProof,
	sortedSignatures []types.Signature,
) (types.TransactionResult, error) {
	return e.transact(ctx, metadata, "cancel",
		[32]byte(root),
		validUntil,
		leaf.Index,
		leaf.Data,
		transformHashes(leaf.Proof),
		transformSignatures(sortedSignatures),
	)
}

// transact submits one manager call and waits for its receipt. A mined but
// reverted transaction is returned as a TransactionRevertedError together
// with the result, so callers still see the hash and gas usage.
func (e *Executor) transact(
	ctx context.Context,
	metadata types.ChainMetadata,
	method string,
	args ...any,
) (types.TransactionResult, error) {
	contract, err := bindDeploymentManager(metadata.Manager, e.client)
	if err != nil {
		return types.TransactionResult{}, err
	}

	opts := *e.auth
	opts.Context = ctx

	tx, err := contract.Transact(&opts, method, args...)
	if err != nil {
		return types.TransactionResult{}, err
	}

	receipt, err := bind.WaitMined(ctx, e.client, tx)
	if err != nil {
		return types.TransactionResult{Hash: tx.Hash().Hex(), RawData: tx}, err
	}

	result := types.TransactionResult{
		Hash:    tx.Hash().Hex(),
		GasUsed: receipt.GasUsed,
		RawData: receipt,
	}

	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return result, NewTransactionRevertedError(tx.Hash().Hex(), receipt)
	}

	return result, nil
}
