package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

// SimulatorBackend is the client surface the simulator needs: the contract
// backend plus gas estimation pinned to a specific block.
type SimulatorBackend interface {
	ContractDeployBackend

	EstimateGasAtBlock(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) (uint64, error)
}

var _ sdk.Simulator = (*Simulator)(nil)

// Simulator estimates executeActions batches against the DeploymentManager
// contract. One Simulator serves one chain and one driving goroutine; it is
// not safe for concurrent use.
type Simulator struct {
	*Encoder
	*Inspector

	client SimulatorBackend
	from   common.Address

	// blockNumber is the pinned snapshot for estimates, or nil for the
	// latest block.
	blockNumber *big.Int
}

// NewSimulator creates a new Simulator for EVM chains. Estimates are issued
// from the given sender address, which must match the account that will
// later execute the batches.
func NewSimulator(encoder *Encoder, client SimulatorBackend, from common.Address) *Simulator {
	return &Simulator{
		Encoder:   encoder,
		Inspector: NewInspector(client),
		client:    client,
		from:      from,
	}
}

// PinBlock pins all subsequent estimates to the chain's current head. A batch
// search calls this once so every probe runs against the same state.
func (s *Simulator) PinBlock(ctx context.Context) error {
	header, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return err
	}

	s.blockNumber = header.Number

	return nil
}

// EstimateActions simulates executing the batch as a single executeActions
// transaction and returns the total gas consumed. A revert inside the batch
// surfaces as an estimation error.
func (s *Simulator) EstimateActions(
	ctx context.Context,
	metadata types.ChainMetadata,
	phase types.ExecutionPhase,
	batch []types.LeafWithProof,
) (uint64, error) {
	parsed, err := DeploymentManagerMetaData.GetAbi()
	if err != nil {
		return 0, err
	}

	data, err := parsed.Pack("executeActions",
		uint8(phase),
		transformLeaves(batch),
		transformProofs(batch),
	)
	if err != nil {
		return 0, err
	}

	manager := metadata.Manager

	return s.client.EstimateGasAtBlock(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &manager,
		Data: data,
	}, s.blockNumber)
}
