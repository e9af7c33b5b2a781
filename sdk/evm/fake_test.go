package evm

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// fakeBackend is a scripted backend for exercising the inspector, executor
// and simulator without a chain.
type fakeBackend struct {
	// callReturns maps manager method names to packed return data served by
	// CallContract.
	callReturns map[string][]byte

	// callErr fails every CallContract when set.
	callErr error

	// sent records transactions passed to SendTransaction.
	sent []*gethtypes.Transaction

	// receiptStatus and receiptGasUsed shape the receipts returned by
	// TransactionReceipt.
	receiptStatus  uint64
	receiptGasUsed uint64

	// estimate computes the gas returned by EstimateGasAtBlock; lastEstimateBlock
	// and lastEstimateCall record its latest invocation.
	estimate          func(call ethereum.CallMsg) (uint64, error)
	lastEstimateBlock *big.Int
	lastEstimateCall  ethereum.CallMsg

	// headNumber is the block number reported by HeaderByNumber.
	headNumber *big.Int
}

var (
	_ ContractDeployBackend = (*fakeBackend)(nil)
	_ SimulatorBackend      = (*fakeBackend)(nil)
)

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}

	parsed, err := DeploymentManagerMetaData.GetAbi()
	if err != nil {
		return nil, err
	}

	method, err := parsed.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}

	ret, ok := f.callReturns[method.Name]
	if !ok {
		return nil, errors.New("fakeBackend: no scripted return for " + method.Name)
	}

	return ret, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *gethtypes.Transaction) error {
	f.sent = append(f.sent, tx)

	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	return &gethtypes.Receipt{
		TxHash:  txHash,
		Status:  f.receiptStatus,
		GasUsed: f.receiptGasUsed,
	}, nil
}

func (f *fakeBackend) EstimateGasAtBlock(_ context.Context, call ethereum.CallMsg, blockNumber *big.Int) (uint64, error) {
	f.lastEstimateBlock = blockNumber
	f.lastEstimateCall = call

	if f.estimate == nil {
		return 0, errors.New("fakeBackend: no scripted estimate")
	}

	return f.estimate(call)
}

func (f *fakeBackend) HeaderByNumber(_ context.Context, _ *big.Int) (*gethtypes.Header, error) {
	number := f.headNumber
	if number == nil {
		number = big.NewInt(1)
	}

	return &gethtypes.Header{Number: number}, nil
}

func (f *fakeBackend) CodeAt(_ context.Context, _ common.Address, _ *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

func (f *fakeBackend) PendingCodeAt(_ context.Context, _ common.Address) ([]byte, error) {
	return []byte{0x01}, nil
}

func (f *fakeBackend) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeBackend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeBackend) SuggestGasTipCap(_ context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (f *fakeBackend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeBackend) FilterLogs(_ context.Context, _ ethereum.FilterQuery) ([]gethtypes.Log, error) {
	return nil, nil
}

func (f *fakeBackend) SubscribeFilterLogs(_ context.Context, _ ethereum.FilterQuery, _ chan<- gethtypes.Log) (ethereum.Subscription, error) {
	return nil, errors.New("fakeBackend: subscriptions not supported")
}

// passthroughSigner returns transactions unsigned; the fake backend does not
// check signatures.
func passthroughSigner(_ common.Address, tx *gethtypes.Transaction) (*gethtypes.Transaction, error) {
	return tx, nil
}
