package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"

	"github.com/obelisk-org/obelisk/sdk"
)

const (
	// Default retry configuration for RPC calls
	RPCDefaultRetryAttempts = 3
	RPCDefaultRetryDelay    = 1000 * time.Millisecond
	RPCDefaultRetryTimeout  = 10 * time.Second

	// Default retry configuration for dialing RPC endpoints
	RPCDefaultDialRetryAttempts = 2
	RPCDefaultDialRetryDelay    = 1000 * time.Millisecond
	RPCDefaultDialTimeout       = 10 * time.Second

	// Default timeout for health checks
	RPCDefaultHealthCheckTimeout = 2 * time.Second
)

type RetryConfig struct {
	Attempts     uint
	Delay        time.Duration
	Timeout      time.Duration
	DialAttempts uint
	DialDelay    time.Duration
	DialTimeout  time.Duration
}

func defaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:     RPCDefaultRetryAttempts,
		Delay:        RPCDefaultRetryDelay,
		Timeout:      RPCDefaultRetryTimeout,
		DialAttempts: RPCDefaultDialRetryAttempts,
		DialDelay:    RPCDefaultDialRetryDelay,
		DialTimeout:  RPCDefaultDialTimeout,
	}
}

// MultiClient should comply with the backend interfaces of this package
var (
	_ ContractDeployBackend = (*MultiClient)(nil)
	_ SimulatorBackend      = (*MultiClient)(nil)
)

// MultiClient wraps one primary RPC client plus backups for a single chain.
// Calls retry on the primary first and fall through the backups; a backup
// that answers gets promoted for subsequent calls.
type MultiClient struct {
	*ethclient.Client
	Backups     []*ethclient.Client
	RetryConfig RetryConfig
	lggr        sdk.Logger
	chainName   string
	mu          sync.RWMutex
}

// NewMultiClient dials every endpoint, health-checks the connections and
// returns a MultiClient over the ones that answered. At least one endpoint
// must be usable.
func NewMultiClient(lggr sdk.Logger, chainName string, endpoints []string, opts ...func(client *MultiClient)) (*MultiClient, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("no RPC endpoints provided, need at least one")
	}

	mc := MultiClient{lggr: lggr, chainName: chainName}
	mc.RetryConfig = defaultRetryConfig()

	for _, opt := range opts {
		opt(&mc)
	}

	clients := make([]*ethclient.Client, 0, len(endpoints))
	for i, endpoint := range endpoints {
		client, err := mc.dialWithRetry(endpoint)
		if err != nil {
			lggr.Warnf("failed to dial endpoint %d for chain %q, trying with the next one: %v", i, chainName, err)

			continue
		}
		if err := mc.rpcHealthCheck(context.Background(), client); err != nil {
			lggr.Warnf("health check failed for endpoint %d for chain %q, trying with the next one: %v", i, chainName, err)
			client.Close()

			continue
		}
		clients = append(clients, client)
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("no valid RPC clients created for chain %q", chainName)
	}

	mc.Client = clients[0]
	mc.Backups = clients[1:]

	return &mc, nil
}

// rpcHealthCheck performs a basic health check on the RPC client by calling
// eth_blockNumber.
func (mc *MultiClient) rpcHealthCheck(ctx context.Context, client *ethclient.Client) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, RPCDefaultHealthCheckTimeout)
	defer cancel()

	_, err := client.BlockNumber(timeoutCtx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	return nil
}

func (mc *MultiClient) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error {
	return mc.retryWithBackups(ctx, "SendTransaction", func(ct context.Context, client *ethclient.Client) error {
		return client.SendTransaction(ct, tx)
	})
}

func (mc *MultiClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var result []byte
	err := mc.retryWithBackups(ctx, "CallContract", func(ct context.Context, client *ethclient.Client) error {
		var err error
		result, err = client.CallContract(ct, msg, blockNumber)

		return err
	})

	return result, err
}

func (mc *MultiClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	var code []byte
	err := mc.retryWithBackups(ctx, "CodeAt", func(ct context.Context, client *ethclient.Client) error {
		var err error
		code, err = client.CodeAt(ct, account, blockNumber)

		return err
	})

	return code, err
}

func (mc *MultiClient) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	var code []byte
	err := mc.retryWithBackups(ctx, "PendingCodeAt", func(ct context.Context, client *ethclient.Client) error {
		var err error
		code, err = client.PendingCodeAt(ct, account)

		return err
	})

	return code, err
}

func (mc *MultiClient) NonceAt(ctx context.Context, account common.Address, block *big.Int) (uint64, error) {
	var count uint64
	err := mc.retryWithBackups(ctx, "NonceAt", func(ct context.Context, client *ethclient.Client) error {
		var err error
		count, err = client.NonceAt(ct, account, block)

		return err
	})

	return count, err
}

func (mc *MultiClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var count uint64
	err := mc.retryWithBackups(ctx, "PendingNonceAt", func(ct context.Context, client *ethclient.Client) error {
		var err error
		count, err = client.PendingNonceAt(ct, account)

		return err
	})

	return count, err
}

func (mc *MultiClient) HeaderByNumber(ctx context.Context, number *big.Int) (*gethtypes.Header, error) {
	var header *gethtypes.Header
	err := mc.retryWithBackups(ctx, "HeaderByNumber", func(ct context.Context, client *ethclient.Client) error {
		var err error
		header, err = client.HeaderByNumber(ct, number)

		return err
	})

	return header, err
}

func (mc *MultiClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var gasPrice *big.Int
	err := mc.retryWithBackups(ctx, "SuggestGasPrice", func(ct context.Context, client *ethclient.Client) error {
		var err error
		gasPrice, err = client.SuggestGasPrice(ct)

		return err
	})

	return gasPrice, err
}

func (mc *MultiClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	var gasTipCap *big.Int
	err := mc.retryWithBackups(ctx, "SuggestGasTipCap", func(ct context.Context, client *ethclient.Client) error {
		var err error
		gasTipCap, err = client.SuggestGasTipCap(ct)

		return err
	})

	return gasTipCap, err
}

func (mc *MultiClient) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	var gas uint64
	err := mc.retryWithBackups(ctx, "EstimateGas", func(ct context.Context, client *ethclient.Client) error {
		var err error
		gas, err = client.EstimateGas(ct, call)

		return err
	})

	return gas, err
}

// EstimateGasAtBlock estimates gas for the call against the state at the
// given block. The standard ethclient surface only estimates against the
// pending state, so this goes through the raw RPC client; blockNumber nil
// means the latest block.
func (mc *MultiClient) EstimateGasAtBlock(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) (uint64, error) {
	var gas hexutil.Uint64
	err := mc.retryWithBackups(ctx, "EstimateGasAtBlock", func(ct context.Context, client *ethclient.Client) error {
		return client.Client().CallContext(ct, &gas, "eth_estimateGas", toCallArg(call), toBlockNumArg(blockNumber))
	})

	return uint64(gas), err
}

func (mc *MultiClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error) {
	var receipt *gethtypes.Receipt
	err := mc.retryWithBackups(ctx, "TransactionReceipt", func(ct context.Context, client *ethclient.Client) error {
		var err error
		receipt, err = client.TransactionReceipt(ct, txHash)

		return err
	})

	return receipt, err
}

func (mc *MultiClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	var balance *big.Int
	err := mc.retryWithBackups(ctx, "BalanceAt", func(ct context.Context, client *ethclient.Client) error {
		var err error
		balance, err = client.BalanceAt(ct, account, blockNumber)

		return err
	})

	return balance, err
}

func (mc *MultiClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error) {
	var logs []gethtypes.Log
	err := mc.retryWithBackups(ctx, "FilterLogs", func(ct context.Context, client *ethclient.Client) error {
		var err error
		logs, err = client.FilterLogs(ct, q)

		return err
	})

	return logs, err
}

func (mc *MultiClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- gethtypes.Log) (ethereum.Subscription, error) {
	var sub ethereum.Subscription
	err := mc.retryWithBackups(ctx, "SubscribeFilterLogs", func(ct context.Context, client *ethclient.Client) error {
		var err error
		sub, err = client.SubscribeFilterLogs(ct, q, ch)

		return err
	})

	return sub, err
}

// WaitMined waits for a transaction to be mined and returns the receipt.
// Note: retry timeout settings are not used for this operation, a timeout can
// be set in the context.
func (mc *MultiClient) WaitMined(ctx context.Context, tx *gethtypes.Transaction) (*gethtypes.Receipt, error) {
	mc.lggr.Debugf("waiting for tx %s to be mined on chain %s", tx.Hash().Hex(), mc.chainName)
	// no retries here because we want to wait for the tx to be mined
	resultCh := make(chan *gethtypes.Receipt)
	doneCh := make(chan struct{})

	waitMined := func(client *ethclient.Client, tx *gethtypes.Transaction) {
		receipt, err := bind.WaitMined(ctx, client, tx)
		if err != nil {
			mc.lggr.Warnf("WaitMined error %v on chain %s", err, mc.chainName)

			return
		}
		select {
		case resultCh <- receipt:
		case <-doneCh:
			return
		}
	}

	for _, client := range mc.clients() {
		go waitMined(client, tx)
	}

	select {
	case receipt := <-resultCh:
		close(doneCh)
		mc.lggr.Debugf("tx %s mined on chain %s", tx.Hash().Hex(), mc.chainName)

		return receipt, nil
	case <-ctx.Done():
		mc.lggr.Warnf("WaitMined context done %v", ctx.Err())
		close(doneCh)

		return nil, ctx.Err()
	}
}

func (mc *MultiClient) retryWithBackups(ctx context.Context, opName string, op func(context.Context, *ethclient.Client) error) error {
	var err error
	traceID := uuid.New()

	for rpcIndex, client := range mc.clients() {
		retryCount := 0
		err2 := retry.Do(func() error {
			timeoutCtx, cancel := ensureTimeout(ctx, mc.RetryConfig.Timeout)
			defer cancel()

			err = op(timeoutCtx, client)
			if err != nil {
				mc.lggr.Warnf("traceID %q: chain %q: op %q: client index %d: failed execution - retryable error '%s'", traceID.String(), mc.chainName, opName, rpcIndex, maybeDataErr(err))
				return err
			}

			// If the operation was successful, check if we need to reorder the RPCs
			mc.reorderRPCs(rpcIndex)

			return nil
		}, retry.Attempts(mc.RetryConfig.Attempts), retry.Delay(mc.RetryConfig.Delay),
			retry.OnRetry(func(n uint, err error) { retryCount++ }))
		if err2 == nil {
			if retryCount > 0 {
				mc.lggr.Infof("traceID %q: chain %q: op %q: client index %d: successfully executed after %d retries", traceID.String(), mc.chainName, opName, rpcIndex, retryCount)
			}

			return nil
		}
		mc.lggr.Infof("traceID %q: chain %q: op %q: client index %d: failed, trying next client", traceID.String(), mc.chainName, opName, rpcIndex)
	}

	return errors.Join(err, fmt.Errorf("all backup clients failed for chain %q", mc.chainName))
}

func (mc *MultiClient) dialWithRetry(endpoint string) (*ethclient.Client, error) {
	traceID := uuid.New()
	var client *ethclient.Client
	retryCount := 0
	err := retry.Do(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), mc.RetryConfig.DialTimeout)
		defer cancel()

		var err2 error
		mc.lggr.Debugf("traceID %q: chain %q: dialing endpoint %q", traceID.String(), mc.chainName, endpoint)
		client, err2 = ethclient.DialContext(ctx, endpoint)
		if err2 != nil {
			mc.lggr.Warnf("traceID %q: chain %q: dialing failed - retryable error: %s: %v", traceID.String(), mc.chainName, endpoint, err2)
			return err2
		}

		return nil
	}, retry.Attempts(mc.RetryConfig.DialAttempts), retry.Delay(mc.RetryConfig.DialDelay),
		retry.OnRetry(func(n uint, err error) { retryCount++ }))

	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("failed to dial endpoint %q for chain %s after retries", endpoint, mc.chainName))
	}
	if retryCount > 0 {
		mc.lggr.Infof("traceID %q: chain %q: successfully dialed endpoint %q after %d retries", traceID.String(), mc.chainName, endpoint, retryCount)
	}

	return client, nil
}

// ensureTimeout checks if the parent context has a deadline.
// If it does, it returns a new cancelable context using the parent's deadline.
// If it doesn't, it creates a new context with the specified timeout.
func ensureTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := parent.Deadline(); hasDeadline {
		return context.WithCancel(parent)
	}

	return context.WithTimeout(parent, timeout)
}

// reorderRPCs reorders the RPCs based on the latest call.
// If the default RPC failed all attempts, it will be moved to the end of the backup list.
// If backup RPCs also failed, they will be moved to the end of the backup list.
// If the primary RPC worked, it will remain the first in the list.
func (mc *MultiClient) reorderRPCs(rpcIndex int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if rpcIndex < 1 || len(mc.Backups) == 0 {
		return // No need to reorder if the first RPC is still the default or we don't have backups
	}

	// Find the index of the backup RPC that answered
	newDefaultRPCIndex := rpcIndex - 1
	newDefaultRPC := mc.Backups[newDefaultRPCIndex]

	// Reorder the failed backups to the end of the list
	reordered := make([]*ethclient.Client, 0, len(mc.Backups))
	reordered = append(reordered, mc.Backups[newDefaultRPCIndex+1:]...)
	reordered = append(reordered, mc.Backups[:newDefaultRPCIndex]...)
	reordered = append(reordered, mc.Client)

	mc.Backups = reordered
	mc.Client = newDefaultRPC
}

func (mc *MultiClient) clients() []*ethclient.Client {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return append([]*ethclient.Client{mc.Client}, mc.Backups...)
}

func maybeDataErr(err error) error {
	var d rpc.DataError
	if errors.As(err, &d) {
		return fmt.Errorf("%s: %v", d.Error(), d.ErrorData())
	}

	return err
}

func toCallArg(msg ethereum.CallMsg) any {
	arg := map[string]any{
		"from": msg.From,
		"to":   msg.To,
	}
	if len(msg.Data) > 0 {
		arg["input"] = hexutil.Bytes(msg.Data)
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	if msg.GasPrice != nil {
		arg["gasPrice"] = (*hexutil.Big)(msg.GasPrice)
	}

	return arg
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}

	return hexutil.EncodeBig(number)
}
