package obelisk

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/obelisk-org/obelisk"
	"github.com/obelisk-org/obelisk/networks"
	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/sdk/evm"
	"github.com/obelisk-org/obelisk/types"
)

// Config is the file-backed configuration: target networks plus the
// approval-service endpoint. Secrets (private key, relayer token) come from
// the environment, never from the config file.
type Config struct {
	Networks    []networks.NetworkDescriptor `mapstructure:"networks"`
	Relayer     RelayerConfig                `mapstructure:"relayer"`
	MaxParallel int                          `mapstructure:"maxParallel"`
}

// RelayerConfig locates the approval service.
type RelayerConfig struct {
	URL string `mapstructure:"url"`
}

var cfg Config

func (c Config) registry() (*networks.Registry, error) {
	if len(c.Networks) == 0 {
		return nil, errors.New("no networks configured, add a networks section to the config file")
	}

	return networks.NewRegistry(c.Networks)
}

func newLogger() (*zap.SugaredLogger, error) {
	if verbose {
		lggr, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}

		return lggr.Sugar(), nil
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	lggr, err := config.Build()
	if err != nil {
		return nil, err
	}

	return lggr.Sugar(), nil
}

// loadEnv reads one variable, letting a .env file fill in anything the
// process environment does not already set.
func loadEnv(key string) string {
	_ = godotenv.Load(".env")

	return os.Getenv(key)
}

func loadPrivateKey() (*ecdsa.PrivateKey, error) {
	raw := loadEnv("PRIVATE_KEY")
	if raw == "" {
		return nil, errors.New("PRIVATE_KEY not set, export it or add it to a .env file")
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse PRIVATE_KEY: %w", err)
	}

	return key, nil
}

// dialClients connects one retrying client per requested chain using the
// RPC endpoints from the network registry.
func dialClients(
	lggr sdk.Logger,
	registry *networks.Registry,
	chainIDs []types.ChainID,
) (map[types.ChainID]*evm.MultiClient, error) {
	clients := make(map[types.ChainID]*evm.MultiClient, len(chainIDs))
	for _, chainID := range chainIDs {
		descriptor, err := registry.Get(chainID)
		if err != nil {
			return nil, err
		}
		if len(descriptor.RPCURLs) == 0 {
			return nil, fmt.Errorf("no RPC endpoints configured for chain %d", chainID)
		}

		client, err := evm.NewMultiClient(lggr, descriptor.Name, descriptor.RPCURLs)
		if err != nil {
			return nil, fmt.Errorf("dial chain %d: %w", chainID, err)
		}
		clients[chainID] = client
	}

	return clients, nil
}

func buildInspectors(clients map[types.ChainID]*evm.MultiClient) map[types.ChainID]sdk.Inspector {
	inspectors := make(map[types.ChainID]sdk.Inspector, len(clients))
	for chainID, client := range clients {
		inspectors[chainID] = evm.NewInspector(client)
	}

	return inspectors
}

// buildExecutors constructs the per-chain executor and simulator pairs a
// deployment run needs, all transacting as the holder of key.
func buildExecutors(
	proposal *obelisk.Proposal,
	clients map[types.ChainID]*evm.MultiClient,
	key *ecdsa.PrivateKey,
) (map[types.ChainID]sdk.Executor, map[types.ChainID]sdk.Simulator, error) {
	encoders := proposal.GetEncoders()
	from := crypto.PubkeyToAddress(key.PublicKey)

	executors := make(map[types.ChainID]sdk.Executor, len(clients))
	simulators := make(map[types.ChainID]sdk.Simulator, len(clients))
	for chainID, client := range clients {
		encoder, ok := encoders[chainID].(*evm.Encoder)
		if !ok {
			return nil, nil, fmt.Errorf("no encoder for chain %d", chainID)
		}

		auth, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(uint64(chainID)))
		if err != nil {
			return nil, nil, fmt.Errorf("chain %d: build transactor: %w", chainID, err)
		}

		executors[chainID] = evm.NewExecutor(encoder, client, auth)
		simulators[chainID] = evm.NewSimulator(encoder, client, from)
	}

	return executors, simulators, nil
}
