package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

var _ sdk.Inspector = (*Inspector)(nil)

// Inspector is an Inspector implementation for EVM chains, giving access to
// the state of the DeploymentManager contract.
type Inspector struct {
	client ContractDeployBackend
}

// NewInspector creates a new Inspector for EVM chains.
func NewInspector(client ContractDeployBackend) *Inspector {
	return &Inspector{
		client: client,
	}
}

// GetDeploymentState reads the manager's deployment snapshot.
func (i *Inspector) GetDeploymentState(ctx context.Context, manager common.Address) (types.DeploymentState, error) {
	contract, err := bindDeploymentManager(manager, i.client)
	if err != nil {
		return types.DeploymentState{}, err
	}

	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "getDeploymentState"); err != nil {
		return types.DeploymentState{}, err
	}

	rawStatus := *abi.ConvertType(out[0], new(uint8)).(*uint8)
	status := types.DeploymentStatus(rawStatus)
	if _, err := status.MarshalText(); err != nil {
		return types.DeploymentState{}, NewInvalidDeploymentStatusError(manager, rawStatus)
	}

	return types.DeploymentState{
		Status:             status,
		ActionsExecuted:    *abi.ConvertType(out[1], new(uint64)).(*uint64),
		ActiveDeploymentID: common.Hash(*abi.ConvertType(out[2], new([32]byte)).(*[32]byte)),
	}, nil
}

// GetOwnerConfig reads the owner set and threshold from the manager.
func (i *Inspector) GetOwnerConfig(ctx context.Context, manager common.Address) (*types.OwnerConfig, error) {
	contract, err := bindDeploymentManager(manager, i.client)
	if err != nil {
		return nil, err
	}

	var out []any
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "getOwnerConfig"); err != nil {
		return nil, err
	}

	config, err := types.NewOwnerConfig(
		*abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address),
		*abi.ConvertType(out[1], new(uint8)).(*uint8),
	)
	if err != nil {
		return nil, err
	}

	return &config, nil
}
