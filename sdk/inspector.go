package sdk

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/types"
)

// Inspector is an interface for inspecting the on chain state of manager contracts.
type Inspector interface {
	// GetDeploymentState returns the manager's current state snapshot. The
	// snapshot is stale the moment it is returned; callers re-fetch before
	// every driving decision.
	GetDeploymentState(ctx context.Context, manager common.Address) (types.DeploymentState, error)

	// GetOwnerConfig returns the owner set and approval threshold configured
	// on the manager.
	GetOwnerConfig(ctx context.Context, manager common.Address) (*types.OwnerConfig, error)
}
