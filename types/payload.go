package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// ApprovalPayload is the control payload of the APPROVE leaf. The manager
// contract checks the owner signatures against it and records the bundle root
// as the active deployment.
type ApprovalPayload struct {
	Manager              common.Address `json:"manager"`
	NumInitialActions    uint64         `json:"numInitialActions"`
	NumSetStorageActions uint64         `json:"numSetStorageActions"`
	NumLeaves            uint64         `json:"numLeaves"`
	OverridePrevious     bool           `json:"overridePrevious"`
}

// SetupPayload is the control payload of the SETUP leaf, bootstrapping the
// manager's owner set before the first approval.
type SetupPayload struct {
	Manager common.Address `json:"manager"`
	Config  OwnerConfig    `json:"config"`
}

// UpgradePayload is the control payload of the UPGRADE leaf. NumSetStorageActions
// tells the manager how many actions remain in the storage phase.
type UpgradePayload struct {
	Manager              common.Address `json:"manager"`
	NumSetStorageActions uint64         `json:"numSetStorageActions"`
}

// CancelPayload is the control payload of the CANCEL leaf, aborting the
// identified active deployment.
type CancelPayload struct {
	Manager      common.Address `json:"manager"`
	DeploymentID common.Hash    `json:"deploymentId"`
}

// ProposePayload is the control payload of the PROPOSE leaf. It is consumed
// off-chain by the approval service and never executed on-chain.
type ProposePayload struct {
	Proposer common.Address `json:"proposer"`
}
