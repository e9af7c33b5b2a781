package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// ProposalRequest is the versioned payload handed to the external approval
// service. It crosses a network boundary, so its shape must stay stable:
// additive changes only, gated by Version.
type ProposalRequest struct {
	Version            string              `json:"version" validate:"required,oneof=v1"`
	ContentID          string              `json:"contentId,omitempty"`
	ChainIDs           []ChainID           `json:"chainIds" validate:"required,min=1"`
	Tree               ProposalTree        `json:"tree" validate:"required"`
	ProjectDeployments []ProjectDeployment `json:"projectDeployments" validate:"required,min=1,dive"`
	GasEstimates       []GasEstimate       `json:"gasEstimates,omitempty" validate:"omitempty,dive"`
	Diff               string              `json:"diff,omitempty"`
}

// ProposalTree summarizes the merkle tree backing a cross-chain proposal:
// the root that identifies the deployment and a per-chain leaf count.
type ProposalTree struct {
	Root        common.Hash   `json:"root"`
	ChainStatus []ChainStatus `json:"chainStatus" validate:"required,min=1,dive"`
}

// ProjectDeployment records one chain's deployment entry as the approval
// service tracks it.
type ProjectDeployment struct {
	ChainID      ChainID     `json:"chainId" validate:"required"`
	DeploymentID common.Hash `json:"deploymentId"`
	Name         string      `json:"name" validate:"required"`
	IsExecuting  bool        `json:"isExecuting"`
}

// GasEstimate is the estimated total execution gas for one chain, used by
// approvers to sanity-check funding before signing off.
type GasEstimate struct {
	ChainID      ChainID `json:"chainId" validate:"required"`
	EstimatedGas uint64  `json:"estimatedGas"`
}
