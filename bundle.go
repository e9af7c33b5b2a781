package obelisk

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/internal/core/merkle"
	"github.com/obelisk-org/obelisk/internal/utils/safecast"
	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

// ChainActions is one chain's contribution to a deployment bundle: the
// ordered action list plus the optional control operations.
type ChainActions struct {
	ChainID types.ChainID  `json:"chainId"`
	Actions []types.Action `json:"actions" validate:"dive"`

	// SetupConfig, when set, prepends a SETUP leaf that bootstraps the
	// manager's owner set before approval.
	SetupConfig *types.OwnerConfig `json:"setupConfig,omitempty"`

	// CancelDeploymentID, when set, adds a CANCEL leaf aborting that active
	// deployment so this one can be approved in its place.
	CancelDeploymentID *common.Hash `json:"cancelDeploymentId,omitempty"`

	// Proposer, when set, adds a PROPOSE leaf. It is consumed off-chain by
	// the approval service and never executed by the driver.
	Proposer *common.Address `json:"proposer,omitempty"`
}

// NumInitialActions returns the number of deploy and call actions.
func (c ChainActions) NumInitialActions() uint64 {
	var n uint64
	for _, action := range c.Actions {
		if action.Type != types.ActionTypeSetStorage {
			n++
		}
	}

	return n
}

// NumSetStorageActions returns the number of set-storage actions.
func (c ChainActions) NumSetStorageActions() uint64 {
	return uint64(len(c.Actions)) - c.NumInitialActions()
}

// NumLeaves returns the number of leaves this chain contributes to the
// tree, control leaves included.
func (c ChainActions) NumLeaves() uint64 {
	n := uint64(len(c.Actions)) + 1 // actions + APPROVE
	if c.SetupConfig != nil {
		n++
	}
	if c.NumSetStorageActions() > 0 {
		n++ // UPGRADE
	}
	if c.CancelDeploymentID != nil {
		n++
	}
	if c.Proposer != nil {
		n++
	}

	return n
}

// Validate checks that action indices are dense from 0 and that every
// deploy and call action precedes every set-storage action.
func (c ChainActions) Validate() error {
	storageSeen := false
	for i, action := range c.Actions {
		expected, err := safecast.IntToUint32(i)
		if err != nil {
			return err
		}

		if action.Index != expected {
			return NewActionIndexError(c.ChainID, expected, action.Index)
		}

		switch action.Type {
		case types.ActionTypeSetStorage:
			storageSeen = true
		case types.ActionTypeDeployContract, types.ActionTypeCall:
			if storageSeen {
				return NewStorageActionOrderError(c.ChainID, action.Index)
			}
		default:
			return fmt.Errorf("chain %d: unknown action type: %d", c.ChainID, uint8(action.Type))
		}
	}

	return nil
}

// ChainBundle is one chain's slice of a built bundle: the control leaves
// and the action leaves split by execution phase, each with its inclusion
// proof.
type ChainBundle struct {
	ChainID types.ChainID

	Setup   *types.LeafWithProof
	Approve types.LeafWithProof
	Upgrade *types.LeafWithProof
	Cancel  *types.LeafWithProof
	Propose *types.LeafWithProof

	// InitialActions and SetStorageActions are ascending by leaf index.
	// InitialActions covers action indices [0, len(InitialActions)), the
	// set-storage leaves cover the remainder.
	InitialActions    []types.LeafWithProof
	SetStorageActions []types.LeafWithProof

	// CancelDeploymentID mirrors the CANCEL leaf payload so the driver can
	// match it against on-chain state without decoding leaf data.
	CancelDeploymentID *common.Hash

	// Actions are the source actions, kept for failure reporting.
	Actions []types.Action
}

// NumInitialActions returns the number of leaves in the initial execution
// phase.
func (c *ChainBundle) NumInitialActions() uint64 {
	return uint64(len(c.InitialActions))
}

// NumSetStorageActions returns the number of leaves in the set-storage
// execution phase.
func (c *ChainBundle) NumSetStorageActions() uint64 {
	return uint64(len(c.SetStorageActions))
}

// NumActions returns the total number of action leaves on this chain.
func (c *ChainBundle) NumActions() uint64 {
	return c.NumInitialActions() + c.NumSetStorageActions()
}

// NumLeaves returns the total number of leaves this chain contributes to
// the tree, control leaves included.
func (c *ChainBundle) NumLeaves() uint64 {
	n := c.NumActions() + 1 // APPROVE
	if c.Setup != nil {
		n++
	}
	if c.Upgrade != nil {
		n++
	}
	if c.Cancel != nil {
		n++
	}
	if c.Propose != nil {
		n++
	}

	return n
}

// ActionLeaves returns the action leaves of the given execution phase.
func (c *ChainBundle) ActionLeaves(phase types.ExecutionPhase) []types.LeafWithProof {
	if phase == types.PhaseSetStorage {
		return c.SetStorageActions
	}

	return c.InitialActions
}

// DeploymentBundle is the content-addressed form of a deployment: every
// leaf with its inclusion proof, laid out deterministically, under a single
// Merkle root that doubles as the deployment id.
type DeploymentBundle struct {
	Root common.Hash `json:"root"`

	// Leaves is the full deterministic layout: chains ascending by id, then
	// leaf type, then index.
	Leaves []types.LeafWithProof `json:"leaves"`

	// Chains indexes the same leaves per chain. Derived from Leaves, not
	// serialized.
	Chains map[types.ChainID]*ChainBundle `json:"-"`
}

// ChainIDs returns the bundled chain ids in ascending order.
func (b *DeploymentBundle) ChainIDs() []types.ChainID {
	ids := make([]types.ChainID, 0, len(b.Chains))
	for chainID := range b.Chains {
		ids = append(ids, chainID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// ChainStatus summarizes each chain's slice of the tree, ordered by chain
// id.
func (b *DeploymentBundle) ChainStatus() []types.ChainStatus {
	status := make([]types.ChainStatus, 0, len(b.Chains))
	for _, chainID := range b.ChainIDs() {
		status = append(status, types.ChainStatus{
			ChainID:   chainID,
			NumLeaves: b.Chains[chainID].NumLeaves(),
		})
	}

	return status
}

// BuildBundle converts per-chain action lists into a Merkle bundle.
//
// Leaves are laid out in a fixed order (chains ascending by id, then leaf
// type, then index) and hashed through each chain's encoder, so identical
// inputs always rebuild the identical root. An APPROVE leaf is synthesized
// for every chain; an UPGRADE leaf for every chain with set-storage
// actions; SETUP, CANCEL and PROPOSE leaves as configured on the input.
func BuildBundle(
	encoders map[types.ChainID]sdk.Encoder,
	metadata map[types.ChainID]types.ChainMetadata,
	inputs []ChainActions,
	overridePrevious bool,
) (*DeploymentBundle, error) {
	if len(inputs) == 0 {
		return nil, ErrNoChainActions
	}

	ordered := make([]ChainActions, len(inputs))
	copy(ordered, inputs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ChainID < ordered[j].ChainID })

	chains := make(map[types.ChainID]*ChainBundle, len(ordered))
	leaves := make([]types.Leaf, 0)

	for _, input := range ordered {
		if _, ok := chains[input.ChainID]; ok {
			return nil, NewDuplicateChainError(input.ChainID)
		}
		if len(input.Actions) == 0 {
			return nil, NewEmptyBundleError(input.ChainID)
		}
		if err := input.Validate(); err != nil {
			return nil, err
		}

		md, ok := metadata[input.ChainID]
		if !ok {
			return nil, NewChainMetadataNotFoundError(input.ChainID)
		}

		encoder, ok := encoders[input.ChainID]
		if !ok {
			return nil, NewEncoderNotFoundError(input.ChainID)
		}

		chainLeaves, err := buildChainLeaves(encoder, md, input, overridePrevious)
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", input.ChainID, err)
		}

		leaves = append(leaves, chainLeaves...)
		chains[input.ChainID] = &ChainBundle{
			ChainID:            input.ChainID,
			CancelDeploymentID: input.CancelDeploymentID,
			Actions:            input.Actions,
		}
	}

	hashes := make([]common.Hash, len(leaves))
	seen := make(map[common.Hash]struct{}, len(leaves))
	for i, leaf := range leaves {
		encoder := encoders[leaf.ChainID]

		hash, err := encoder.HashLeaf(leaf)
		if err != nil {
			return nil, fmt.Errorf("hash leaf %s/%d on chain %d: %w", leaf.Type, leaf.Index, leaf.ChainID, err)
		}

		if _, ok := seen[hash]; ok {
			return nil, NewDuplicateLeafError(hash)
		}
		seen[hash] = struct{}{}

		hashes[i] = hash
	}

	tree := merkle.NewTree(hashes)

	withProofs := make([]types.LeafWithProof, len(leaves))
	for i, leaf := range leaves {
		proof, err := tree.GetProof(hashes[i])
		if err != nil {
			return nil, err
		}

		withProofs[i] = types.LeafWithProof{Leaf: leaf, Proof: proof}
	}

	numInitial := make(map[types.ChainID]uint64, len(ordered))
	for _, input := range ordered {
		numInitial[input.ChainID] = input.NumInitialActions()
	}

	bundle := &DeploymentBundle{
		Root:   tree.Root,
		Leaves: withProofs,
		Chains: chains,
	}
	for _, lp := range withProofs {
		chain := chains[lp.ChainID]

		switch lp.Type {
		case types.LeafTypeSetup:
			chain.Setup = &lp
		case types.LeafTypeApprove:
			chain.Approve = lp
		case types.LeafTypeAction:
			if uint64(len(chain.InitialActions)) < numInitial[lp.ChainID] {
				chain.InitialActions = append(chain.InitialActions, lp)
			} else {
				chain.SetStorageActions = append(chain.SetStorageActions, lp)
			}
		case types.LeafTypeUpgrade:
			chain.Upgrade = &lp
		case types.LeafTypeCancel:
			chain.Cancel = &lp
		case types.LeafTypePropose:
			chain.Propose = &lp
		}
	}

	return bundle, nil
}

// buildChainLeaves lays out one chain's leaves in leaf-type order and
// encodes every payload through the chain's encoder.
func buildChainLeaves(
	encoder sdk.Encoder,
	md types.ChainMetadata,
	input ChainActions,
	overridePrevious bool,
) ([]types.Leaf, error) {
	leaves := make([]types.Leaf, 0, input.NumLeaves())

	if input.SetupConfig != nil {
		data, err := encoder.EncodeSetup(types.SetupPayload{
			Manager: md.Manager,
			Config:  *input.SetupConfig,
		})
		if err != nil {
			return nil, fmt.Errorf("encode setup: %w", err)
		}

		leaves = append(leaves, types.Leaf{Type: types.LeafTypeSetup, ChainID: input.ChainID, Data: data})
	}

	approval, err := encoder.EncodeApproval(types.ApprovalPayload{
		Manager:              md.Manager,
		NumInitialActions:    input.NumInitialActions(),
		NumSetStorageActions: input.NumSetStorageActions(),
		NumLeaves:            input.NumLeaves(),
		OverridePrevious:     overridePrevious,
	})
	if err != nil {
		return nil, fmt.Errorf("encode approval: %w", err)
	}
	leaves = append(leaves, types.Leaf{Type: types.LeafTypeApprove, ChainID: input.ChainID, Data: approval})

	for _, action := range input.Actions {
		data, aerr := encoder.EncodeAction(action.Raw())
		if aerr != nil {
			return nil, fmt.Errorf("encode action %d: %w", action.Index, aerr)
		}

		leaves = append(leaves, types.Leaf{
			Type:    types.LeafTypeAction,
			ChainID: input.ChainID,
			Index:   action.Index,
			Data:    data,
		})
	}

	if input.NumSetStorageActions() > 0 {
		data, uerr := encoder.EncodeUpgrade(types.UpgradePayload{
			Manager:              md.Manager,
			NumSetStorageActions: input.NumSetStorageActions(),
		})
		if uerr != nil {
			return nil, fmt.Errorf("encode upgrade: %w", uerr)
		}

		leaves = append(leaves, types.Leaf{Type: types.LeafTypeUpgrade, ChainID: input.ChainID, Data: data})
	}

	if input.CancelDeploymentID != nil {
		data, cerr := encoder.EncodeCancel(types.CancelPayload{
			Manager:      md.Manager,
			DeploymentID: *input.CancelDeploymentID,
		})
		if cerr != nil {
			return nil, fmt.Errorf("encode cancel: %w", cerr)
		}

		leaves = append(leaves, types.Leaf{Type: types.LeafTypeCancel, ChainID: input.ChainID, Data: data})
	}

	if input.Proposer != nil {
		data, perr := encoder.EncodePropose(types.ProposePayload{Proposer: *input.Proposer})
		if perr != nil {
			return nil, fmt.Errorf("encode propose: %w", perr)
		}

		leaves = append(leaves, types.Leaf{Type: types.LeafTypePropose, ChainID: input.ChainID, Data: data})
	}

	return leaves, nil
}
