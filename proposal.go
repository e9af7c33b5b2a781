package obelisk

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

// ProposalVersion is the current proposal schema version.
const ProposalVersion = "v1"

// leafOverheadGas approximates the manager-side bookkeeping cost of one
// leaf (proof verification, counter updates). It only feeds the user-facing
// gas estimates; batch sizing always simulates.
const leafOverheadGas = 40_000

// Proposal is the cross-chain aggregation of per-chain action lists,
// content-addressed by the bundle's Merkle root and submitted to an
// external service for multi-party approval.
type Proposal struct {
	Version string `json:"version" validate:"required,oneof=v1"`

	// Name identifies the project deployment towards the approval service.
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`

	// ValidUntil is the unix timestamp after which collected signatures are
	// no longer accepted by the managers.
	ValidUntil uint32 `json:"validUntil" validate:"required"`

	// OverridePrevious lets the approval replace a completed deployment
	// root without an explicit cancel.
	OverridePrevious bool `json:"overridePrevious"`

	Signatures []types.Signature `json:"signatures" validate:"omitempty,dive"`

	ChainMetadata map[types.ChainID]types.ChainMetadata `json:"chainMetadata" validate:"required,min=1"`

	// ChainActions lists each target chain's contribution. Chains with zero
	// actions are tolerated here; they are skipped at bundle time and never
	// reach the tree.
	ChainActions []ChainActions `json:"chainActions" validate:"required,min=1"`

	// bundle caches the built bundle. Building is deterministic, so the
	// cache cannot go stale for an unmodified proposal.
	bundle *DeploymentBundle
}

// NewProposal unmarshals and validates a proposal from the reader.
func NewProposal(reader io.Reader) (*Proposal, error) {
	var out Proposal
	if err := json.NewDecoder(reader).Decode(&out); err != nil {
		return nil, err
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}

	return &out, nil
}

// LoadProposal reads a proposal from a JSON file.
func LoadProposal(path string) (*Proposal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return NewProposal(f)
}

// MarshalJSON marshals the proposal to JSON.
func (p *Proposal) MarshalJSON() ([]byte, error) {
	// First, check the proposal is valid
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// Let the default JSON marshaller handle everything
	type Alias Proposal

	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the JSON to a proposal.
func (p *Proposal) UnmarshalJSON(data []byte) error {
	// Unmarshal all fields using the default unmarshaller
	type Alias Proposal
	if err := json.Unmarshal(data, (*Alias)(p)); err != nil {
		return err
	}

	// Validate the proposal after unmarshalling
	if err := p.Validate(); err != nil {
		return err
	}

	return nil
}

// Write writes the proposal as indented JSON.
func (p *Proposal) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(p)
}

// Validate checks the proposal's structure: tag-based field validation, the
// validity window, unique chains, metadata coverage, and per-chain action
// invariants (dense indices, phase ordering).
func (p *Proposal) Validate() error {
	var validate = validator.New()
	if err := validate.Struct(p); err != nil {
		return err
	}

	if err := proposalValidateBasic(*p); err != nil {
		return err
	}

	seen := make(map[types.ChainID]struct{}, len(p.ChainActions))
	for _, ca := range p.ChainActions {
		if _, ok := seen[ca.ChainID]; ok {
			return NewDuplicateChainError(ca.ChainID)
		}
		seen[ca.ChainID] = struct{}{}

		if _, ok := p.ChainMetadata[ca.ChainID]; !ok {
			return NewChainMetadataNotFoundError(ca.ChainID)
		}

		if err := ca.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// ChainIDs returns the targeted chain ids in ascending order, including
// chains without actions.
func (p *Proposal) ChainIDs() []types.ChainID {
	ids := make([]types.ChainID, 0, len(p.ChainActions))
	for _, ca := range p.ChainActions {
		ids = append(ids, ca.ChainID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// GetEncoders returns a leaf encoder per targeted chain.
func (p *Proposal) GetEncoders() map[types.ChainID]sdk.Encoder {
	encoders := make(map[types.ChainID]sdk.Encoder, len(p.ChainActions))
	for _, ca := range p.ChainActions {
		encoders[ca.ChainID] = newEncoder(ca.ChainID)
	}

	return encoders
}

// Bundle builds (once) and returns the proposal's deployment bundle.
// Chains contributing no actions are filtered out before building.
func (p *Proposal) Bundle() (*DeploymentBundle, error) {
	if p.bundle != nil {
		return p.bundle, nil
	}

	targets := p.executableChainActions()
	if len(targets) == 0 {
		return nil, ErrNoChainActions
	}

	bundle, err := BuildBundle(p.GetEncoders(), p.ChainMetadata, targets, p.OverridePrevious)
	if err != nil {
		return nil, err
	}

	p.bundle = bundle

	return bundle, nil
}

// SigningHash returns the EIP-191 prefixed digest owners sign: the keccak
// hash of the bundle root and the validity deadline.
func (p *Proposal) SigningHash() (common.Hash, error) {
	bundle, err := p.Bundle()
	if err != nil {
		return common.Hash{}, err
	}

	// Convert validUntil to [32]byte
	var validUntilBytes [32]byte
	binary.BigEndian.PutUint32(validUntilBytes[28:], p.ValidUntil)

	hashToSign := crypto.Keccak256Hash(bundle.Root.Bytes(), validUntilBytes[:])

	return toEthSignedMessageHash(hashToSign), nil
}

// AppendSignature appends a signature to the proposal's signature list.
func (p *Proposal) AppendSignature(signature types.Signature) {
	p.Signatures = append(p.Signatures, signature)
}

// SortedSignatures returns the proposal signatures ordered by recovered
// signer address, the order manager contracts verify them in.
func (p *Proposal) SortedSignatures() ([]types.Signature, error) {
	hash, err := p.SigningHash()
	if err != nil {
		return nil, err
	}

	sorted := slices.Clone(p.Signatures)
	slices.SortFunc(sorted, func(a, b types.Signature) int {
		signerA, _ := a.Recover(hash)
		signerB, _ := b.Recover(hash)

		return signerA.Cmp(signerB)
	})

	return sorted, nil
}

// ActionCounts returns the number of actions per targeted chain.
func (p *Proposal) ActionCounts() map[types.ChainID]uint64 {
	counts := make(map[types.ChainID]uint64, len(p.ChainActions))
	for _, ca := range p.ChainActions {
		counts[ca.ChainID] = uint64(len(ca.Actions))
	}

	return counts
}

// GasEstimates returns the per-chain user-facing gas estimate: the sum of
// the static action gas hints plus a fixed per-leaf overhead. Batch sizing
// never consumes these; it simulates against live state.
func (p *Proposal) GasEstimates() []types.GasEstimate {
	estimates := make([]types.GasEstimate, 0, len(p.ChainActions))
	for _, ca := range p.sortedChainActions() {
		if len(ca.Actions) == 0 {
			continue
		}

		gas := lo.SumBy(ca.Actions, func(a types.Action) uint64 { return a.Gas })
		estimates = append(estimates, types.GasEstimate{
			ChainID:      ca.ChainID,
			EstimatedGas: gas + leafOverheadGas*ca.NumLeaves(),
		})
	}

	return estimates
}

// Describe renders the human-readable preview of every action, grouped by
// chain. Confirmation prompts display this text before anything is
// submitted.
func (p *Proposal) Describe() string {
	var b strings.Builder
	for _, ca := range p.sortedChainActions() {
		if len(ca.Actions) == 0 {
			continue
		}

		fmt.Fprintf(&b, "chain %d (%d actions):\n", ca.ChainID, len(ca.Actions))
		for _, action := range ca.Actions {
			fmt.Fprintf(&b, "  %d: %s\n", action.Index, action.Describe())
		}
	}

	return b.String()
}

// AssembleRequest builds the versioned cross-chain proposal request and
// hands it to the relayer: the serialized bundle is stored first, then the
// request (carrying the returned content id) is relayed. Beyond the content
// id, nothing is read back from the service.
func (p *Proposal) AssembleRequest(ctx context.Context, relayer sdk.Relayer) (*types.ProposalRequest, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	bundle, err := p.Bundle()
	if err != nil {
		return nil, err
	}

	blob, err := json.Marshal(bundle)
	if err != nil {
		return nil, err
	}

	contentID, err := relayer.Store(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("store bundle: %w", err)
	}

	chainIDs := bundle.ChainIDs()
	request := &types.ProposalRequest{
		Version:   p.Version,
		ContentID: contentID,
		ChainIDs:  chainIDs,
		Tree: types.ProposalTree{
			Root:        bundle.Root,
			ChainStatus: bundle.ChainStatus(),
		},
		ProjectDeployments: lo.Map(chainIDs, func(chainID types.ChainID, _ int) types.ProjectDeployment {
			return types.ProjectDeployment{
				ChainID:      chainID,
				DeploymentID: bundle.Root,
				Name:         p.Name,
			}
		}),
		GasEstimates: p.GasEstimates(),
		Diff:         p.Describe(),
	}

	if err := relayer.Relay(ctx, request); err != nil {
		return nil, fmt.Errorf("relay proposal: %w", err)
	}

	return request, nil
}

// executableChainActions filters out chains that contribute no actions.
func (p *Proposal) executableChainActions() []ChainActions {
	return lo.Filter(p.ChainActions, func(ca ChainActions, _ int) bool {
		return len(ca.Actions) > 0
	})
}

// sortedChainActions returns the chain actions ascending by chain id.
func (p *Proposal) sortedChainActions() []ChainActions {
	ordered := make([]ChainActions, len(p.ChainActions))
	copy(ordered, p.ChainActions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ChainID < ordered[j].ChainID })

	return ordered
}

func toEthSignedMessageHash(messageHash common.Hash) common.Hash {
	// Add the Ethereum signed message prefix
	prefix := []byte("\x19Ethereum Signed Message:\n32")
	data := append(prefix, messageHash.Bytes()...)

	// Hash the prefixed message
	return crypto.Keccak256Hash(data)
}

// proposalValidateBasic checks that the proposal's validity window has not
// already passed.
func proposalValidateBasic(proposalObj Proposal) error {
	validUntil := time.Unix(int64(proposalObj.ValidUntil), 0)

	if time.Now().After(validUntil) {
		return NewInvalidValidUntilError(proposalObj.ValidUntil)
	}

	return nil
}
