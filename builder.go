package obelisk

import (
	"fmt"

	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

// ProposalBuilder is a fluent builder for Proposal. Build validates the
// constructed proposal.
type ProposalBuilder struct {
	proposal  Proposal
	artifacts sdk.ArtifactReader
}

// NewProposalBuilder creates a new ProposalBuilder.
func NewProposalBuilder() *ProposalBuilder {
	return &ProposalBuilder{
		proposal: Proposal{
			Version:       ProposalVersion,
			ChainMetadata: make(map[types.ChainID]types.ChainMetadata),
			ChainActions:  []ChainActions{},
		},
	}
}

// SetName sets the project deployment name.
func (b *ProposalBuilder) SetName(name string) *ProposalBuilder {
	b.proposal.Name = name
	return b
}

// SetDescription sets the description of the proposal.
func (b *ProposalBuilder) SetDescription(description string) *ProposalBuilder {
	b.proposal.Description = description
	return b
}

// SetValidUntil sets the validUntil field of the proposal.
func (b *ProposalBuilder) SetValidUntil(validUntil uint32) *ProposalBuilder {
	b.proposal.ValidUntil = validUntil
	return b
}

// SetOverridePrevious sets the overridePrevious field of the proposal.
func (b *ProposalBuilder) SetOverridePrevious(override bool) *ProposalBuilder {
	b.proposal.OverridePrevious = override
	return b
}

// AddSignature adds a signature to the proposal.
func (b *ProposalBuilder) AddSignature(signature types.Signature) *ProposalBuilder {
	b.proposal.Signatures = append(b.proposal.Signatures, signature)
	return b
}

// AddChainMetadata adds one chain's metadata to the proposal.
func (b *ProposalBuilder) AddChainMetadata(chainID types.ChainID, metadata types.ChainMetadata) *ProposalBuilder {
	b.proposal.ChainMetadata[chainID] = metadata
	return b
}

// SetChainMetadata sets the chain metadata of the proposal.
func (b *ProposalBuilder) SetChainMetadata(metadata map[types.ChainID]types.ChainMetadata) *ProposalBuilder {
	b.proposal.ChainMetadata = metadata
	return b
}

// AddChainActions adds one chain's action set to the proposal.
func (b *ProposalBuilder) AddChainActions(actions ChainActions) *ProposalBuilder {
	b.proposal.ChainActions = append(b.proposal.ChainActions, actions)
	return b
}

// SetChainActions sets all chain action sets of the proposal.
func (b *ProposalBuilder) SetChainActions(actions []ChainActions) *ProposalBuilder {
	b.proposal.ChainActions = actions
	return b
}

// SetArtifactReader supplies compiled artifacts. Build resolves the init
// code of every contract deployment that does not inline it.
func (b *ProposalBuilder) SetArtifactReader(reader sdk.ArtifactReader) *ProposalBuilder {
	b.artifacts = reader
	return b
}

// Build validates and returns the constructed Proposal.
func (b *ProposalBuilder) Build() (*Proposal, error) {
	if b.artifacts != nil {
		if err := b.resolveArtifacts(); err != nil {
			return nil, err
		}
	}

	// Validate the proposal
	if err := b.proposal.Validate(); err != nil {
		return nil, err
	}

	return &b.proposal, nil
}

// resolveArtifacts fills empty init code from compiled artifacts, looked up
// by fully qualified contract name. An action deploying a single contract
// with no inline payload also gets its Data set to the resolved bytecode.
func (b *ProposalBuilder) resolveArtifacts() error {
	for _, ca := range b.proposal.ChainActions {
		for i := range ca.Actions {
			action := &ca.Actions[i]
			if action.Type != types.ActionTypeDeployContract {
				continue
			}

			for j := range action.Contracts {
				contract := &action.Contracts[j]
				if len(contract.InitCode) > 0 {
					continue
				}

				artifact, err := b.artifacts.GetArtifact(contract.FullyQualifiedName)
				if err != nil {
					return fmt.Errorf("chain %d action %d: %w", ca.ChainID, action.Index, err)
				}

				contract.InitCode = artifact.Bytecode
			}

			if len(action.Data) == 0 && len(action.Contracts) == 1 {
				action.Data = action.Contracts[0].InitCode
			}
		}
	}

	return nil
}
