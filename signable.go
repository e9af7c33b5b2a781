package obelisk

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

// ErrInspectorsNotProvided is returned when a Signable operation needs
// on-chain reads but no inspectors were supplied.
var ErrInspectorsNotProvided = errors.New("inspectors not provided")

// Signable provides signing functionality for a Proposal. It holds the
// built bundle whose root is signed, and per-chain inspectors for
// retrieving manager configurations to validate signatures and quorum
// against.
type Signable struct {
	proposal   *Proposal
	bundle     *DeploymentBundle
	inspectors map[types.ChainID]sdk.Inspector
}

// NewSignable creates a new Signable from a proposal and inspectors,
// building the bundle in the process.
func NewSignable(
	proposal *Proposal,
	inspectors map[types.ChainID]sdk.Inspector,
) (*Signable, error) {
	bundle, err := proposal.Bundle()
	if err != nil {
		return nil, err
	}

	return &Signable{
		proposal:   proposal,
		bundle:     bundle,
		inspectors: inspectors,
	}, nil
}

// Root returns the bundle root being signed.
func (s *Signable) Root() common.Hash {
	return s.bundle.Root
}

// Sign signs the proposal's signing hash with the provided signer.
func (s *Signable) Sign(signer Signer) (sig types.Signature, err error) {
	// Validate proposal
	if err = s.proposal.Validate(); err != nil {
		return sig, err
	}

	// Get the signing hash
	payload, err := s.proposal.SigningHash()
	if err != nil {
		return sig, err
	}

	// Sign the payload
	sigB, err := signer.Sign(payload.Bytes())
	if err != nil {
		return sig, err
	}

	return types.NewSignatureFromBytes(sigB)
}

// SignAndAppend signs the proposal using the provided signer and appends
// the resulting signature to the proposal's list of signatures.
//
// This modifies the proposal in place.
func (s *Signable) SignAndAppend(signer Signer) (types.Signature, error) {
	sig, err := s.Sign(signer)
	if err != nil {
		return types.Signature{}, err
	}

	s.proposal.AppendSignature(sig)

	return sig, nil
}

// GetConfigs retrieves the manager owner configuration for each bundled
// chain.
func (s *Signable) GetConfigs(ctx context.Context) (map[types.ChainID]*types.OwnerConfig, error) {
	if s.inspectors == nil {
		return nil, ErrInspectorsNotProvided
	}

	configs := make(map[types.ChainID]*types.OwnerConfig, len(s.bundle.Chains))
	for _, chainID := range s.bundle.ChainIDs() {
		inspector, ok := s.inspectors[chainID]
		if !ok {
			return nil, fmt.Errorf("inspector not found for chain %d", chainID)
		}

		config, err := inspector.GetOwnerConfig(ctx, s.proposal.ChainMetadata[chainID].Manager)
		if err != nil {
			return nil, err
		}

		configs[chainID] = config
	}

	return configs, nil
}

// RecoveredSigners returns the addresses recovered from the proposal's
// signatures against its signing hash.
func (s *Signable) RecoveredSigners() ([]common.Address, error) {
	hash, err := s.proposal.SigningHash()
	if err != nil {
		return nil, err
	}

	recovered := make([]common.Address, len(s.proposal.Signatures))
	for i, sig := range s.proposal.Signatures {
		addr, rerr := sig.Recover(hash)
		if rerr != nil {
			return nil, rerr
		}

		recovered[i] = addr
	}

	return recovered, nil
}

// CheckQuorum checks whether the signers recovered from the proposal's
// signatures reach the approval threshold configured on the chain's
// manager.
func (s *Signable) CheckQuorum(ctx context.Context, chainID types.ChainID) (bool, error) {
	if s.inspectors == nil {
		return false, ErrInspectorsNotProvided
	}

	inspector, ok := s.inspectors[chainID]
	if !ok {
		return false, errors.New("inspector not found for chain " + chainID.String())
	}

	recovered, err := s.RecoveredSigners()
	if err != nil {
		return false, err
	}

	config, err := inspector.GetOwnerConfig(ctx, s.proposal.ChainMetadata[chainID].Manager)
	if err != nil {
		return false, err
	}

	return config.CanApprove(recovered), nil
}

// ValidateSignatures checks that every signature recovers to an owner and
// that quorum is reached on every bundled chain.
func (s *Signable) ValidateSignatures(ctx context.Context) (bool, error) {
	configs, err := s.GetConfigs(ctx)
	if err != nil {
		return false, err
	}

	recovered, err := s.RecoveredSigners()
	if err != nil {
		return false, err
	}

	for _, chainID := range s.bundle.ChainIDs() {
		config := configs[chainID]

		for _, signer := range recovered {
			if !config.IsOwner(signer) {
				return false, NewInvalidSignatureError(signer)
			}
		}

		if !config.CanApprove(recovered) {
			return false, NewQuorumNotReachedError(chainID)
		}
	}

	return true, nil
}

// ValidateConfigs checks the manager configurations of all bundled chains
// for consistency.
//
// A deployment spans chains under one owner set and threshold, and the
// managers sit at one address; any divergence aborts before execution.
func (s *Signable) ValidateConfigs(ctx context.Context) error {
	configs, err := s.GetConfigs(ctx)
	if err != nil {
		return err
	}

	chainIDs := s.bundle.ChainIDs()
	for i := 1; i < len(chainIDs); i++ {
		prev, curr := chainIDs[i-1], chainIDs[i]

		if !configs[curr].Equals(*configs[prev]) {
			return NewInconsistentCrossChainConfigError(curr, prev)
		}

		if s.proposal.ChainMetadata[curr].Manager != s.proposal.ChainMetadata[prev].Manager {
			return NewInconsistentCrossChainConfigError(curr, prev)
		}
	}

	return nil
}
