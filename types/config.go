package types

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidOwnerConfig is returned when an owner configuration fails
// validation.
var ErrInvalidOwnerConfig = errors.New("invalid owner config")

// OwnerConfig is the owner set and approval threshold of a manager
// contract. Deployments spanning multiple chains require the config to be
// identical on every chain.
type OwnerConfig struct {
	Owners    []common.Address `json:"owners"`
	Threshold uint8            `json:"threshold"`
}

// NewOwnerConfig returns a validated owner config.
func NewOwnerConfig(owners []common.Address, threshold uint8) (OwnerConfig, error) {
	config := OwnerConfig{
		Owners:    owners,
		Threshold: threshold,
	}

	if err := config.Validate(); err != nil {
		return OwnerConfig{}, err
	}

	return config, nil
}

// Validate checks the structural invariants of the config.
func (c OwnerConfig) Validate() error {
	if c.Threshold == 0 {
		return fmt.Errorf("%w: threshold must be greater than 0", ErrInvalidOwnerConfig)
	}

	if len(c.Owners) == 0 {
		return fmt.Errorf("%w: owner set must not be empty", ErrInvalidOwnerConfig)
	}

	if int(c.Threshold) > len(c.Owners) {
		return fmt.Errorf("%w: threshold %d exceeds owner count %d", ErrInvalidOwnerConfig, c.Threshold, len(c.Owners))
	}

	seen := make(map[common.Address]struct{}, len(c.Owners))
	for _, owner := range c.Owners {
		if _, ok := seen[owner]; ok {
			return fmt.Errorf("%w: duplicate owner %s", ErrInvalidOwnerConfig, owner)
		}
		seen[owner] = struct{}{}
	}

	return nil
}

// Equals reports whether two configs carry the same threshold and owner
// set, ignoring owner order.
func (c OwnerConfig) Equals(other OwnerConfig) bool {
	if c.Threshold != other.Threshold {
		return false
	}

	return unorderedEquals(c.Owners, other.Owners)
}

// IsOwner reports whether addr is part of the owner set.
func (c OwnerConfig) IsOwner(addr common.Address) bool {
	return slices.Contains(c.Owners, addr)
}

// CanApprove reports whether the recovered signer addresses reach the
// approval threshold. Repeated signers count once; non-owners do not
// count.
func (c OwnerConfig) CanApprove(recovered []common.Address) bool {
	counted := make(map[common.Address]struct{}, len(recovered))
	for _, signer := range recovered {
		if !c.IsOwner(signer) {
			continue
		}
		counted[signer] = struct{}{}
	}

	return len(counted) >= int(c.Threshold)
}

// unorderedEquals checks if two slices hold the same elements regardless
// of order.
func unorderedEquals[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}

	counts := make(map[T]int, len(a))
	for _, elem := range a {
		counts[elem]++
	}

	for _, elem := range b {
		if counts[elem] == 0 {
			return false
		}
		counts[elem]--
	}

	return true
}
