package networks

import (
	"fmt"

	"github.com/obelisk-org/obelisk/types"
)

// UnknownNetworkError is returned when a chain id has no descriptor in the
// registry.
type UnknownNetworkError struct {
	ChainID types.ChainID
}

func NewUnknownNetworkError(chainID types.ChainID) *UnknownNetworkError {
	return &UnknownNetworkError{ChainID: chainID}
}

func (e *UnknownNetworkError) Error() string {
	return fmt.Sprintf("no network registered for chain id %d", e.ChainID)
}

// DuplicateNetworkError is returned when two descriptors carry the same
// chain id.
type DuplicateNetworkError struct {
	ChainID types.ChainID
}

func NewDuplicateNetworkError(chainID types.ChainID) *DuplicateNetworkError {
	return &DuplicateNetworkError{ChainID: chainID}
}

func (e *DuplicateNetworkError) Error() string {
	return fmt.Sprintf("duplicate network descriptor for chain id %d", e.ChainID)
}

// InvalidDescriptorError is returned when a descriptor fails validation.
type InvalidDescriptorError struct {
	ChainID types.ChainID
	Reason  string
}

func NewInvalidDescriptorError(chainID types.ChainID, reason string) *InvalidDescriptorError {
	return &InvalidDescriptorError{ChainID: chainID, Reason: reason}
}

func (e *InvalidDescriptorError) Error() string {
	return fmt.Sprintf("invalid network descriptor for chain id %d: %s", e.ChainID, e.Reason)
}
