package obelisk

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/types"
)

// ErrNoChainActions is returned when a bundle is built without a single
// chain contributing actions.
var ErrNoChainActions = errors.New("no chain actions provided")

// EmptyBundleError is returned when a chain is included as a target but
// contributes zero actions. Callers filter such chains out upstream.
type EmptyBundleError struct {
	ChainID types.ChainID
}

// NewEmptyBundleError creates a new EmptyBundleError.
func NewEmptyBundleError(chainID types.ChainID) *EmptyBundleError {
	return &EmptyBundleError{ChainID: chainID}
}

func (e *EmptyBundleError) Error() string {
	return fmt.Sprintf("chain %d contributes no actions to the bundle", e.ChainID)
}

// DuplicateChainError is returned when two chain action sets carry the same
// chain id.
type DuplicateChainError struct {
	ChainID types.ChainID
}

// NewDuplicateChainError creates a new DuplicateChainError.
func NewDuplicateChainError(chainID types.ChainID) *DuplicateChainError {
	return &DuplicateChainError{ChainID: chainID}
}

func (e *DuplicateChainError) Error() string {
	return fmt.Sprintf("duplicate chain %d in bundle", e.ChainID)
}

// ActionIndexError is returned when a chain's action indices are not dense
// and strictly increasing from 0.
type ActionIndexError struct {
	ChainID  types.ChainID
	Expected uint32
	Got      uint32
}

// NewActionIndexError creates a new ActionIndexError.
func NewActionIndexError(chainID types.ChainID, expected, got uint32) *ActionIndexError {
	return &ActionIndexError{ChainID: chainID, Expected: expected, Got: got}
}

func (e *ActionIndexError) Error() string {
	return fmt.Sprintf("invalid action index on chain %d: expected %d, got %d", e.ChainID, e.Expected, e.Got)
}

// StorageActionOrderError is returned when a deploy or call action follows a
// set-storage action in a chain's action list.
type StorageActionOrderError struct {
	ChainID types.ChainID
	Index   uint32
}

// NewStorageActionOrderError creates a new StorageActionOrderError.
func NewStorageActionOrderError(chainID types.ChainID, index uint32) *StorageActionOrderError {
	return &StorageActionOrderError{ChainID: chainID, Index: index}
}

func (e *StorageActionOrderError) Error() string {
	return fmt.Sprintf("invalid action order on chain %d: non-storage action at index %d follows a set-storage action", e.ChainID, e.Index)
}

// DuplicateLeafError is returned when two leaves of a bundle hash to the
// same value. Leaf identity is content-addressed, so this is a caller error,
// never silently deduplicated.
type DuplicateLeafError struct {
	Hash common.Hash
}

// NewDuplicateLeafError creates a new DuplicateLeafError.
func NewDuplicateLeafError(hash common.Hash) *DuplicateLeafError {
	return &DuplicateLeafError{Hash: hash}
}

func (e *DuplicateLeafError) Error() string {
	return fmt.Sprintf("duplicate leaf hash %s in bundle", e.Hash)
}

// EncoderNotFoundError is returned when an encoder is not provided for a
// chain in a bundle.
type EncoderNotFoundError struct {
	ChainID types.ChainID
}

// NewEncoderNotFoundError creates a new EncoderNotFoundError.
func NewEncoderNotFoundError(chainID types.ChainID) *EncoderNotFoundError {
	return &EncoderNotFoundError{ChainID: chainID}
}

func (e *EncoderNotFoundError) Error() string {
	return fmt.Sprintf("encoder not provided for chain %d", e.ChainID)
}

// ChainMetadataNotFoundError is returned when the chain metadata for a chain
// is not found in a proposal.
type ChainMetadataNotFoundError struct {
	ChainID types.ChainID
}

// NewChainMetadataNotFoundError creates a new ChainMetadataNotFoundError.
func NewChainMetadataNotFoundError(chainID types.ChainID) *ChainMetadataNotFoundError {
	return &ChainMetadataNotFoundError{ChainID: chainID}
}

func (e *ChainMetadataNotFoundError) Error() string {
	return fmt.Sprintf("missing metadata for chain %d", e.ChainID)
}

// ExecutorNotFoundError is returned when an executor is not provided for a
// chain targeted by a deployment.
type ExecutorNotFoundError struct {
	ChainID types.ChainID
}

// NewExecutorNotFoundError creates a new ExecutorNotFoundError.
func NewExecutorNotFoundError(chainID types.ChainID) *ExecutorNotFoundError {
	return &ExecutorNotFoundError{ChainID: chainID}
}

func (e *ExecutorNotFoundError) Error() string {
	return fmt.Sprintf("executor not provided for chain %d", e.ChainID)
}

// SimulatorNotFoundError is returned when a simulator is not provided for a
// chain targeted by a deployment.
type SimulatorNotFoundError struct {
	ChainID types.ChainID
}

// NewSimulatorNotFoundError creates a new SimulatorNotFoundError.
func NewSimulatorNotFoundError(chainID types.ChainID) *SimulatorNotFoundError {
	return &SimulatorNotFoundError{ChainID: chainID}
}

func (e *SimulatorNotFoundError) Error() string {
	return fmt.Sprintf("simulator not provided for chain %d", e.ChainID)
}

// ActionExceedsGasBudgetError is returned when a single action's simulated
// gas exceeds the batch gas budget, so no batch containing it can fit.
type ActionExceedsGasBudgetError struct {
	ChainID      types.ChainID
	Index        uint32
	EstimatedGas uint64
	GasBudget    uint64
}

// NewActionExceedsGasBudgetError creates a new ActionExceedsGasBudgetError.
func NewActionExceedsGasBudgetError(chainID types.ChainID, index uint32, estimatedGas, gasBudget uint64) *ActionExceedsGasBudgetError {
	return &ActionExceedsGasBudgetError{
		ChainID:      chainID,
		Index:        index,
		EstimatedGas: estimatedGas,
		GasBudget:    gasBudget,
	}
}

func (e *ActionExceedsGasBudgetError) Error() string {
	return fmt.Sprintf(
		"action %d on chain %d exceeds the gas budget: estimated %d, budget %d",
		e.Index, e.ChainID, e.EstimatedGas, e.GasBudget,
	)
}

// ConflictingActiveDeploymentError is returned when a chain's manager is
// already executing a different, incomplete deployment. Non-retryable
// without explicit cancellation.
type ConflictingActiveDeploymentError struct {
	ChainID types.ChainID
	Active  common.Hash
}

// NewConflictingActiveDeploymentError creates a new ConflictingActiveDeploymentError.
func NewConflictingActiveDeploymentError(chainID types.ChainID, active common.Hash) *ConflictingActiveDeploymentError {
	return &ConflictingActiveDeploymentError{ChainID: chainID, Active: active}
}

func (e *ConflictingActiveDeploymentError) Error() string {
	return fmt.Sprintf("chain %d already has an active deployment %s", e.ChainID, e.Active)
}

// InconsistentCrossChainConfigError is returned when per-chain configuration
// expected to be identical across chains (owner set, threshold, manager
// address) diverges between two chains.
type InconsistentCrossChainConfigError struct {
	ChainA types.ChainID
	ChainB types.ChainID
}

// NewInconsistentCrossChainConfigError creates a new InconsistentCrossChainConfigError.
func NewInconsistentCrossChainConfigError(chainA, chainB types.ChainID) *InconsistentCrossChainConfigError {
	return &InconsistentCrossChainConfigError{ChainA: chainA, ChainB: chainB}
}

func (e *InconsistentCrossChainConfigError) Error() string {
	return fmt.Sprintf("inconsistent cross-chain config for chains %d and %d", e.ChainA, e.ChainB)
}

// QuorumNotReachedError is returned when the proposal's signatures do not
// reach the approval threshold configured on a chain's manager.
type QuorumNotReachedError struct {
	ChainID types.ChainID
}

// NewQuorumNotReachedError creates a new QuorumNotReachedError.
func NewQuorumNotReachedError(chainID types.ChainID) *QuorumNotReachedError {
	return &QuorumNotReachedError{ChainID: chainID}
}

func (e *QuorumNotReachedError) Error() string {
	return fmt.Sprintf("quorum not reached for chain %d", e.ChainID)
}

// InvalidSignatureError is returned when a proposal signature recovers to an
// address that is not an owner.
type InvalidSignatureError struct {
	RecoveredAddress common.Address
}

// NewInvalidSignatureError creates a new InvalidSignatureError.
func NewInvalidSignatureError(recoveredAddress common.Address) *InvalidSignatureError {
	return &InvalidSignatureError{RecoveredAddress: recoveredAddress}
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature: recovered signer %s is not an owner", e.RecoveredAddress)
}

// InvalidValidUntilError is returned when a proposal's validity window has
// already passed.
type InvalidValidUntilError struct {
	ReceivedValidUntil uint32
}

// NewInvalidValidUntilError creates a new InvalidValidUntilError.
func NewInvalidValidUntilError(receivedValidUntil uint32) *InvalidValidUntilError {
	return &InvalidValidUntilError{ReceivedValidUntil: receivedValidUntil}
}

func (e *InvalidValidUntilError) Error() string {
	return fmt.Sprintf("invalid valid until: %v", e.ReceivedValidUntil)
}

// InvalidDeploymentStateError is returned when a manager reports a state
// snapshot that contradicts the bundle, e.g. a phase status whose action
// counter is already past the phase boundary.
type InvalidDeploymentStateError struct {
	ChainID         types.ChainID
	Status          types.DeploymentStatus
	ActionsExecuted uint64
}

// NewInvalidDeploymentStateError creates a new InvalidDeploymentStateError.
func NewInvalidDeploymentStateError(chainID types.ChainID, status types.DeploymentStatus, actionsExecuted uint64) *InvalidDeploymentStateError {
	return &InvalidDeploymentStateError{ChainID: chainID, Status: status, ActionsExecuted: actionsExecuted}
}

func (e *InvalidDeploymentStateError) Error() string {
	return fmt.Sprintf(
		"chain %d reported an inconsistent deployment state: status %s with %d actions executed",
		e.ChainID, e.Status, e.ActionsExecuted,
	)
}

// DeploymentStalledError is returned when the per-chain state machine stops
// making progress: repeated polls return the same state even though steps
// are being submitted.
type DeploymentStalledError struct {
	ChainID types.ChainID
	Status  types.DeploymentStatus
}

// NewDeploymentStalledError creates a new DeploymentStalledError.
func NewDeploymentStalledError(chainID types.ChainID, status types.DeploymentStatus) *DeploymentStalledError {
	return &DeploymentStalledError{ChainID: chainID, Status: status}
}

func (e *DeploymentStalledError) Error() string {
	return fmt.Sprintf("deployment stalled on chain %d: state did not advance past %s", e.ChainID, e.Status)
}
