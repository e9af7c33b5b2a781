package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DeploymentStatus is the phase a deployment has reached on one chain, as
// reported by the manager contract. The numeric values mirror the on-chain
// enum and must not be reordered.
type DeploymentStatus uint8

const (
	DeploymentStatusEmpty DeploymentStatus = iota
	DeploymentStatusApproved
	DeploymentStatusInitialActionsExecuted
	DeploymentStatusProxiesInitiated
	DeploymentStatusSetStorageActionsExecuted
	DeploymentStatusCompleted
	DeploymentStatusCancelled
	DeploymentStatusFailed
)

var deploymentStatusNames = map[DeploymentStatus]string{
	DeploymentStatusEmpty:                     "EMPTY",
	DeploymentStatusApproved:                  "APPROVED",
	DeploymentStatusInitialActionsExecuted:    "INITIAL_ACTIONS_EXECUTED",
	DeploymentStatusProxiesInitiated:          "PROXIES_INITIATED",
	DeploymentStatusSetStorageActionsExecuted: "SET_STORAGE_ACTIONS_EXECUTED",
	DeploymentStatusCompleted:                 "COMPLETED",
	DeploymentStatusCancelled:                 "CANCELLED",
	DeploymentStatusFailed:                    "FAILED",
}

var deploymentStatusValues = map[string]DeploymentStatus{
	"EMPTY":                        DeploymentStatusEmpty,
	"APPROVED":                     DeploymentStatusApproved,
	"INITIAL_ACTIONS_EXECUTED":     DeploymentStatusInitialActionsExecuted,
	"PROXIES_INITIATED":            DeploymentStatusProxiesInitiated,
	"SET_STORAGE_ACTIONS_EXECUTED": DeploymentStatusSetStorageActionsExecuted,
	"COMPLETED":                    DeploymentStatusCompleted,
	"CANCELLED":                    DeploymentStatusCancelled,
	"FAILED":                       DeploymentStatusFailed,
}

// String returns the wire name of the status.
func (s DeploymentStatus) String() string {
	if name, ok := deploymentStatusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s DeploymentStatus) MarshalText() ([]byte, error) {
	name, ok := deploymentStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown deployment status: %d", uint8(s))
	}

	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DeploymentStatus) UnmarshalText(text []byte) error {
	val, ok := deploymentStatusValues[string(text)]
	if !ok {
		return fmt.Errorf("unknown deployment status: %q", string(text))
	}

	*s = val

	return nil
}

// Terminal reports whether the status is absorbing: no further transitions
// are possible once it is observed.
func (s DeploymentStatus) Terminal() bool {
	switch s {
	case DeploymentStatusCompleted, DeploymentStatusCancelled, DeploymentStatusFailed:
		return true
	}

	return false
}

// DeploymentState is a snapshot of one chain's manager contract. The
// on-chain copy is authoritative; holders must re-fetch before every
// decision rather than act on a cached value.
type DeploymentState struct {
	Status DeploymentStatus `json:"status"`

	// ActionsExecuted counts the action leaves already applied, in index
	// order across both execution phases. It only increases.
	ActionsExecuted uint64 `json:"actionsExecuted"`

	// ActiveDeploymentID is the root of the bundle currently in progress,
	// or the zero hash when none is active.
	ActiveDeploymentID common.Hash `json:"activeDeploymentId"`
}

// ExecutionPhase selects which batched entry point of the manager contract
// an action batch targets.
type ExecutionPhase uint8

const (
	// PhaseInitial covers deploy and call actions, executed between
	// approval and the proxy upgrade.
	PhaseInitial ExecutionPhase = iota

	// PhaseSetStorage covers set-storage actions, executed inside the
	// upgrade window.
	PhaseSetStorage
)

// String returns the wire name of the phase.
func (p ExecutionPhase) String() string {
	switch p {
	case PhaseInitial:
		return "INITIAL"
	case PhaseSetStorage:
		return "SET_STORAGE"
	}

	return fmt.Sprintf("UNKNOWN(%d)", uint8(p))
}
