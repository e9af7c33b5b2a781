package obelisk

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/internal/utils/safecast"
	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

// step is the next transition the per-chain state machine selects.
type step uint8

const (
	stepCancelActive step = iota
	stepApprove
	stepExecuteInitial
	stepInitiateUpgrade
	stepExecuteSetStorage
	stepFinalizeUpgrade
	stepDone
	stepFailed
	stepCancelled
)

func (s step) String() string {
	switch s {
	case stepCancelActive:
		return "CANCEL_ACTIVE"
	case stepApprove:
		return "APPROVE"
	case stepExecuteInitial:
		return "EXECUTE_INITIAL"
	case stepInitiateUpgrade:
		return "INITIATE_UPGRADE"
	case stepExecuteSetStorage:
		return "EXECUTE_SET_STORAGE"
	case stepFinalizeUpgrade:
		return "FINALIZE_UPGRADE"
	case stepDone:
		return "DONE"
	case stepFailed:
		return "FAILED"
	case stepCancelled:
		return "CANCELLED"
	}

	return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
}

// decide maps an on-chain state snapshot to the next step for this bundle.
//
// It is pure: all inputs are values and the snapshot is re-fetched by the
// caller before every call, so no decision ever rests on cached state. A
// terminal status belonging to a different deployment frees the slate; an
// in-flight status belonging to a different deployment conflicts, unless
// this bundle carries a CANCEL leaf for exactly that deployment.
func decide(state types.DeploymentState, chain *ChainBundle, root common.Hash) (step, error) {
	ours := state.ActiveDeploymentID == root

	if state.Status.Terminal() {
		if !ours {
			return stepApprove, nil
		}

		switch state.Status {
		case types.DeploymentStatusCompleted:
			return stepDone, nil
		case types.DeploymentStatusFailed:
			return stepFailed, nil
		default:
			return stepCancelled, nil
		}
	}

	if state.Status == types.DeploymentStatusEmpty {
		return stepApprove, nil
	}

	if !ours {
		if chain.CancelDeploymentID != nil && *chain.CancelDeploymentID == state.ActiveDeploymentID {
			return stepCancelActive, nil
		}

		return 0, NewConflictingActiveDeploymentError(chain.ChainID, state.ActiveDeploymentID)
	}

	switch state.Status {
	case types.DeploymentStatusApproved:
		if state.ActionsExecuted < chain.NumInitialActions() {
			return stepExecuteInitial, nil
		}

		// A storage-only bundle may leave the status here after approval
		// rather than at INITIAL_ACTIONS_EXECUTED; either way the upgrade
		// window opens next.
		if chain.NumInitialActions() == 0 {
			return stepInitiateUpgrade, nil
		}

	case types.DeploymentStatusInitialActionsExecuted:
		if chain.NumSetStorageActions() > 0 {
			return stepInitiateUpgrade, nil
		}

		// No storage phase; the upgrade window is skipped entirely.
		return stepFinalizeUpgrade, nil

	case types.DeploymentStatusProxiesInitiated:
		if state.ActionsExecuted < chain.NumActions() {
			return stepExecuteSetStorage, nil
		}

	case types.DeploymentStatusSetStorageActionsExecuted:
		return stepFinalizeUpgrade, nil
	}

	return 0, NewInvalidDeploymentStateError(chain.ChainID, state.Status, state.ActionsExecuted)
}

// FailureInfo identifies the first failing action of a failed chain.
type FailureInfo struct {
	Index       uint32               `json:"index"`
	Phase       types.ExecutionPhase `json:"phase"`
	Description string               `json:"description"`
}

// ChainReport is the outcome of driving one chain.
type ChainReport struct {
	ChainID         types.ChainID          `json:"chainId"`
	Status          types.DeploymentStatus `json:"status"`
	ActionsExecuted uint64                 `json:"actionsExecuted"`

	// Batches records the size of every action batch submitted this run.
	Batches []int `json:"batches,omitempty"`

	// TxHashes records every transaction submitted this run, in order.
	TxHashes []string `json:"txHashes,omitempty"`

	// FailedAction identifies the action that moved the chain to FAILED.
	FailedAction *FailureInfo `json:"failedAction,omitempty"`

	// Skipped marks chains with no actions; they are never touched.
	Skipped bool `json:"skipped,omitempty"`

	// Err is the error that stopped this chain early, nil when the chain
	// reached a terminal status cleanly.
	Err error `json:"-"`
}

// chainRun carries everything one chain's state machine needs. It is
// assembled once per execution and never shared across goroutines.
type chainRun struct {
	chain      *ChainBundle
	metadata   types.ChainMetadata
	executor   sdk.Executor
	simulator  sdk.Simulator
	root       common.Hash
	validUntil uint32
	signatures []types.Signature
	gasBudget  uint64
	lggr       sdk.Logger
}

// run drives the chain's state machine to a terminal state. Every
// iteration re-reads on-chain state before deciding, so a crash-and-retry
// resumes exactly where the chain left off and never re-submits an action
// the manager already counted.
func (r *chainRun) run(ctx context.Context) *ChainReport {
	report := &ChainReport{ChainID: r.chain.ChainID}

	// Every action advances the on-chain counter at most once and every
	// other step advances the status, so a healthy chain terminates well
	// within this bound.
	maxSteps := int(r.chain.NumActions())*2 + 8

	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			report.Err = err
			return report
		}

		state, err := r.executor.GetDeploymentState(ctx, r.metadata.Manager)
		if err != nil {
			report.Err = fmt.Errorf("chain %d: fetch deployment state: %w", r.chain.ChainID, err)
			return report
		}

		report.Status = state.Status
		report.ActionsExecuted = state.ActionsExecuted

		if i >= maxSteps {
			report.Err = NewDeploymentStalledError(r.chain.ChainID, state.Status)
			return report
		}

		next, err := decide(state, r.chain, r.root)
		if err != nil {
			report.Err = err
			return report
		}

		r.lggr.Debugf("chain %d: status %s, %d actions executed, next step %s",
			r.chain.ChainID, state.Status, state.ActionsExecuted, next)

		switch next {
		case stepDone:
			r.lggr.Infof("chain %d: deployment %s completed", r.chain.ChainID, r.root)
			return report
		case stepCancelled:
			r.lggr.Infof("chain %d: deployment %s is cancelled", r.chain.ChainID, r.root)
			return report
		case stepFailed:
			report.FailedAction = r.failureInfo(state.ActionsExecuted)
			return report
		default:
		}

		if err := r.perform(ctx, next, state, report); err != nil {
			report.Err = err
			return report
		}
	}
}

// perform executes a single step and waits for its transactions to
// confirm.
func (r *chainRun) perform(ctx context.Context, next step, state types.DeploymentState, report *ChainReport) error {
	switch next {
	case stepCancelActive:
		return r.cancelActive(ctx, report)
	case stepApprove:
		return r.approve(ctx, report)
	case stepExecuteInitial:
		return r.executeBatch(ctx, types.PhaseInitial, state, report)
	case stepInitiateUpgrade:
		r.lggr.Infof("chain %d: initiating proxy upgrade", r.chain.ChainID)
		result, err := r.executor.InitiateUpgrade(ctx, r.metadata, *r.chain.Upgrade)
		if rerr := r.record(report, result, err); rerr != nil {
			return fmt.Errorf("chain %d: initiate upgrade: %w", r.chain.ChainID, rerr)
		}

		return nil
	case stepExecuteSetStorage:
		return r.executeBatch(ctx, types.PhaseSetStorage, state, report)
	case stepFinalizeUpgrade:
		r.lggr.Infof("chain %d: finalizing upgrade", r.chain.ChainID)
		result, err := r.executor.FinalizeUpgrade(ctx, r.metadata)
		if rerr := r.record(report, result, err); rerr != nil {
			return fmt.Errorf("chain %d: finalize upgrade: %w", r.chain.ChainID, rerr)
		}

		return nil
	}

	return fmt.Errorf("chain %d: unexpected step %s", r.chain.ChainID, next)
}

// approve bootstraps the manager when a SETUP leaf is present, then
// submits the bundle root with the owner signatures.
func (r *chainRun) approve(ctx context.Context, report *ChainReport) error {
	if r.chain.Setup != nil {
		r.lggr.Infof("chain %d: bootstrapping manager owner set", r.chain.ChainID)
		result, err := r.executor.Setup(ctx, r.metadata, *r.chain.Setup)
		if rerr := r.record(report, result, err); rerr != nil {
			return fmt.Errorf("chain %d: setup: %w", r.chain.ChainID, rerr)
		}
	}

	r.lggr.Infof("chain %d: approving deployment %s", r.chain.ChainID, r.root)
	result, err := r.executor.Approve(ctx, r.metadata, r.root, r.validUntil, r.chain.Approve, r.signatures)
	if rerr := r.record(report, result, err); rerr != nil {
		return fmt.Errorf("chain %d: approve: %w", r.chain.ChainID, rerr)
	}

	return nil
}

// cancelActive submits the CANCEL leaf aborting the conflicting active
// deployment, freeing the slate for this bundle's approval.
func (r *chainRun) cancelActive(ctx context.Context, report *ChainReport) error {
	r.lggr.Infof("chain %d: cancelling active deployment %s", r.chain.ChainID, *r.chain.CancelDeploymentID)
	result, err := r.executor.Cancel(ctx, r.metadata, r.root, r.validUntil, *r.chain.Cancel, r.signatures)
	if rerr := r.record(report, result, err); rerr != nil {
		return fmt.Errorf("chain %d: cancel: %w", r.chain.ChainID, rerr)
	}

	return nil
}

// executeBatch submits one gas-bounded batch of the phase's remaining
// actions. The on-chain counter decides where the batch starts, so
// already-applied actions are never re-submitted.
func (r *chainRun) executeBatch(ctx context.Context, phase types.ExecutionPhase, state types.DeploymentState, report *ChainReport) error {
	executed := state.ActionsExecuted
	if phase == types.PhaseSetStorage {
		executed -= r.chain.NumInitialActions()
	}
	remaining := r.chain.ActionLeaves(phase)[executed:]

	// One consistent snapshot per batch search.
	if err := r.simulator.PinBlock(ctx); err != nil {
		return fmt.Errorf("chain %d: pin block: %w", r.chain.ChainID, err)
	}

	estimate := func(ctx context.Context, batch []types.LeafWithProof) (uint64, error) {
		return r.simulator.EstimateActions(ctx, r.metadata, phase, batch)
	}

	size, err := FindMaxBatch(ctx, remaining, r.gasBudget, estimate)
	if err != nil {
		return fmt.Errorf("chain %d: size %s batch: %w", r.chain.ChainID, phase, err)
	}

	batch := remaining[:size]
	r.lggr.Infof("chain %d: executing %s batch of %d, starting at action %d",
		r.chain.ChainID, phase, size, batch[0].Index)

	result, err := r.executor.ExecuteActions(ctx, r.metadata, phase, batch)
	if rerr := r.record(report, result, err); rerr != nil {
		return fmt.Errorf("chain %d: execute %s batch: %w", r.chain.ChainID, phase, rerr)
	}

	report.Batches = append(report.Batches, size)

	return nil
}

// record appends the transaction to the report. Reverted transactions
// still carry a hash and gas usage, so they are recorded before the error
// is passed back.
func (r *chainRun) record(report *ChainReport, result types.TransactionResult, err error) error {
	if result.Hash != "" {
		report.TxHashes = append(report.TxHashes, result.Hash)
	}

	return err
}

// failureInfo resolves the failing action from the on-chain counter: the
// first action the manager did not count is the one that reverted.
func (r *chainRun) failureInfo(actionsExecuted uint64) *FailureInfo {
	info := &FailureInfo{Phase: types.PhaseInitial}
	if actionsExecuted >= r.chain.NumInitialActions() {
		info.Phase = types.PhaseSetStorage
	}

	index, err := safecast.Uint64ToUint32(actionsExecuted)
	if err != nil {
		info.Description = fmt.Sprintf("action counter out of range: %d", actionsExecuted)
		return info
	}
	info.Index = index

	if actionsExecuted < uint64(len(r.chain.Actions)) {
		info.Description = r.chain.Actions[actionsExecuted].Describe()
	}

	return info
}
