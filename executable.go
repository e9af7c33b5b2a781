package obelisk

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"

	"github.com/obelisk-org/obelisk/networks"
	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

// DefaultGasHeadroomPercent is the share of a network's block gas limit
// reserved as safety margin when no explicit batch gas budget is set.
const DefaultGasHeadroomPercent = 20

// Executable drives a signed proposal to completion across all its chains.
// Chains execute concurrently and independently: one chain failing or
// stalling never aborts its siblings.
type Executable struct {
	proposal   *Proposal
	bundle     *DeploymentBundle
	executors  map[types.ChainID]sdk.Executor
	simulators map[types.ChainID]sdk.Simulator
	registry   *networks.Registry

	lggr        sdk.Logger
	maxParallel int
	gasBudgets  map[types.ChainID]uint64
}

// ExecutableOption configures an Executable.
type ExecutableOption func(*Executable)

// WithMaxParallel bounds how many chains execute concurrently. The default
// is no bound.
func WithMaxParallel(n int) ExecutableOption {
	return func(e *Executable) { e.maxParallel = n }
}

// WithGasBudget overrides the batch gas budget for one chain. Without an
// override the budget is the network's block gas limit reduced by
// DefaultGasHeadroomPercent.
func WithGasBudget(chainID types.ChainID, budget uint64) ExecutableOption {
	return func(e *Executable) { e.gasBudgets[chainID] = budget }
}

// WithLogger sets the logger used during execution.
func WithLogger(lggr sdk.Logger) ExecutableOption {
	return func(e *Executable) { e.lggr = lggr }
}

// NewExecutable creates a new Executable from a proposal and its per-chain
// executors and simulators. Missing executors, simulators, or gas budgets
// are reported here, before anything touches a chain.
func NewExecutable(
	proposal *Proposal,
	executors map[types.ChainID]sdk.Executor,
	simulators map[types.ChainID]sdk.Simulator,
	registry *networks.Registry,
	opts ...ExecutableOption,
) (*Executable, error) {
	bundle, err := proposal.Bundle()
	if err != nil {
		return nil, err
	}

	e := &Executable{
		proposal:   proposal,
		bundle:     bundle,
		executors:  executors,
		simulators: simulators,
		registry:   registry,
		lggr:       sdk.LoggerFrom(context.Background()),
		gasBudgets: make(map[types.ChainID]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, chainID := range bundle.ChainIDs() {
		if _, ok := e.executors[chainID]; !ok {
			return nil, NewExecutorNotFoundError(chainID)
		}
		if _, ok := e.simulators[chainID]; !ok {
			return nil, NewSimulatorNotFoundError(chainID)
		}
		if _, ok := e.gasBudgets[chainID]; ok {
			continue
		}
		if e.registry == nil {
			return nil, fmt.Errorf("no gas budget for chain %d and no network registry provided", chainID)
		}
		if _, err = e.registry.Get(chainID); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Execute drives every chain of the proposal to a terminal state and
// reports the per-chain outcomes.
//
// The returned error is reserved for pre-flight failures (an invalid
// proposal, divergent owner configs across chains) and context
// cancellation. Once chains start executing, failures are collected in
// the result instead so sibling chains always run to completion.
func (e *Executable) Execute(ctx context.Context) (*DeploymentResult, error) {
	if err := e.proposal.Validate(); err != nil {
		return nil, err
	}

	// Divergent owner configs make a shared signature set meaningless, so
	// the gate runs before any chain is touched.
	inspectors := make(map[types.ChainID]sdk.Inspector, len(e.executors))
	for chainID, executor := range e.executors {
		inspectors[chainID] = executor
	}
	signable, err := NewSignable(e.proposal, inspectors)
	if err != nil {
		return nil, err
	}
	if err = signable.ValidateConfigs(ctx); err != nil {
		return nil, err
	}

	sortedSignatures, err := e.proposal.SortedSignatures()
	if err != nil {
		return nil, err
	}

	budgets := make(map[types.ChainID]uint64, len(e.bundle.Chains))
	for _, chainID := range e.bundle.ChainIDs() {
		budget, berr := e.gasBudget(chainID)
		if berr != nil {
			return nil, berr
		}
		budgets[chainID] = budget
	}

	result := &DeploymentResult{
		ExecutionID: ksuid.New().String(),
		Root:        e.bundle.Root,
		Reports:     make(map[types.ChainID]*ChainReport, len(e.proposal.ChainActions)),
	}

	// Chains contributing no actions are skipped, not failed.
	for _, ca := range e.proposal.ChainActions {
		if len(ca.Actions) == 0 {
			e.lggr.Infof("chain %d: no actions, skipping", ca.ChainID)
			result.Reports[ca.ChainID] = &ChainReport{ChainID: ca.ChainID, Skipped: true}
		}
	}

	e.lggr.Infof("executing deployment %s across %d chains", e.bundle.Root, len(e.bundle.Chains))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if e.maxParallel > 0 {
		g.SetLimit(e.maxParallel)
	}

	for _, chainID := range e.bundle.ChainIDs() {
		run := &chainRun{
			chain:      e.bundle.Chains[chainID],
			metadata:   e.proposal.ChainMetadata[chainID],
			executor:   e.executors[chainID],
			simulator:  e.simulators[chainID],
			root:       e.bundle.Root,
			validUntil: e.proposal.ValidUntil,
			signatures: sortedSignatures,
			gasBudget:  budgets[chainID],
			lggr:       e.lggr,
		}

		g.Go(func() error {
			report := run.run(gctx)

			mu.Lock()
			result.Reports[report.ChainID] = report
			mu.Unlock()

			// Per-chain failures live in the report; returning them here
			// would cancel sibling chains.
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, err
	}

	return result, ctx.Err()
}

// gasBudget returns the batch gas budget for a chain: an explicit
// override, or the network block gas limit with the default headroom
// reserved.
func (e *Executable) gasBudget(chainID types.ChainID) (uint64, error) {
	if budget, ok := e.gasBudgets[chainID]; ok {
		return budget, nil
	}

	descriptor, err := e.registry.Get(chainID)
	if err != nil {
		return 0, err
	}

	return descriptor.BlockGasLimit * (100 - DefaultGasHeadroomPercent) / 100, nil
}

// DeploymentResult aggregates the per-chain outcomes of one execution run.
type DeploymentResult struct {
	// ExecutionID identifies this run in logs and reports; the deployment
	// itself is identified by Root.
	ExecutionID string `json:"executionId"`

	Root    common.Hash                    `json:"root"`
	Reports map[types.ChainID]*ChainReport `json:"reports"`
}

// Succeeded reports whether every non-skipped chain completed.
func (r *DeploymentResult) Succeeded() bool {
	for _, report := range r.Reports {
		if report.Skipped {
			continue
		}
		if report.Err != nil || report.Status != types.DeploymentStatusCompleted {
			return false
		}
	}

	return true
}

// FailedChains returns the chains that did not complete, in ascending
// order.
func (r *DeploymentResult) FailedChains() []types.ChainID {
	failed := make([]types.ChainID, 0)
	for chainID, report := range r.Reports {
		if report.Skipped {
			continue
		}
		if report.Err != nil || report.Status != types.DeploymentStatusCompleted {
			failed = append(failed, chainID)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i] < failed[j] })

	return failed
}
