package obelisk

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obelisk-org/obelisk/networks"
	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

// chainFixture bundles a fake chain with its executor and simulator.
type chainFixture struct {
	chain     *fakeChain
	executor  *fakeExecutor
	simulator *fakeSimulator
}

func newChainFixture(numInitial, numStorage uint64) *chainFixture {
	chain := newFakeChain(numInitial, numStorage)
	chain.config = &types.OwnerConfig{Owners: []common.Address{testAddr(0xa1)}, Threshold: 1}

	return &chainFixture{
		chain:     chain,
		executor:  newFakeExecutor(chain),
		simulator: newFakeSimulator(21_000, 100_000),
	}
}

type executableFixture struct {
	proposal   *Proposal
	executors  map[types.ChainID]sdk.Executor
	simulators map[types.ChainID]sdk.Simulator
	chains     map[types.ChainID]*chainFixture
}

// newExecutableFixture wires one fixture per chain action set, sized to
// match.
func newExecutableFixture(chainActions ...ChainActions) *executableFixture {
	f := &executableFixture{
		proposal: &Proposal{
			Version:       ProposalVersion,
			Name:          "test-deployment",
			ValidUntil:    futureValidUntil,
			ChainMetadata: make(map[types.ChainID]types.ChainMetadata),
		},
		executors:  make(map[types.ChainID]sdk.Executor),
		simulators: make(map[types.ChainID]sdk.Simulator),
		chains:     make(map[types.ChainID]*chainFixture),
	}

	for _, ca := range chainActions {
		f.proposal.ChainMetadata[ca.ChainID] = types.ChainMetadata{Manager: testAddr(0x11)}
		f.proposal.ChainActions = append(f.proposal.ChainActions, ca)

		fixture := newChainFixture(ca.NumInitialActions(), ca.NumSetStorageActions())
		f.chains[ca.ChainID] = fixture
		f.executors[ca.ChainID] = fixture.executor
		f.simulators[ca.ChainID] = fixture.simulator
	}

	return f
}

// executable builds the Executable with a generous per-chain gas budget
// unless overridden by opts.
func (f *executableFixture) executable(t *testing.T, opts ...ExecutableOption) *Executable {
	t.Helper()

	withBudgets := make([]ExecutableOption, 0, len(f.chains)+len(opts))
	for chainID := range f.chains {
		withBudgets = append(withBudgets, WithGasBudget(chainID, 10_000_000))
	}
	withBudgets = append(withBudgets, opts...)

	executable, err := NewExecutable(f.proposal, f.executors, f.simulators, nil, withBudgets...)
	require.NoError(t, err)

	return executable
}

func TestNewExecutable(t *testing.T) {
	t.Parallel()

	t.Run("missing executor", func(t *testing.T) {
		t.Parallel()

		f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(1, 0)})

		_, err := NewExecutable(f.proposal, nil, f.simulators, nil)
		require.EqualError(t, err, "executor not provided for chain 1")
	})

	t.Run("missing simulator", func(t *testing.T) {
		t.Parallel()

		f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(1, 0)})

		_, err := NewExecutable(f.proposal, f.executors, nil, nil)
		require.EqualError(t, err, "simulator not provided for chain 1")
	})

	t.Run("no gas budget and no registry", func(t *testing.T) {
		t.Parallel()

		f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(1, 0)})

		_, err := NewExecutable(f.proposal, f.executors, f.simulators, nil)
		require.EqualError(t, err, "no gas budget for chain 1 and no network registry provided")
	})

	t.Run("chain missing from registry", func(t *testing.T) {
		t.Parallel()

		f := newExecutableFixture(ChainActions{ChainID: 42, Actions: testActions(1, 0)})

		registry, err := networks.NewRegistry([]networks.NetworkDescriptor{
			{ChainID: 1, BlockGasLimit: 30_000_000},
		})
		require.NoError(t, err)

		_, err = NewExecutable(f.proposal, f.executors, f.simulators, registry)
		require.EqualError(t, err, "no network registered for chain id 42")
	})

	t.Run("proposal without executable actions", func(t *testing.T) {
		t.Parallel()

		f := newExecutableFixture(ChainActions{ChainID: 1})

		_, err := NewExecutable(f.proposal, f.executors, f.simulators, nil)
		require.ErrorIs(t, err, ErrNoChainActions)
	})
}

func TestExecutable_Execute(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(
		ChainActions{ChainID: 1, Actions: testActions(3, 2)},
		ChainActions{ChainID: 2, Actions: testActions(2, 0)},
	)

	result, err := f.executable(t).Execute(t.Context())
	require.NoError(t, err)

	assert.NotEmpty(t, result.ExecutionID)
	assert.True(t, result.Succeeded())
	assert.Empty(t, result.FailedChains())

	bundle, err := f.proposal.Bundle()
	require.NoError(t, err)
	assert.Equal(t, bundle.Root, result.Root)

	report1 := result.Reports[1]
	require.NotNil(t, report1)
	require.NoError(t, report1.Err)
	assert.Equal(t, types.DeploymentStatusCompleted, report1.Status)
	assert.Equal(t, uint64(5), report1.ActionsExecuted)
	assert.NotEmpty(t, report1.TxHashes)

	// Chain 1 runs the full lifecycle, chain 2 has no storage phase.
	chain1 := f.chains[1].chain
	assert.Equal(t, 1, chain1.approvals)
	assert.Equal(t, 1, chain1.initiates)
	assert.Equal(t, 1, chain1.finalizes)
	assert.Equal(t, [][]uint32{{0, 1, 2}, {3, 4}}, chain1.batches)

	chain2 := f.chains[2].chain
	assert.Equal(t, 1, chain2.approvals)
	assert.Equal(t, 0, chain2.initiates)
	assert.Equal(t, 1, chain2.finalizes)
	assert.Equal(t, [][]uint32{{0, 1}}, chain2.batches)
	assert.Equal(t, types.DeploymentStatusCompleted, f.chains[2].chain.snapshot().Status)
}

func TestExecutable_Execute_StorageOnlyChain(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(0, 2)})

	result, err := f.executable(t).Execute(t.Context())
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	chain := f.chains[1].chain
	assert.Equal(t, 1, chain.approvals)
	assert.Equal(t, 1, chain.initiates)
	assert.Equal(t, 1, chain.finalizes)
	assert.Equal(t, [][]uint32{{0, 1}}, chain.batches)
}

func TestExecutable_Execute_SplitsBatchesByGasBudget(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(5, 0)})

	// 21k base + 100k per action: three actions cost exactly 321k, four
	// cost 421k.
	result, err := f.executable(t, WithGasBudget(1, 321_000)).Execute(t.Context())
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	assert.Equal(t, [][]uint32{{0, 1, 2}, {3, 4}}, f.chains[1].chain.batches)
	assert.Equal(t, []int{3, 2}, result.Reports[1].Batches)

	// One pinned snapshot per batch search.
	assert.Equal(t, 2, f.chains[1].simulator.pins)
}

func TestExecutable_Execute_FailedAction(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(4, 0)})
	f.chains[1].chain.failAt[2] = true

	result, err := f.executable(t).Execute(t.Context())
	require.NoError(t, err)

	assert.False(t, result.Succeeded())
	assert.Equal(t, []types.ChainID{1}, result.FailedChains())

	report := result.Reports[1]
	require.NoError(t, report.Err)
	assert.Equal(t, types.DeploymentStatusFailed, report.Status)
	assert.Equal(t, uint64(2), report.ActionsExecuted)

	require.NotNil(t, report.FailedAction)
	assert.Equal(t, uint32(2), report.FailedAction.Index)
	assert.Equal(t, types.PhaseInitial, report.FailedAction.Phase)
	assert.NotEmpty(t, report.FailedAction.Description)

	// Nothing past the failing action was applied.
	assert.Equal(t, uint64(2), f.chains[1].chain.snapshot().ActionsExecuted)
}

func TestExecutable_Execute_SkipsChainsWithoutActions(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(1, 0)})

	// Target an extra chain with no actions; it needs metadata but no
	// executor, and must come back marked skipped.
	f.proposal.ChainMetadata[7] = types.ChainMetadata{Manager: testAddr(0x11)}
	f.proposal.ChainActions = append(f.proposal.ChainActions, ChainActions{ChainID: 7})

	result, err := f.executable(t).Execute(t.Context())
	require.NoError(t, err)

	require.NotNil(t, result.Reports[7])
	assert.True(t, result.Reports[7].Skipped)
	assert.True(t, result.Succeeded())
}

func TestExecutable_Execute_InconsistentConfigsAbort(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(
		ChainActions{ChainID: 1, Actions: testActions(1, 0)},
		ChainActions{ChainID: 2, Actions: testActions(1, 0)},
	)
	f.chains[2].chain.config = &types.OwnerConfig{Owners: []common.Address{testAddr(0xb2)}, Threshold: 1}

	_, err := f.executable(t).Execute(t.Context())

	var configErr *InconsistentCrossChainConfigError
	require.ErrorAs(t, err, &configErr)

	// Nothing was submitted anywhere.
	assert.Equal(t, 0, f.chains[1].chain.approvals)
	assert.Equal(t, 0, f.chains[2].chain.approvals)
}

func TestExecutable_Execute_ResumesFromCounter(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(4, 1)})

	bundle, err := f.proposal.Bundle()
	require.NoError(t, err)

	// The previous run approved and executed two actions before dying.
	f.chains[1].chain.state = types.DeploymentState{
		Status:             types.DeploymentStatusApproved,
		ActionsExecuted:    2,
		ActiveDeploymentID: bundle.Root,
	}

	result, err := f.executable(t).Execute(t.Context())
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	chain := f.chains[1].chain
	assert.Equal(t, 0, chain.approvals, "an active deployment must not be re-approved")
	assert.Equal(t, [][]uint32{{2, 3}, {4}}, chain.batches, "executed actions must not be re-submitted")
	assert.Equal(t, uint64(5), result.Reports[1].ActionsExecuted)
}

func TestExecutable_Execute_ConflictingActiveDeployment(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(2, 0)})

	otherRoot := common.HexToHash("0x0b")
	f.chains[1].chain.state = types.DeploymentState{
		Status:             types.DeploymentStatusApproved,
		ActionsExecuted:    1,
		ActiveDeploymentID: otherRoot,
	}

	result, err := f.executable(t).Execute(t.Context())
	require.NoError(t, err, "per-chain conflicts do not abort the run")

	report := result.Reports[1]
	var conflictErr *ConflictingActiveDeploymentError
	require.ErrorAs(t, report.Err, &conflictErr)
	assert.Equal(t, otherRoot, conflictErr.Active)
	assert.False(t, result.Succeeded())
	assert.Equal(t, 0, f.chains[1].chain.approvals)
}

func TestExecutable_Execute_CancelsMatchingActiveDeployment(t *testing.T) {
	t.Parallel()

	otherRoot := common.HexToHash("0x0b")
	f := newExecutableFixture(ChainActions{
		ChainID:            1,
		Actions:            testActions(2, 0),
		CancelDeploymentID: &otherRoot,
	})

	f.chains[1].chain.state = types.DeploymentState{
		Status:             types.DeploymentStatusApproved,
		ActionsExecuted:    1,
		ActiveDeploymentID: otherRoot,
	}

	result, err := f.executable(t).Execute(t.Context())
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	chain := f.chains[1].chain
	assert.Equal(t, 1, chain.cancels, "the conflicting deployment is cancelled first")
	assert.Equal(t, 1, chain.approvals)
	assert.Equal(t, [][]uint32{{0, 1}}, chain.batches)
	assert.Equal(t, types.DeploymentStatusCompleted, chain.snapshot().Status)
}

func TestExecutable_Execute_StalledChain(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(2, 0)})
	f.chains[1].executor.noProgress = true

	result, err := f.executable(t).Execute(t.Context())
	require.NoError(t, err)

	report := result.Reports[1]
	require.EqualError(t, report.Err, "deployment stalled on chain 1: state did not advance past APPROVED")
	assert.False(t, result.Succeeded())
}

func TestExecutable_Execute_InvalidProposal(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(1, 0)})
	executable := f.executable(t)

	f.proposal.Name = ""

	_, err := executable.Execute(t.Context())
	require.ErrorContains(t, err, "Name")
}

// gaugedSimulator tracks how many chains estimate concurrently.
type gaugedSimulator struct {
	*fakeSimulator
	active *atomic.Int32
	peak   *atomic.Int32
}

func (s *gaugedSimulator) EstimateActions(ctx context.Context, metadata types.ChainMetadata, phase types.ExecutionPhase, batch []types.LeafWithProof) (uint64, error) {
	cur := s.active.Add(1)
	defer s.active.Add(-1)

	for {
		peak := s.peak.Load()
		if cur <= peak || s.peak.CompareAndSwap(peak, cur) {
			break
		}
	}

	time.Sleep(2 * time.Millisecond)

	return s.fakeSimulator.EstimateActions(ctx, metadata, phase, batch)
}

func TestExecutable_Execute_MaxParallel(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(
		ChainActions{ChainID: 1, Actions: testActions(2, 0)},
		ChainActions{ChainID: 2, Actions: testActions(2, 0)},
		ChainActions{ChainID: 3, Actions: testActions(2, 0)},
	)

	var active, peak atomic.Int32
	for chainID, fixture := range f.chains {
		f.simulators[chainID] = &gaugedSimulator{
			fakeSimulator: fixture.simulator,
			active:        &active,
			peak:          &peak,
		}
	}

	result, err := f.executable(t, WithMaxParallel(1)).Execute(t.Context())
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, int32(1), peak.Load())
}

func TestExecutable_Execute_RegistryGasBudget(t *testing.T) {
	t.Parallel()

	f := newExecutableFixture(ChainActions{ChainID: 1, Actions: testActions(5, 0)})

	// 500k block gas limit with 20% headroom leaves a 400k budget: three
	// actions (321k) fit, four (421k) do not.
	registry, err := networks.NewRegistry([]networks.NetworkDescriptor{
		{ChainID: 1, BlockGasLimit: 500_000},
	})
	require.NoError(t, err)

	executable, err := NewExecutable(f.proposal, f.executors, f.simulators, registry)
	require.NoError(t, err)

	result, err := executable.Execute(t.Context())
	require.NoError(t, err)

	assert.True(t, result.Succeeded())
	assert.Equal(t, []int{3, 2}, result.Reports[1].Batches)
}

func TestDeploymentResult_Succeeded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reports map[types.ChainID]*ChainReport
		want    bool
	}{
		{
			name: "all completed",
			reports: map[types.ChainID]*ChainReport{
				1: {ChainID: 1, Status: types.DeploymentStatusCompleted},
				2: {ChainID: 2, Status: types.DeploymentStatusCompleted},
			},
			want: true,
		},
		{
			name: "skipped chains do not count",
			reports: map[types.ChainID]*ChainReport{
				1: {ChainID: 1, Status: types.DeploymentStatusCompleted},
				2: {ChainID: 2, Skipped: true},
			},
			want: true,
		},
		{
			name: "failed status",
			reports: map[types.ChainID]*ChainReport{
				1: {ChainID: 1, Status: types.DeploymentStatusFailed},
			},
			want: false,
		},
		{
			name: "completed with error",
			reports: map[types.ChainID]*ChainReport{
				1: {ChainID: 1, Status: types.DeploymentStatusCompleted, Err: assert.AnError},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := &DeploymentResult{Reports: tt.reports}
			assert.Equal(t, tt.want, result.Succeeded())
		})
	}
}

func TestDeploymentResult_FailedChains(t *testing.T) {
	t.Parallel()

	result := &DeploymentResult{Reports: map[types.ChainID]*ChainReport{
		5: {ChainID: 5, Status: types.DeploymentStatusFailed},
		1: {ChainID: 1, Status: types.DeploymentStatusCompleted},
		3: {ChainID: 3, Status: types.DeploymentStatusCompleted, Err: assert.AnError},
		8: {ChainID: 8, Skipped: true},
	}}

	assert.Equal(t, []types.ChainID{3, 5}, result.FailedChains())
}
