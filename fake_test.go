package obelisk

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/obelisk-org/obelisk/sdk"
	"github.com/obelisk-org/obelisk/types"
)

// futureValidUntil is far enough in the future that proposals built around
// it never fail the validity-window check.
const futureValidUntil = uint32(2552083725)

// fakeWriter is a fake implementation of io.Writer.
type fakeWriter struct {
	n   int
	err error
}

// newFakeWriter returns a new Writer.
func newFakeWriter(n int, err error) *fakeWriter {
	return &fakeWriter{
		n:   n,
		err: err,
	}
}

// Write doesn't actually write anything, it just returns the values in the Writer.
func (w *fakeWriter) Write(p []byte) (n int, err error) {
	return w.n, w.err
}

// fakeSigner implements the Signer interface for testing purposes.
type fakeSigner struct {
	sigB []byte
	err  error
}

// newFakeSigner creates a new fakeSigner. The args provided will be returned when Sign is called.
func newFakeSigner(sigB []byte, err error) *fakeSigner {
	return &fakeSigner{sigB: sigB, err: err}
}

// Sign implements the Signer interface.
func (f *fakeSigner) Sign(payload []byte) ([]byte, error) {
	return f.sigB, f.err
}

// GetAddress implements the Signer interface.
func (f *fakeSigner) GetAddress() (common.Address, error) {
	return common.Address{}, nil
}

// fakeInspector serves a static owner config and deployment state.
type fakeInspector struct {
	state     types.DeploymentState
	config    *types.OwnerConfig
	stateErr  error
	configErr error
}

func (f *fakeInspector) GetDeploymentState(_ context.Context, _ common.Address) (types.DeploymentState, error) {
	return f.state, f.stateErr
}

func (f *fakeInspector) GetOwnerConfig(_ context.Context, _ common.Address) (*types.OwnerConfig, error) {
	if f.configErr != nil {
		return nil, f.configErr
	}

	return f.config, nil
}

// fakeChain is an in-memory manager contract. It mirrors the on-chain
// transition rules: approve activates a deployment, executed batches advance
// the counter one action at a time, and hitting a phase boundary flips the
// status without a separate transaction.
type fakeChain struct {
	mu sync.Mutex

	state      types.DeploymentState
	config     *types.OwnerConfig
	numInitial uint64
	numStorage uint64

	// failAt marks action indices whose execution marks the deployment
	// FAILED, leaving the counter at the pre-failure value.
	failAt map[uint32]bool

	setups    int
	approvals int
	initiates int
	finalizes int
	cancels   int
	txCount   int

	// batches records the action indices of every executed batch, in
	// submission order.
	batches [][]uint32
}

func newFakeChain(numInitial, numStorage uint64) *fakeChain {
	return &fakeChain{
		numInitial: numInitial,
		numStorage: numStorage,
		failAt:     make(map[uint32]bool),
	}
}

func (c *fakeChain) snapshot() types.DeploymentState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *fakeChain) nextTx() types.TransactionResult {
	c.txCount++
	return types.TransactionResult{Hash: fmt.Sprintf("0xtx%04d", c.txCount), GasUsed: 21_000}
}

// fakeExecutor drives a fakeChain through the sdk.Executor interface. Error
// fields let tests inject transport failures per entry point.
type fakeExecutor struct {
	chain *fakeChain

	stateErr   error
	approveErr error
	executeErr error

	// noProgress makes ExecuteActions confirm without advancing the
	// counter, imitating a chain that accepts batches but never applies
	// them.
	noProgress bool
}

func newFakeExecutor(chain *fakeChain) *fakeExecutor {
	return &fakeExecutor{chain: chain}
}

func (e *fakeExecutor) GetDeploymentState(_ context.Context, _ common.Address) (types.DeploymentState, error) {
	if e.stateErr != nil {
		return types.DeploymentState{}, e.stateErr
	}

	return e.chain.snapshot(), nil
}

func (e *fakeExecutor) GetOwnerConfig(_ context.Context, _ common.Address) (*types.OwnerConfig, error) {
	return e.chain.config, nil
}

func (e *fakeExecutor) Setup(_ context.Context, _ types.ChainMetadata, _ types.LeafWithProof) (types.TransactionResult, error) {
	c := e.chain
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setups++

	return c.nextTx(), nil
}

func (e *fakeExecutor) Approve(_ context.Context, _ types.ChainMetadata, root common.Hash, _ uint32, _ types.LeafWithProof, _ []types.Signature) (types.TransactionResult, error) {
	if e.approveErr != nil {
		return types.TransactionResult{}, e.approveErr
	}

	c := e.chain
	c.mu.Lock()
	defer c.mu.Unlock()

	c.approvals++
	c.state = types.DeploymentState{
		Status:             types.DeploymentStatusApproved,
		ActiveDeploymentID: root,
	}
	if c.numInitial == 0 {
		c.state.Status = types.DeploymentStatusInitialActionsExecuted
	}

	return c.nextTx(), nil
}

func (e *fakeExecutor) ExecuteActions(_ context.Context, _ types.ChainMetadata, _ types.ExecutionPhase, batch []types.LeafWithProof) (types.TransactionResult, error) {
	if e.executeErr != nil {
		return types.TransactionResult{}, e.executeErr
	}

	c := e.chain
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.noProgress {
		return c.nextTx(), nil
	}

	indices := make([]uint32, 0, len(batch))
	for _, leaf := range batch {
		if c.failAt[leaf.Index] {
			// The batch transaction itself succeeds; the contract records
			// the failure and stops counting.
			c.state.Status = types.DeploymentStatusFailed
			c.batches = append(c.batches, indices)

			return c.nextTx(), nil
		}

		indices = append(indices, leaf.Index)
		c.state.ActionsExecuted++

		if c.state.Status == types.DeploymentStatusApproved && c.state.ActionsExecuted == c.numInitial {
			c.state.Status = types.DeploymentStatusInitialActionsExecuted
		}
		if c.state.Status == types.DeploymentStatusProxiesInitiated && c.state.ActionsExecuted == c.numInitial+c.numStorage {
			c.state.Status = types.DeploymentStatusSetStorageActionsExecuted
		}
	}
	c.batches = append(c.batches, indices)

	return c.nextTx(), nil
}

func (e *fakeExecutor) InitiateUpgrade(_ context.Context, _ types.ChainMetadata, _ types.LeafWithProof) (types.TransactionResult, error) {
	c := e.chain
	c.mu.Lock()
	defer c.mu.Unlock()

	c.initiates++
	c.state.Status = types.DeploymentStatusProxiesInitiated

	return c.nextTx(), nil
}

func (e *fakeExecutor) FinalizeUpgrade(_ context.Context, _ types.ChainMetadata) (types.TransactionResult, error) {
	c := e.chain
	c.mu.Lock()
	defer c.mu.Unlock()

	c.finalizes++
	c.state.Status = types.DeploymentStatusCompleted

	return c.nextTx(), nil
}

func (e *fakeExecutor) Cancel(_ context.Context, _ types.ChainMetadata, _ common.Hash, _ uint32, _ types.LeafWithProof, _ []types.Signature) (types.TransactionResult, error) {
	c := e.chain
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancels++
	// The cancelled deployment keeps its id; only the status flips.
	c.state.Status = types.DeploymentStatusCancelled
	c.state.ActionsExecuted = 0

	return c.nextTx(), nil
}

// fakeSimulator prices a batch as a fixed overhead plus a per-leaf cost.
type fakeSimulator struct {
	mu        sync.Mutex
	baseGas   uint64
	perLeaf   uint64
	err       error
	pins      int
	estimates int
}

func newFakeSimulator(baseGas, perLeaf uint64) *fakeSimulator {
	return &fakeSimulator{baseGas: baseGas, perLeaf: perLeaf}
}

func (s *fakeSimulator) PinBlock(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pins++

	return nil
}

func (s *fakeSimulator) EstimateActions(_ context.Context, _ types.ChainMetadata, _ types.ExecutionPhase, batch []types.LeafWithProof) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.estimates++
	if s.err != nil {
		return 0, s.err
	}

	return s.baseGas + s.perLeaf*uint64(len(batch)), nil
}

// fakeRelayer records what is stored and relayed.
type fakeRelayer struct {
	contentID string
	storeErr  error
	relayErr  error

	storedBlob []byte
	request    *types.ProposalRequest
	calls      []string
}

func newFakeRelayer(contentID string) *fakeRelayer {
	return &fakeRelayer{contentID: contentID}
}

func (r *fakeRelayer) Store(_ context.Context, blob []byte) (string, error) {
	r.calls = append(r.calls, "store")
	if r.storeErr != nil {
		return "", r.storeErr
	}
	r.storedBlob = blob

	return r.contentID, nil
}

func (r *fakeRelayer) Relay(_ context.Context, request *types.ProposalRequest) error {
	r.calls = append(r.calls, "relay")
	if r.relayErr != nil {
		return r.relayErr
	}
	r.request = request

	return nil
}

type fakeArtifactReader struct {
	artifacts map[string]sdk.Artifact

	lookups []string
}

func newFakeArtifactReader(artifacts map[string]sdk.Artifact) *fakeArtifactReader {
	return &fakeArtifactReader{artifacts: artifacts}
}

func (r *fakeArtifactReader) GetArtifact(fullyQualifiedName string) (sdk.Artifact, error) {
	r.lookups = append(r.lookups, fullyQualifiedName)

	artifact, ok := r.artifacts[fullyQualifiedName]
	if !ok {
		return sdk.Artifact{}, sdk.NewArtifactNotFoundError(fullyQualifiedName)
	}

	return artifact, nil
}

// testAddr returns a deterministic address derived from the seed.
func testAddr(seed byte) common.Address {
	var addr common.Address
	for i := range addr {
		addr[i] = seed
	}

	return addr
}

// testAction builds a minimal action of the given type.
func testAction(index uint32, actionType types.ActionType) types.Action {
	return types.Action{
		Index:     index,
		Type:      actionType,
		To:        testAddr(0xee),
		Data:      []byte{0xde, 0xad, byte(index)},
		Gas:       80_000,
		Operation: types.OperationCall,
	}
}

// testActions builds numInitial call actions followed by numStorage
// set-storage actions, indexed densely from 0.
func testActions(numInitial, numStorage int) []types.Action {
	actions := make([]types.Action, 0, numInitial+numStorage)
	for i := range numInitial {
		actions = append(actions, testAction(uint32(i), types.ActionTypeCall))
	}
	for i := range numStorage {
		actions = append(actions, testAction(uint32(numInitial+i), types.ActionTypeSetStorage))
	}

	return actions
}

// testProposal builds a valid single-chain proposal with the given action
// counts.
func testProposal(chainID types.ChainID, numInitial, numStorage int) *Proposal {
	return &Proposal{
		Version:    ProposalVersion,
		Name:       "test-deployment",
		ValidUntil: futureValidUntil,
		ChainMetadata: map[types.ChainID]types.ChainMetadata{
			chainID: {Manager: testAddr(0x11)},
		},
		ChainActions: []ChainActions{
			{ChainID: chainID, Actions: testActions(numInitial, numStorage)},
		},
	}
}
