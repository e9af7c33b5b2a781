package obelisk

import (
	"context"
	"fmt"

	"github.com/obelisk-org/obelisk/types"
)

// EstimateBatchFunc simulates executing a contiguous batch of action leaves
// as one transaction and returns the total gas consumed. Implementations
// must run read-only against a consistent chain snapshot for the duration
// of one batch search.
type EstimateBatchFunc func(ctx context.Context, batch []types.LeafWithProof) (uint64, error)

// FindMaxBatch returns the size of the largest prefix of leaves whose
// simulated execution gas fits within gasBudget.
//
// The estimate is obtained by simulating each candidate prefix rather than
// summing static per-action gas hints, because actions can interact (shared
// storage writes change cost). A binary search over the prefix length keeps
// the number of simulations at O(log n) while staying correct for
// non-additive costs.
//
// The budget passed in is already reduced by the caller's safety margin; no
// further headroom is applied here. An empty leaf list returns 0 without
// simulating. If even a single leaf exceeds the budget, the search fails
// with ActionExceedsGasBudgetError naming that leaf's index.
func FindMaxBatch(
	ctx context.Context,
	leaves []types.LeafWithProof,
	gasBudget uint64,
	estimate EstimateBatchFunc,
) (int, error) {
	if len(leaves) == 0 {
		return 0, nil
	}

	var (
		best      int
		singleGas uint64
	)

	lo, hi := 1, len(leaves)
	for lo <= hi {
		mid := (lo + hi) / 2

		gas, err := estimate(ctx, leaves[:mid])
		if err != nil {
			return 0, fmt.Errorf("estimate batch of %d: %w", mid, err)
		}

		if mid == 1 {
			singleGas = gas
		}

		if gas <= gasBudget {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	// When nothing fits, the search always bottoms out at a prefix of one,
	// so singleGas holds that leaf's estimate.
	if best == 0 {
		return 0, NewActionExceedsGasBudgetError(leaves[0].ChainID, leaves[0].Index, singleGas, gasBudget)
	}

	return best, nil
}
