// Package networks provides an immutable registry of network descriptors.
// The registry is constructed once from configuration and passed by
// reference into the components that need network information, so nothing
// deeper in the call stack reads connection details from the process
// environment.
package networks

import (
	"fmt"
	"sort"

	chain_selectors "github.com/smartcontractkit/chain-selectors"

	"github.com/obelisk-org/obelisk/types"
)

// NetworkDescriptor holds the static configuration for a single target
// network: how to identify it, where to reach it, and how much gas a block
// can carry.
type NetworkDescriptor struct {
	// ChainID is the EVM chain id the network identifies itself with.
	ChainID types.ChainID `json:"chainID"`

	// Name is a human readable label for logs and reports. Left empty, it is
	// resolved from the chain-selectors dataset when the chain id is known
	// there.
	Name string `json:"name,omitempty"`

	// Selector is the chain-selectors identifier for the network, zero when
	// the chain id has no registered selector.
	Selector uint64 `json:"selector,omitempty"`

	// RPCURLs lists RPC endpoints in priority order. The first entry is the
	// primary endpoint, the rest are backups. Descriptors without endpoints
	// are valid for assembling proposals offline; execution requires at
	// least one.
	RPCURLs []string `json:"rpcUrls,omitempty"`

	// BlockGasLimit is the gas limit of a block on this network. Gas budgets
	// for batched execution are derived from it.
	BlockGasLimit uint64 `json:"blockGasLimit"`
}

// Registry is an immutable lookup of network descriptors keyed by chain id.
type Registry struct {
	networks map[types.ChainID]NetworkDescriptor
}

// NewRegistry builds a Registry from the given descriptors. Descriptors
// missing a name or selector are enriched from the chain-selectors dataset
// when their chain id is registered there.
func NewRegistry(descriptors []NetworkDescriptor) (*Registry, error) {
	networks := make(map[types.ChainID]NetworkDescriptor, len(descriptors))
	for _, descriptor := range descriptors {
		if descriptor.ChainID == 0 {
			return nil, NewInvalidDescriptorError(descriptor.ChainID, "chain id must not be zero")
		}
		if descriptor.BlockGasLimit == 0 {
			return nil, NewInvalidDescriptorError(descriptor.ChainID, "block gas limit must be greater than 0")
		}
		if _, ok := networks[descriptor.ChainID]; ok {
			return nil, NewDuplicateNetworkError(descriptor.ChainID)
		}

		enrich(&descriptor)
		networks[descriptor.ChainID] = descriptor
	}

	return &Registry{networks: networks}, nil
}

// enrich fills Name and Selector from the chain-selectors dataset. Chain ids
// without a registered selector keep a synthesized name so logs stay
// readable.
func enrich(descriptor *NetworkDescriptor) {
	if descriptor.Name != "" && descriptor.Selector != 0 {
		return
	}

	selector, err := chain_selectors.SelectorFromChainId(uint64(descriptor.ChainID))
	if err != nil {
		if descriptor.Name == "" {
			descriptor.Name = fmt.Sprintf("chain-%d", descriptor.ChainID)
		}

		return
	}

	if descriptor.Selector == 0 {
		descriptor.Selector = selector
	}
	if descriptor.Name == "" {
		if chain, exists := chain_selectors.ChainBySelector(selector); exists {
			descriptor.Name = chain.Name
		} else {
			descriptor.Name = fmt.Sprintf("chain-%d", descriptor.ChainID)
		}
	}
}

// Get returns the descriptor registered for chainID.
func (r *Registry) Get(chainID types.ChainID) (NetworkDescriptor, error) {
	descriptor, ok := r.networks[chainID]
	if !ok {
		return NetworkDescriptor{}, NewUnknownNetworkError(chainID)
	}

	return descriptor, nil
}

// Has reports whether chainID is registered.
func (r *Registry) Has(chainID types.ChainID) bool {
	_, ok := r.networks[chainID]
	return ok
}

// All returns every registered descriptor ordered by chain id.
func (r *Registry) All() []NetworkDescriptor {
	all := make([]NetworkDescriptor, 0, len(r.networks))
	for _, descriptor := range r.networks {
		all = append(all, descriptor)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ChainID < all[j].ChainID })

	return all
}

// ChainIDs returns the registered chain ids in ascending order.
func (r *Registry) ChainIDs() []types.ChainID {
	ids := make([]types.ChainID, 0, len(r.networks))
	for chainID := range r.networks {
		ids = append(ids, chainID)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}
