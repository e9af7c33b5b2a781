package sdk

import (
	"context"

	"github.com/obelisk-org/obelisk/types"
)

// Relayer hands finished proposals to the external approval service. The core
// never reads anything back; it only embeds the returned content id in the
// request payload.
type Relayer interface {
	// Store persists an opaque blob (the serialized bundle) and returns its
	// content id.
	Store(ctx context.Context, blob []byte) (string, error)

	// Relay submits the proposal request. A nil error means the service
	// accepted the payload, not that any owner approved it.
	Relay(ctx context.Context, request *types.ProposalRequest) error
}
