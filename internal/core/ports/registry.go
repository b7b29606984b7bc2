package ports

import (
	"context"

	"github.com/comit-network/swapd/internal/core/domain"
)

// FieldResolver returns the value to submit for an action field.
type FieldResolver func(ctx context.Context, field domain.Field) (string, error)

// SwapRegistry defines the methods of the external service (cnd) storing
// the swaps and exposing the actions available for each of them.
type SwapRegistry interface {
	// GetPeerID returns the identity of the local registry on the swap network.
	GetPeerID(ctx context.Context) (string, error)
	// GetListenAddresses returns the addresses the registry is reachable at.
	GetListenAddresses(ctx context.Context) ([]string, error)
	// ListSwaps returns all known swaps with their available actions.
	ListSwaps(ctx context.Context) ([]domain.Swap, error)
	// GetSwap returns the swap with the given id or ErrNotFound.
	GetSwap(ctx context.Context, id string) (*domain.Swap, error)
	// PostSwap creates a new swap and returns its id.
	PostSwap(ctx context.Context, req domain.SwapRequest) (string, error)
	// ExecuteAction invokes the action, filling its fields with resolver.
	ExecuteAction(
		ctx context.Context, action domain.Action, resolver FieldResolver,
	) (domain.ActionResult, error)
}
