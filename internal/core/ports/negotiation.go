package ports

import (
	"context"

	"github.com/comit-network/swapd/internal/core/domain"
)

// MakerClient is the taker's channel to a maker negotiation server.
type MakerClient interface {
	// GetOrder returns the order published for the pair or ErrNotFound.
	GetOrder(ctx context.Context, pair string) (*domain.Order, error)
	// TakeOrder accepts the order and returns it together with the params to
	// execute the swap.
	TakeOrder(
		ctx context.Context, order domain.Order,
	) (*domain.Order, *domain.ExecutionParams, error)
}
