package ports

import (
	"context"

	"github.com/comit-network/swapd/internal/core/domain"
)

// SwapNotifier publishes the terminal status of swaps to external parties.
type SwapNotifier interface {
	NotifySwapFinished(ctx context.Context, swap domain.Swap) error
}
