package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/comit-network/swapd/internal/core/domain"
)

// TryParams bound the polling of a swap waiting for an action to become
// available.
type TryParams struct {
	MaxTimeout  time.Duration
	TryInterval time.Duration
}

// DefaultTryParams ...
var DefaultTryParams = TryParams{
	MaxTimeout:  100 * time.Second,
	TryInterval: time.Second,
}

// Try calls fn every TryInterval until it returns true. Errors returned by fn
// are considered transient. Once MaxTimeout has elapsed, ErrTimeout is
// returned along with the last error, if any.
func Try(
	ctx context.Context, params TryParams, fn func(ctx context.Context) (bool, error),
) error {
	deadline := time.Now().Add(params.MaxTimeout)
	var lastErr error

	for {
		done, err := fn(ctx)
		if err == nil && done {
			return nil
		}
		lastErr = err

		if !time.Now().Add(params.TryInterval).Before(deadline) {
			if lastErr != nil {
				return fmt.Errorf("%w: %s", domain.ErrTimeout, lastErr)
			}
			return domain.ErrTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(params.TryInterval):
		}
	}
}
