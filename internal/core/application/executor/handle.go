package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// Handle drives a single swap step by step, waiting for each action to be
// made available by the registry.
type Handle struct {
	id         string
	registry   ports.SwapRegistry
	dispatcher *Dispatcher
}

// NewHandle ...
func NewHandle(
	id string, registry ports.SwapRegistry, dispatcher *Dispatcher,
) *Handle {
	return &Handle{id, registry, dispatcher}
}

// ID returns the swap id.
func (h *Handle) ID() string {
	return h.id
}

// FetchDetails returns the current state of the swap.
func (h *Handle) FetchDetails(ctx context.Context) (*domain.Swap, error) {
	return h.registry.GetSwap(ctx, h.id)
}

// Accept ...
func (h *Handle) Accept(ctx context.Context, params TryParams) error {
	_, err := h.do(ctx, domain.ActionAccept, params)
	return err
}

// Decline ...
func (h *Handle) Decline(ctx context.Context, params TryParams) error {
	_, err := h.do(ctx, domain.ActionDecline, params)
	return err
}

// Deploy deploys the HTLC contract and returns the transaction id.
func (h *Handle) Deploy(ctx context.Context, params TryParams) (string, error) {
	return h.do(ctx, domain.ActionDeploy, params)
}

// Fund ...
func (h *Handle) Fund(ctx context.Context, params TryParams) (string, error) {
	return h.do(ctx, domain.ActionFund, params)
}

// Redeem ...
func (h *Handle) Redeem(ctx context.Context, params TryParams) (string, error) {
	return h.do(ctx, domain.ActionRedeem, params)
}

// Refund ...
func (h *Handle) Refund(ctx context.Context, params TryParams) (string, error) {
	return h.do(ctx, domain.ActionRefund, params)
}

func (h *Handle) do(
	ctx context.Context, name domain.ActionName, params TryParams,
) (string, error) {
	var action domain.Action
	if err := Try(ctx, params, func(ctx context.Context) (bool, error) {
		swap, err := h.registry.GetSwap(ctx, h.id)
		if err != nil {
			return false, err
		}
		a, ok := swap.FindAction(name)
		if !ok {
			return false, nil
		}
		action = a
		return true, nil
	}); err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			return "", fmt.Errorf("%s %w: %w", name, domain.ErrActionNotAvailable, err)
		}
		return "", err
	}

	result, err := h.registry.ExecuteAction(ctx, action, h.dispatcher.ResolveField)
	if err != nil {
		return "", err
	}

	ledgerAction, ok := result.LedgerAction()
	if !ok {
		log.WithFields(log.Fields{"swap_id": h.id, "action": name}).Debug("action executed")
		return "", nil
	}

	txid, err := h.dispatcher.Dispatch(ctx, ledgerAction)
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		"swap_id": h.id, "action": name, "txid": txid,
	}).Info("ledger action dispatched")
	return txid, nil
}
