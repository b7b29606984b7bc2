package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comit-network/swapd/internal/config"
	"github.com/comit-network/swapd/internal/core/application/executor"
	"github.com/comit-network/swapd/internal/core/application/negotiation"
	"github.com/comit-network/swapd/internal/core/domain"
	makerclient "github.com/comit-network/swapd/internal/infrastructure/maker-client"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runTaker(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	minRate, err := decimal.NewFromString(config.GetString(config.TakerMinRateKey))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", config.TakerMinRateKey, err)
	}

	maker, err := makerclient.NewService(config.GetString(config.MakerURLKey))
	if err != nil {
		return err
	}

	d, err := newDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	taker, err := negotiation.NewTaker(negotiation.TakerOpts{
		Registry:    d.registry,
		Dispatcher:  d.dispatcher,
		AlphaExpiry: config.GetSeconds(config.AlphaExpiryKey),
		BetaExpiry:  config.GetSeconds(config.BetaExpiryKey),
		Ledgers:     d.ledgers,
	})
	if err != nil {
		return err
	}

	engine, err := d.newEngine("taker", executor.AcceptAll)
	if err != nil {
		return err
	}
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("error while starting execution engine: %w", err)
	}
	defer engine.Stop()

	enableProfiler(ctx, "taker")

	pair := config.GetString(config.OrderPairKey)
	order, handle, err := taker.NegotiateAndSendRequest(
		ctx, maker, pair, negotiation.MinRate(minRate),
	)
	if err != nil {
		if errors.Is(err, domain.ErrOrderRejected) {
			log.WithFields(log.Fields{
				"pair":     pair,
				"order_id": order.ID,
				"ask":      order.Ask.Amount,
				"bid":      order.Bid.Amount,
			}).Warn("order does not satisfy min rate, not taking it")
		}
		return err
	}

	swapID := handle.ID()
	log.WithFields(log.Fields{
		"pair": pair, "order_id": order.ID, "swap_id": swapID,
	}).Info("swap request sent")

	return waitForSwap(engine, swapID, config.GetDuration(config.PollIntervalKey))
}

// waitForSwap blocks until the engine is done with the swap or the process
// is interrupted.
func waitForSwap(
	engine *executor.Service, swapID string, interval time.Duration,
) error {
	sigChan := newSignalChan()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			log.Info("shutting down taker")
			return nil
		case <-ticker.C:
			if err := engine.AbortReason(swapID); err != nil {
				return fmt.Errorf("swap %s aborted: %w", swapID, err)
			}
			if engine.IsReported(swapID) {
				log.WithField("swap_id", swapID).Info("swap finished")
				return nil
			}
		}
	}
}
