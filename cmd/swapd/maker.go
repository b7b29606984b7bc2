package main

import (
	"context"
	"fmt"

	"github.com/comit-network/swapd/internal/config"
	"github.com/comit-network/swapd/internal/core/application/negotiation"
	httpinterface "github.com/comit-network/swapd/internal/interfaces/http"
	"github.com/comit-network/swapd/pkg/scheduler"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runMaker(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d, err := newDaemon(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	maker, err := negotiation.NewMaker(negotiation.MakerOpts{
		Registry:    d.registry,
		AlphaExpiry: config.GetSeconds(config.AlphaExpiryKey),
		BetaExpiry:  config.GetSeconds(config.BetaExpiryKey),
		Ledgers:     d.ledgers,
	})
	if err != nil {
		return err
	}

	tmpl, err := newOrderTemplate(
		config.GetString(config.OrderPairKey),
		config.GetString(config.OrderAskAmountKey),
		config.GetString(config.OrderBidAmountKey),
		config.GetDuration(config.OrderValidityKey),
		d.ledgers,
	)
	if err != nil {
		return fmt.Errorf("error while setting up order: %w", err)
	}

	engine, err := d.newEngine("maker", maker.AcceptPolicy)
	if err != nil {
		return err
	}

	httpSvc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Address: fmt.Sprintf(":%d", config.GetInt(config.NegotiationPortKey)),
		Maker:   maker,
	})
	if err != nil {
		return err
	}

	pollInterval := config.GetDuration(config.PollIntervalKey)
	if err := republishOrder(ctx, maker, tmpl, pollInterval); err != nil {
		return fmt.Errorf("error while publishing order: %w", err)
	}
	orderTask := scheduler.NewRecurringTask(pollInterval, func() {
		if err := republishOrder(ctx, maker, tmpl, pollInterval); err != nil {
			log.WithError(err).Warn("failed to republish order")
		}
	})

	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("error while starting execution engine: %w", err)
	}
	defer engine.Stop()

	if err := httpSvc.Start(); err != nil {
		return fmt.Errorf("error while starting negotiation server: %w", err)
	}
	defer httpSvc.Stop()

	orderTask.Start()
	defer orderTask.Stop()

	enableProfiler(ctx, "maker")

	log.Infof(
		"maker is listening on :%d", config.GetInt(config.NegotiationPortKey),
	)

	<-newSignalChan()

	log.Info("shutting down maker")
	return nil
}
