package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/comit-network/swapd/internal/config"
	"github.com/comit-network/swapd/internal/core/application/executor"
	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/comit-network/swapd/internal/infrastructure/pubsub"
	"github.com/comit-network/swapd/internal/infrastructure/registry/cnd"
	journalstore "github.com/comit-network/swapd/internal/infrastructure/storage/journal"
	"github.com/comit-network/swapd/internal/infrastructure/wallet/bitcoind"
	"github.com/comit-network/swapd/internal/infrastructure/wallet/ethnode"
	"github.com/comit-network/swapd/pkg/stats"
	log "github.com/sirupsen/logrus"
)

// daemon holds the adapters shared by the maker and taker processes.
type daemon struct {
	registry   ports.SwapRegistry
	bitcoin    ports.BitcoinWallet
	ethereum   ports.EthereumWallet
	dispatcher *executor.Dispatcher
	journal    ports.ActionJournal
	notifier   ports.SwapNotifier
	ledgers    map[string]domain.Ledger
}

func newDaemon(ctx context.Context) (*daemon, error) {
	d := &daemon{}
	ok := false
	defer func() {
		if !ok {
			d.close()
		}
	}()

	var err error

	d.registry, err = cnd.NewService(
		config.GetString(config.CndURLKey),
		config.GetInt(config.RegistryRateLimitKey),
	)
	if err != nil {
		return nil, fmt.Errorf("error while setting up swap registry: %w", err)
	}

	d.bitcoin, err = bitcoind.NewService(bitcoind.Opts{
		RPCHost: config.GetString(config.BitcoinRPCHostKey),
		RPCUser: config.GetString(config.BitcoinRPCUserKey),
		RPCPass: config.GetString(config.BitcoinRPCPassKey),
		Network: config.GetString(config.BitcoinNetworkKey),
	})
	if err != nil {
		return nil, fmt.Errorf("error while connecting to bitcoind: %w", err)
	}

	d.ethereum, err = ethnode.NewService(ctx, ethnode.Opts{
		NodeURL: config.GetString(config.EthereumNodeURLKey),
		Account: config.GetString(config.EthereumAccountKey),
		Network: config.GetString(config.EthereumNetworkKey),
	})
	if err != nil {
		return nil, fmt.Errorf("error while connecting to ethereum node: %w", err)
	}

	d.dispatcher, err = executor.NewDispatcher(
		d.bitcoin, d.ethereum, config.GetString(config.BitcoinFeePerWUKey),
	)
	if err != nil {
		return nil, err
	}

	d.journal, err = journalstore.NewActionJournal(config.GetDbDatadir(), nil)
	if err != nil {
		return nil, err
	}

	if endpoints := config.GetWebhookURLs(); len(endpoints) > 0 {
		d.notifier, err = pubsub.NewService(
			endpoints, config.GetString(config.WebhookSecretKey),
		)
		if err != nil {
			return nil, fmt.Errorf("error while setting up webhooks: %w", err)
		}
	}

	d.ledgers = map[string]domain.Ledger{
		domain.LedgerBitcoin: {
			Name:    domain.LedgerBitcoin,
			Network: d.bitcoin.Network(),
		},
		domain.LedgerEthereum: {
			Name:    domain.LedgerEthereum,
			Network: d.ethereum.Network(),
		},
	}

	peerID, err := d.registry.GetPeerID(ctx)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to cnd: %w", err)
	}
	log.WithFields(log.Fields{
		"peer_id":  peerID,
		"bitcoin":  d.bitcoin.Network(),
		"ethereum": d.ethereum.Network(),
	}).Info("connected to cnd")

	ok = true
	return d, nil
}

func (d *daemon) newEngine(
	name string, policy executor.AcceptPolicy,
) (*executor.Service, error) {
	return executor.NewService(executor.Opts{
		Name:          name,
		Registry:      d.registry,
		Dispatcher:    d.dispatcher,
		Journal:       d.journal,
		Notifier:      d.notifier,
		AcceptPolicy:  policy,
		PollInterval:  config.GetDuration(config.PollIntervalKey),
		ActionTimeout: config.GetDuration(config.ActionTimeoutKey),
	})
}

func (d *daemon) close() {
	if d.journal != nil {
		d.journal.Close()
	}
	for _, w := range []interface{}{d.bitcoin, d.ethereum} {
		if c, ok := w.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

func enableProfiler(ctx context.Context, name string) {
	if !config.GetBool(config.EnableProfilerKey) {
		return
	}
	dumpPath := filepath.Join(
		config.GetDatadir(), config.ProfilerLocation, fmt.Sprintf("%s.txt", name),
	)
	stats.EnableMemoryStatistics(
		ctx, config.GetSeconds(config.StatsIntervalKey), dumpPath,
	)
}

func newSignalChan() chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	return sigChan
}
