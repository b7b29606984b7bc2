package main

import (
	"context"

	"github.com/comit-network/swapd/internal/config"
	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/infrastructure/wallet/bitcoind"
	"github.com/comit-network/swapd/internal/infrastructure/wallet/ethnode"
	"github.com/comit-network/swapd/pkg/unitconv"
	"github.com/urfave/cli/v2"
)

var balance = cli.Command{
	Name:   "balance",
	Usage:  "print the addresses and balances of the bitcoin and ethereum wallets",
	Action: balanceAction,
}

func balanceAction(ctx *cli.Context) error {
	c := context.Background()

	btcWallet, err := bitcoind.NewService(bitcoind.Opts{
		RPCHost: config.GetString(config.BitcoinRPCHostKey),
		RPCUser: config.GetString(config.BitcoinRPCUserKey),
		RPCPass: config.GetString(config.BitcoinRPCPassKey),
		Network: config.GetString(config.BitcoinNetworkKey),
	})
	if err != nil {
		return err
	}
	if w, ok := btcWallet.(interface{ Close() }); ok {
		defer w.Close()
	}

	ethWallet, err := ethnode.NewService(c, ethnode.Opts{
		NodeURL: config.GetString(config.EthereumNodeURLKey),
		Account: config.GetString(config.EthereumAccountKey),
		Network: config.GetString(config.EthereumNetworkKey),
	})
	if err != nil {
		return err
	}
	if w, ok := ethWallet.(interface{ Close() }); ok {
		defer w.Close()
	}

	btcAddress, err := btcWallet.GetAddress(c)
	if err != nil {
		return err
	}
	btcBalance, err := btcWallet.GetBalance(c)
	if err != nil {
		return err
	}
	weiBalance, err := ethWallet.GetBalance(c)
	if err != nil {
		return err
	}
	precision, _ := unitconv.PrecisionOf(domain.AssetEther)

	printRespJSON(map[string]interface{}{
		"bitcoin": map[string]string{
			"network": btcWallet.Network(),
			"address": btcAddress,
			"balance": btcBalance.String(),
		},
		"ethereum": map[string]string{
			"network": ethWallet.Network(),
			"account": ethWallet.GetAccount(),
			"balance": unitconv.FromBaseUnits(weiBalance, precision).String(),
		},
	})

	return nil
}
