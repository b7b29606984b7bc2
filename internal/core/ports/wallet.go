package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// BitcoinWallet defines the bitcoin operations required to execute swaps.
// Every operation taking a network must fail with ErrNetworkMismatch if the
// wallet is connected to a different one.
type BitcoinWallet interface {
	Network() string
	GetAddress(ctx context.Context) (string, error)
	// GetBalance returns the balance in BTC.
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	BroadcastTransaction(ctx context.Context, txHex, network string) (string, error)
	SendToAddress(
		ctx context.Context, address string, sats int64, network string,
	) (string, error)
}

// EthereumWallet defines the ethereum operations required to execute swaps.
type EthereumWallet interface {
	Network() string
	GetAccount() string
	// GetBalance returns the balance in wei.
	GetBalance(ctx context.Context) (decimal.Decimal, error)
	CallContract(
		ctx context.Context, data, contractAddress string, gasLimit uint64,
		network string,
	) (string, error)
	DeployContract(
		ctx context.Context, data string, value decimal.Decimal, gasLimit uint64,
		network string,
	) (string, error)
}
