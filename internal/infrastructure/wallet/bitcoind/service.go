package bitcoind

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// rpcClient is the subset of the bitcoind json-rpc api used by the wallet.
type rpcClient interface {
	GetNewAddress(account string) (btcutil.Address, error)
	GetBalance(account string) (btcutil.Amount, error)
	SendRawTransaction(tx *wire.MsgTx, allowHighFees bool) (*chainhash.Hash, error)
	SendToAddress(address btcutil.Address, amount btcutil.Amount) (*chainhash.Hash, error)
	Shutdown()
}

// Opts defines the parameters needed for creating a bitcoind wallet.
type Opts struct {
	RPCHost string
	RPCUser string
	RPCPass string
	Network string
}

type service struct {
	client  rpcClient
	network string
	params  *chaincfg.Params
}

// NewService returns a wallet backed by the bitcoind node at opts.RPCHost as
// a ports.BitcoinWallet interface. Transactions are signed by the node.
func NewService(opts Opts) (ports.BitcoinWallet, error) {
	if opts.RPCHost == "" {
		return nil, fmt.Errorf("missing bitcoind rpc host")
	}
	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         opts.RPCHost,
		User:         opts.RPCUser,
		Pass:         opts.RPCPass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bitcoind: %w", err)
	}
	return newService(client, opts.Network)
}

func newService(client rpcClient, network string) (*service, error) {
	params, err := NetworkParams(network)
	if err != nil {
		return nil, err
	}
	return &service{client, network, params}, nil
}

// NetworkParams returns the chain params for the given bitcoin network name.
func NetworkParams(network string) (*chaincfg.Params, error) {
	switch network {
	case domain.NetworkMainnet:
		return &chaincfg.MainNetParams, nil
	case domain.NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case domain.NetworkRegtest, "":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown bitcoin network %s", network)
	}
}

func (s *service) Network() string {
	if s.network == "" {
		return domain.NetworkRegtest
	}
	return s.network
}

func (s *service) GetAddress(_ context.Context) (string, error) {
	addr, err := s.client.GetNewAddress("")
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

func (s *service) GetBalance(_ context.Context) (decimal.Decimal, error) {
	balance, err := s.client.GetBalance("*")
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(int64(balance), -8), nil
}

func (s *service) BroadcastTransaction(
	_ context.Context, txHex, network string,
) (string, error) {
	if err := s.checkNetwork(network); err != nil {
		return "", err
	}

	buf, err := hex.DecodeString(txHex)
	if err != nil {
		return "", fmt.Errorf("invalid transaction hex: %w", err)
	}
	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(bytes.NewReader(buf)); err != nil {
		return "", fmt.Errorf("invalid transaction: %w", err)
	}

	hash, err := s.client.SendRawTransaction(tx, false)
	if err != nil {
		return "", err
	}
	log.WithField("txid", hash.String()).Debug("bitcoin transaction broadcasted")
	return hash.String(), nil
}

func (s *service) SendToAddress(
	_ context.Context, address string, sats int64, network string,
) (string, error) {
	if err := s.checkNetwork(network); err != nil {
		return "", err
	}
	if sats <= 0 {
		return "", fmt.Errorf("amount must be greater than zero")
	}

	addr, err := btcutil.DecodeAddress(address, s.params)
	if err != nil {
		return "", fmt.Errorf("invalid address %s: %w", address, err)
	}
	if !addr.IsForNet(s.params) {
		return "", fmt.Errorf("%w: address %s is not for %s", domain.ErrNetworkMismatch, address, s.Network())
	}

	hash, err := s.client.SendToAddress(addr, btcutil.Amount(sats))
	if err != nil {
		return "", err
	}
	log.WithFields(log.Fields{
		"txid": hash.String(), "to": address, "amount": sats,
	}).Debug("bitcoin sent")
	return hash.String(), nil
}

// Close shuts down the rpc client.
func (s *service) Close() {
	s.client.Shutdown()
}

func (s *service) checkNetwork(network string) error {
	if network != s.Network() {
		return fmt.Errorf(
			"%w: wallet is on %s, got %s", domain.ErrNetworkMismatch, s.Network(), network,
		)
	}
	return nil
}
