package ethnode

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// rpcCaller is the subset of the go-ethereum rpc client used by the wallet.
type rpcCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Close()
}

// Opts defines the parameters needed for creating an ethereum node wallet.
type Opts struct {
	NodeURL string
	Account string
	Network string
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Gas   hexutil.Uint64  `json:"gas"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

type service struct {
	client  rpcCaller
	account common.Address
	network string
	chainID uint64
}

// NewService returns a wallet whose account is unlocked on the ethereum node
// at opts.NodeURL as a ports.EthereumWallet interface. Transactions are
// signed by the node.
func NewService(ctx context.Context, opts Opts) (ports.EthereumWallet, error) {
	if opts.NodeURL == "" {
		return nil, fmt.Errorf("missing ethereum node url")
	}
	client, err := rpc.DialContext(ctx, opts.NodeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum node: %w", err)
	}
	svc, err := newService(ctx, client, opts.Account, opts.Network)
	if err != nil {
		client.Close()
		return nil, err
	}
	return svc, nil
}

func newService(
	ctx context.Context, client rpcCaller, account, network string,
) (*service, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("invalid ethereum account %q", account)
	}

	var chainID hexutil.Uint64
	if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	if network == "" {
		network = domain.NetworkRegtest
	}

	return &service{
		client:  client,
		account: common.HexToAddress(account),
		network: network,
		chainID: uint64(chainID),
	}, nil
}

func (s *service) Network() string {
	return s.network
}

// ChainID returns the id of the chain the node is connected to.
func (s *service) ChainID() uint64 {
	return s.chainID
}

func (s *service) GetAccount() string {
	return s.account.Hex()
}

func (s *service) GetBalance(ctx context.Context) (decimal.Decimal, error) {
	var balance hexutil.Big
	if err := s.client.CallContext(
		ctx, &balance, "eth_getBalance", s.account, "latest",
	); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt((*big.Int)(&balance), 0), nil
}

func (s *service) CallContract(
	ctx context.Context, data, contractAddress string, gasLimit uint64,
	network string,
) (string, error) {
	if err := s.checkNetwork(network); err != nil {
		return "", err
	}
	if !common.IsHexAddress(contractAddress) {
		return "", fmt.Errorf("invalid contract address %q", contractAddress)
	}
	input, err := decodeData(data)
	if err != nil {
		return "", err
	}

	to := common.HexToAddress(contractAddress)
	return s.sendTransaction(ctx, sendTxArgs{
		From: s.account,
		To:   &to,
		Gas:  hexutil.Uint64(gasLimit),
		Data: input,
	})
}

func (s *service) DeployContract(
	ctx context.Context, data string, value decimal.Decimal, gasLimit uint64,
	network string,
) (string, error) {
	if err := s.checkNetwork(network); err != nil {
		return "", err
	}
	if value.IsNegative() {
		return "", fmt.Errorf("value must not be negative")
	}
	input, err := decodeData(data)
	if err != nil {
		return "", err
	}
	if len(input) == 0 {
		return "", fmt.Errorf("missing contract bytecode")
	}

	return s.sendTransaction(ctx, sendTxArgs{
		From:  s.account,
		Gas:   hexutil.Uint64(gasLimit),
		Value: (*hexutil.Big)(value.BigInt()),
		Data:  input,
	})
}

// Close closes the connection to the node.
func (s *service) Close() {
	s.client.Close()
}

func (s *service) sendTransaction(
	ctx context.Context, args sendTxArgs,
) (string, error) {
	var hash common.Hash
	if err := s.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return "", err
	}
	log.WithField("txid", hash.Hex()).Debug("ethereum transaction sent")
	return hash.Hex(), nil
}

// checkNetwork accepts either the configured network name or the decimal
// chain id of the node.
func (s *service) checkNetwork(network string) error {
	if network == "" || network == s.network ||
		network == strconv.FormatUint(s.chainID, 10) {
		return nil
	}
	return fmt.Errorf(
		"%w: wallet is on %s (chain id %d), got %s",
		domain.ErrNetworkMismatch, s.network, s.chainID, network,
	)
}

func decodeData(data string) ([]byte, error) {
	if data == "" {
		return nil, nil
	}
	if !has0xPrefix(data) {
		data = "0x" + data
	}
	b, err := hexutil.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction data: %w", err)
	}
	return b, nil
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
