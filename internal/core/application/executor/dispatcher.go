package executor

import (
	"context"
	"fmt"
	"strconv"

	"github.com/comit-network/swapd/internal/core/domain"
	"github.com/comit-network/swapd/internal/core/ports"
	"github.com/comit-network/swapd/pkg/unitconv"
	log "github.com/sirupsen/logrus"
)

// DefaultBitcoinFeePerWU is the fee rate used for bitcoin redeem and refund
// transactions built by the registry.
const DefaultBitcoinFeePerWU = "150"

// Dispatcher maps ledger actions to wallet operations and fills the fields
// required by swap actions with the local wallets' identities.
type Dispatcher struct {
	bitcoin  ports.BitcoinWallet
	ethereum ports.EthereumWallet
	feePerWU string
}

// NewDispatcher ...
func NewDispatcher(
	bitcoin ports.BitcoinWallet, ethereum ports.EthereumWallet, feePerWU string,
) (*Dispatcher, error) {
	if bitcoin == nil {
		return nil, fmt.Errorf("missing bitcoin wallet")
	}
	if ethereum == nil {
		return nil, fmt.Errorf("missing ethereum wallet")
	}
	if feePerWU == "" {
		feePerWU = DefaultBitcoinFeePerWU
	}
	if _, err := strconv.ParseUint(feePerWU, 10, 64); err != nil {
		return nil, fmt.Errorf("invalid bitcoin fee per weight unit %q", feePerWU)
	}
	return &Dispatcher{bitcoin, ethereum, feePerWU}, nil
}

// ResolveField returns the value for the given action field. It satisfies
// ports.FieldResolver.
func (d *Dispatcher) ResolveField(
	ctx context.Context, field domain.Field,
) (string, error) {
	switch field.Kind {
	case domain.BitcoinAddressField:
		return d.bitcoin.GetAddress(ctx)
	case domain.BitcoinFeePerWUField:
		return d.feePerWU, nil
	case domain.EthereumAddressField:
		return d.ethereum.GetAccount(), nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnresolvedField, field.Name)
	}
}

// Dispatch performs the given ledger action with the matching wallet and
// returns the resulting transaction id.
func (d *Dispatcher) Dispatch(
	ctx context.Context, action domain.LedgerAction,
) (string, error) {
	var txid string
	var err error

	switch a := action.(type) {
	case domain.BitcoinBroadcastSignedTransaction:
		txid, err = d.bitcoin.BroadcastTransaction(ctx, a.Hex, a.Network)

	case domain.BitcoinSendAmountToAddress:
		amount, perr := unitconv.ParseBaseUnits(a.Amount)
		if perr != nil {
			return "", fmt.Errorf("%w: %s", domain.ErrInvalidLedgerAction, perr)
		}
		txid, err = d.bitcoin.SendToAddress(ctx, a.To, amount.IntPart(), a.Network)

	case domain.EthereumCallContract:
		gasLimit, perr := parseGasLimit(a.GasLimit)
		if perr != nil {
			return "", perr
		}
		txid, err = d.ethereum.CallContract(
			ctx, a.Data, a.ContractAddress, gasLimit,
			ethereumNetwork(a.Network, a.ChainID),
		)

	case domain.EthereumDeployContract:
		gasLimit, perr := parseGasLimit(a.GasLimit)
		if perr != nil {
			return "", perr
		}
		amount, perr := unitconv.ParseBaseUnits(a.Amount)
		if perr != nil {
			return "", fmt.Errorf("%w: %s", domain.ErrInvalidLedgerAction, perr)
		}
		txid, err = d.ethereum.DeployContract(
			ctx, a.Data, amount, gasLimit, ethereumNetwork(a.Network, a.ChainID),
		)

	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedActionKind, action.Kind())
	}

	if err != nil {
		payload, _ := domain.LedgerActionKey(action)
		log.WithError(err).WithField("payload", payload).Warn("failed to dispatch ledger action")
		return "", fmt.Errorf("%w: %w", domain.ErrDispatchFailure, err)
	}
	return txid, nil
}

func parseGasLimit(s string) (uint64, error) {
	gas, err := unitconv.ParseBaseUnits(s)
	if err != nil || !gas.IsPositive() || gas.BigInt().BitLen() > 64 {
		return 0, fmt.Errorf("%w: gas limit %q", domain.ErrInvalidLedgerAction, s)
	}
	return gas.BigInt().Uint64(), nil
}

func ethereumNetwork(network string, chainID uint64) string {
	if network != "" {
		return network
	}
	if chainID > 0 {
		return strconv.FormatUint(chainID, 10)
	}
	return ""
}
