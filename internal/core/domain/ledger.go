package domain

import (
	"fmt"
	"strings"

	"github.com/comit-network/swapd/pkg/unitconv"
	"github.com/shopspring/decimal"
)

const (
	LedgerBitcoin  = "bitcoin"
	LedgerEthereum = "ethereum"

	AssetBitcoin = "bitcoin"
	AssetEther   = "ether"
	AssetErc20   = "erc20"

	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
	NetworkRegtest = "regtest"
)

var ledgerAssets = map[string][]string{
	LedgerBitcoin:  {AssetBitcoin},
	LedgerEthereum: {AssetEther, AssetErc20},
}

// Ledger identifies a blockchain and the network the swap happens on.
// Ethereum ledgers may carry a chain id instead of a network name.
type Ledger struct {
	Name    string `json:"name"`
	Network string `json:"network,omitempty"`
	ChainID uint64 `json:"chain_id,omitempty"`
}

// Asset is an amount of some asset expressed in its base units (sats, wei).
type Asset struct {
	Name          string `json:"name"`
	Quantity      string `json:"quantity"`
	TokenContract string `json:"token_contract,omitempty"`
}

// Amount parses the quantity of the asset.
func (a Asset) Amount() (decimal.Decimal, error) {
	return unitconv.ParseBaseUnits(a.Quantity)
}

// Nominal returns the quantity expressed in whole units (BTC, ETH).
func (a Asset) Nominal() (decimal.Decimal, error) {
	amount, err := a.Amount()
	if err != nil {
		return decimal.Zero, err
	}
	precision, ok := unitconv.PrecisionOf(a.Name)
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown asset %s", a.Name)
	}
	return unitconv.FromBaseUnits(amount, precision), nil
}

// AssetBelongsToLedger returns whether the asset can be exchanged on ledger.
func AssetBelongsToLedger(ledger, asset string) bool {
	for _, a := range ledgerAssets[strings.ToLower(ledger)] {
		if a == strings.ToLower(asset) {
			return true
		}
	}
	return false
}
