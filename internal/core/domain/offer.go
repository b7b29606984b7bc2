package domain

import "github.com/shopspring/decimal"

// CoinType ...
type CoinType string

const (
	CoinBitcoin CoinType = "bitcoin"
	CoinEther   CoinType = "ether"
)

// Coin is a nominal amount of a coin, ie. 1.5 bitcoin.
type Coin struct {
	Coin   CoinType        `json:"coin"`
	Amount decimal.Decimal `json:"amount"`
}

// Offer is a maker's willingness to exchange SellCoin for BuyCoin.
type Offer struct {
	SellCoin         Coin   `json:"sell_coin"`
	BuyCoin          Coin   `json:"buy_coin"`
	MakerPeerID      string `json:"maker_peer_id"`
	MakerPeerAddress string `json:"maker_peer_address,omitempty"`
}

// Mirror returns the offer as seen from the counterparty: coins swapped.
func (o Offer) Mirror() Offer {
	return Offer{
		SellCoin:         o.BuyCoin,
		BuyCoin:          o.SellCoin,
		MakerPeerID:      o.MakerPeerID,
		MakerPeerAddress: o.MakerPeerAddress,
	}
}

// Price returns the amount of sell coin given per unit of buy coin. The
// second return value is false if the buy amount is zero.
func (o Offer) Price() (decimal.Decimal, bool) {
	if o.BuyCoin.Amount.IsZero() {
		return decimal.Zero, false
	}
	return o.SellCoin.Amount.DivRound(o.BuyCoin.Amount, 18), true
}

// FindOfferQuery ...
type FindOfferQuery struct {
	BuyCoin   CoinType
	SellCoin  CoinType
	BuyAmount decimal.Decimal
}
