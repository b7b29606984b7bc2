package domain

import (
	"fmt"
	"time"

	"github.com/comit-network/swapd/pkg/unitconv"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLeg is one side of an order. Amount is nominal, ie. "1" for 1 BTC.
type OrderLeg struct {
	Ledger  string `json:"ledger"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
	Network string `json:"network,omitempty"`
}

// NominalAmount parses the leg amount.
func (l OrderLeg) NominalAmount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(l.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed amount %q", ErrInvalidOrder, l.Amount)
	}
	return amount, nil
}

// IsZero returns true if the amount is missing, malformed or not positive.
func (l OrderLeg) IsZero() bool {
	amount, err := l.NominalAmount()
	return err != nil || !amount.IsPositive()
}

// ToAsset converts the leg to a base units Asset.
func (l OrderLeg) ToAsset() (Asset, error) {
	amount, err := l.NominalAmount()
	if err != nil {
		return Asset{}, err
	}
	precision, ok := unitconv.PrecisionOf(l.Asset)
	if !ok {
		return Asset{}, fmt.Errorf("%w: unknown asset %s", ErrInvalidOrder, l.Asset)
	}
	return Asset{
		Name:     l.Asset,
		Quantity: unitconv.ToBaseUnits(amount, precision).String(),
	}, nil
}

// ToLedger ...
func (l OrderLeg) ToLedger() Ledger {
	return Ledger{Name: l.Ledger, Network: l.Network}
}

// Order is a maker's offer to trade the bid asset for the ask asset.
// Key is the trading pair, ie. "ETH-BTC". ValidUntil is a unix timestamp.
type Order struct {
	Key        string   `json:"key"`
	ID         string   `json:"id"`
	ValidUntil int64    `json:"valid_until"`
	Ask        OrderLeg `json:"ask"`
	Bid        OrderLeg `json:"bid"`
}

// NewOrder returns an order with a random id valid for the given duration.
func NewOrder(pair string, validity time.Duration, ask, bid OrderLeg) *Order {
	return &Order{
		Key:        pair,
		ID:         uuid.New().String(),
		ValidUntil: time.Now().Add(validity).Unix(),
		Ask:        ask,
		Bid:        bid,
	}
}

// IsExpired returns whether the order is no longer valid at the given time.
func (o Order) IsExpired(now time.Time) bool {
	return now.Unix() > o.ValidUntil
}

// Validate checks that the order can be published or accepted at the given
// time.
func (o Order) Validate(now time.Time) error {
	if o.Key == "" || o.ID == "" {
		return ErrOrderMalformed
	}
	if o.IsExpired(now) {
		return ErrOrderExpired
	}
	if o.Ask.IsZero() || o.Bid.IsZero() {
		return ErrOrderZeroAmount
	}
	for _, leg := range []OrderLeg{o.Ask, o.Bid} {
		if !AssetBelongsToLedger(leg.Ledger, leg.Asset) {
			return fmt.Errorf("%w: %s on %s", ErrOrderAssetMismatch, leg.Asset, leg.Ledger)
		}
	}
	return nil
}

// Rate returns how much of the bid asset is given for one unit of the ask
// asset.
func (o Order) Rate() (decimal.Decimal, error) {
	if o.Ask.IsZero() || o.Bid.IsZero() {
		return decimal.Zero, ErrOrderZeroAmount
	}
	ask, _ := o.Ask.NominalAmount()
	bid, _ := o.Bid.NominalAmount()
	return bid.DivRound(ask, unitconv.EtherPrecision), nil
}

// SameAs returns whether the two orders carry identical terms.
func (o Order) SameAs(other Order) bool {
	return o.Key == other.Key && o.ID == other.ID &&
		o.ValidUntil == other.ValidUntil &&
		o.Ask == other.Ask && o.Bid == other.Bid
}
