package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/comit-network/swapd/internal/core/application/negotiation"
	"github.com/comit-network/swapd/internal/core/domain"
	log "github.com/sirupsen/logrus"
)

var symbols = map[string]domain.OrderLeg{
	"BTC": {Ledger: domain.LedgerBitcoin, Asset: domain.AssetBitcoin},
	"ETH": {Ledger: domain.LedgerEthereum, Asset: domain.AssetEther},
}

// orderTemplate builds the orders the maker keeps publishing for a pair.
// A pair BASE-QUOTE asks for the base asset and bids the quote one.
type orderTemplate struct {
	pair     string
	ask      domain.OrderLeg
	bid      domain.OrderLeg
	validity time.Duration
}

func newOrderTemplate(
	pair, askAmount, bidAmount string, validity time.Duration,
	ledgers map[string]domain.Ledger,
) (*orderTemplate, error) {
	symbolsInPair := strings.Split(strings.ToUpper(pair), "-")
	if len(symbolsInPair) != 2 {
		return nil, fmt.Errorf("invalid pair %s, must be in the form BASE-QUOTE", pair)
	}
	ask, ok := symbols[symbolsInPair[0]]
	if !ok {
		return nil, fmt.Errorf("unsupported asset %s", symbolsInPair[0])
	}
	bid, ok := symbols[symbolsInPair[1]]
	if !ok {
		return nil, fmt.Errorf("unsupported asset %s", symbolsInPair[1])
	}
	if ask.Ledger == bid.Ledger {
		return nil, fmt.Errorf("pair %s must trade assets of different ledgers", pair)
	}
	if validity <= 0 {
		return nil, fmt.Errorf("order validity must be positive")
	}

	ask.Amount, ask.Network = askAmount, ledgers[ask.Ledger].Network
	bid.Amount, bid.Network = bidAmount, ledgers[bid.Ledger].Network
	if ask.IsZero() || bid.IsZero() {
		return nil, domain.ErrOrderZeroAmount
	}

	return &orderTemplate{strings.ToUpper(pair), ask, bid, validity}, nil
}

func (t *orderTemplate) newOrder() domain.Order {
	return *domain.NewOrder(t.pair, t.validity, t.ask, t.bid)
}

// republishOrder publishes a fresh order if there's none for the pair or the
// current one expires within margin.
func republishOrder(
	ctx context.Context, maker *negotiation.Maker, tmpl *orderTemplate,
	margin time.Duration,
) error {
	current, err := maker.GetOrder(tmpl.pair)
	if err == nil && !current.IsExpired(time.Now().Add(margin)) {
		return nil
	}

	order := tmpl.newOrder()
	if err := maker.PublishOrder(ctx, order); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"pair":        order.Key,
		"order_id":    order.ID,
		"ask":         fmt.Sprintf("%s %s", order.Ask.Amount, order.Ask.Asset),
		"bid":         fmt.Sprintf("%s %s", order.Bid.Amount, order.Bid.Asset),
		"valid_until": time.Unix(order.ValidUntil, 0).Format(time.RFC3339),
	}).Info("order published")
	return nil
}
